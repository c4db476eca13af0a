package propconfig

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of
// validation errors. An empty slice indicates the configuration is
// valid.
func ValidateConfig(config *Config) []error {
	var errs []error
	errs = append(errs, validateRouterConfig(&config.Router)...)
	errs = append(errs, validateAreasConfig(&config.Areas)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validateWireConfig(&config.Wire)...)
	errs = append(errs, validateACLConfig(&config.ACL)...)
	return errs
}

func validateRouterConfig(cfg *RouterConfig) []error {
	var errs []error
	switch cfg.Mode {
	case "text":
		if len(cfg.TextIndexFiles) == 0 && cfg.CacheFile == "" {
			errs = append(errs, ValidationError{
				Field:   "router.textIndexFiles",
				Message: "text mode requires at least one textIndexFiles entry or a cacheFile",
			})
		}
	case "indexed":
		if cfg.BinaryIndexPath == "" {
			errs = append(errs, ValidationError{
				Field:   "router.binaryIndexPath",
				Message: "indexed mode requires binaryIndexPath",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "router.mode",
			Message: fmt.Sprintf("unknown router mode %q, want \"text\" or \"indexed\"", cfg.Mode),
		})
	}
	return errs
}

func validateAreasConfig(cfg *AreasConfig) []error {
	var errs []error
	if cfg.RootDir == "" {
		errs = append(errs, ValidationError{Field: "areas.rootDir", Message: "root directory is required"})
	} else if !filepath.IsAbs(cfg.RootDir) {
		errs = append(errs, ValidationError{Field: "areas.rootDir", Message: "root directory must be an absolute path"})
	}
	if cfg.GlobalSerialFile == "" {
		errs = append(errs, ValidationError{Field: "areas.globalSerialFile", Message: "global serial file name is required"})
	} else if strings.ContainsRune(cfg.GlobalSerialFile, filepath.Separator) {
		errs = append(errs, ValidationError{Field: "areas.globalSerialFile", Message: "must be a bare file name, not a path"})
	}
	return errs
}

func validateLogConfig(cfg *LogConfig) []error {
	var errs []error
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Level != "" && !validLevels[strings.ToLower(cfg.Level)] {
		errs = append(errs, ValidationError{Field: "logging.level", Message: fmt.Sprintf("invalid level: %s", cfg.Level)})
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Format != "" && !validFormats[strings.ToLower(cfg.Format)] {
		errs = append(errs, ValidationError{Field: "logging.format", Message: fmt.Sprintf("invalid format: %s", cfg.Format)})
	}
	return errs
}

func validateWireConfig(cfg *WireConfig) []error {
	var errs []error
	if cfg.SocketPath == "" {
		errs = append(errs, ValidationError{Field: "wire.socketPath", Message: "socket path is required"})
	}
	if cfg.Version != 0 && cfg.Version != 1 && cfg.Version != 2 {
		errs = append(errs, ValidationError{Field: "wire.version", Message: "version must be 0 (auto), 1, or 2"})
	}
	if cfg.AckTimeout < 0 {
		errs = append(errs, ValidationError{Field: "wire.ackTimeout", Message: "ack timeout cannot be negative"})
	}
	return errs
}

func validateACLConfig(cfg *ACLConfig) []error {
	var errs []error
	validScopes := map[string]bool{"": true, "exact": true, "child": true, "subtree": true}
	for i, rule := range cfg.Rules {
		if rule.LabelPattern == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("acl.rules[%d].labelPattern", i), Message: "label pattern is required"})
		}
		if !validScopes[strings.ToLower(rule.Scope)] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("acl.rules[%d].scope", i), Message: fmt.Sprintf("invalid scope: %s", rule.Scope)})
		}
	}
	return errs
}

// validateAddress validates a network address in host:port format.
// Nothing in the repository calls it.
func validateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %v", err)
	}
	if host != "" && host != "localhost" {
		net.ParseIP(host) // hostnames are accepted without further checks
	}
	if port == "" {
		return fmt.Errorf("port is required")
	}
	return nil
}

// pathExists reports whether path names an existing file or directory.
// Nothing in the repository calls it.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
