package main

import (
	"fmt"

	"github.com/oba-ldap/propd/internal/labelcheck"
	"github.com/oba-ldap/propd/internal/problog"
	"github.com/oba-ldap/propd/internal/propconfig"
	"github.com/oba-ldap/propd/internal/propindex"
	"github.com/oba-ldap/propd/internal/router"
)

// loadConfig reads configPath if set, otherwise falls back to the
// built-in defaults, matching the daemon's own startup sequence.
func loadConfig() (*propconfig.Config, error) {
	if configPath == "" {
		return propconfig.DefaultConfig(), nil
	}
	cfg, err := propconfig.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("propctl: loading config: %w", err)
	}
	if errs := propconfig.ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("propctl: invalid config: %w", errs[0])
	}
	return cfg, nil
}

func newLogger(cfg *propconfig.Config) problog.Logger {
	return problog.New(problog.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
}

// buildPredicate translates an ACLConfig into a labelcheck.Predicate.
// An empty rule list degrades to AllowAll/DenyAll per DefaultAllow;
// a non-empty rule list gets an implicit catch-all "*"/"*" rule
// appended so DefaultAllow still governs labels none of the explicit
// rules matched.
func buildPredicate(cfg propconfig.ACLConfig) labelcheck.Predicate {
	if len(cfg.Rules) == 0 {
		if cfg.DefaultAllow {
			return labelcheck.AllowAll{}
		}
		return labelcheck.DenyAll{}
	}

	rules := make([]labelcheck.Rule, 0, len(cfg.Rules)+1)
	for _, rc := range cfg.Rules {
		rules = append(rules, labelcheck.Rule{
			LabelPattern: rc.LabelPattern,
			Scope:        parseScope(rc.Scope),
			Subject:      rc.Subject,
			Allow:        rc.Allow,
		})
	}
	rules = append(rules, labelcheck.Rule{LabelPattern: "*", Subject: "*", Allow: cfg.DefaultAllow})
	return labelcheck.NewDNMatcher(rules)
}

func parseScope(s string) labelcheck.Scope {
	switch s {
	case "child":
		return labelcheck.ScopeChild
	case "subtree":
		return labelcheck.ScopeSubtree
	default:
		return labelcheck.ScopeExact
	}
}

// buildRouter constructs a ContextRouter from cfg's router mode,
// opening contexts read-write only when readWrite is true. Every
// propctl subcommand passes false: set goes through the daemon's wire
// protocol rather than writing areas itself.
func buildRouter(cfg *propconfig.Config, readWrite bool) (*router.ContextRouter, error) {
	opts := router.Options{
		Predicate: buildPredicate(cfg.ACL),
		ReadWrite: readWrite,
		Logger:    newLogger(cfg),
	}

	switch cfg.Router.Mode {
	case "indexed":
		bi, err := propindex.OpenBinaryIndex(cfg.Router.BinaryIndexPath)
		if err != nil {
			return nil, fmt.Errorf("propctl: opening binary index: %w", err)
		}
		return router.NewIndexedRouter(cfg.Areas.RootDir, bi, opts), nil
	default:
		idx, err := loadTextIndex(cfg)
		if err != nil {
			return nil, err
		}
		return router.NewTextRouter(cfg.Areas.RootDir, idx, opts), nil
	}
}

func loadTextIndex(cfg *propconfig.Config) (*propindex.TextIndex, error) {
	if cfg.Router.CacheFile != "" && propindex.CacheFileExists(cfg.Router.CacheFile) {
		idx, err := propindex.LoadPersistedTextIndex(cfg.Router.CacheFile)
		if err == nil {
			return idx, nil
		}
		// Fall through and rebuild from source files; a stale or
		// corrupt cache must never make the router fail to start.
	}

	idx := propindex.NewTextIndex()
	for _, f := range cfg.Router.TextIndexFiles {
		if err := idx.LoadFile(f); err != nil {
			return nil, fmt.Errorf("propctl: loading text index %q: %w", f, err)
		}
	}
	if cfg.Router.CacheFile != "" {
		_ = propindex.PersistTextIndex(idx, cfg.Router.CacheFile)
	}
	return idx, nil
}
