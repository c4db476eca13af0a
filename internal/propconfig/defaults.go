package propconfig

import "time"

// DefaultConfig returns a Config with sensible default values, matching
// the well-known paths a property store's runtime conventionally uses.
func DefaultConfig() *Config {
	return &Config{
		Router: RouterConfig{
			Mode:            "text",
			BinaryIndexPath: "/dev/__properties__/property_info",
			TextIndexFiles:  []string{"/etc/propd/property_contexts"},
			CacheFile:       "",
		},
		Areas: AreasConfig{
			RootDir:          "/dev/__properties__",
			ReadWrite:        false,
			GlobalSerialFile: "properties_serial",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Wire: WireConfig{
			SocketPath: "/dev/socket/propd",
			Version:    0,
			AckTimeout: 250 * time.Millisecond,
		},
		ACL: ACLConfig{
			DefaultAllow: true,
			Rules:        nil,
		},
	}
}
