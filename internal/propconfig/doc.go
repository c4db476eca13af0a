// Package propconfig provides configuration parsing and management for
// the property store's administrative surfaces: the router construction
// the writer daemon and propctl both need (which root directory, which
// routing mode, which ACL rules), plus logging and wire-client settings.
// It is never imported by the lock-free read path (internal/prop,
// internal/propapi.ReaderAPI) — that path must stay heap-allocation-free
// and signal-safe, and propconfig allocates freely.
//
// # Overview
//
// propconfig handles loading, parsing, and validating configuration from
// YAML files and environment variables. It supports:
//
//   - YAML configuration files
//   - Environment variable overrides (${VAR} / ${VAR:-default})
//   - Default values for all settings
//   - Configuration validation
//   - Poll-based hot reload for the long-running daemon
//
// # Configuration Structure
//
// The main Config struct contains every administrative setting:
//
//	type Config struct {
//	    Router  RouterConfig  // routing mode, index paths
//	    Areas   AreasConfig   // property area root directory
//	    Logging LogConfig     // logging settings
//	    Wire    WireConfig    // setter daemon socket settings
//	    ACL     ACLConfig     // label-check predicate rules
//	}
//
// # Loading Configuration
//
//	cfg, err := propconfig.LoadConfig("/etc/propd/propd.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or use defaults:
//
//	cfg := propconfig.DefaultConfig()
//
// # Environment Variables
//
// Configuration values can be overridden with environment variables
// using the pattern ${VAR} or ${VAR:-default} directly inside the YAML
// file, substituted before parsing:
//
//	areas:
//	  rootDir: "${PROPD_ROOT:-/var/lib/propd}"
//
// # Example Configuration
//
//	router:
//	  mode: "indexed"
//	  binaryIndexPath: "/etc/propd/property_contexts.bin"
//	  textIndexFiles: ["/etc/propd/property_contexts"]
//
//	areas:
//	  rootDir: "/dev/__properties__"
//	  readWrite: false
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "stdout"
//
//	wire:
//	  socketPath: "/dev/socket/propd"
//	  version: 0
//	  ackTimeout: 250ms
//
//	acl:
//	  defaultAllow: false
//	  rules:
//	    - labelPattern: "*"
//	      scope: "subtree"
//	      subject: "*"
//	      allow: true
package propconfig
