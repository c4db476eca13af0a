package propconfig

import "time"

// Config holds the complete administrative configuration shared by the
// setter daemon and propctl. It is never consulted by the lock-free
// read path.
type Config struct {
	Router  RouterConfig  `yaml:"router"`
	Areas   AreasConfig   `yaml:"areas"`
	Logging LogConfig     `yaml:"logging"`
	Wire    WireConfig    `yaml:"wire"`
	ACL     ACLConfig     `yaml:"acl"`
}

// RouterConfig selects and locates the ContextRouter's lookup structure.
type RouterConfig struct {
	// Mode is "indexed" (BinaryIndex) or "text" (TextIndex).
	Mode string `yaml:"mode"`
	// BinaryIndexPath is the well-known path to a BinaryIndex file,
	// consulted when Mode is "indexed".
	BinaryIndexPath string `yaml:"binaryIndexPath"`
	// TextIndexFiles are loaded in order when Mode is "text"; later
	// files' entries are appended after earlier ones, so earlier files
	// win ties under TextIndex's decreasing-prefix-length ordering.
	TextIndexFiles []string `yaml:"textIndexFiles"`
	// CacheFile, if set, is where a compiled TextIndex is persisted by
	// propindex.PersistTextIndex and reloaded from on a later startup
	// instead of re-parsing TextIndexFiles.
	CacheFile string `yaml:"cacheFile"`
}

// AreasConfig locates the directory of per-context property area files.
type AreasConfig struct {
	// RootDir holds one file per context plus the properties_serial
	// global-serial area.
	RootDir string `yaml:"rootDir"`
	// ReadWrite opens every context area read-write. Only the setter
	// daemon sets this true; every reader process leaves it false.
	ReadWrite bool `yaml:"readWrite"`
	// GlobalSerialFile is the distinguished context file name holding
	// the global-serial area.
	GlobalSerialFile string `yaml:"globalSerialFile"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// WireConfig holds the setter daemon socket settings propctl's client
// library needs.
type WireConfig struct {
	SocketPath string        `yaml:"socketPath"`
	// Version pins the wire version (1 or 2); 0 means auto-detect from
	// the ro.property_service.version property at runtime.
	Version    int           `yaml:"version"`
	AckTimeout time.Duration `yaml:"ackTimeout"`
}

// ACLConfig holds the rule list a labelcheck.DNMatcher is built from.
type ACLConfig struct {
	DefaultAllow bool            `yaml:"defaultAllow"`
	Rules        []ACLRuleConfig `yaml:"rules"`
}

// ACLRuleConfig is a single labelcheck.Rule in its YAML form.
type ACLRuleConfig struct {
	LabelPattern string `yaml:"labelPattern"`
	Scope        string `yaml:"scope"`
	Subject      string `yaml:"subject"`
	Allow        bool   `yaml:"allow"`
}
