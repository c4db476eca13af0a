package propconfig

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parser errors.
var (
	ErrInvalidYAML       = errors.New("invalid YAML format")
	ErrInvalidDuration   = errors.New("invalid duration format")
	ErrInvalidNumber     = errors.New("invalid number format")
	ErrFileNotFound      = errors.New("configuration file not found")
	ErrMissingConfigFile = errors.New("config file path is required")
	ErrMissingOnChange   = errors.New("onChange callback is required")
)

// LoadConfig loads configuration from a file path. It reads the file,
// substitutes environment variables, parses the YAML subset, and
// applies defaults for missing values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data, substituting
// environment variables first and merging onto DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	data = substituteEnvVars(data)
	config := DefaultConfig()
	if err := parseYAML(data, config); err != nil {
		return nil, err
	}
	return config, nil
}

// envVarPattern matches ${VAR} or ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		content := string(match[2 : len(match)-1])
		if idx := strings.Index(content, ":-"); idx != -1 {
			varName := content[:idx]
			defaultVal := content[idx+2:]
			if val := os.Getenv(varName); val != "" {
				return []byte(val)
			}
			return []byte(defaultVal)
		}
		return []byte(os.Getenv(content))
	})
}

// yamlNode is one parsed line of the YAML subset this package
// understands: scalar key/value pairs, nested maps by indentation, and
// "- value" / "- key: value" list items. It does not attempt full YAML.
type yamlNode struct {
	key          string
	value        string
	indent       int
	children     []*yamlNode
	isList       bool
	isListObject bool
	listItems    []string
}

func parseYAML(data []byte, config *Config) error {
	lines := strings.Split(string(data), "\n")
	root := &yamlNode{indent: -1}
	if err := buildTree(lines, root); err != nil {
		return err
	}
	return applyConfig(root, config)
}

func buildTree(lines []string, root *yamlNode) error {
	stack := []*yamlNode{root}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := countIndent(line)
		node, err := parseLine(trimmed, indent)
		if err != nil {
			return err
		}

		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]

		if node.isList {
			if node.isListObject {
				listItemNode := &yamlNode{indent: indent}
				firstChild := &yamlNode{key: node.key, value: node.value, indent: indent + 2}
				listItemNode.children = append(listItemNode.children, firstChild)
				parent.children = append(parent.children, listItemNode)
				stack = append(stack, listItemNode)
				continue
			}
			if parent.listItems == nil {
				parent.listItems = []string{}
			}
			parent.listItems = append(parent.listItems, node.value)
			continue
		}

		parent.children = append(parent.children, node)
		stack = append(stack, node)
	}
	return nil
}

func countIndent(line string) int {
	count := 0
	for _, ch := range line {
		if ch == ' ' {
			count++
		} else if ch == '\t' {
			count += 2
		} else {
			break
		}
	}
	return count
}

func parseLine(line string, indent int) (*yamlNode, error) {
	if strings.HasPrefix(line, "- ") {
		content := strings.TrimPrefix(line, "- ")
		if colonIdx := strings.Index(content, ":"); colonIdx != -1 {
			key := strings.TrimSpace(content[:colonIdx])
			value := ""
			if colonIdx+1 < len(content) {
				value = strings.TrimSpace(content[colonIdx+1:])
			}
			return &yamlNode{key: key, value: unquote(value), indent: indent, isList: true, isListObject: true}, nil
		}
		return &yamlNode{value: unquote(strings.TrimSpace(content)), indent: indent, isList: true}, nil
	}

	colonIdx := strings.Index(line, ":")
	if colonIdx == -1 {
		return nil, ErrInvalidYAML
	}
	key := strings.TrimSpace(line[:colonIdx])
	value := ""
	if colonIdx+1 < len(line) {
		value = strings.TrimSpace(line[colonIdx+1:])
	}
	return &yamlNode{key: key, value: unquote(value), indent: indent}, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parseInlineArray parses an inline array like ["a", "b", "c"].
func parseInlineArray(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil
	}
	s = s[1 : len(s)-1]
	if s == "" {
		return []string{}
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = unquote(strings.TrimSpace(item))
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// applyConfig applies parsed YAML nodes onto config.
func applyConfig(root *yamlNode, config *Config) error {
	for _, node := range root.children {
		switch node.key {
		case "router":
			if err := applyRouterConfig(node, &config.Router); err != nil {
				return err
			}
		case "areas":
			if err := applyAreasConfig(node, &config.Areas); err != nil {
				return err
			}
		case "logging":
			if err := applyLogConfig(node, &config.Logging); err != nil {
				return err
			}
		case "wire":
			if err := applyWireConfig(node, &config.Wire); err != nil {
				return err
			}
		case "acl":
			if err := applyACLConfig(node, &config.ACL); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyRouterConfig(node *yamlNode, cfg *RouterConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "mode":
			if child.value != "" {
				cfg.Mode = child.value
			}
		case "binaryIndexPath":
			if child.value != "" {
				cfg.BinaryIndexPath = child.value
			}
		case "textIndexFiles":
			if arr := parseInlineArray(child.value); arr != nil {
				cfg.TextIndexFiles = arr
			} else if len(child.listItems) > 0 {
				cfg.TextIndexFiles = child.listItems
			}
		case "cacheFile":
			cfg.CacheFile = child.value
		}
	}
	return nil
}

func applyAreasConfig(node *yamlNode, cfg *AreasConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "rootDir":
			if child.value != "" {
				cfg.RootDir = child.value
			}
		case "readWrite":
			cfg.ReadWrite = parseBool(child.value)
		case "globalSerialFile":
			if child.value != "" {
				cfg.GlobalSerialFile = child.value
			}
		}
	}
	return nil
}

func applyLogConfig(node *yamlNode, cfg *LogConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "level":
			if child.value != "" {
				cfg.Level = child.value
			}
		case "format":
			if child.value != "" {
				cfg.Format = child.value
			}
		case "output":
			if child.value != "" {
				cfg.Output = child.value
			}
		}
	}
	return nil
}

func applyWireConfig(node *yamlNode, cfg *WireConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "socketPath":
			if child.value != "" {
				cfg.SocketPath = child.value
			}
		case "version":
			if child.value != "" {
				val, err := strconv.Atoi(child.value)
				if err != nil {
					return ErrInvalidNumber
				}
				cfg.Version = val
			}
		case "ackTimeout":
			if child.value != "" {
				dur, err := parseDuration(child.value)
				if err != nil {
					return err
				}
				cfg.AckTimeout = dur
			}
		}
	}
	return nil
}

func applyACLConfig(node *yamlNode, cfg *ACLConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "defaultAllow":
			cfg.DefaultAllow = parseBool(child.value)
		case "rules":
			rules, err := parseACLRules(child)
			if err != nil {
				return err
			}
			cfg.Rules = rules
		}
	}
	return nil
}

func parseACLRules(node *yamlNode) ([]ACLRuleConfig, error) {
	var rules []ACLRuleConfig
	for _, item := range node.children {
		rule := ACLRuleConfig{Allow: true}
		for _, field := range item.children {
			switch field.key {
			case "labelPattern":
				rule.LabelPattern = field.value
			case "scope":
				rule.Scope = field.value
			case "subject":
				rule.Subject = field.value
			case "allow":
				rule.Allow = parseBool(field.value)
			}
		}
		if rule.LabelPattern != "" || rule.Subject != "" {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// parseDuration parses a duration string supporting formats like "30s",
// "5m", "1h", "90d" (the "d" suffix is not supported by
// time.ParseDuration).
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, ErrInvalidDuration
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, ErrInvalidDuration
	}
	return dur, nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
