package labelcheck

import "strings"

// Scope names how broadly a Rule's LabelPattern reaches, mirroring the
// target/subject/scope shape of a DN-based ACL matcher but restricted
// to dot-segmented label equality rather than full DN comparison.
type Scope int

const (
	// ScopeExact matches LabelPattern against the label exactly.
	ScopeExact Scope = iota
	// ScopeChild matches a label that is exactly one segment below
	// LabelPattern ("a.b" is a child of "a", not of "" or "a.b.c").
	ScopeChild
	// ScopeSubtree matches LabelPattern itself or any descendant.
	ScopeSubtree
)

// Rule is one access decision: principals matching Subject may (or may
// not, per Allow) reach labels matching LabelPattern under Scope.
// Rules are evaluated in order; the first match wins.
type Rule struct {
	LabelPattern string
	Scope        Scope
	Subject      string // "*", "anonymous", "authenticated", or an exact principal id
	Allow        bool
}

// DNMatcher is a Predicate built from an ordered rule list, modeled on
// a distinguished-name/scope ACL matcher but evaluating context labels
// instead of LDAP distinguished names.
type DNMatcher struct {
	rules []Rule
}

// NewDNMatcher returns a DNMatcher evaluating rules in the given order.
func NewDNMatcher(rules []Rule) *DNMatcher {
	return &DNMatcher{rules: append([]Rule{}, rules...)}
}

// Allowed reports whether principal may access label: the first rule
// whose LabelPattern/Scope matches label and whose Subject matches
// principal decides the outcome. No matching rule denies.
func (m *DNMatcher) Allowed(label, principal string) bool {
	for _, r := range m.rules {
		if matchesLabel(r.LabelPattern, r.Scope, label) && matchesSubject(r.Subject, principal) {
			return r.Allow
		}
	}
	return false
}

func matchesLabel(pattern string, scope Scope, label string) bool {
	if pattern == "*" {
		return true
	}
	switch scope {
	case ScopeExact:
		return label == pattern
	case ScopeChild:
		return isImmediateChild(pattern, label)
	case ScopeSubtree:
		return label == pattern || strings.HasPrefix(label, pattern+".")
	default:
		return false
	}
}

// isImmediateChild reports whether label is exactly one dot-segment
// below parent ("a.b" is a child of "a"; "a.b.c" and "a" are not).
func isImmediateChild(parent, label string) bool {
	if parent == "" {
		return !strings.Contains(label, ".")
	}
	suffix := strings.TrimPrefix(label, parent+".")
	if suffix == label {
		return false
	}
	return !strings.Contains(suffix, ".")
}

func matchesSubject(subject, principal string) bool {
	switch subject {
	case "*":
		return true
	case "anonymous":
		return principal == ""
	case "authenticated":
		return principal != ""
	default:
		return subject == principal
	}
}
