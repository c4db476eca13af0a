package labelcheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDNMatcherExactScope(t *testing.T) {
	m := NewDNMatcher([]Rule{
		{LabelPattern: "sys.boot", Scope: ScopeExact, Subject: "*", Allow: true},
	})
	require.True(t, m.Allowed("sys.boot", "anyone"))
	require.False(t, m.Allowed("sys.boot.extra", "anyone"))
}

func TestDNMatcherSubtreeScope(t *testing.T) {
	m := NewDNMatcher([]Rule{
		{LabelPattern: "sys", Scope: ScopeSubtree, Subject: "*", Allow: true},
	})
	require.True(t, m.Allowed("sys", "anyone"))
	require.True(t, m.Allowed("sys.boot.flag", "anyone"))
	require.False(t, m.Allowed("system", "anyone"))
}

func TestDNMatcherChildScope(t *testing.T) {
	m := NewDNMatcher([]Rule{
		{LabelPattern: "sys", Scope: ScopeChild, Subject: "*", Allow: true},
	})
	require.True(t, m.Allowed("sys.boot", "anyone"))
	require.False(t, m.Allowed("sys.boot.flag", "anyone"))
	require.False(t, m.Allowed("sys", "anyone"))
}

func TestDNMatcherSubjectVariants(t *testing.T) {
	m := NewDNMatcher([]Rule{
		{LabelPattern: "*", Scope: ScopeSubtree, Subject: "anonymous", Allow: true},
		{LabelPattern: "*", Scope: ScopeSubtree, Subject: "writer-daemon", Allow: true},
	})
	require.True(t, m.Allowed("anything", ""))
	require.True(t, m.Allowed("anything", "writer-daemon"))
	require.False(t, m.Allowed("anything", "some-other-process"))
}

func TestDNMatcherFirstRuleWins(t *testing.T) {
	m := NewDNMatcher([]Rule{
		{LabelPattern: "sys", Scope: ScopeSubtree, Subject: "*", Allow: false},
		{LabelPattern: "*", Scope: ScopeSubtree, Subject: "*", Allow: true},
	})
	require.False(t, m.Allowed("sys.boot", "anyone"))
	require.True(t, m.Allowed("other", "anyone"))
}

func TestDNMatcherNoRuleMatchesDenies(t *testing.T) {
	m := NewDNMatcher([]Rule{
		{LabelPattern: "sys", Scope: ScopeExact, Subject: "*", Allow: true},
	})
	require.False(t, m.Allowed("unrelated", "anyone"))
}

func TestAllowAllAndDenyAll(t *testing.T) {
	require.True(t, AllowAll{}.Allowed("x", "y"))
	require.False(t, DenyAll{}.Allowed("x", "y"))
}
