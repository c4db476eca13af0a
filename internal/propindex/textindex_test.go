package propindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextIndexOrdersByDecreasingPrefixLength(t *testing.T) {
	idx := NewTextIndex()
	require.NoError(t, idx.AddEntry("a.", "short"))
	require.NoError(t, idx.AddEntry("a.b.c.", "long"))
	require.NoError(t, idx.AddEntry("a.b.", "mid"))

	label, ok := idx.Route("a.b.c.d")
	require.True(t, ok)
	require.Equal(t, "long", label)
}

func TestTextIndexWildcardIsLastResort(t *testing.T) {
	idx := NewTextIndex()
	require.NoError(t, idx.AddEntry(Wildcard, "default"))
	require.NoError(t, idx.AddEntry("sys.", "system"))

	label, ok := idx.Route("sys.boot")
	require.True(t, ok)
	require.Equal(t, "system", label)

	label, ok = idx.Route("anything.else")
	require.True(t, ok)
	require.Equal(t, "default", label)
}

func TestTextIndexDiscardsControlPrefixEntries(t *testing.T) {
	idx := NewTextIndex()
	require.NoError(t, idx.AddEntry(ControlPrefix+"start", "should-not-appear"))

	_, ok := idx.Route("ctl.start")
	require.False(t, ok)
	require.Empty(t, idx.Labels())
}

func TestTextIndexSharedLabelAcrossPrefixes(t *testing.T) {
	idx := NewTextIndex()
	require.NoError(t, idx.AddEntry("a.", "shared"))
	require.NoError(t, idx.AddEntry("b.", "shared"))

	require.Equal(t, []string{"shared"}, idx.Labels())

	la, _ := idx.Route("a.x")
	lb, _ := idx.Route("b.x")
	require.Equal(t, la, lb)
}

func TestTextIndexRouteNoMatch(t *testing.T) {
	idx := NewTextIndex()
	require.NoError(t, idx.AddEntry("a.", "aaa"))

	_, ok := idx.Route("b.x")
	require.False(t, ok)
}

func TestTextIndexLoadReaderParsesCommentsAndBlankLines(t *testing.T) {
	input := `
# a comment line
a.b.  labelA
   c.d.  labelB  # trailing comment and ignored fields

ctl.  should-be-dropped
*     default
`
	idx := NewTextIndex()
	require.NoError(t, idx.LoadReader(strings.NewReader(input)))

	label, ok := idx.Route("a.b.anything")
	require.True(t, ok)
	require.Equal(t, "labelA", label)

	label, ok = idx.Route("c.d.anything")
	require.True(t, ok)
	require.Equal(t, "labelB", label)

	label, ok = idx.Route("ctl.foo")
	require.True(t, ok)
	require.Equal(t, "default", label)

	label, ok = idx.Route("zzz")
	require.True(t, ok)
	require.Equal(t, "default", label)
}
