package propindex

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSampleIndex hand-assembles a tiny BinaryIndex file for testing:
//
//	root -- "ctl" (exact "start" -> context L, prefix "" -> context K)
//
// Both the exact entry and the prefix entry live on the "ctl" node
// itself, keyed node-relative: the router only ever hands a node's own
// prefix and exact lists whatever text remains after the segment (and
// its trailing dot) already consumed to reach that node, so "ctl.start"
// arrives at this node as remaining text "start", and "ctl.stop" as
// "stop". This matches scenario E: an exact match on a node must win
// over that same node's own prefix entry.
func buildSampleIndex() []byte {
	const (
		offHeader = 0
		offRoot   = 36
		offCtl    = offRoot + biNodeSize

		offRootChildren = offCtl + biNodeSize
		offCtlExact     = offRootChildren + 4
		offCtlPrefixes  = offCtlExact + biLeafSize

		offContexts = offCtlPrefixes + biPrefixSize
		offStrings  = offContexts + 2*4
	)

	nameCtl := offStrings
	nameExactKey := nameCtl + len("ctl\x00")
	namePrefixKey := nameExactKey + len("start\x00")
	nameK := namePrefixKey + len("\x00")
	nameL := nameK + len("K\x00")
	total := nameL + len("L\x00")

	buf := make([]byte, total)
	put32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	putStr := func(off int, s string) { copy(buf[off:], s); buf[off+len(s)] = 0 }

	// header
	put32(offHeader+0, 1)          // current_version
	put32(offHeader+4, 1)          // minimum_supported_version
	put32(offHeader+8, uint32(total))
	put32(offHeader+12, offRoot)
	put32(offHeader+16, offContexts)
	put32(offHeader+20, 2)
	put32(offHeader+24, 0)
	put32(offHeader+28, 0)
	put32(offHeader+32, offStrings)

	// root node: no name, no context/type, one child (ctl)
	put32(offRoot+0, 0)
	put32(offRoot+4, NoIndex)
	put32(offRoot+8, NoIndex)
	put32(offRoot+12, 1)
	put32(offRoot+16, offRootChildren)
	put32(offRoot+20, 0)
	put32(offRoot+24, 0)
	put32(offRoot+28, 0)
	put32(offRoot+32, 0)

	// ctl node: name "ctl", one exact match, one prefix entry, no children
	put32(offCtl+0, uint32(nameCtl))
	put32(offCtl+4, NoIndex)
	put32(offCtl+8, NoIndex)
	put32(offCtl+12, 0)
	put32(offCtl+16, 0)
	put32(offCtl+20, 1)
	put32(offCtl+24, offCtlExact)
	put32(offCtl+28, 1)
	put32(offCtl+32, offCtlPrefixes)

	put32(offRootChildren, offCtl)

	// ctl exact entry: "start" (i.e. "ctl.start") -> context L (index 1)
	put32(offCtlExact+0, uint32(nameExactKey))
	put32(offCtlExact+4, 1)
	put32(offCtlExact+8, NoIndex)

	// ctl prefix entry: "" (i.e. any "ctl.*") -> context K (index 0)
	put32(offCtlPrefixes+0, uint32(namePrefixKey))
	put32(offCtlPrefixes+4, 0)
	put32(offCtlPrefixes+8, 0)
	put32(offCtlPrefixes+12, NoIndex)

	// contexts array: [K, L]
	put32(offContexts+0, uint32(nameK))
	put32(offContexts+4, uint32(nameL))

	putStr(nameCtl, "ctl")
	putStr(nameExactKey, "start")
	putStr(namePrefixKey, "")
	putStr(nameK, "K")
	putStr(nameL, "L")

	return buf
}

// buildIndexWithTwoPrefixesOnOneNode hand-assembles a single-node
// BinaryIndex whose root carries two prefix entries in stored order:
// a shorter "a." first, mapping to context SHORT, then a longer,
// more specific "a.b." second, mapping to context LONG. The external
// generator is the sole authority on ordering; this file asserts the
// reader stops at the first stored match instead of comparing prefix
// lengths itself.
func buildIndexWithTwoPrefixesOnOneNode() []byte {
	const (
		offHeader       = 0
		offRoot         = 36
		offRootPrefixes = offRoot + biNodeSize
		offContexts     = offRootPrefixes + 2*biPrefixSize
		offStrings      = offContexts + 2*4
	)

	nameShortPrefix := offStrings
	nameLongPrefix := nameShortPrefix + len("a.\x00")
	nameShort := nameLongPrefix + len("a.b.\x00")
	nameLong := nameShort + len("SHORT\x00")
	total := nameLong + len("LONG\x00")

	buf := make([]byte, total)
	put32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }
	putStr := func(off int, s string) { copy(buf[off:], s); buf[off+len(s)] = 0 }

	put32(offHeader+0, 1)
	put32(offHeader+4, 1)
	put32(offHeader+8, uint32(total))
	put32(offHeader+12, offRoot)
	put32(offHeader+16, offContexts)
	put32(offHeader+20, 2)
	put32(offHeader+24, 0)
	put32(offHeader+28, 0)
	put32(offHeader+32, offStrings)

	// root node: no name, no children, two prefixes
	put32(offRoot+0, 0)
	put32(offRoot+4, NoIndex)
	put32(offRoot+8, NoIndex)
	put32(offRoot+12, 0)
	put32(offRoot+16, 0)
	put32(offRoot+20, 0)
	put32(offRoot+24, 0)
	put32(offRoot+28, 2)
	put32(offRoot+32, offRootPrefixes)

	// prefix 0: "a." -> context SHORT (stored first, shorter)
	put32(offRootPrefixes+0, uint32(nameShortPrefix))
	put32(offRootPrefixes+4, 2)
	put32(offRootPrefixes+8, 0)
	put32(offRootPrefixes+12, NoIndex)

	// prefix 1: "a.b." -> context LONG (stored second, longer/more specific)
	put32(offRootPrefixes+biPrefixSize+0, uint32(nameLongPrefix))
	put32(offRootPrefixes+biPrefixSize+4, 4)
	put32(offRootPrefixes+biPrefixSize+8, 1)
	put32(offRootPrefixes+biPrefixSize+12, NoIndex)

	put32(offContexts+0, uint32(nameShort))
	put32(offContexts+4, uint32(nameLong))

	putStr(nameShortPrefix, "a.")
	putStr(nameLongPrefix, "a.b.")
	putStr(nameShort, "SHORT")
	putStr(nameLong, "LONG")

	return buf
}

func TestBinaryIndexPrefixMatchIsFirstStoredNotLongest(t *testing.T) {
	path := writeIndexFile(t, buildIndexWithTwoPrefixesOnOneNode())
	bi, err := OpenBinaryIndex(path)
	require.NoError(t, err)
	defer bi.Close()

	ctx, _, ok := bi.Route("a.b.c")
	require.True(t, ok)
	require.Equal(t, "SHORT", ctx, "reader must stop at the first stored prefix match, not the longest one")
}

func writeIndexFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "binidx")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestBinaryIndexExactMatchBeatsAncestorPrefix(t *testing.T) {
	path := writeIndexFile(t, buildSampleIndex())
	bi, err := OpenBinaryIndex(path)
	require.NoError(t, err)
	defer bi.Close()

	ctx, _, ok := bi.Route("ctl.start")
	require.True(t, ok)
	require.Equal(t, "L", ctx)
}

func TestBinaryIndexPrefixMatchAppliesToSiblings(t *testing.T) {
	path := writeIndexFile(t, buildSampleIndex())
	bi, err := OpenBinaryIndex(path)
	require.NoError(t, err)
	defer bi.Close()

	ctx, _, ok := bi.Route("ctl.stop")
	require.True(t, ok)
	require.Equal(t, "K", ctx)
}

func TestBinaryIndexUnmatchedNameFails(t *testing.T) {
	path := writeIndexFile(t, buildSampleIndex())
	bi, err := OpenBinaryIndex(path)
	require.NoError(t, err)
	defer bi.Close()

	_, _, ok := bi.Route("unrelated.name")
	require.False(t, ok)
}

func TestBinaryIndexRejectsUnsupportedMinimumVersion(t *testing.T) {
	data := buildSampleIndex()
	binary.LittleEndian.PutUint32(data[4:8], 2) // minimum_supported_version
	path := writeIndexFile(t, data)

	_, err := OpenBinaryIndex(path)
	require.Error(t, err)
}

func TestBinaryIndexRejectsSizeMismatch(t *testing.T) {
	data := buildSampleIndex()
	binary.LittleEndian.PutUint32(data[8:12], uint32(len(data)+1)) // size
	path := writeIndexFile(t, data)

	_, err := OpenBinaryIndex(path)
	require.Error(t, err)
}
