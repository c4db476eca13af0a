package propindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/oba-ldap/propd/internal/properrors"
	"github.com/oba-ldap/propd/internal/propio"
)

// BinaryIndex is a read-only mmap'd compact trie mapping property names
// to (context, type) label pairs, generated by an external build-time
// tool (out of scope here — we only read its format). The on-disk
// layout below is this reader's binding interpretation of the file
// format's prose description; every field is little-endian.
//
// Header (36 bytes):
//
//	u32 current_version
//	u32 minimum_supported_version
//	u32 size                    (must equal the file's byte length)
//	u32 root_offset
//	u32 contexts_array_offset
//	u32 num_contexts
//	u32 types_array_offset
//	u32 num_types
//	u32 strings_offset
//
// A trie node (36 bytes): name_offset, context_index, type_index (both
// NoIndex-sentineled), num_children, children_offset, num_exact,
// exact_offset, num_prefixes, prefixes_offset. Children are an array of
// node offsets sorted so a binary search by name is valid. Exact
// matches and prefix entries are (name_offset, [name_len,] context,
// type) records, also sorted.
const (
	NoIndex = 0xFFFFFFFF

	biHeaderSize = 36
	biNodeSize   = 36
	biLeafSize   = 12
	biPrefixSize = 16

	thisReaderVersion = 1
)

// BinaryIndex is an opened, validated index ready for routing lookups.
type BinaryIndex struct {
	mapping *propio.Mapping
	file    *os.File
	buf     []byte

	currentVersion uint32
	rootOffset     uint32
	contextsOff    uint32
	numContexts    uint32
	typesOff       uint32
	numTypes       uint32
	stringsOff     uint32
}

// OpenBinaryIndex maps path read-only and validates it. It rejects a
// file whose minimum_supported_version exceeds this reader's version,
// or whose recorded size does not match the mapped size.
func OpenBinaryIndex(path string) (*BinaryIndex, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() < biHeaderSize {
		return nil, fmt.Errorf("propindex: binary index file too small")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	m, err := propio.Open(file, info.Size(), propio.Options{ReadOnly: true})
	if err != nil {
		file.Close()
		return nil, err
	}

	buf, err := m.Bytes()
	if err != nil {
		m.Close()
		return nil, err
	}

	bi := &BinaryIndex{mapping: m, file: file, buf: buf}
	if err := bi.parseHeader(); err != nil {
		m.Close()
		file.Close()
		return nil, err
	}
	return bi, nil
}

func (bi *BinaryIndex) parseHeader() error {
	buf := bi.buf
	currentVersion := binary.LittleEndian.Uint32(buf[0:4])
	minSupported := binary.LittleEndian.Uint32(buf[4:8])
	size := binary.LittleEndian.Uint32(buf[8:12])

	if minSupported > thisReaderVersion {
		return fmt.Errorf("propindex: index requires reader version >= %d: %w", minSupported, properrors.ErrVersionUnsupported)
	}
	if uint64(size) != uint64(len(buf)) {
		return fmt.Errorf("propindex: index recorded size %d does not match mapped size %d: %w", size, len(buf), properrors.ErrIndexCorrupt)
	}

	bi.currentVersion = currentVersion
	bi.rootOffset = binary.LittleEndian.Uint32(buf[12:16])
	bi.contextsOff = binary.LittleEndian.Uint32(buf[16:20])
	bi.numContexts = binary.LittleEndian.Uint32(buf[20:24])
	bi.typesOff = binary.LittleEndian.Uint32(buf[24:28])
	bi.numTypes = binary.LittleEndian.Uint32(buf[28:32])
	bi.stringsOff = binary.LittleEndian.Uint32(buf[32:36])
	return nil
}

// Close unmaps the index and closes its file handle.
func (bi *BinaryIndex) Close() error {
	err := bi.mapping.Close()
	if cerr := bi.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Contexts returns every context label named in the index's contexts
// array, letting a router pre-allocate one PropArea slot per label
// before any name has actually been routed.
func (bi *BinaryIndex) Contexts() []string {
	out := make([]string, bi.numContexts)
	for i := uint32(0); i < bi.numContexts; i++ {
		out[i] = bi.contextName(i)
	}
	return out
}

func (bi *BinaryIndex) readString(off uint32) string {
	if off == 0 || off >= uint32(len(bi.buf)) {
		return ""
	}
	end := off
	for end < uint32(len(bi.buf)) && bi.buf[end] != 0 {
		end++
	}
	return string(bi.buf[off:end])
}

func (bi *BinaryIndex) contextName(idx uint32) string {
	if idx == NoIndex || idx >= bi.numContexts {
		return ""
	}
	off := binary.LittleEndian.Uint32(bi.buf[bi.contextsOff+idx*4:])
	return bi.readString(off)
}

func (bi *BinaryIndex) typeName(idx uint32) string {
	if idx == NoIndex || idx >= bi.numTypes {
		return ""
	}
	off := binary.LittleEndian.Uint32(bi.buf[bi.typesOff+idx*4:])
	return bi.readString(off)
}

type binNode struct {
	contextIdx, typeIdx      uint32
	numChildren, childrenOff uint32
	numExact, exactOff       uint32
	numPrefixes, prefixesOff uint32
}

func (bi *BinaryIndex) nodeAt(off uint32) binNode {
	b := bi.buf[off:]
	return binNode{
		contextIdx:  binary.LittleEndian.Uint32(b[4:8]),
		typeIdx:     binary.LittleEndian.Uint32(b[8:12]),
		numChildren: binary.LittleEndian.Uint32(b[12:16]),
		childrenOff: binary.LittleEndian.Uint32(b[16:20]),
		numExact:    binary.LittleEndian.Uint32(b[20:24]),
		exactOff:    binary.LittleEndian.Uint32(b[24:28]),
		numPrefixes: binary.LittleEndian.Uint32(b[28:32]),
		prefixesOff: binary.LittleEndian.Uint32(b[32:36]),
	}
}

// findChild binary-searches a sorted array of (node offset) entries,
// each pointing at a node whose own name is the segment to match.
func (bi *BinaryIndex) findChild(n binNode, seg string) (binNode, bool) {
	lo, hi := 0, int(n.numChildren)
	for lo < hi {
		mid := (lo + hi) / 2
		childOff := binary.LittleEndian.Uint32(bi.buf[n.childrenOff+uint32(mid)*4:])
		name := bi.readString(binary.LittleEndian.Uint32(bi.buf[childOff:]))
		switch {
		case name == seg:
			return bi.nodeAt(childOff), true
		case name < seg:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return binNode{}, false
}

type indexMatch struct {
	context, typ string
	ok           bool
}

// findExact binary-searches n's exact-match leaves for a full name.
func (bi *BinaryIndex) findExact(n binNode, name string) (indexMatch, bool) {
	lo, hi := 0, int(n.numExact)
	for lo < hi {
		mid := (lo + hi) / 2
		rec := bi.buf[n.exactOff+uint32(mid)*biLeafSize:]
		nameOff := binary.LittleEndian.Uint32(rec[0:4])
		candidate := bi.readString(nameOff)
		switch {
		case candidate == name:
			ctxIdx := binary.LittleEndian.Uint32(rec[4:8])
			typIdx := binary.LittleEndian.Uint32(rec[8:12])
			return indexMatch{context: bi.contextName(ctxIdx), typ: bi.typeName(typIdx), ok: true}, true
		case candidate < name:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return indexMatch{}, false
}

// matchPrefixes scans n's prefix-entry list in stored order and stops
// at the first matching entry, exactly as the external generator's own
// reader does: the generator is trusted to have ordered each node's
// prefix list the way it wants ties broken, and this reader never
// second-guesses that order by comparing prefix lengths itself.
func (bi *BinaryIndex) matchPrefixes(n binNode, name string, best *indexMatch) {
	nameSize := uint32(len(name))
	for i := uint32(0); i < n.numPrefixes; i++ {
		rec := bi.buf[n.prefixesOff+i*biPrefixSize:]
		nameOff := binary.LittleEndian.Uint32(rec[0:4])
		nameLen := binary.LittleEndian.Uint32(rec[4:8])
		if nameLen > nameSize {
			continue
		}
		candidate := bi.readString(nameOff)
		if !strings.HasPrefix(name, candidate) {
			continue
		}
		ctxIdx := binary.LittleEndian.Uint32(rec[8:12])
		typIdx := binary.LittleEndian.Uint32(rec[12:16])
		if ctxIdx != NoIndex {
			best.context = bi.contextName(ctxIdx)
			best.ok = true
		}
		if typIdx != NoIndex {
			best.typ = bi.typeName(typIdx)
			best.ok = true
		}
		return
	}
}

// Route walks the trie one dotted segment at a time, tracking the best
// (context, type) match seen at any node or matching prefix entry along
// the way, then tests the final node's exact matches before falling
// back to that running best. At each step the prefix text considered is
// only what remains strictly after the separator already consumed to
// reach the current node — a node never re-matches its own name against
// its own prefixes. A name with no match at all returns ok=false, which
// the ContextRouter treats as "no area — deny".
func (bi *BinaryIndex) Route(name string) (context, typ string, ok bool) {
	node := bi.nodeAt(bi.rootOffset)
	var best indexMatch
	remaining := name

	for {
		if node.contextIdx != NoIndex {
			best.context = bi.contextName(node.contextIdx)
			best.ok = true
		}
		if node.typeIdx != NoIndex {
			best.typ = bi.typeName(node.typeIdx)
			best.ok = true
		}
		bi.matchPrefixes(node, remaining, &best)

		sep := strings.IndexByte(remaining, '.')
		if sep < 0 {
			break
		}
		child, found := bi.findChild(node, remaining[:sep])
		if !found {
			break
		}
		node = child
		remaining = remaining[sep+1:]
	}

	if exact, found := bi.findExact(node, remaining); found {
		return exact.context, exact.typ, true
	}
	return best.context, best.typ, best.ok
}
