package propindex

import (
	"encoding/binary"
	"fmt"
)

// PersistTextIndex compiles idx's routing rules into this package's own
// cache format and writes it to path, so a later process can skip
// re-parsing the text configuration files and rebuild the same TextIndex
// from a single atomically-written file. This is a fallback path for
// deployments without the external BinaryIndex generator; it is not
// the BinaryIndex file format itself.
func PersistTextIndex(idx *TextIndex, path string) error {
	data := compileTextIndex(idx)
	return WriteCacheFile(path, KindTextCompiled, data, uint64(len(idx.entries)))
}

// LoadPersistedTextIndex reads a file written by PersistTextIndex and
// rebuilds an equivalent TextIndex from it.
func LoadPersistedTextIndex(path string) (*TextIndex, error) {
	data, _, err := ReadCacheFile(path, KindTextCompiled)
	if err != nil {
		return nil, err
	}
	return decodeTextIndex(data)
}

// compileTextIndex serializes idx's entries, already ordered the way
// AddEntry maintains, as a flat sequence of
// (u16 prefixLen, prefix, u16 labelLen, label) records.
func compileTextIndex(idx *TextIndex) []byte {
	size := 0
	for _, e := range idx.entries {
		size += 2 + len(e.Prefix) + 2 + len(e.Label)
	}
	buf := make([]byte, size)
	off := 0
	for _, e := range idx.entries {
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(e.Prefix)))
		off += 2
		off += copy(buf[off:], e.Prefix)
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(e.Label)))
		off += 2
		off += copy(buf[off:], e.Label)
	}
	return buf
}

func decodeTextIndex(data []byte) (*TextIndex, error) {
	idx := NewTextIndex()
	off := 0
	for off < len(data) {
		if off+2 > len(data) {
			return nil, fmt.Errorf("propindex: truncated compiled index")
		}
		plen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+plen > len(data) {
			return nil, fmt.Errorf("propindex: truncated compiled index")
		}
		prefix := string(data[off : off+plen])
		off += plen

		if off+2 > len(data) {
			return nil, fmt.Errorf("propindex: truncated compiled index")
		}
		llen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+llen > len(data) {
			return nil, fmt.Errorf("propindex: truncated compiled index")
		}
		label := string(data[off : off+llen])
		off += llen

		// Entries were already ctl.-filtered and sorted when first
		// added; AddEntry re-sorts harmlessly on replay.
		if err := idx.AddEntry(prefix, label); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
