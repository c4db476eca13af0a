// Package propindex implements the two router lookup structures —
// BinaryIndex (a read-only mmap'd compact trie, produced by an
// external build-time generator this package only reads) and
// TextIndex (an in-memory sorted prefix list built at startup) — plus a
// persist-index builder that round-trips a loaded TextIndex through
// this package's own on-disk cache format, so a process can skip
// re-parsing the text configuration files on every startup. The cache
// format never produces a BinaryIndex file; an operator without the
// external generator still runs in text-index mode.
package propindex

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Cache file constants. This is this package's own persisted format for
// a compiled TextIndex, unrelated to the externally-generated
// BinaryIndex file format, which this package only reads.
const (
	CacheMagic   = "PIDX"
	CacheVersion = 1
	CacheHeaderSize = 40
)

// Index kinds a cache file may hold.
const (
	KindTextCompiled uint8 = 1
)

// Cache file errors.
var (
	ErrInvalidMagic   = errors.New("propindex: invalid cache magic")
	ErrInvalidVersion = errors.New("propindex: invalid cache version")
	ErrInvalidKind    = errors.New("propindex: invalid cache kind")
	ErrCorruptData    = errors.New("propindex: corrupt cache data")
	ErrBufferTooSmall = errors.New("propindex: buffer too small")
)

// CacheHeader is the fixed 40-byte header prefixing a persisted index
// cache file.
//
//	Bytes 0-3:   Magic ("PIDX")
//	Bytes 4-7:   Version (uint32 LE)
//	Byte  8:     Kind
//	Bytes 9-15:  Reserved
//	Bytes 16-23: EntryCount (uint64 LE)
//	Bytes 24-27: DataCRC32 (uint32 LE)
//	Bytes 28-35: DataLength (uint64 LE)
//	Bytes 36-39: HeaderCRC32 (uint32 LE)
type CacheHeader struct {
	Magic       [4]byte
	Version     uint32
	Kind        uint8
	Reserved    [7]byte
	EntryCount  uint64
	DataCRC32   uint32
	DataLength  uint64
	HeaderCRC32 uint32
}

// NewCacheHeader builds a header describing data.
func NewCacheHeader(kind uint8, entryCount uint64, data []byte) *CacheHeader {
	h := &CacheHeader{
		Version:    CacheVersion,
		Kind:       kind,
		EntryCount: entryCount,
		DataCRC32:  crc32.ChecksumIEEE(data),
		DataLength: uint64(len(data)),
	}
	copy(h.Magic[:], CacheMagic)
	return h
}

// Serialize writes the header to a fresh CacheHeaderSize-byte slice.
func (h *CacheHeader) Serialize() []byte {
	buf := make([]byte, CacheHeaderSize)

	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	buf[8] = h.Kind
	binary.LittleEndian.PutUint64(buf[16:24], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[24:28], h.DataCRC32)
	binary.LittleEndian.PutUint64(buf[28:36], h.DataLength)

	h.HeaderCRC32 = crc32.ChecksumIEEE(buf[:36])
	binary.LittleEndian.PutUint32(buf[36:40], h.HeaderCRC32)

	return buf
}

// Deserialize reads the header from buf.
func (h *CacheHeader) Deserialize(buf []byte) error {
	if len(buf) < CacheHeaderSize {
		return ErrBufferTooSmall
	}
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Kind = buf[8]
	copy(h.Reserved[:], buf[9:16])
	h.EntryCount = binary.LittleEndian.Uint64(buf[16:24])
	h.DataCRC32 = binary.LittleEndian.Uint32(buf[24:28])
	h.DataLength = binary.LittleEndian.Uint64(buf[28:36])
	h.HeaderCRC32 = binary.LittleEndian.Uint32(buf[36:40])
	return nil
}

// Validate checks the header's magic, version, and kind.
func (h *CacheHeader) Validate(expectedKind uint8) error {
	if string(h.Magic[:]) != CacheMagic {
		return ErrInvalidMagic
	}
	if h.Version != CacheVersion {
		return ErrInvalidVersion
	}
	if h.Kind != expectedKind {
		return ErrInvalidKind
	}
	return nil
}

// ValidateHeaderCRC checks the header's own checksum.
func (h *CacheHeader) ValidateHeaderCRC(buf []byte) error {
	if len(buf) < CacheHeaderSize {
		return ErrBufferTooSmall
	}
	if crc32.ChecksumIEEE(buf[:36]) != h.HeaderCRC32 {
		return ErrCorruptData
	}
	return nil
}

// ValidateDataCRC checks data against the header's recorded checksum.
func (h *CacheHeader) ValidateDataCRC(data []byte) error {
	if uint64(len(data)) != h.DataLength {
		return ErrCorruptData
	}
	if crc32.ChecksumIEEE(data) != h.DataCRC32 {
		return ErrCorruptData
	}
	return nil
}
