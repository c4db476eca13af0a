// Package propio provides memory-mapped file I/O for property areas.
package propio

import (
	"errors"
	"os"
	"sync"
)

// Mapping errors.
var (
	ErrNotMapped     = errors.New("propio: file is not memory mapped")
	ErrAlreadyMapped = errors.New("propio: file is already memory mapped")
	ErrInvalidSize   = errors.New("propio: invalid mapping size")
	ErrClosed        = errors.New("propio: mapping is closed")
	ErrReadOnly      = errors.New("propio: mapping is read-only")
	ErrOutOfRange    = errors.New("propio: offset out of mapped range")
	ErrFileNotOpen   = errors.New("propio: file not open")
)

// Mapping maps a fixed-size file into memory for zero-copy access from
// many processes. Property areas never grow after creation, so unlike
// a general-purpose page store this type has no Remap/page-table
// machinery: one mapping, one size, for the lifetime of the handle.
type Mapping struct {
	file     *os.File
	data     []byte
	size     int64
	readOnly bool

	mu        sync.RWMutex
	closed    bool
	mapHandle uintptr // Windows file mapping handle, unused on Unix
}

// Options configures a Mapping.
type Options struct {
	ReadOnly bool
}

// Open memory-maps file at its current size (or size if file is shorter
// and the mapping is writable, in which case the file is truncated up).
func Open(file *os.File, size int64, opts Options) (*Mapping, error) {
	if file == nil {
		return nil, ErrFileNotOpen
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = info.Size()
	}
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	if info.Size() < size {
		if opts.ReadOnly {
			return nil, ErrInvalidSize
		}
		if err := file.Truncate(size); err != nil {
			return nil, err
		}
	}

	m := &Mapping{
		file:     file,
		size:     size,
		readOnly: opts.ReadOnly,
	}

	if err := m.mapFile(); err != nil {
		return nil, err
	}

	return m, nil
}

// Close unmaps the file and releases resources. It does not close the
// underlying *os.File — callers that opened it are responsible for that.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true

	if m.data == nil {
		return nil
	}
	return m.unmapFile()
}

// Bytes returns the entire mapped region. The returned slice aliases
// the mapping directly: writes through it are writes to the file.
// Callers on the lock-free read path must only ever read through
// atomic loads into this slice, never take unguarded byte ranges as
// stable without following the serial-word protocol.
func (m *Mapping) Bytes() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.data == nil {
		return nil, ErrNotMapped
	}
	return m.data, nil
}

// Sync flushes changes to the underlying file (msync).
func (m *Mapping) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if m.data == nil {
		return ErrNotMapped
	}
	return m.syncFile()
}

// Size returns the mapped size in bytes.
func (m *Mapping) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// IsReadOnly returns true if the mapping is read-only.
func (m *Mapping) IsReadOnly() bool {
	return m.readOnly
}

// IsMapped returns true if the file is currently mapped.
func (m *Mapping) IsMapped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data != nil && !m.closed
}

// File returns the underlying file.
func (m *Mapping) File() *os.File {
	return m.file
}
