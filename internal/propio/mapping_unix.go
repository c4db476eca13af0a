//go:build unix || darwin || linux

package propio

import (
	"golang.org/x/sys/unix"
)

// mapFile performs the actual memory mapping using golang.org/x/sys/unix.
func (m *Mapping) mapFile() error {
	if m.data != nil {
		return ErrAlreadyMapped
	}

	prot := unix.PROT_READ
	if !m.readOnly {
		prot |= unix.PROT_WRITE
	}

	data, err := unix.Mmap(int(m.file.Fd()), 0, int(m.size), prot, unix.MAP_SHARED)
	if err != nil {
		return err
	}

	m.data = data
	return nil
}

// unmapFile unmaps the memory-mapped region.
func (m *Mapping) unmapFile() error {
	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// syncFile flushes changes to the underlying file using msync.
func (m *Mapping) syncFile() error {
	if m.data == nil {
		return ErrNotMapped
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Advise gives the kernel a hint about expected access patterns.
func (m *Mapping) Advise(advice int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if m.data == nil {
		return ErrNotMapped
	}
	return unix.Madvise(m.data, advice)
}

// MadviseRandom hints that properties will be accessed by name, not
// sequentially — the trie walk jumps around the arena.
func (m *Mapping) MadviseRandom() error {
	return m.Advise(unix.MADV_RANDOM)
}

// MadviseWillNeed hints that the area is about to be read heavily,
// e.g. right after lazy-open.
func (m *Mapping) MadviseWillNeed() error {
	return m.Advise(unix.MADV_WILLNEED)
}

// Lock locks the mapped pages in memory, preventing them from being
// paged out. The writer daemon uses this so a property update is never
// delayed by a page fault.
func (m *Mapping) Lock() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if m.data == nil {
		return ErrNotMapped
	}
	return unix.Mlock(m.data)
}

// Unlock unlocks the mapped pages, allowing them to be paged out again.
func (m *Mapping) Unlock() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if m.data == nil {
		return ErrNotMapped
	}
	return unix.Munlock(m.data)
}
