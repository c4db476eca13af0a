//go:build windows

package propio

import (
	"syscall"
	"unsafe"
)

var (
	modkernel32           = syscall.NewLazyDLL("kernel32.dll")
	procCreateFileMapping = modkernel32.NewProc("CreateFileMappingW")
	procMapViewOfFile     = modkernel32.NewProc("MapViewOfFile")
	procUnmapViewOfFile   = modkernel32.NewProc("UnmapViewOfFile")
	procFlushViewOfFile   = modkernel32.NewProc("FlushViewOfFile")
	procVirtualLock       = modkernel32.NewProc("VirtualLock")
	procVirtualUnlock     = modkernel32.NewProc("VirtualUnlock")
)

const (
	pageReadonly  = 0x02
	pageReadWrite = 0x04
	fileMapRead   = 0x04
	fileMapWrite  = 0x02
)

// mapFile performs the actual memory mapping using the Windows API.
func (m *Mapping) mapFile() error {
	if m.data != nil {
		return ErrAlreadyMapped
	}

	prot := uint32(pageReadonly)
	access := uint32(fileMapRead)
	if !m.readOnly {
		prot = pageReadWrite
		access = fileMapWrite | fileMapRead
	}

	handle := syscall.Handle(m.file.Fd())

	sizeLow := uint32(m.size)
	sizeHigh := uint32(m.size >> 32)

	mapHandle, _, err := procCreateFileMapping.Call(
		uintptr(handle),
		0,
		uintptr(prot),
		uintptr(sizeHigh),
		uintptr(sizeLow),
		0,
	)
	if mapHandle == 0 {
		return err
	}

	addr, _, err := procMapViewOfFile.Call(
		mapHandle,
		uintptr(access),
		0,
		0,
		uintptr(m.size),
	)
	if addr == 0 {
		syscall.CloseHandle(syscall.Handle(mapHandle))
		return err
	}

	m.mapHandle = mapHandle
	m.data = unsafe.Slice((*byte)(unsafe.Pointer(addr)), m.size)

	return nil
}

// unmapFile unmaps the memory-mapped region.
func (m *Mapping) unmapFile() error {
	if m.data == nil {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&m.data[0]))

	ret, _, err := procUnmapViewOfFile.Call(addr)
	if ret == 0 {
		return err
	}

	if m.mapHandle != 0 {
		syscall.CloseHandle(syscall.Handle(m.mapHandle))
		m.mapHandle = 0
	}

	m.data = nil
	return nil
}

// syncFile flushes changes to the underlying file.
func (m *Mapping) syncFile() error {
	if m.data == nil {
		return ErrNotMapped
	}

	addr := uintptr(unsafe.Pointer(&m.data[0]))

	ret, _, err := procFlushViewOfFile.Call(addr, uintptr(len(m.data)))
	if ret == 0 {
		return err
	}

	return nil
}

// Advise is a no-op on Windows as madvise is not available.
func (m *Mapping) Advise(advice int) error {
	return nil
}

// MadviseRandom is a no-op on Windows.
func (m *Mapping) MadviseRandom() error {
	return nil
}

// MadviseWillNeed is a no-op on Windows.
func (m *Mapping) MadviseWillNeed() error {
	return nil
}

// Lock locks the mapped pages in memory.
func (m *Mapping) Lock() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if m.data == nil {
		return ErrNotMapped
	}

	addr := uintptr(unsafe.Pointer(&m.data[0]))
	ret, _, err := procVirtualLock.Call(addr, uintptr(len(m.data)))
	if ret == 0 {
		return err
	}

	return nil
}

// Unlock unlocks the mapped pages.
func (m *Mapping) Unlock() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if m.data == nil {
		return ErrNotMapped
	}

	addr := uintptr(unsafe.Pointer(&m.data[0]))
	ret, _, err := procVirtualUnlock.Call(addr, uintptr(len(m.data)))
	if ret == 0 {
		return err
	}

	return nil
}
