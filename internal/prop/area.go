package prop

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/oba-ldap/propd/internal/properrors"
	"github.com/oba-ldap/propd/internal/propio"
	"github.com/oba-ldap/propd/internal/propwait"
)

// link addresses one atomic 32-bit offset field inside an area's buffer,
// used both for the reader-visible trie edges (TrieNode.left/right/
// children/prop) and for locating the attachment point to clear during
// prune.
type link struct {
	buf []byte
	off uint32
}

func (l link) get() uint32               { return loadAcquire(l.buf, l.off) }
func (l link) publish(v uint32)          { storeRelease(l.buf, l.off, v) }
func (l link) cas(old, new uint32) bool  { return casU32(l.buf, l.off, old, new) }

func (n trieNode) leftLink() link     { return link{n.buf, n.off + tnOffLeft} }
func (n trieNode) rightLink() link    { return link{n.buf, n.off + tnOffRight} }
func (n trieNode) childrenLink() link { return link{n.buf, n.off + tnOffChildren} }
func (n trieNode) propLink() link     { return link{n.buf, n.off + tnOffProp} }

// PropArea is one memory-mapped property area: a fixed-size file holding
// the header, the bump allocator's data region, and the trie rooted at
// data-offset 0. Every exported method is safe for concurrent readers;
// the mutating methods additionally serialize structural writes through
// writeMu, since although the protocol only requires a single writer
// process per area, nothing stops this package's own API from being
// called concurrently by multiple goroutines within that process.
type PropArea struct {
	mapping  *propio.Mapping
	buf      []byte
	readOnly bool
	path     string
	label    string

	// LabelErr records a non-fatal failure applying the access-label
	// extended attribute during CreateArea. Only the init daemon path
	// treats this as fatal; every other caller just logs it.
	LabelErr error

	writeMu sync.Mutex
	broker  *propwait.Broker
}

// SetBroker wires a shared wait/wake broker into this area. Without one,
// Add/Update/Delete still run the full serial-word protocol correctly;
// they simply have no one to notify, and WaitAPI callers fall back to
// polling the serial directly.
func (a *PropArea) SetBroker(b *propwait.Broker) { a.broker = b }

// wake publishes a ChangeEvent for entryOff's new serial, and for the
// area's global serial if alsoGlobal, to any registered waiters.
func (a *PropArea) wake(entryOff uint32, alsoGlobal bool) {
	if a.broker == nil {
		return
	}
	s := entryAt(a.buf, entryOff).loadSerialAcquire()
	a.broker.Publish(propwait.ChangeEvent{Key: propwait.EntryKey(a.path, entryOff), Serial: s})
	if alsoGlobal {
		a.broker.Publish(propwait.ChangeEvent{Key: propwait.GlobalKey(a.path), Serial: globalSerial(a.buf)})
	}
}

// CreateArea implements open_rw: create the file with mode 0444, apply
// the label extended attribute (recorded, non-fatal), truncate to
// AreaSize, map shared read-write, and in-place construct the header and
// root TrieNode. Fails with os.ErrExist if the file is already there.
func CreateArea(path, label string) (*PropArea, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0444)
	if err != nil {
		return nil, fmt.Errorf("create area %s: %w", path, err)
	}

	m, err := propio.Open(file, AreaSize, propio.Options{})
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
	}

	buf, err := m.Bytes()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
	}

	writeHeader(buf)
	root := nodeAt(buf, 0)
	root.zero()
	setBytesUsed(buf, TrieNodeSize)

	a := &PropArea{mapping: m, buf: buf, path: path, label: label}
	if label != "" {
		if err := setAccessLabel(file, label); err != nil {
			a.LabelErr = fmt.Errorf("%w: %v", properrors.ErrLabelApplyFailure, err)
		}
	}
	return a, nil
}

// OpenReadWrite reopens an existing area for mutation, used when the
// setter daemon restarts against areas created by a prior run. It is
// otherwise identical to OpenReadOnly: both attempt a read-write open
// first and fall back to read-only only when permission is denied,
// matching open_ro's "map shared read-only if read-write open was
// denied, otherwise shared read-write."
func OpenReadWrite(path string) (*PropArea, error) {
	return openArea(path)
}

// OpenReadOnly implements open_ro: stat-validate the file (owned by the
// property writer's uid/gid, not group- or world-writable, large enough
// to hold the header), then map it — shared read-write if permitted,
// otherwise shared read-only — and reject a magic/version mismatch.
func OpenReadOnly(path string) (*PropArea, error) {
	return openArea(path)
}

func openArea(path string) (*PropArea, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
	}
	if info.Size() < HeaderSize {
		return nil, fmt.Errorf("%w: file too small", properrors.ErrMapFailure)
	}
	if err := checkOwnerAndMode(info); err != nil {
		return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
	}

	readOnly := false
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		readOnly = true
		file, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
		}
	}

	m, err := propio.Open(file, info.Size(), propio.Options{ReadOnly: readOnly})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
	}

	buf, err := m.Bytes()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%w: %v", properrors.ErrMapFailure, err)
	}

	if readMagic(buf) != Magic || readVersion(buf) != Version {
		m.Close()
		return nil, fmt.Errorf("%w: magic/version mismatch", properrors.ErrMapFailure)
	}

	return &PropArea{mapping: m, buf: buf, readOnly: readOnly, path: path}, nil
}

// Close unmaps the area. It does not remove the file.
func (a *PropArea) Close() error { return a.mapping.Close() }

// ReadOnly reports whether this handle can mutate the area.
func (a *PropArea) ReadOnly() bool { return a.readOnly }

// Path returns the backing file path this area was opened from.
func (a *PropArea) Path() string { return a.path }

// GlobalSerial returns the area's atomic global serial.
func (a *PropArea) GlobalSerial() uint32 { return globalSerial(a.buf) }

func splitName(name string) ([][]byte, error) {
	if name == "" || len(name) > MaxNameLen {
		return nil, properrors.ErrNameTooLong
	}
	parts := strings.Split(name, ".")
	segs := make([][]byte, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, properrors.ErrNameInvalid
		}
		segs[i] = []byte(p)
	}
	return segs, nil
}

func isReadOnlyName(name string) bool {
	return strings.HasPrefix(name, ReadOnlyPrefix)
}

// descendResult captures the path taken through the trie so Remove can
// prune it afterward without a second descent.
type descendResult struct {
	nodes    []trieNode // nodes[0] is the permanent root; nodes[i] (i>=1) is segment i-1
	nodeOffs []uint32   // data-region-relative offsets, parallel to nodes[1:]
	links    []link     // links[i] is the attachment link that points at nodes[i+1]
	terminal trieNode
}

// descend walks the trie by name, one dot-segment per level. If create
// is true, missing BST nodes are allocated along the way; otherwise a
// missing segment yields properrors.ErrNotFound.
func (a *PropArea) descend(segs [][]byte, create bool) (descendResult, error) {
	root := nodeAt(a.buf, 0)
	res := descendResult{nodes: []trieNode{root}}

	bst := root.childrenLink()
	for _, seg := range segs {
		node, attach, err := a.findInBST(bst, seg, create)
		if err != nil {
			return descendResult{}, err
		}
		res.nodes = append(res.nodes, node)
		res.nodeOffs = append(res.nodeOffs, attach.targetOff)
		res.links = append(res.links, attach.link)
		bst = node.childrenLink()
	}
	res.terminal = res.nodes[len(res.nodes)-1]
	return res, nil
}

type attachment struct {
	link      link
	targetOff uint32 // data-region-relative offset of the node the link points at
}

// findInBST searches the binary search tree rooted at bst for a node
// whose segment equals name, ordered by (length, memcmp).
func (a *PropArea) findInBST(bst link, name []byte, create bool) (trieNode, attachment, error) {
	cur := bst
	for {
		off := cur.get()
		if off == 0 {
			if !create {
				return trieNode{}, attachment{}, properrors.ErrNotFound
			}
			newOff, err := a.allocNode()
			if err != nil {
				return trieNode{}, attachment{}, err
			}
			node := nodeAt(a.buf, newOff)
			node.setName(name)
			if !cur.cas(0, newOff) {
				continue
			}
			return node, attachment{link: cur, targetOff: newOff}, nil
		}

		node := nodeAt(a.buf, off)
		nm := node.name()
		switch {
		case bytes.Equal(nm, name):
			return node, attachment{link: cur, targetOff: off}, nil
		case segmentLess(name, nm):
			cur = node.leftLink()
		default:
			cur = node.rightLink()
		}
	}
}

func (a *PropArea) allocNode() (uint32, error) {
	off, err := a.alloc(TrieNodeSize)
	if err != nil {
		return 0, err
	}
	nodeAt(a.buf, off).zero()
	return off, nil
}

func (a *PropArea) allocEntry() (uint32, error) {
	off, err := a.alloc(EntrySize)
	if err != nil {
		return 0, err
	}
	entryAt(a.buf, off).zero()
	return off, nil
}

func (a *PropArea) allocBlob(value []byte) (uint32, error) {
	off, err := a.alloc(uint32(4 + len(value)))
	if err != nil {
		return 0, err
	}
	base := HeaderSize + off
	binary.LittleEndian.PutUint32(a.buf[base:], uint32(len(value)))
	copy(a.buf[base+4:], value)
	return off, nil
}

func (a *PropArea) readBlob(off uint32) []byte {
	base := HeaderSize + off
	n := binary.LittleEndian.Uint32(a.buf[base:])
	return a.buf[base+4 : base+4+n]
}

// alloc reserves n (rounded up to alignment) bytes at the end of the
// data region, returning the offset of the reservation. Allocation
// never reclaims: bytes_used only grows, for the life of the area.
func (a *PropArea) alloc(n uint32) (uint32, error) {
	n = alignUp(n)
	for {
		used := bytesUsed(a.buf)
		if uint64(HeaderSize)+uint64(used)+uint64(n) > uint64(len(a.buf)) {
			return 0, properrors.ErrAllocExhausted
		}
		if casBytesUsed(a.buf, used, used+n) {
			return used, nil
		}
	}
}

// legacyErrorText is embedded verbatim in every long-form entry's
// 56-byte legacy buffer, for readers built before long-form support.
var legacyErrorText = []byte("property value too long for this reader")

// Add ensures name exists with value value, creating trie nodes and the
// entry on first write, or running the dirty-bit update protocol if the
// entry already exists. Long values are only accepted for names under
// ReadOnlyPrefix, and are written exactly once: a second Add/Update on
// an existing long-form entry fails.
func (a *PropArea) Add(name, value string) error {
	if a.readOnly {
		return properrors.ErrNotReadWrite
	}
	segs, err := splitName(name)
	if err != nil {
		return err
	}

	longForm := false
	if len(value) > MaxValueLen {
		if !isReadOnlyName(name) {
			return properrors.ErrValueTooLong
		}
		longForm = true
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	res, err := a.descend(segs, true)
	if err != nil {
		return err
	}

	propLink := res.terminal.propLink()
	existing := propLink.get()
	if existing != 0 {
		return a.updateLocked(entryAt(a.buf, existing), value)
	}

	entryOff, err := a.allocEntry()
	if err != nil {
		return err
	}
	entry := entryAt(a.buf, entryOff)
	entry.setName([]byte(name))

	if longForm {
		blobOff, err := a.allocBlob([]byte(value))
		if err != nil {
			return err
		}
		copy(entry.legacyErrorBuf(), legacyErrorText)
		entry.setBlobOffset(blobOff)
		entry.storeSerialRelease(makeSerial(longFormLength, 0, false))
	} else {
		copy(entry.shortValueBuf(), value)
		entry.storeSerialRelease(makeSerial(len(value), 0, false))
	}

	propLink.publish(entryOff)

	bumpGlobalSerial(a.buf)
	a.wake(entryOff, true)
	return nil
}

// Update runs the dirty-bit handshake against an already existing
// entry found via Find.
func (a *PropArea) Update(name, value string) error {
	if a.readOnly {
		return properrors.ErrNotReadWrite
	}
	if len(value) > MaxValueLen {
		return properrors.ErrValueTooLong
	}
	segs, err := splitName(name)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	res, err := a.descend(segs, false)
	if err != nil {
		return err
	}
	off := res.terminal.propLink().get()
	if off == 0 {
		return properrors.ErrNotFound
	}
	return a.updateLocked(entryAt(a.buf, off), value)
}

func (a *PropArea) updateLocked(entry propertyEntry, value string) error {
	s := entry.loadSerialAcquire()
	if isLongForm(s) {
		return properrors.ErrValueTooLong
	}
	oldLen := serialLength(s)
	seq := serialSeq(s)

	backup := dirtyBackup(a.buf)
	copy(backup, entry.shortValueBuf()[:oldLen])
	backup[oldLen] = 0

	entry.storeSerialRelease(makeSerial(oldLen, seq, true))

	dst := entry.shortValueBuf()
	copy(dst, value)
	dst[len(value)] = 0

	entry.storeSerialRelease(makeSerial(len(value), seq+1, false))

	bumpGlobalSerial(a.buf)
	a.wake(entry.off, true)
	return nil
}

// Find locates name's entry without allocating, for the lock-free read
// path. It returns properrors.ErrNotFound if absent.
func (a *PropArea) Find(name string) (Handle, error) {
	segs, err := splitName(name)
	if err != nil {
		return Handle{}, err
	}
	root := nodeAt(a.buf, 0)
	bst := root.childrenLink()
	var node trieNode
	for i, seg := range segs {
		n, _, err := a.findInBST(bst, seg, false)
		if err != nil {
			return Handle{}, err
		}
		node = n
		if i < len(segs)-1 {
			bst = node.childrenLink()
		}
	}
	off := node.propLink().get()
	if off == 0 {
		return Handle{}, properrors.ErrNotFound
	}
	return Handle{area: a, off: off}, nil
}

// Handle is an opaque reference to a resolved PropertyEntry, returned by
// Find and consumed by Read.
type Handle struct {
	area *PropArea
	off  uint32
}

// Read runs the reader protocol: it returns a value known to be
// complete and untorn, plus the serial observed at that instant.
func (h Handle) Read() (value []byte, serial uint32, err error) {
	entry := entryAt(h.area.buf, h.off)
	s1 := entry.loadSerialAcquire()
	if isLongForm(s1) {
		blob := h.area.readBlob(entry.blobOffset())
		out := make([]byte, len(blob))
		copy(out, blob)
		return out, s1, nil
	}

	for {
		length := serialLength(s1)
		buf := make([]byte, length)
		if serialDirty(s1) {
			copy(buf, dirtyBackup(h.area.buf)[:length])
		} else {
			copy(buf, entry.shortValueBuf()[:length])
		}
		s2 := entry.loadSerialRelaxed()
		if s1 == s2 {
			return buf, s1, nil
		}
		s1 = s2
	}
}

// ReadInPlace runs the reader protocol like Read, but hands cb the
// long-form blob directly instead of copying it first. That is safe
// only because a long-form entry is written exactly once by Add and
// Update refuses to touch it afterward (see updateLocked) — there is
// no writer that could ever tear it, so there is nothing for a private
// copy to guard against. A short-form value has no such guarantee (a
// concurrent Update can be mid-write), so it is still copied under the
// same seqlock retry loop Read uses.
func (h Handle) ReadInPlace(cb func(value []byte, serial uint32)) error {
	entry := entryAt(h.area.buf, h.off)
	s1 := entry.loadSerialAcquire()
	if isLongForm(s1) {
		cb(h.area.readBlob(entry.blobOffset()), s1)
		return nil
	}

	for {
		length := serialLength(s1)
		buf := make([]byte, length)
		if serialDirty(s1) {
			copy(buf, dirtyBackup(h.area.buf)[:length])
		} else {
			copy(buf, entry.shortValueBuf()[:length])
		}
		s2 := entry.loadSerialRelaxed()
		if s1 == s2 {
			cb(buf, s1)
			return nil
		}
		s1 = s2
	}
}

// Name returns the entry's full dotted name.
func (h Handle) Name() []byte {
	entry := entryAt(h.area.buf, h.off)
	return entry.name()
}

// WaitKey returns the propwait.Key identifying this handle's entry, so
// a WaitAPI caller can block until whatever wrote this value wakes it.
func (h Handle) WaitKey() propwait.Key {
	return propwait.EntryKey(h.area.path, h.off)
}

// Area returns the PropArea this handle was resolved against, so a
// caller can read its global serial for WaitGlobal.
func (h Handle) Area() *PropArea { return h.area }

// Delete implements remove: it zeroes the entry, clears the terminal
// node's prop offset, and — if prune is set — walks back up the path
// zeroing any ancestor node whose subtree became entirely empty.
func (a *PropArea) Delete(name string, prune bool) error {
	if a.readOnly {
		return properrors.ErrNotReadWrite
	}
	segs, err := splitName(name)
	if err != nil {
		return err
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	res, err := a.descend(segs, false)
	if err != nil {
		return err
	}

	propLink := res.terminal.propLink()
	entryOff := propLink.get()
	if entryOff == 0 {
		return properrors.ErrNotFound
	}

	propLink.publish(0)
	entryAt(a.buf, entryOff).zero()
	bumpGlobalSerial(a.buf)
	if a.broker != nil {
		a.broker.Publish(propwait.ChangeEvent{Key: propwait.GlobalKey(a.path), Serial: globalSerial(a.buf)})
	}

	if prune {
		for i := len(res.nodes) - 1; i >= 1; i-- {
			node := res.nodes[i]
			if !node.clearedSubtree() {
				break
			}
			attachLink := res.links[i-1]
			target := res.nodeOffs[i-1]
			if attachLink.cas(target, 0) {
				node.zero()
			}
		}
	}
	return nil
}

// Foreach visits every live entry in the area in trie order (left, self,
// children, right; this order is insertion-shape
// dependent, not sorted). cb returns false to stop early.
func (a *PropArea) Foreach(cb func(name, value []byte, serial uint32) bool) {
	root := nodeAt(a.buf, 0)
	a.foreachBST(root.children(), cb)
}

func (a *PropArea) foreachBST(off uint32, cb func(name, value []byte, serial uint32) bool) bool {
	if off == 0 {
		return true
	}
	node := nodeAt(a.buf, off)

	if !a.foreachBST(node.left(), cb) {
		return false
	}

	if propOff := node.prop(); propOff != 0 {
		entry := entryAt(a.buf, propOff)
		if name := entry.name(); len(name) > 0 {
			h := Handle{area: a, off: propOff}
			value, serial, err := h.Read()
			if err == nil {
				if !cb(name, value, serial) {
					return false
				}
			}
		}
	}

	if !a.foreachBST(node.children(), cb) {
		return false
	}
	return a.foreachBST(node.right(), cb)
}
