// Package router implements ContextRouter, the sole owner of a
// process's PropArea handles: it picks which context a property name
// belongs to (via a BinaryIndex or a TextIndex) and lazily maps that
// context's area file on first access.
package router

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/oba-ldap/propd/internal/labelcheck"
	"github.com/oba-ldap/propd/internal/prop"
	"github.com/oba-ldap/propd/internal/properrors"
	"github.com/oba-ldap/propd/internal/propindex"
	"github.com/oba-ldap/propd/internal/propwait"
)

// Logger is the minimal interface this package needs to log once at
// the call site that first observes an error, structurally matched by
// *problog.logger without this package importing problog (the
// concrete logger is built in cmd/propctl by problog.New). A nil Logger is a valid Options value; every call site
// below guards against it.
type Logger interface {
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Mode names which lookup structure a ContextRouter was built with.
type Mode int

const (
	ModeText Mode = iota
	ModeIndexed
)

// Options configures a ContextRouter at construction.
type Options struct {
	// Predicate gates lazy-open beyond the area file's own stat check.
	// Nil means always-allow (labelcheck.AllowAll).
	Predicate labelcheck.Predicate
	// Broker, if set, is wired into every area this router opens so
	// WaitAPI callers in this process get same-process wake instead of
	// pure polling.
	Broker *propwait.Broker
	// ReadWrite opens contexts read-write (the writer daemon); false
	// opens them with prop.OpenReadOnly (every reader process), which
	// still maps a file read-write when its permissions allow it.
	ReadWrite bool
	// Logger receives one Warn/Error call per denial or map failure
	// this router observes. Nil disables logging entirely — readers on
	// a signal-safe path must never construct a router with one set.
	Logger Logger
}

// contextSlot is one context's lazily-opened PropArea plus the denial
// memory that gives point lookup and foreach their different audit
// behavior.
type contextSlot struct {
	mu               sync.Mutex
	label            string
	path             string
	area             *prop.PropArea
	deniedForForeach bool
}

// ContextRouter owns the array of per-context PropArea handles and the
// chosen routing structure. It never itself decides policy beyond the
// configured Predicate — that stays external.
type ContextRouter struct {
	dir       string
	mode      Mode
	text      *propindex.TextIndex
	binary    *propindex.BinaryIndex
	predicate labelcheck.Predicate
	broker    *propwait.Broker
	readWrite bool

	mu     sync.Mutex
	slots  map[string]*contextSlot
	logger Logger
}

func newRouter(dir string, mode Mode, opts Options) *ContextRouter {
	pred := opts.Predicate
	if pred == nil {
		pred = labelcheck.AllowAll{}
	}
	return &ContextRouter{
		dir:       dir,
		mode:      mode,
		predicate: pred,
		broker:    opts.Broker,
		readWrite: opts.ReadWrite,
		slots:     make(map[string]*contextSlot),
		logger:    opts.Logger,
	}
}

func (r *ContextRouter) warn(msg string, kv ...interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, kv...)
	}
}

func (r *ContextRouter) logError(msg string, kv ...interface{}) {
	if r.logger != nil {
		r.logger.Error(msg, kv...)
	}
}

// NewTextRouter builds a ContextRouter in text mode: idx must already
// be loaded (see propindex.TextIndex.LoadFile). One slot is
// pre-registered per distinct label idx names, though each area file
// is still only mapped lazily on first access.
func NewTextRouter(dir string, idx *propindex.TextIndex, opts Options) *ContextRouter {
	r := newRouter(dir, ModeText, opts)
	r.text = idx
	for _, label := range idx.Labels() {
		r.registerSlot(label)
	}
	return r
}

// NewIndexedRouter builds a ContextRouter in indexed mode from an
// already-opened BinaryIndex (see propindex.OpenBinaryIndex, which
// performs minimum-version and size validation before this constructor
// ever sees it).
func NewIndexedRouter(dir string, bi *propindex.BinaryIndex, opts Options) *ContextRouter {
	r := newRouter(dir, ModeIndexed, opts)
	r.binary = bi
	for _, label := range bi.Contexts() {
		r.registerSlot(label)
	}
	return r
}

func (r *ContextRouter) registerSlot(label string) *contextSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[label]; ok {
		return s
	}
	s := &contextSlot{label: label, path: filepath.Join(r.dir, label)}
	r.slots[label] = s
	return s
}

func (r *ContextRouter) slotFor(label string) *contextSlot {
	r.mu.Lock()
	if s, ok := r.slots[label]; ok {
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()
	return r.registerSlot(label)
}

// routeLabel resolves name to a context label using whichever
// structure this router was built with.
func (r *ContextRouter) routeLabel(name string) (string, bool) {
	switch r.mode {
	case ModeIndexed:
		label, _, ok := r.binary.Route(name)
		return label, ok
	default:
		return r.text.Route(name)
	}
}

// RouteLabel exposes the routing decision for name without opening
// anything, for tooling (propctl route) that only wants to know which
// context a name would land in.
func (r *ContextRouter) RouteLabel(name string) (string, bool) {
	return r.routeLabel(name)
}

func (r *ContextRouter) doOpen(slot *contextSlot, principal string) (*prop.PropArea, error) {
	if !r.predicate.Allowed(slot.label, principal) {
		r.warn("router: access denied", "label", slot.label, "principal", principal)
		return nil, fmt.Errorf("router: label %q denied for principal %q: %w", slot.label, principal, properrors.ErrDenied)
	}
	var area *prop.PropArea
	var err error
	if r.readWrite {
		area, err = prop.OpenReadWrite(slot.path)
	} else {
		area, err = prop.OpenReadOnly(slot.path)
	}
	if err != nil {
		r.logError("router: area map failure", "label", slot.label, "path", slot.path, "err", err)
		return nil, err
	}
	if r.broker != nil {
		area.SetBroker(r.broker)
	}
	return area, nil
}

// openForPointLookup maps slot's area on demand. It never consults the
// remembered foreach-denial flag: every forbidden point lookup retries
// the permission check and so still produces an audit trail.
func (r *ContextRouter) openForPointLookup(slot *contextSlot, principal string) (*prop.PropArea, error) {
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.area != nil {
		return slot.area, nil
	}
	area, err := r.doOpen(slot, principal)
	if err != nil {
		slot.deniedForForeach = true
		return nil, err
	}
	slot.area = area
	slot.deniedForForeach = false
	return area, nil
}

// openForForeach maps slot's area on demand, but skips silently (no
// audit, no re-attempt) if a prior attempt — from either a point lookup
// or an earlier foreach pass — was denied.
func (r *ContextRouter) openForForeach(slot *contextSlot, principal string) (*prop.PropArea, bool) {
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.area != nil {
		return slot.area, true
	}
	if slot.deniedForForeach {
		return nil, false
	}
	area, err := r.doOpen(slot, principal)
	if err != nil {
		slot.deniedForForeach = true
		return nil, false
	}
	slot.area = area
	return area, true
}

// ResetAccess clears the remembered denial of every still-unopened
// context, so the next Foreach re-checks its readability: areas that
// have become accessible since the last denial are eligible for lazy
// open again.
func (r *ContextRouter) ResetAccess() {
	r.mu.Lock()
	slots := make([]*contextSlot, 0, len(r.slots))
	for _, s := range r.slots {
		slots = append(slots, s)
	}
	r.mu.Unlock()

	for _, s := range slots {
		s.mu.Lock()
		if s.area == nil {
			s.deniedForForeach = false
		}
		s.mu.Unlock()
	}
}

// Find routes name to its area and returns an open Handle.
func (r *ContextRouter) Find(name, principal string) (*prop.PropArea, prop.Handle, error) {
	label, ok := r.routeLabel(name)
	if !ok {
		return nil, prop.Handle{}, properrors.ErrNotFound
	}
	area, err := r.openForPointLookup(r.slotFor(label), principal)
	if err != nil {
		return nil, prop.Handle{}, err
	}
	h, err := area.Find(name)
	if err != nil {
		return nil, prop.Handle{}, err
	}
	return area, h, nil
}

// Add routes name to its area and adds it.
func (r *ContextRouter) Add(name, value, principal string) error {
	label, ok := r.routeLabel(name)
	if !ok {
		return properrors.ErrNotFound
	}
	area, err := r.openForPointLookup(r.slotFor(label), principal)
	if err != nil {
		return err
	}
	if err := area.Add(name, value); err != nil {
		r.logWriteError("add", name, err)
		return err
	}
	return nil
}

// Update routes name to its area and updates it.
func (r *ContextRouter) Update(name, value, principal string) error {
	label, ok := r.routeLabel(name)
	if !ok {
		return properrors.ErrNotFound
	}
	area, err := r.openForPointLookup(r.slotFor(label), principal)
	if err != nil {
		return err
	}
	if err := area.Update(name, value); err != nil {
		r.logWriteError("update", name, err)
		return err
	}
	return nil
}

// logWriteError logs once at Warn for client-caused write failures
// (bad name/value shape) and at Error for everything else (allocator
// exhaustion, corruption).
func (r *ContextRouter) logWriteError(op, name string, err error) {
	switch {
	case errors.Is(err, properrors.ErrNameTooLong), errors.Is(err, properrors.ErrNameInvalid), errors.Is(err, properrors.ErrValueTooLong):
		r.warn("router: write rejected", "op", op, "name", name, "err", err)
	default:
		r.logError("router: write failed", "op", op, "name", name, "err", err)
	}
}

// Delete routes name to its area and removes it.
func (r *ContextRouter) Delete(name string, prune bool, principal string) error {
	label, ok := r.routeLabel(name)
	if !ok {
		return properrors.ErrNotFound
	}
	area, err := r.openForPointLookup(r.slotFor(label), principal)
	if err != nil {
		return err
	}
	return area.Delete(name, prune)
}

// Foreach visits every accessible context's entries: a context that
// fails its permission check is silently skipped, with no retry, until
// ResetAccess runs.
func (r *ContextRouter) Foreach(principal string, cb func(label string, name, value []byte, serial uint32) bool) {
	r.mu.Lock()
	slots := make([]*contextSlot, 0, len(r.slots))
	for _, s := range r.slots {
		slots = append(slots, s)
	}
	r.mu.Unlock()

	for _, s := range slots {
		area, ok := r.openForForeach(s, principal)
		if !ok {
			continue
		}
		stop := false
		area.Foreach(func(name, value []byte, serial uint32) bool {
			if !cb(s.label, name, value, serial) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// Close unmaps every opened context area and, in indexed mode, the
// BinaryIndex itself.
func (r *ContextRouter) Close() error {
	r.mu.Lock()
	slots := make([]*contextSlot, 0, len(r.slots))
	for _, s := range r.slots {
		slots = append(slots, s)
	}
	r.mu.Unlock()

	var firstErr error
	for _, s := range slots {
		s.mu.Lock()
		if s.area != nil {
			if err := s.area.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		s.mu.Unlock()
	}
	if r.binary != nil {
		if err := r.binary.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
