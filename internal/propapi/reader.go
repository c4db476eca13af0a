// Package propapi implements the three client-facing facades:
// ReaderAPI, WriterAPI, and WaitAPI. Each is a thin wrapper over a
// *router.ContextRouter (and, for WaitAPI, a *propwait.Broker) — the
// actual protocol work happens in internal/prop and internal/router;
// this package only adapts their shapes to named operations.
package propapi

import (
	"github.com/oba-ldap/propd/internal/prop"
	"github.com/oba-ldap/propd/internal/router"
)

// ReaderAPI is the read-only facade: find, read, and walk properties.
type ReaderAPI struct {
	router *router.ContextRouter
}

// NewReaderAPI wraps r.
func NewReaderAPI(r *router.ContextRouter) *ReaderAPI {
	return &ReaderAPI{router: r}
}

// Find routes name and resolves it to an opaque Handle.
func (a *ReaderAPI) Find(name, principal string) (prop.Handle, error) {
	_, h, err := a.router.Find(name, principal)
	return h, err
}

// Read runs the serial-word read protocol against handle.
func (a *ReaderAPI) Read(handle prop.Handle) (value []byte, serial uint32, err error) {
	return handle.Read()
}

// ReadWithCallback invokes cb with the value and serial it read. A
// read-only (long-form) name is handed to cb without copying, aliasing
// the area's own buffer directly, since a long-form entry is written
// once by Add and never touched again. Any other name still gets a
// private copy, since a concurrent Update can be mid-write when the
// callback runs. See prop.Handle.ReadInPlace.
func (a *ReaderAPI) ReadWithCallback(handle prop.Handle, cb func(value []byte, serial uint32)) error {
	return handle.ReadInPlace(cb)
}

// Get finds name and reads it in one call. A missing name returns a
// nil value and no error, matching the convention that a lookup
// reports "length 0" rather than failing when a property is unset.
func (a *ReaderAPI) Get(name, principal string) (value []byte, serial uint32, err error) {
	h, err := a.Find(name, principal)
	if err != nil {
		return nil, 0, nil
	}
	return h.Read()
}

// Foreach visits every accessible context's entries.
func (a *ReaderAPI) Foreach(principal string, cb func(label string, name, value []byte, serial uint32) bool) {
	a.router.Foreach(principal, cb)
}

// Nth stops Foreach at the n-th entry (0-based) in traversal order and
// returns it. ok is false if fewer than n+1 entries exist across every
// accessible context.
func (a *ReaderAPI) Nth(principal string, n int) (label string, name, value []byte, serial uint32, ok bool) {
	i := 0
	a.router.Foreach(principal, func(l string, nm, v []byte, s uint32) bool {
		if i == n {
			label, name, value, serial, ok = l, nm, v, s, true
			return false
		}
		i++
		return true
	})
	return
}

// ResetAccess re-checks readability of every context denied since the
// last reset.
func (a *ReaderAPI) ResetAccess() {
	a.router.ResetAccess()
}
