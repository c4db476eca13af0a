package propapi

import (
	"github.com/oba-ldap/propd/internal/router"
)

// WriterAPI is the mutating facade: add, update, delete, and set. Every
// method requires the underlying areas to have been mapped read-write —
// router.Options.ReadWrite must be true for the ContextRouter this
// wraps; otherwise a call fails with properrors.ErrNotReadWrite,
// surfaced from PropArea, unless the read-only open was still able to
// map that area's file read-write.
type WriterAPI struct {
	router *router.ContextRouter
}

// NewWriterAPI wraps r.
func NewWriterAPI(r *router.ContextRouter) *WriterAPI {
	return &WriterAPI{router: r}
}

// Add routes name, allocates its trie path and entry on first write,
// and stores value. A value longer than MAX_VALUE_LEN only succeeds if
// name carries the read-only prefix (long form).
func (w *WriterAPI) Add(name, value, principal string) error {
	return w.router.Add(name, value, principal)
}

// Update runs the dirty-bit protocol against name's existing entry.
func (w *WriterAPI) Update(name, value, principal string) error {
	return w.router.Update(name, value, principal)
}

// Delete removes name, optionally pruning any ancestor trie nodes that
// become entirely empty.
func (w *WriterAPI) Delete(name string, prune bool, principal string) error {
	return w.router.Delete(name, prune, principal)
}

// Set is Add-or-Update: it adds name if absent, otherwise updates it.
// This is not a distinct wire primitive — both propctl and the wire
// protocol's setprop only ever need "make this name have this value,"
// so this convenience wraps the two primitives the way a client
// library typically does internally.
func (w *WriterAPI) Set(name, value, principal string) error {
	if err := w.router.Update(name, value, principal); err != nil {
		return w.router.Add(name, value, principal)
	}
	return nil
}
