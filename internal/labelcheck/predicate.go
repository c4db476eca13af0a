// Package labelcheck provides the label-check predicate the router
// consults before serving a lazily-opened context, standing in for an
// external label-system ACL that lives outside this module: this module
// only consumes a Predicate, never defines the policy store behind it.
package labelcheck

// Predicate decides whether principal may access the context named
// label. A nil Predicate means "defer to the area file's own stat
// validation only" — ContextRouter treats it as always-allow.
type Predicate interface {
	Allowed(label, principal string) bool
}

// AllowAll is the default Predicate: every principal may access every
// label. Callers that want the os-level open_ro stat check as the only
// gate (no separate label-system layer) use this.
type AllowAll struct{}

// Allowed always returns true.
func (AllowAll) Allowed(string, string) bool { return true }

// DenyAll rejects every request, useful in tests that must prove a
// denial is surfaced rather than silently bypassed.
type DenyAll struct{}

// Allowed always returns false.
func (DenyAll) Allowed(string, string) bool { return false }
