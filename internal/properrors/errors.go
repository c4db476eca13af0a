// Package properrors declares the sentinel error kinds surfaced by the
// property store's public APIs. Call sites wrap one of these with
// fmt.Errorf("...: %w", Err...) so errors.Is keeps working end to end.
package properrors

import "errors"

var (
	// ErrNotInitialized is returned by any operation attempted before the
	// router or area it depends on has completed init.
	ErrNotInitialized = errors.New("propstore: not initialized")

	// ErrNameTooLong is returned when a property name is empty or
	// exceeds MaxNameLen.
	ErrNameTooLong = errors.New("propstore: name too long")

	// ErrNameInvalid is returned for names with empty dot-segments
	// (leading, trailing, or doubled dots).
	ErrNameInvalid = errors.New("propstore: invalid name")

	// ErrValueTooLong is returned when a value exceeds MaxValueLen and the
	// name is not eligible for the long-form encoding.
	ErrValueTooLong = errors.New("propstore: value too long")

	// ErrDenied is returned when the router yields no area for a name, or
	// a lazily-opened area turns out not to be readable.
	ErrDenied = errors.New("propstore: access denied")

	// ErrMapFailure is returned when an area's stat/magic/version/size
	// checks fail, or the underlying mmap call itself fails.
	ErrMapFailure = errors.New("propstore: area map failure")

	// ErrAllocExhausted is returned by add when the bump allocator has no
	// room left in the area.
	ErrAllocExhausted = errors.New("propstore: allocator exhausted")

	// ErrNotFound is returned by find/get when no entry exists for a name.
	ErrNotFound = errors.New("propstore: not found")

	// ErrNotReadWrite is returned by writer operations against an area
	// that was not mapped read-write at init.
	ErrNotReadWrite = errors.New("propstore: area is not read-write")

	// ErrTimeout is returned by wait when no change occurred before the
	// deadline.
	ErrTimeout = errors.New("propstore: wait timed out")

	// ErrProtocolTimeout is the v1 wire client's 250ms ack wait expiring.
	// Per the protocol, this is not a failure: the caller should treat it
	// as success with a logged warning.
	ErrProtocolTimeout = errors.New("propstore: v1 protocol ack timeout")

	// ErrLabelApplyFailure records that applying the access-label extended
	// attribute failed during open_rw. The daemon path treats this as
	// fatal; every other caller proceeds and only logs it.
	ErrLabelApplyFailure = errors.New("propstore: label apply failure")

	// ErrVersionUnsupported is returned when a BinaryIndex file declares a
	// minimum_supported_version greater than this reader implements.
	ErrVersionUnsupported = errors.New("propstore: index version unsupported")

	// ErrIndexCorrupt is returned when a BinaryIndex's recorded size does
	// not match its mapped size, or another structural check fails.
	ErrIndexCorrupt = errors.New("propstore: index corrupt")
)
