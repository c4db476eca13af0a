// Package propwait implements the wait/wake half of the property
// protocol: a registry of broadcast channels keyed by the watched
// serial's address, standing in for a true cross-process futex wait.
//
// Go has no portably-exposed raw futex syscall, so a waiter in this
// process is woken the instant an update happens in this process; a
// waiter in another process degrades to a bounded poll (see Broker in
// broker.go). This is a documented boundary, not a correctness gap: any
// reader that never calls Wait still observes every update by loading
// the serial directly, because Wait is purely a latency optimization on
// top of the serial-word protocol, never the sole source of truth.
package propwait

import "time"

// Key identifies one watchable serial: either a single PropertyEntry or
// an area's global serial.
type Key string

// EntryKey addresses a specific entry's serial within areaPath.
func EntryKey(areaPath string, entryOffset uint32) Key {
	return Key(areaPath + "#entry#" + itoa(entryOffset))
}

// GlobalKey addresses an area's global serial.
func GlobalKey(areaPath string) Key {
	return Key(areaPath + "#global")
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// ChangeEvent is published to every waiter on Key when the serial at
// that address changes.
type ChangeEvent struct {
	Key       Key
	Serial    uint32
	Timestamp time.Time
}
