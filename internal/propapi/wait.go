package propapi

import (
	"context"
	"time"

	"github.com/oba-ldap/propd/internal/prop"
	"github.com/oba-ldap/propd/internal/propwait"
	"github.com/oba-ldap/propd/internal/router"
)

// WaitAPI implements futex-style wait on either one entry's serial or
// an area's global serial. See internal/propwait's package doc for the
// cross-process degradation this reimplementation documents.
type WaitAPI struct {
	router *router.ContextRouter
	broker *propwait.Broker
}

// NewWaitAPI wraps r and broker. broker may be nil — every wait call
// then degrades immediately to a single poll of the current serial
// (still correct, just not latency-optimized).
func NewWaitAPI(r *router.ContextRouter, broker *propwait.Broker) *WaitAPI {
	return &WaitAPI{router: r, broker: broker}
}

// WaitEntry blocks until handle's serial differs from lastSeen or ctx
// is done, returning the new serial. A zero timeout waits forever
// (bounded only by ctx).
func (w *WaitAPI) WaitEntry(ctx context.Context, handle prop.Handle, lastSeen uint32, timeout time.Duration) (uint32, error) {
	readSerial := func() uint32 {
		_, s, err := handle.Read()
		if err != nil {
			return lastSeen
		}
		return s
	}
	if w.broker == nil {
		return readSerial(), nil
	}
	return w.broker.WaitChanged(ctx, handle.WaitKey(), lastSeen, timeout, readSerial)
}

// WaitGlobal blocks until area's global serial differs from lastSeen or
// ctx is done.
func (w *WaitAPI) WaitGlobal(ctx context.Context, area *prop.PropArea, lastSeen uint32, timeout time.Duration) (uint32, error) {
	readSerial := func() uint32 { return area.GlobalSerial() }
	if w.broker == nil {
		return readSerial(), nil
	}
	return w.broker.WaitChanged(ctx, propwait.GlobalKey(area.Path()), lastSeen, timeout, readSerial)
}
