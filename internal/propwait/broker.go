package propwait

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oba-ldap/propd/internal/properrors"
)

// DefaultBufferSize is the channel capacity given to a waiter that does
// not request one explicitly.
const DefaultBufferSize = 64

// Errors.
var (
	ErrBrokerClosed  = errors.New("propwait: broker is closed")
	ErrSubscriberNil = errors.New("propwait: subscriber is nil")
	ErrWaitTimeout   = properrors.ErrTimeout
)

// WaiterID identifies one registered waiter within a Broker.
type WaiterID uint64

// waiter holds one blocked caller's delivery channel. A waiter watches
// exactly one Key — the property protocol has no notion of watching a
// range or scope of names, so unlike a general pub/sub subscriber this
// carries no filter predicate, just the address itself.
type waiter struct {
	id      WaiterID
	key     Key
	channel chan ChangeEvent
	dropped atomic.Uint64
	closed  atomic.Bool
}

func newWaiter(id WaiterID, key Key, bufferSize int) *waiter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &waiter{id: id, key: key, channel: make(chan ChangeEvent, bufferSize)}
}

// send delivers event without blocking, dropping it and counting the
// drop if the waiter's channel is full or already closed.
func (w *waiter) send(event ChangeEvent) bool {
	if w.closed.Load() {
		return false
	}
	select {
	case w.channel <- event:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

func (w *waiter) close() {
	if w.closed.CompareAndSwap(false, true) {
		close(w.channel)
	}
}

// Broker manages wait registrations and publishes serial-change events
// to them. One Broker is shared by every PropArea and the ContextRouter
// that owns them, so a global wait can be woken by a change in any area.
type Broker struct {
	waiters     sync.Map // map[WaiterID]*waiter
	nextID      atomic.Uint64
	waiterCount atomic.Int64
	closed      atomic.Bool
}

// NewBroker creates a new wait/wake broker.
func NewBroker() *Broker {
	return &Broker{}
}

// subscribe registers a new waiter on key with the given channel buffer
// size, returning nil if the broker is already closed.
func (b *Broker) subscribe(key Key, bufferSize int) *waiter {
	if b.closed.Load() {
		return nil
	}
	id := WaiterID(b.nextID.Add(1))
	w := newWaiter(id, key, bufferSize)
	b.waiters.Store(id, w)
	b.waiterCount.Add(1)
	return w
}

func (b *Broker) unsubscribe(id WaiterID) {
	if val, ok := b.waiters.LoadAndDelete(id); ok {
		val.(*waiter).close()
		b.waiterCount.Add(-1)
	}
}

// Publish delivers event to every waiter watching its Key.
func (b *Broker) Publish(event ChangeEvent) {
	if b.closed.Load() || b.waiterCount.Load() == 0 {
		return
	}
	event.Timestamp = time.Now()
	b.waiters.Range(func(_, value interface{}) bool {
		w := value.(*waiter)
		if w.key == event.Key {
			w.send(event)
		}
		return true
	})
}

// HasSubscribers returns true if there are active waiters.
func (b *Broker) HasSubscribers() bool { return b.waiterCount.Load() > 0 }

// SubscriberCount returns the number of active waiters.
func (b *Broker) SubscriberCount() int64 { return b.waiterCount.Load() }

// Close closes the broker and every registered waiter.
func (b *Broker) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.waiters.Range(func(key, value interface{}) bool {
		value.(*waiter).close()
		b.waiters.Delete(key)
		return true
	})
	b.waiterCount.Store(0)
}

// IsClosed returns true if the broker has been closed.
func (b *Broker) IsClosed() bool { return b.closed.Load() }

// WaitChanged implements the wait primitive: it blocks until the serial
// at key differs from lastSeen, timeout elapses, or ctx is canceled.
// readSerial is consulted once up front, closing the race where the
// change happened between the caller's last read and the subscribe
// call below, and again on every tick of a short poll interval, so a
// change that no one Publishes (an update in another process, or in an
// area with no broker attached) still ends the wait.
func (b *Broker) WaitChanged(ctx context.Context, key Key, lastSeen uint32, timeout time.Duration, readSerial func() uint32) (uint32, error) {
	const pollInterval = 10 * time.Millisecond

	if b.closed.Load() {
		return 0, ErrBrokerClosed
	}

	w := b.subscribe(key, DefaultBufferSize)
	if w == nil {
		return 0, ErrBrokerClosed
	}
	defer b.unsubscribe(w.id)

	if cur := readSerial(); cur != lastSeen {
		return cur, nil
	}

	var tc <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		tc = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-w.channel:
			if !ok {
				return 0, ErrSubscriberNil
			}
			if ev.Serial != lastSeen {
				return ev.Serial, nil
			}
		case <-ticker.C:
			if cur := readSerial(); cur != lastSeen {
				return cur, nil
			}
		case <-tc:
			return 0, ErrWaitTimeout
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}
