package posts

import (
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// Bridge is a component's handle on the store: it sends requests in and
// receives snapshots out through the callback given to Store.Bridge.
type Bridge struct {
	id    ulid.ULID
	store *Store

	closed atomic.Bool

	// deliverMu is held while the callback runs, so Close waits for an
	// in-flight delivery and no delivery starts after Close returns. Send
	// never takes it.
	deliverMu sync.Mutex
	callback  func(Snapshot)
}

// ID returns the subscriber handle of the bridge.
func (b *Bridge) ID() ulid.ULID {
	return b.id
}

// Send forwards r to the store without blocking. There is no result; the
// effect shows up in a later snapshot. Sending on a closed bridge, or to a
// closed store, does nothing. Send may be called from the bridge's own
// callback.
func (b *Bridge) Send(r Request) {
	if r == nil {
		return
	}
	if b.closed.Load() {
		b.store.metrics.recordDropped(r.Kind())
		b.store.logger.Debug("request dropped",
			"bridge", b.id.String(),
			"kind", r.Kind(),
			"error", ErrBridgeClosed)
		return
	}
	if err := b.store.Submit(r); err != nil {
		b.store.logger.Debug("request dropped",
			"bridge", b.id.String(),
			"kind", r.Kind(),
			"error", err)
	}
}

// Close unregisters the bridge. After Close returns the callback is never
// invoked again. Close is idempotent and must not be called from the
// bridge's own callback.
func (b *Bridge) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	// Wait out a delivery that started before closed was set.
	b.deliverMu.Lock()
	b.callback = nil
	b.deliverMu.Unlock()

	b.store.unregister(b)
}

// Closed reports whether Close has been called.
func (b *Bridge) Closed() bool {
	return b.closed.Load()
}

// deliver runs the callback with snap. It reports false for a closed bridge.
func (b *Bridge) deliver(snap Snapshot) bool {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()
	if b.closed.Load() {
		return false
	}
	if b.callback != nil {
		b.callback(snap)
	}
	return true
}
