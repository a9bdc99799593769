// Package mailbox provides an unbounded FIFO queue with a single consumer.
//
// Producers never block: Put appends under a short lock and signals the
// consumer. The consumer waits on Ready and takes everything queued so far
// with Drain, which keeps the order in which items were put.
//
//	mb := mailbox.New[Request]()
//	go func() {
//	    for {
//	        <-mb.Ready()
//	        items, closed := mb.Drain()
//	        for _, it := range items {
//	            handle(it)
//	        }
//	        if closed {
//	            return
//	        }
//	    }
//	}()
package mailbox

import "sync"

// Mailbox is an unbounded FIFO queue.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// ready holds at most one pending wake-up for the consumer.
	ready chan struct{}
}

// New creates an empty, open mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		ready: make(chan struct{}, 1),
	}
}

// Put appends v and wakes the consumer. It never blocks.
// Put reports false if the mailbox is closed; v is discarded in that case.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, v)
	m.mu.Unlock()

	m.wake()
	return true
}

// Ready returns a channel that receives after one or more Put calls or after
// Close. A single receive may stand for many items.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Drain removes and returns all queued items in arrival order, and whether the
// mailbox has been closed. Once Drain reports closed, no further items will
// ever be queued.
func (m *Mailbox[T]) Drain() ([]T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items, m.closed
}

// Close stops accepting items. Items queued before Close remain drainable.
// Close is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.wake()
}

// Closed reports whether Close has been called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Mailbox[T]) wake() {
	select {
	case m.ready <- struct{}{}:
	default:
		// Already signalled
	}
}
