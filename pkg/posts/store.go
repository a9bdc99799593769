package posts

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/postboard/internal/mailbox"
)

// tracerName is the instrumentation name used when no tracer is configured.
const tracerName = "github.com/vango-dev/postboard/pkg/posts"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors the store records into.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for apply spans.
// Default: the tracer of the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithInitialSync controls whether a newly registered bridge immediately
// receives the current snapshot. Enabled by default.
func WithInitialSync(enabled bool) Option {
	return func(s *Store) {
		s.initialSync = enabled
	}
}

// WithSeed preloads posts into the store. Seeding is not a request: it does
// not advance Seq and does not broadcast.
func WithSeed(seed ...Post) Option {
	return func(s *Store) {
		for _, p := range seed {
			s.tree.ReplaceOrInsert(p)
		}
	}
}

// item is one entry of the store queue: either a Request or a command.
type item struct {
	req Request
	cmd command
}

// Store is the authoritative owner of the post mapping.
// All mutations happen on a single goroutine, one request at a time, in
// arrival order.
type Store struct {
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	initialSync bool

	queue     *mailbox.Mailbox[item]
	done      chan struct{}
	closeOnce sync.Once

	// tree and seq are owned by the run goroutine once NewStore returns.
	tree *btree.BTreeG[Post]
	seq  uint64

	// latest is the most recently published snapshot.
	latest atomic.Pointer[Snapshot]

	subs  map[ulid.ULID]*Bridge
	subMu sync.RWMutex
}

// NewStore creates a store and starts its processing goroutine.
// Call Close to stop it.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		initialSync: true,
		queue:       mailbox.New[item](),
		done:        make(chan struct{}),
		tree:        newTree(),
		subs:        make(map[ulid.ULID]*Bridge),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.publish()
	s.metrics.setPosts(s.tree.Len())

	go s.run()
	return s
}

// Submit queues r for the store. It never blocks.
// The only error is ErrStoreClosed (wrapped in a *RequestError).
func (s *Store) Submit(r Request) error {
	if r == nil {
		return nil
	}
	if !s.queue.Put(item{req: r}) {
		s.metrics.recordDropped(r.Kind())
		return &RequestError{Kind: r.Kind(), Err: ErrStoreClosed}
	}
	return nil
}

// Bridge registers callback as a snapshot destination and returns the handle
// used to send requests and to unregister.
//
// Registration is processed in store order: the bridge sees every broadcast
// for requests that arrive after it, and, with initial sync enabled, one
// snapshot of the state at registration time first.
func (s *Store) Bridge(callback func(Snapshot)) *Bridge {
	b := &Bridge{
		id:       ulid.Make(),
		store:    s,
		callback: callback,
	}
	if !s.queue.Put(item{cmd: subscribe{bridge: b}}) {
		// Store already closed; the bridge is inert.
		b.closed.Store(true)
	}
	return b
}

// Barrier blocks until every request submitted before the call has been
// applied and its snapshot delivered, or ctx is done.
func (s *Store) Barrier(ctx context.Context) error {
	done := make(chan struct{})
	if !s.queue.Put(item{cmd: barrier{done: done}}) {
		return ErrStoreClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the most recently published snapshot.
func (s *Store) Snapshot() Snapshot {
	return *s.latest.Load()
}

// Subscribers returns the number of registered bridges.
func (s *Store) Subscribers() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

// Close stops accepting requests, applies the ones already queued and waits
// for the store goroutine to exit. Close is idempotent.
// It must not be called from a snapshot callback.
func (s *Store) Close() {
	s.closeOnce.Do(s.queue.Close)
	<-s.done
}

// Done returns a channel that's closed when the store goroutine has exited.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// run is the store loop. It is the only goroutine that touches tree and seq.
func (s *Store) run() {
	defer close(s.done)

	ctx := context.Background()
	for {
		<-s.queue.Ready()
		items, closed := s.queue.Drain()
		for _, it := range items {
			if it.cmd != nil {
				it.cmd.run(s)
				continue
			}
			s.apply(ctx, it.req)
		}
		if closed {
			s.dropSubscribers()
			s.logger.Debug("store closed", "seq", s.seq, "posts", s.tree.Len())
			return
		}
	}
}

// apply mutates the mapping for r and broadcasts the result.
func (s *Store) apply(ctx context.Context, r Request) {
	_, span := s.tracer.Start(ctx, "posts.apply",
		trace.WithAttributes(attribute.String("posts.request", r.Kind())))
	defer span.End()

	switch r := r.(type) {
	case Update:
		s.tree.ReplaceOrInsert(Post{ID: r.ID, Text: r.Text})
		span.SetAttributes(attribute.String("posts.id", r.ID.String()))
	case Remove:
		_, found := s.tree.Delete(Post{ID: r.ID})
		span.SetAttributes(
			attribute.String("posts.id", r.ID.String()),
			attribute.Bool("posts.found", found),
		)
	case Create:
		id := s.nextID()
		s.tree.ReplaceOrInsert(Post{ID: id, Text: r.Text})
		span.SetAttributes(attribute.String("posts.id", id.String()))
	default:
		s.logger.Warn("ignoring unknown request", "kind", r.Kind())
		return
	}

	s.seq++
	s.metrics.recordApplied(r.Kind(), s.tree.Len())

	delivered, stale := s.broadcast(s.publish())
	span.SetAttributes(attribute.Int("posts.delivered", delivered))

	s.logger.Debug("request applied",
		"kind", r.Kind(),
		"seq", s.seq,
		"posts", s.tree.Len(),
		"delivered", delivered,
		"stale", stale)
}

// nextID returns one past the largest ID in the mapping.
func (s *Store) nextID() PostID {
	if last, ok := s.tree.Max(); ok {
		return last.ID + 1
	}
	return 1
}

// publish freezes the current mapping into a snapshot and makes it the latest.
func (s *Store) publish() Snapshot {
	snap := Snapshot{seq: s.seq, tree: s.tree.Clone()}
	s.latest.Store(&snap)
	return snap
}

// broadcast delivers snap to every registered bridge.
func (s *Store) broadcast(snap Snapshot) (delivered, stale int) {
	// Copy subscribers so callbacks run without holding subMu.
	s.subMu.RLock()
	targets := make([]*Bridge, 0, len(s.subs))
	for _, b := range s.subs {
		targets = append(targets, b)
	}
	s.subMu.RUnlock()

	for _, b := range targets {
		if s.deliver(b, snap) {
			delivered++
		} else {
			stale++
		}
	}

	s.metrics.recordBroadcast(delivered, stale)
	return delivered, stale
}

// deliver hands snap to one bridge, keeping the store loop alive if the
// callback panics.
func (s *Store) deliver(b *Bridge, snap Snapshot) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("snapshot callback panic",
				"bridge", b.id.String(),
				"panic", r,
				"stack", string(debug.Stack()))
			ok = true
		}
	}()
	return b.deliver(snap)
}

// register adds b to the registry unless it was closed in the meantime.
func (s *Store) register(b *Bridge) {
	s.subMu.Lock()
	if b.closed.Load() {
		s.subMu.Unlock()
		return
	}
	s.subs[b.id] = b
	n := len(s.subs)
	s.subMu.Unlock()

	s.metrics.setSubscribers(n)
	s.logger.Debug("bridge registered", "bridge", b.id.String(), "subscribers", n)

	if s.initialSync {
		s.deliver(b, s.Snapshot())
	}
}

// unregister removes b from the registry. Removing an unknown bridge is a no-op.
func (s *Store) unregister(b *Bridge) {
	s.subMu.Lock()
	_, ok := s.subs[b.id]
	delete(s.subs, b.id)
	n := len(s.subs)
	s.subMu.Unlock()

	if ok {
		s.metrics.setSubscribers(n)
		s.logger.Debug("bridge unregistered", "bridge", b.id.String(), "subscribers", n)
	}
}

func (s *Store) dropSubscribers() {
	s.subMu.Lock()
	s.subs = make(map[ulid.ULID]*Bridge)
	s.subMu.Unlock()
	s.metrics.setSubscribers(0)
}
