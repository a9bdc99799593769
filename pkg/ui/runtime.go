package ui

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/postboard/internal/mailbox"
)

// RenderEvent describes one View invocation.
type RenderEvent struct {
	// Instance is the mounted instance ID.
	Instance string

	// Count is the number of renders of the instance so far, including this one.
	Count uint64

	// Tree is the rendered tree.
	Tree *Node
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the runtime logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors the runtime records into.
func WithMetrics(m *Metrics) RuntimeOption {
	return func(rt *Runtime) {
		rt.metrics = m
	}
}

// WithRenderHook registers fn to be called after every render. fn runs on the
// rendering component's loop and must not block.
func WithRenderHook(fn func(RenderEvent)) RuntimeOption {
	return func(rt *Runtime) {
		rt.onRender = fn
	}
}

// unmounter is the type-erased view of a Handle kept by the runtime.
type unmounter interface {
	Unmount()
}

// Runtime mounts components and owns their message loops.
type Runtime struct {
	logger   *slog.Logger
	metrics  *Metrics
	onRender func(RenderEvent)

	mu        sync.Mutex
	instances map[string]unmounter
	closed    bool
}

// NewRuntime creates a runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		logger:    slog.Default(),
		instances: make(map[string]unmounter),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Mounted returns the number of mounted components.
func (rt *Runtime) Mounted() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.instances)
}

// Close unmounts every component. Mount after Close returns an already
// unmounted handle.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	rt.closed = true
	all := make([]unmounter, 0, len(rt.instances))
	for _, h := range rt.instances {
		all = append(all, h)
	}
	rt.mu.Unlock()

	for _, h := range all {
		h.Unmount()
	}
}

func (rt *Runtime) track(id string, h unmounter) bool {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return false
	}
	rt.instances[id] = h
	n := len(rt.instances)
	rt.mu.Unlock()

	rt.metrics.setMounted(n)
	return true
}

func (rt *Runtime) untrack(id string) {
	rt.mu.Lock()
	delete(rt.instances, id)
	n := len(rt.instances)
	rt.mu.Unlock()

	rt.metrics.setMounted(n)
}

// instanceIDCounter is used to generate unique instance IDs.
var instanceIDCounter atomic.Uint64

func generateInstanceID() string {
	return fmt.Sprintf("c%d", instanceIDCounter.Add(1))
}

type envelopeKind uint8

const (
	envMessage envelopeKind = iota
	envProps
	envSync
	envDestroy
)

// envelope is one entry of a component's inbox.
type envelope[M any, P comparable] struct {
	kind  envelopeKind
	msg   M
	props P
	done  chan struct{}
}

// Handle is a mounted component instance.
type Handle[M any, P comparable] struct {
	id   string
	rt   *Runtime
	comp Component[M, P]

	inbox *mailbox.Mailbox[envelope[M, P]]
	done  chan struct{}
	once  sync.Once

	tree    atomic.Pointer[Node]
	renders atomic.Uint64
	skipped atomic.Uint64

	// destroyed is owned by the loop goroutine.
	destroyed bool
}

// Mount creates a component from factory with props, renders it once and
// starts its message loop.
func Mount[M any, P comparable](rt *Runtime, props P, factory Factory[M, P]) *Handle[M, P] {
	h := &Handle[M, P]{
		id:    generateInstanceID(),
		rt:    rt,
		inbox: mailbox.New[envelope[M, P]](),
		done:  make(chan struct{}),
	}

	link := &Link[M]{put: func(msg M) bool {
		return h.inbox.Put(envelope[M, P]{kind: envMessage, msg: msg})
	}}
	h.comp = factory(props, link)
	h.render()

	go h.loop()

	if !rt.track(h.id, h) {
		rt.logger.Warn("mount on closed runtime", "instance", h.id)
		h.Unmount()
	}
	return h
}

// ID returns the instance ID.
func (h *Handle[M, P]) ID() string {
	return h.id
}

// Component returns the mounted component. Its methods must only be called
// from the component's own loop; use this for inspection after Sync.
func (h *Handle[M, P]) Component() Component[M, P] {
	return h.comp
}

// Send queues a message for the component. It reports false once unmounted.
func (h *Handle[M, P]) Send(msg M) bool {
	return h.inbox.Put(envelope[M, P]{kind: envMessage, msg: msg})
}

// SetProps queues a props change. It reports false once unmounted.
func (h *Handle[M, P]) SetProps(props P) bool {
	return h.inbox.Put(envelope[M, P]{kind: envProps, props: props})
}

// Sync blocks until every message queued before the call has been handled.
func (h *Handle[M, P]) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !h.inbox.Put(envelope[M, P]{kind: envSync, done: done}) {
		return ErrUnmounted
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tree returns the most recently rendered tree.
func (h *Handle[M, P]) Tree() *Node {
	return h.tree.Load()
}

// Renders returns how many times View has run, including the initial render.
func (h *Handle[M, P]) Renders() uint64 {
	return h.renders.Load()
}

// Skipped returns how many messages were handled without a re-render.
func (h *Handle[M, P]) Skipped() uint64 {
	return h.skipped.Load()
}

// Unmount destroys the component after the messages already queued, and
// waits for its loop to exit. It is idempotent and must not be called from
// the component's own loop.
func (h *Handle[M, P]) Unmount() {
	h.once.Do(func() {
		h.inbox.Put(envelope[M, P]{kind: envDestroy})
		h.inbox.Close()
		<-h.done
		h.rt.untrack(h.id)
	})
}

// Done returns a channel that's closed when the component loop has exited.
func (h *Handle[M, P]) Done() <-chan struct{} {
	return h.done
}

// loop processes the inbox until it is closed.
func (h *Handle[M, P]) loop() {
	defer close(h.done)

	for {
		<-h.inbox.Ready()
		items, closed := h.inbox.Drain()
		for _, env := range items {
			h.handle(env)
		}
		if closed {
			h.destroy()
			return
		}
	}
}

func (h *Handle[M, P]) handle(env envelope[M, P]) {
	switch env.kind {
	case envSync:
		close(env.done)
		return
	case envDestroy:
		h.destroy()
		return
	}

	if h.destroyed {
		return
	}

	var rerender bool
	h.safeExecute("update", func() {
		if env.kind == envProps {
			rerender = h.comp.Change(env.props)
		} else {
			rerender = h.comp.Update(env.msg)
		}
	})

	if rerender {
		h.render()
		return
	}
	h.skipped.Add(1)
	h.rt.metrics.recordSkip()
}

func (h *Handle[M, P]) render() {
	var tree *Node
	h.safeExecute("view", func() {
		tree = h.comp.View()
	})
	h.tree.Store(tree)

	n := h.renders.Add(1)
	h.rt.metrics.recordRender()
	if h.rt.onRender != nil {
		h.rt.onRender(RenderEvent{Instance: h.id, Count: n, Tree: tree})
	}
}

func (h *Handle[M, P]) destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.safeExecute("destroy", h.comp.Destroy)
	h.rt.logger.Debug("component destroyed",
		"instance", h.id,
		"renders", h.renders.Load(),
		"skipped", h.skipped.Load())
}

// safeExecute runs fn, recovering and logging a panic.
func (h *Handle[M, P]) safeExecute(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.rt.metrics.recordPanic()
			h.rt.logger.Error("component panic",
				"instance", h.id,
				"op", op,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
