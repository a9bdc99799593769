package post

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/postboard/pkg/posts"
	"github.com/vango-dev/postboard/pkg/ui"
)

// Board keeps one mounted Post per post in the store.
type Board struct {
	rt      *ui.Runtime
	connect Connect
	opts    []Option
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[posts.PostID]*ui.Handle[Msg, Props]
}

// NewBoard creates an empty board mounting posts on rt.
func NewBoard(rt *ui.Runtime, connect Connect, logger *slog.Logger, opts ...Option) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		rt:      rt,
		connect: connect,
		opts:    opts,
		logger:  logger,
		handles: make(map[posts.PostID]*ui.Handle[Msg, Props]),
	}
}

// Reconcile mounts a Post for every ID in s that has none and unmounts the
// posts whose ID is no longer in s.
func (b *Board) Reconcile(s posts.Snapshot) (mounted, unmounted int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, h := range b.handles {
		if !s.Has(id) {
			h.Unmount()
			delete(b.handles, id)
			unmounted++
		}
	}
	for _, id := range s.IDs() {
		if _, ok := b.handles[id]; ok {
			continue
		}
		b.handles[id] = Mount(b.rt, b.connect, Props{ID: id}, b.opts...)
		mounted++
	}

	if mounted > 0 || unmounted > 0 {
		b.logger.Debug("board reconciled",
			"mounted", mounted,
			"unmounted", unmounted,
			"posts", len(b.handles))
	}
	return mounted, unmounted
}

// Handle returns the mounted post for id.
func (b *Board) Handle(id posts.PostID) (*ui.Handle[Msg, Props], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handles[id]
	return h, ok
}

// Len returns the number of mounted posts.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

// Sync waits until every mounted post has handled its queued messages.
// Posts unmounted concurrently are skipped.
func (b *Board) Sync(ctx context.Context) error {
	for _, h := range b.sorted() {
		if err := h.Sync(ctx); err != nil && !errors.Is(err, ui.ErrUnmounted) {
			return err
		}
	}
	return nil
}

// View composes the trees of all mounted posts in ID order.
func (b *Board) View() *ui.Node {
	handles := b.sorted()
	children := make([]*ui.Node, 0, len(handles))
	for _, h := range handles {
		if tree := h.Tree(); tree != nil {
			children = append(children, tree)
		}
	}
	return ui.Div(children...).WithAttr("class", "board")
}

// Close unmounts every post.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, h := range b.handles {
		h.Unmount()
		delete(b.handles, id)
	}
}

func (b *Board) sorted() []*ui.Handle[Msg, Props] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]posts.PostID, 0, len(b.handles))
	for id := range b.handles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*ui.Handle[Msg, Props], 0, len(ids))
	for _, id := range ids {
		out = append(out, b.handles[id])
	}
	return out
}
