package post

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/postboard/pkg/posts"
	"github.com/vango-dev/postboard/pkg/ui"
)

// Msg is a message handled by Post.
type Msg interface {
	isMsg()
}

// UpdateText asks the store to replace the post's text.
type UpdateText struct {
	Text string
}

// Delete asks the store to remove the post.
type Delete struct{}

// SnapshotReceived carries a store broadcast.
type SnapshotReceived struct {
	Snapshot posts.Snapshot
}

func (UpdateText) isMsg()       {}
func (Delete) isMsg()           {}
func (SnapshotReceived) isMsg() {}

// Props are the immutable props of a Post.
type Props struct {
	ID posts.PostID
}

// Sender is the outbound half of a bridge.
type Sender interface {
	Send(posts.Request)
	Close()
}

// Connect opens a bridge whose snapshots are passed to onSnapshot.
type Connect func(onSnapshot func(posts.Snapshot)) Sender

// StoreConnect returns a Connect that bridges to store.
func StoreConnect(store *posts.Store) Connect {
	return func(onSnapshot func(posts.Snapshot)) Sender {
		return store.Bridge(onSnapshot)
	}
}

// Post displays and edits one post.
type Post struct {
	link   *ui.Link[Msg]
	bridge Sender
	logger *slog.Logger

	// mu guards id and cache for readers outside the component loop.
	mu    sync.RWMutex
	id    posts.PostID
	cache Cache
}

var _ ui.Component[Msg, Props] = (*Post)(nil)

// Option configures a Post.
type Option func(*Post)

// WithLogger sets the component logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Post) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New returns a factory creating posts bridged through connect.
func New(connect Connect, opts ...Option) ui.Factory[Msg, Props] {
	return func(props Props, link *ui.Link[Msg]) ui.Component[Msg, Props] {
		p := &Post{
			link:   link,
			logger: slog.Default(),
			id:     props.ID,
		}
		for _, opt := range opts {
			opt(p)
		}
		p.bridge = connect(func(s posts.Snapshot) {
			link.Send(SnapshotReceived{Snapshot: s})
		})
		return p
	}
}

// Mount mounts a Post on rt.
func Mount(rt *ui.Runtime, connect Connect, props Props, opts ...Option) *ui.Handle[Msg, Props] {
	return ui.Mount(rt, props, New(connect, opts...))
}

// ID returns the post ID the component currently shows.
func (p *Post) ID() posts.PostID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// Cache returns the component's local copy of its post.
func (p *Post) Cache() Cache {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cache
}

// Update handles a message. Requests never re-render by themselves; only a
// snapshot that changes the cached value does.
func (p *Post) Update(msg Msg) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache.State == Destroyed {
		return false
	}

	switch msg := msg.(type) {
	case UpdateText:
		p.bridge.Send(posts.Update{ID: p.id, Text: msg.Text})
		return false

	case Delete:
		p.bridge.Send(posts.Remove{ID: p.id})
		return false

	case SnapshotReceived:
		return ui.NeqAssign(&p.cache, p.derive(msg.Snapshot))
	}
	return false
}

// derive reduces a snapshot to the cache value for the current ID.
// A post that vanishes after being seen becomes Deleted; a post not seen yet
// stays Pending.
func (p *Post) derive(s posts.Snapshot) Cache {
	if text, ok := s.Get(p.id); ok {
		return Cache{State: Loaded, Text: text}
	}
	if p.cache.State == Pending {
		return p.cache
	}
	return Cache{State: Deleted}
}

// Change handles new props. A different ID invalidates the cache; it is
// filled again from the next snapshot.
func (p *Post) Change(props Props) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache.State == Destroyed {
		return false
	}
	if !ui.NeqAssign(&p.id, props.ID) {
		return false
	}
	p.cache = Cache{State: Pending}
	return true
}

// View renders the post.
func (p *Post) View() *ui.Node {
	p.mu.RLock()
	id, cache := p.id, p.cache
	p.mu.RUnlock()

	text := cache.Display()
	return ui.Div(
		ui.H2("Post #"+id.String()),
		ui.P(text),
		ui.TextInput("text", text, ui.Callback(p.link, func(s string) Msg {
			return UpdateText{Text: s}
		})),
		ui.Button("delete", "Delete", p.link.Emit(Delete{})),
	).WithAttr("class", "post").WithKey("post-" + id.String())
}

// Destroy closes the bridge. No snapshot reaches the component afterwards.
func (p *Post) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache.State == Destroyed {
		return
	}
	p.bridge.Close()
	p.logger.Debug("post destroyed", "id", p.id, "state", p.cache.State.String())
	p.cache = Cache{State: Destroyed}
}
