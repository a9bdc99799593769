package post

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/postboard/pkg/posts"
	"github.com/vango-dev/postboard/pkg/ui"
)

// fakeBridge records requests instead of sending them to a store.
type fakeBridge struct {
	mu       sync.Mutex
	sent     []posts.Request
	closed   bool
	callback func(posts.Snapshot)
}

func (f *fakeBridge) Send(r posts.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
}

func (f *fakeBridge) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeBridge) requests() []posts.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]posts.Request(nil), f.sent...)
}

// newTestPost builds a Post directly, without a runtime, and returns the
// messages it queued on its own link.
func newTestPost(t *testing.T, id posts.PostID) (*Post, *fakeBridge) {
	t.Helper()
	fb := &fakeBridge{}
	connect := func(onSnapshot func(posts.Snapshot)) Sender {
		fb.callback = onSnapshot
		return fb
	}
	link := ui.NewLink(func(Msg) bool { return true })
	p := New(connect)(Props{ID: id}, link).(*Post)
	return p, fb
}

// snapshotOf returns a snapshot holding exactly m.
func snapshotOf(t *testing.T, m map[posts.PostID]string) posts.Snapshot {
	t.Helper()
	seed := make([]posts.Post, 0, len(m))
	for id, text := range m {
		seed = append(seed, posts.Post{ID: id, Text: text})
	}
	s := posts.NewStore(posts.WithSeed(seed...))
	defer s.Close()
	return s.Snapshot()
}

func TestPostStartsPending(t *testing.T) {
	p, fb := newTestPost(t, 1)

	if got := p.Cache(); got.State != Pending {
		t.Errorf("State = %v, want Pending", got.State)
	}
	if fb.callback == nil {
		t.Error("Post should open a bridge on construction")
	}
	if got := p.View().Find("text").Attrs["value"]; got != "<pending>" {
		t.Errorf("input value = %q, want <pending>", got)
	}
}

func TestPostRequestsDoNotRerender(t *testing.T) {
	p, fb := newTestPost(t, 3)

	if p.Update(UpdateText{Text: "edited"}) {
		t.Error("UpdateText should not re-render")
	}
	if p.Update(Delete{}) {
		t.Error("Delete should not re-render")
	}

	sent := fb.requests()
	if len(sent) != 2 {
		t.Fatalf("sent %d requests, want 2", len(sent))
	}
	if got, ok := sent[0].(posts.Update); !ok || got.ID != 3 || got.Text != "edited" {
		t.Errorf("sent[0] = %#v, want Update{3, edited}", sent[0])
	}
	if got, ok := sent[1].(posts.Remove); !ok || got.ID != 3 {
		t.Errorf("sent[1] = %#v, want Remove{3}", sent[1])
	}
	if p.Cache().State != Pending {
		t.Error("requests must not touch the cache")
	}
}

func TestPostSnapshotGating(t *testing.T) {
	tests := []struct {
		name     string
		before   Cache
		snapshot map[posts.PostID]string
		want     Cache
		rerender bool
	}{
		{
			name:     "pending to loaded",
			before:   Cache{State: Pending},
			snapshot: map[posts.PostID]string{1: "hello"},
			want:     Cache{State: Loaded, Text: "hello"},
			rerender: true,
		},
		{
			name:     "same text",
			before:   Cache{State: Loaded, Text: "hello"},
			snapshot: map[posts.PostID]string{1: "hello", 2: "other"},
			want:     Cache{State: Loaded, Text: "hello"},
			rerender: false,
		},
		{
			name:     "changed text",
			before:   Cache{State: Loaded, Text: "hello"},
			snapshot: map[posts.PostID]string{1: "world"},
			want:     Cache{State: Loaded, Text: "world"},
			rerender: true,
		},
		{
			name:     "empty text is a value",
			before:   Cache{State: Loaded, Text: "hello"},
			snapshot: map[posts.PostID]string{1: ""},
			want:     Cache{State: Loaded, Text: ""},
			rerender: true,
		},
		{
			name:     "absent while pending",
			before:   Cache{State: Pending},
			snapshot: map[posts.PostID]string{2: "other"},
			want:     Cache{State: Pending},
			rerender: false,
		},
		{
			name:     "absent after loaded",
			before:   Cache{State: Loaded, Text: "hello"},
			snapshot: map[posts.PostID]string{},
			want:     Cache{State: Deleted},
			rerender: true,
		},
		{
			name:     "still absent after deleted",
			before:   Cache{State: Deleted},
			snapshot: map[posts.PostID]string{},
			want:     Cache{State: Deleted},
			rerender: false,
		},
		{
			name:     "recreated after deleted",
			before:   Cache{State: Deleted},
			snapshot: map[posts.PostID]string{1: "again"},
			want:     Cache{State: Loaded, Text: "again"},
			rerender: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPost(t, 1)
			p.cache = tt.before

			got := p.Update(SnapshotReceived{Snapshot: snapshotOf(t, tt.snapshot)})
			if got != tt.rerender {
				t.Errorf("Update() = %v, want %v", got, tt.rerender)
			}
			if p.Cache() != tt.want {
				t.Errorf("Cache() = %+v, want %+v", p.Cache(), tt.want)
			}
		})
	}
}

func TestPostChangeID(t *testing.T) {
	p, _ := newTestPost(t, 1)
	p.Update(SnapshotReceived{Snapshot: snapshotOf(t, map[posts.PostID]string{1: "one", 2: "two"})})

	if p.Change(Props{ID: 1}) {
		t.Error("Change with the same ID should not re-render")
	}
	if p.Cache().Text != "one" {
		t.Error("Change with the same ID should keep the cache")
	}

	if !p.Change(Props{ID: 2}) {
		t.Error("Change with a new ID should re-render")
	}
	if p.ID() != 2 {
		t.Errorf("ID() = %v, want 2", p.ID())
	}
	if p.Cache().State != Pending {
		t.Errorf("State after ID change = %v, want Pending", p.Cache().State)
	}
	if !strings.Contains(ui.RenderHTML(p.View()), "Post #2") {
		t.Error("View should show the new ID")
	}

	p.Update(SnapshotReceived{Snapshot: snapshotOf(t, map[posts.PostID]string{1: "one", 2: "two"})})
	if got := p.Cache(); got != (Cache{State: Loaded, Text: "two"}) {
		t.Errorf("Cache() = %+v, want Loaded two", got)
	}
}

func TestPostDestroy(t *testing.T) {
	p, fb := newTestPost(t, 1)
	p.Destroy()
	p.Destroy()

	if !fb.closed {
		t.Error("Destroy should close the bridge")
	}
	if p.Cache().State != Destroyed {
		t.Errorf("State = %v, want Destroyed", p.Cache().State)
	}
	if p.Update(SnapshotReceived{Snapshot: snapshotOf(t, map[posts.PostID]string{1: "x"})}) {
		t.Error("destroyed post must not re-render")
	}
	p.Update(UpdateText{Text: "late"})
	if len(fb.requests()) != 0 {
		t.Error("destroyed post must not send requests")
	}
	if p.Change(Props{ID: 5}) {
		t.Error("destroyed post must ignore props")
	}
}

func TestPostView(t *testing.T) {
	p, _ := newTestPost(t, 9)
	p.Update(SnapshotReceived{Snapshot: snapshotOf(t, map[posts.PostID]string{9: "<b>hi</b>"})})

	html := ui.RenderHTML(p.View())
	for _, want := range []string{
		`<h2>Post #9</h2>`,
		`<p>&lt;b&gt;hi&lt;/b&gt;</p>`,
		`value="&lt;b&gt;hi&lt;/b&gt;"`,
		`>Delete</button>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("View HTML missing %q:\n%s", want, html)
		}
	}
}

// harness wires a real store and runtime.
type harness struct {
	t     *testing.T
	store *posts.Store
	rt    *ui.Runtime
}

func newHarness(t *testing.T, opts ...posts.Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		store: posts.NewStore(opts...),
		rt:    ui.NewRuntime(),
	}
	t.Cleanup(func() {
		h.rt.Close()
		h.store.Close()
	})
	return h
}

func (h *harness) mount(id posts.PostID) *ui.Handle[Msg, Props] {
	return Mount(h.rt, StoreConnect(h.store), Props{ID: id})
}

// settle waits until component messages have reached the store and the
// resulting snapshots have been handled by every component.
func (h *harness) settle(handles ...*ui.Handle[Msg, Props]) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, hd := range handles {
		if err := hd.Sync(ctx); err != nil {
			h.t.Fatalf("Sync() error: %v", err)
		}
	}
	if err := h.store.Barrier(ctx); err != nil {
		h.t.Fatalf("Barrier() error: %v", err)
	}
	for _, hd := range handles {
		if err := hd.Sync(ctx); err != nil {
			h.t.Fatalf("Sync() error: %v", err)
		}
	}
}

func cacheOf(hd *ui.Handle[Msg, Props]) Cache {
	return hd.Component().(*Post).Cache()
}

func TestPostEndToEnd(t *testing.T) {
	h := newHarness(t)

	a := h.mount(1)
	h.settle(a)
	if got := cacheOf(a); got.State != Pending {
		t.Fatalf("initial State = %v, want Pending", got.State)
	}
	if a.Renders() != 1 {
		t.Fatalf("Renders() after mount = %d, want 1", a.Renders())
	}

	a.Tree().Find("text").Submit("hello")
	h.settle(a)
	if got := h.store.Snapshot().Map(); len(got) != 1 || got[1] != "hello" {
		t.Fatalf("store = %v, want {1: hello}", got)
	}
	if got := cacheOf(a); got != (Cache{State: Loaded, Text: "hello"}) {
		t.Fatalf("Cache() = %+v, want Loaded hello", got)
	}
	if a.Renders() != 2 {
		t.Errorf("Renders() after first update = %d, want 2", a.Renders())
	}

	a.Tree().Find("text").Submit("hello")
	h.settle(a)
	if h.store.Snapshot().Seq() != 2 {
		t.Errorf("Seq() = %d, want 2: an equal update is still a mutation", h.store.Snapshot().Seq())
	}
	if a.Renders() != 2 {
		t.Errorf("Renders() after equal update = %d, want 2", a.Renders())
	}

	a.Tree().Find("delete").Click()
	h.settle(a)
	if n := h.store.Snapshot().Len(); n != 0 {
		t.Errorf("store Len() = %d, want 0", n)
	}
	if got := cacheOf(a); got.State != Deleted {
		t.Errorf("State after remove = %v, want Deleted", got.State)
	}
	if a.Renders() != 3 {
		t.Errorf("Renders() after remove = %d, want 3", a.Renders())
	}
	if !strings.Contains(ui.RenderHTML(a.Tree()), "&lt;deleted&gt;") {
		t.Error("deleted post should say so")
	}
}

func TestPostIgnoresOtherPosts(t *testing.T) {
	h := newHarness(t, posts.WithSeed(posts.Post{ID: 1, Text: "one"}, posts.Post{ID: 2, Text: "two"}))

	a := h.mount(1)
	b := h.mount(2)
	h.settle(a, b)
	if a.Renders() != 2 || b.Renders() != 2 {
		t.Fatalf("Renders() after initial sync = %d, %d; want 2, 2", a.Renders(), b.Renders())
	}

	b.Send(UpdateText{Text: "two!"})
	h.settle(a, b)
	b.Send(Delete{})
	h.settle(a, b)

	if a.Renders() != 2 {
		t.Errorf("A re-rendered for someone else's post: Renders() = %d, want 2", a.Renders())
	}
	if b.Renders() != 4 {
		t.Errorf("B Renders() = %d, want 4", b.Renders())
	}
	if a.Skipped() < 2 {
		t.Errorf("A Skipped() = %d, want at least 2", a.Skipped())
	}
}

func TestPostIDChangeRefetches(t *testing.T) {
	h := newHarness(t, posts.WithSeed(posts.Post{ID: 1, Text: "one"}, posts.Post{ID: 2, Text: "two"}))

	a := h.mount(1)
	h.settle(a)

	a.SetProps(Props{ID: 2})
	h.settle(a)
	if got := cacheOf(a); got.State != Pending {
		t.Fatalf("State after ID change = %v, want Pending", got.State)
	}
	renders := a.Renders()

	// Any mutation broadcasts the full mapping.
	h.store.Submit(posts.Update{ID: 3, Text: "three"})
	h.settle(a)
	if got := cacheOf(a); got != (Cache{State: Loaded, Text: "two"}) {
		t.Errorf("Cache() = %+v, want Loaded two", got)
	}
	if a.Renders() != renders+1 {
		t.Errorf("Renders() = %d, want %d", a.Renders(), renders+1)
	}
}

func TestPostUnmountUnregisters(t *testing.T) {
	h := newHarness(t)

	a := h.mount(1)
	h.settle(a)
	if n := h.store.Subscribers(); n != 1 {
		t.Fatalf("Subscribers() = %d, want 1", n)
	}

	a.Unmount()
	if n := h.store.Subscribers(); n != 0 {
		t.Errorf("Subscribers() after unmount = %d, want 0", n)
	}

	renders := a.Renders()
	h.store.Submit(posts.Update{ID: 1, Text: "after"})
	h.settle()
	if a.Renders() != renders {
		t.Error("unmounted post rendered again")
	}
	if got := cacheOf(a); got.State != Destroyed {
		t.Errorf("State = %v, want Destroyed", got.State)
	}
}

func TestBoard(t *testing.T) {
	h := newHarness(t, posts.WithSeed(posts.Post{ID: 2, Text: "b"}, posts.Post{ID: 1, Text: "a"}))
	board := NewBoard(h.rt, StoreConnect(h.store), nil)
	defer board.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if m, u := board.Reconcile(h.store.Snapshot()); m != 2 || u != 0 {
		t.Fatalf("Reconcile = %d, %d; want 2, 0", m, u)
	}
	if err := h.store.Barrier(ctx); err != nil {
		t.Fatal(err)
	}
	if err := board.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	html := ui.RenderHTML(board.View())
	first, second := strings.Index(html, "Post #1"), strings.Index(html, "Post #2")
	if first < 0 || second < 0 || first > second {
		t.Errorf("board should list posts in ID order:\n%s", html)
	}

	h.store.Submit(posts.Remove{ID: 1})
	h.store.Submit(posts.Create{Text: "c"})
	if err := h.store.Barrier(ctx); err != nil {
		t.Fatal(err)
	}
	if m, u := board.Reconcile(h.store.Snapshot()); m != 1 || u != 1 {
		t.Errorf("Reconcile = %d, %d; want 1, 1", m, u)
	}
	if _, ok := board.Handle(3); !ok {
		t.Error("board should mount created post 3")
	}
	if board.Len() != 2 {
		t.Errorf("Len() = %d, want 2", board.Len())
	}
}
