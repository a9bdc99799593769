package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// view is a render source the tests can change.
type view struct {
	html atomic.Value
}

func newView(html string) *view {
	v := &view{}
	v.html.Store(html)
	return v
}

func (v *view) set(html string)  { v.html.Store(html) }
func (v *view) render() string { return v.html.Load().(string) }

func startHub(t *testing.T, v *view, opts ...Option) (string, *Hub, context.CancelFunc) {
	t.Helper()
	hub := New(v.render, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(hub)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub, cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubSendsViewOnConnect(t *testing.T) {
	url, _, _ := startHub(t, newView("<p>one</p>"))
	conn := dial(t, url)

	m := readMessage(t, conn)
	if m.Event != "render" || m.HTML != "<p>one</p>" {
		t.Errorf("first message = %+v", m)
	}
}

func TestHubNotifyBroadcastsLatestView(t *testing.T) {
	v := newView("<p>one</p>")
	url, hub, _ := startHub(t, v)

	a := dial(t, url)
	b := dial(t, url)
	readMessage(t, a)
	readMessage(t, b)
	waitFor(t, "two clients", func() bool { return hub.Count() == 2 })

	v.set("<p>two</p>")
	hub.Notify()

	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		if m := readMessage(t, conn); m.HTML != "<p>two</p>" {
			t.Errorf("client %s got %q, want <p>two</p>", name, m.HTML)
		}
	}
}

func TestHubNotifyNeverBlocks(t *testing.T) {
	hub := New(func() string { return "" })
	// No Run loop: every Notify past the first is coalesced.
	for i := 0; i < 100; i++ {
		hub.Notify()
	}
}

func TestHubHandlesClientEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	url, _, _ := startHub(t, newView(""), WithEventHandler(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	conn := dial(t, url)
	readMessage(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"post": 3, "action": "submit", "text": "hi"}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"post": 3, "action": "delete"}`))

	waitFor(t, "two events", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	want := []Event{{Post: 3, Action: "submit", Text: "hi"}, {Post: 3, Action: "delete"}}
	for i, ev := range events {
		if ev != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, ev, want[i])
		}
	}
}

func TestHubRunCancelClosesClients(t *testing.T) {
	url, hub, cancel := startHub(t, newView("x"))
	conn := dial(t, url)
	readMessage(t, conn)
	waitFor(t, "client registered", func() bool { return hub.Count() == 1 })

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to close after cancel")
	}
	waitFor(t, "no clients", func() bool { return hub.Count() == 0 })

	// Clients connecting after shutdown are turned away.
	late := dial(t, url)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("expected the late connection to close")
	}
}
