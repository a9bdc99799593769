package posts

// Request is a mutation instruction sent to the store.
// The set of requests is closed: Update, Remove and Create.
type Request interface {
	// Kind names the request for logs and metrics.
	Kind() string

	isRequest()
}

// Update inserts or overwrites the text of a post.
// Any string is accepted, including the current text.
type Update struct {
	ID   PostID
	Text string
}

// Remove deletes a post. Removing a missing post is a no-op.
type Remove struct {
	ID PostID
}

// Create inserts a post under the next free ID (one past the largest ID in
// the store, starting at 1).
type Create struct {
	Text string
}

func (Update) Kind() string { return "update" }
func (Remove) Kind() string { return "remove" }
func (Create) Kind() string { return "create" }

func (Update) isRequest() {}
func (Remove) isRequest() {}
func (Create) isRequest() {}

// command is an internal store instruction queued alongside requests so that
// it observes the same arrival order. Commands never mutate the mapping and
// never trigger a broadcast.
type command interface {
	run(s *Store)
}

// barrier is released once every item queued before it has been handled.
type barrier struct {
	done chan struct{}
}

func (b barrier) run(*Store) {
	close(b.done)
}

// subscribe registers a bridge from the store goroutine, so the bridge's
// first snapshot and all later broadcasts arrive in store order.
type subscribe struct {
	bridge *Bridge
}

func (c subscribe) run(s *Store) {
	s.register(c.bridge)
}
