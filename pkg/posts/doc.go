// Package posts provides the shared post store and the bridges components use
// to talk to it.
//
// The Store is the single owner of the PostID -> text mapping. Components never
// touch the mapping directly; they hold a Bridge, send Requests through it and
// receive read-only Snapshots back.
//
// # Protocol
//
// Requests are processed one at a time, in the order they reached the store.
// After every applied request the store clones its mapping into a Snapshot and
// delivers it to every registered bridge, whether or not the bridge's owner
// cares about the post that changed. Filtering is the subscriber's job.
//
//	store := posts.NewStore(posts.WithLogger(logger))
//	defer store.Close()
//
//	bridge := store.Bridge(func(s posts.Snapshot) {
//	    if text, ok := s.Get(1); ok {
//	        fmt.Println("post 1:", text)
//	    }
//	})
//	defer bridge.Close()
//
//	bridge.Send(posts.Update{ID: 1, Text: "hello"})
//
// # Delivery
//
// Snapshot callbacks run on the store goroutine. They must not block and must
// not close their own bridge or the store; the usual callback just queues a
// message for the owning component. A callback may Send on its own bridge:
// the request is queued behind the one being broadcast. After Bridge.Close
// returns, the callback is never invoked again.
//
// Send is fire-and-forget. There is no reply: the effect of a request is
// observed through a later snapshot. Sending after the store is closed is a
// silent no-op.
package posts
