// Package post implements the Post component: a view of one post in the
// shared store with an edit field and a delete button.
//
// A Post never mutates the store directly. Edits and deletes become requests
// sent through the component's bridge, and the component learns the outcome
// from the next snapshot. Each snapshot is reduced to the component's own
// slice (the text for its ID) and the component re-renders only when that
// slice changed.
//
//	store := posts.NewStore()
//	rt := ui.NewRuntime()
//	h := post.Mount(rt, post.StoreConnect(store), post.Props{ID: 1})
//	defer h.Unmount()
package post
