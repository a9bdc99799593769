// Package ui is the small composition layer the post components render into.
//
// It provides three things:
//
//   - Node, a plain element tree with the two presentation primitives the
//     components need: TextInput (emits the submitted string) and Button
//     (emits a click). RenderHTML turns a tree into escaped HTML.
//   - NeqAssign, the equality gate every component uses to decide whether a
//     state change needs a re-render.
//   - Runtime, which mounts components with immutable props and runs one
//     message loop per mounted instance.
//
// # Component Contract
//
// A component receives messages on its own loop. Update and Change return
// true when the component's visible state changed; only then does the
// runtime call View again. A broadcast that leaves the component's state
// unchanged must return false:
//
//	func (c *Counter) Update(msg Msg) bool {
//	    switch msg := msg.(type) {
//	    case Set:
//	        return ui.NeqAssign(&c.value, msg.Value)
//	    }
//	    return false
//	}
//
// Messages reach the loop through the Link handed to the component's
// constructor. Link.Send never blocks, so it is safe to call from other
// goroutines, including store callbacks.
package ui
