package ui

// Component is a mounted widget with message type M and props type P.
type Component[M any, P comparable] interface {
	// Update handles a message and reports whether View must run again.
	Update(msg M) bool

	// Change receives new props from the parent and reports whether View must
	// run again.
	Change(props P) bool

	// View returns the component's current tree.
	View() *Node

	// Destroy releases the component's resources. No other method is called
	// afterwards.
	Destroy()
}

// Factory creates a component from its initial props and the link to its own
// message loop.
type Factory[M any, P comparable] func(props P, link *Link[M]) Component[M, P]

// Link queues messages on a component's loop.
type Link[M any] struct {
	put func(M) bool
}

// NewLink creates a link that hands messages to put. It is mostly useful in
// tests that drive a component without a Runtime.
func NewLink[M any](put func(M) bool) *Link[M] {
	return &Link[M]{put: put}
}

// Send queues msg. It never blocks and reports false once the component has
// been unmounted.
func (l *Link[M]) Send(msg M) bool {
	if l == nil || l.put == nil {
		return false
	}
	return l.put(msg)
}

// Emit returns a handler that sends msg, for use as a click callback.
func (l *Link[M]) Emit(msg M) func() {
	return func() {
		l.Send(msg)
	}
}

// Callback adapts fn into a handler that sends the message it builds.
//
//	ui.TextInput("text", value, ui.Callback(link, func(s string) Msg {
//	    return UpdateText{Text: s}
//	}))
func Callback[A, M any](l *Link[M], fn func(A) M) func(A) {
	return func(a A) {
		l.Send(fn(a))
	}
}
