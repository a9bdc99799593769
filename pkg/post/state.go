package post

// State is the lifecycle state of a Post.
type State uint8

const (
	// Pending means no snapshot has carried the post yet.
	Pending State = iota

	// Loaded means the cache holds the post's text.
	Loaded

	// Deleted means the post was present and then disappeared from a snapshot.
	Deleted

	// Destroyed means the component was torn down. Terminal.
	Destroyed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Loaded:
		return "Loaded"
	case Deleted:
		return "Deleted"
	case Destroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// Cache is the component's local copy of its post. Text is only meaningful
// in the Loaded state.
type Cache struct {
	State State
	Text  string
}

// Display returns the text shown for the cache.
func (c Cache) Display() string {
	switch c.State {
	case Loaded:
		return c.Text
	case Deleted:
		return "<deleted>"
	case Destroyed:
		return "<destroyed>"
	default:
		return "<pending>"
	}
}
