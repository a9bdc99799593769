package posts

import "github.com/google/btree"

// btreeDegree is the branching factor of the post tree.
const btreeDegree = 16

// Post is one entry of the mapping.
type Post struct {
	ID   PostID
	Text string
}

func lessPost(a, b Post) bool {
	return a.ID < b.ID
}

func newTree() *btree.BTreeG[Post] {
	return btree.NewG(btreeDegree, lessPost)
}

// Snapshot is a read-only, point-in-time copy of the store's mapping.
// It is safe to share between goroutines; later mutations of the store are
// never visible through it. The zero Snapshot is an empty mapping.
type Snapshot struct {
	seq  uint64
	tree *btree.BTreeG[Post]
}

// Seq returns the number of requests the store had applied when the snapshot
// was taken.
func (s Snapshot) Seq() uint64 {
	return s.seq
}

// Get returns the text of the post with the given ID.
func (s Snapshot) Get(id PostID) (string, bool) {
	if s.tree == nil {
		return "", false
	}
	p, ok := s.tree.Get(Post{ID: id})
	return p.Text, ok
}

// Has reports whether the snapshot contains id.
func (s Snapshot) Has(id PostID) bool {
	_, ok := s.Get(id)
	return ok
}

// Len returns the number of posts.
func (s Snapshot) Len() int {
	if s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// Ascend calls fn for every post in ID order until fn returns false.
func (s Snapshot) Ascend(fn func(Post) bool) {
	if s.tree == nil {
		return
	}
	s.tree.Ascend(btree.ItemIteratorG[Post](fn))
}

// IDs returns all post IDs in ascending order.
func (s Snapshot) IDs() []PostID {
	ids := make([]PostID, 0, s.Len())
	s.Ascend(func(p Post) bool {
		ids = append(ids, p.ID)
		return true
	})
	return ids
}

// Posts returns all posts in ascending ID order.
func (s Snapshot) Posts() []Post {
	out := make([]Post, 0, s.Len())
	s.Ascend(func(p Post) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Map returns a copy of the mapping. Modifying it does not affect the snapshot.
func (s Snapshot) Map() map[PostID]string {
	m := make(map[PostID]string, s.Len())
	s.Ascend(func(p Post) bool {
		m[p.ID] = p.Text
		return true
	})
	return m
}
