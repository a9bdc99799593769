package posts

import (
	"fmt"
	"strconv"
)

// PostID identifies one post. IDs are ordered and comparable, and never change
// once assigned.
type PostID uint64

// String returns the decimal form of the ID.
func (id PostID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParsePostID parses the decimal form produced by String.
func ParsePostID(s string) (PostID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("posts: invalid post id %q: %w", s, err)
	}
	return PostID(n), nil
}
