package model

// Stream is a deliverable category with a monthly target per client type.
type Stream string

// Deliverable streams.
const (
	StreamBlogs     Stream = "blogs"
	StreamBacklinks Stream = "backlinks"
	StreamOnPage    Stream = "onpage"
	StreamTechFixes Stream = "techfixes"
)

// Streams lists every known stream in a stable order.
func Streams() []Stream {
	return []Stream{StreamBlogs, StreamBacklinks, StreamOnPage, StreamTechFixes}
}

// Valid reports whether s is a known stream.
func (s Stream) Valid() bool {
	switch s {
	case StreamBlogs, StreamBacklinks, StreamOnPage, StreamTechFixes:
		return true
	}
	return false
}
