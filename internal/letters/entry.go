package letters

// Entry is one row of a record's audit letters field.
type Entry struct {
	Asset string
	Title string
	Year  string
	// Extra carries columns a backend read but this package does not model,
	// so they are written back unchanged.
	Extra map[string]any
}

// Prepend returns a new list with entry first followed by existing in order.
// A nil existing list is treated as empty and existing is never modified.
func Prepend(existing []Entry, entry Entry) []Entry {
	out := make([]Entry, 0, len(existing)+1)
	out = append(out, entry)
	return append(out, existing...)
}
