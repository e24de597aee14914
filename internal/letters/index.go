package letters

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Record pairs an opaque record handle with its stored identifier.
type Record struct {
	Handle     string
	Identifier string
}

// RecordQuery selects the records an index is built from.
type RecordQuery struct {
	Category      string
	Status        string
	IdentifierKey string
}

// DuplicatePolicy decides which record wins when identifiers collide.
type DuplicatePolicy string

const (
	DuplicateLast  DuplicatePolicy = "last"
	DuplicateFirst DuplicatePolicy = "first"
	DuplicateError DuplicatePolicy = "error"
)

// Duplicate describes one identifier collision seen while building an index.
type Duplicate struct {
	Identifier string
	Kept       string
	Dropped    string
}

// Index maps folded identifiers to record handles. It is built once per run
// and never mutated afterwards.
type Index struct {
	handles    map[string]string
	duplicates []Duplicate
}

// FoldIdentifier lower-cases an identifier for case-insensitive comparison.
// Only case changes: "ß" stays distinct from "ss".
func FoldIdentifier(value string) string {
	return cases.Lower(language.Und).String(value)
}

// BuildIndex constructs an index from records. Collisions are resolved by
// policy and always reported through Duplicates; DuplicateError turns the
// first collision into an error wrapping ErrDuplicateIdentifier.
func BuildIndex(records []Record, policy DuplicatePolicy) (*Index, error) {
	if policy == "" {
		policy = DuplicateLast
	}
	idx := &Index{handles: make(map[string]string, len(records))}
	for _, rec := range records {
		key := FoldIdentifier(rec.Identifier)
		existing, seen := idx.handles[key]
		if !seen {
			idx.handles[key] = rec.Handle
			continue
		}
		switch policy {
		case DuplicateFirst:
			idx.duplicates = append(idx.duplicates, Duplicate{Identifier: rec.Identifier, Kept: existing, Dropped: rec.Handle})
		case DuplicateError:
			return nil, fmt.Errorf("%w: %q is used by records %s and %s", ErrDuplicateIdentifier, rec.Identifier, existing, rec.Handle)
		default:
			idx.duplicates = append(idx.duplicates, Duplicate{Identifier: rec.Identifier, Kept: rec.Handle, Dropped: existing})
			idx.handles[key] = rec.Handle
		}
	}
	return idx, nil
}

// Len returns the number of distinct identifiers.
func (x *Index) Len() int {
	return len(x.handles)
}

// Duplicates returns the collisions observed during construction.
func (x *Index) Duplicates() []Duplicate {
	out := make([]Duplicate, len(x.duplicates))
	copy(out, x.duplicates)
	return out
}

// Lookup returns the handle for an identifier, ignoring case.
func (x *Index) Lookup(identifier string) (string, bool) {
	handle, ok := x.handles[FoldIdentifier(identifier)]
	return handle, ok
}

// ExtractIdentifier returns the text before the first underscore in filename.
func ExtractIdentifier(filename string) (string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) != 2 {
		return "", ErrNoIdentifier
	}
	return parts[0], nil
}

// Match resolves filename to a record handle. It fails with ErrNoIdentifier
// or ErrRecordNotFound and has no side effects.
func (x *Index) Match(filename string) (identifier, handle string, err error) {
	identifier, err = ExtractIdentifier(filename)
	if err != nil {
		return "", "", err
	}
	handle, ok := x.Lookup(identifier)
	if !ok {
		return identifier, "", ErrRecordNotFound
	}
	return identifier, handle, nil
}
