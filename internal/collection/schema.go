package collection

import (
	"fmt"
	"strings"

	"github.com/theLastOfCats/cinemate-admin/internal/model"
)

// DeletePolicy says what removing an entity does to the authoritative list.
type DeletePolicy int

const (
	// HardDelete splices the entity out of the list.
	HardDelete DeletePolicy = iota
	// SoftDelete keeps the entity and clears its active flag.
	SoftDelete
)

func (p DeletePolicy) String() string {
	if p == SoftDelete {
		return "soft"
	}
	return "hard"
}

// SortKey extracts the comparable key of one column. ok is false when the
// entity has no value for the column.
type SortKey[T any] func(T) (key string, ok bool)

// Schema describes one entity type to the generic collection machinery.
type Schema[T any] struct {
	Kind   string
	ID     func(T) int64
	WithID func(T, int64) T
	// New returns an empty draft carrying the given temporary id.
	New   func(id int64) T
	Clone func(T) T

	SearchFields func(T) []string
	SortFields   map[string]SortKey[T]

	// Validate returns field errors for item; adding is true for new entities.
	Validate func(item T, adding bool) FieldErrors

	Delete     DeletePolicy
	Deactivate func(T) T

	// Attach merges uploaded media files into a draft.
	Attach func(T, []model.Upload) T
}

// Check reports schema declarations that would make a manager misbehave.
func (s Schema[T]) Check() error {
	switch {
	case s.Kind == "":
		return fmt.Errorf("schema: kind is required")
	case s.ID == nil || s.WithID == nil || s.New == nil:
		return fmt.Errorf("schema %s: id accessors and constructor are required", s.Kind)
	case s.Delete == SoftDelete && s.Deactivate == nil:
		return fmt.Errorf("schema %s: soft delete requires Deactivate", s.Kind)
	}
	return nil
}

func (s Schema[T]) clone(item T) T {
	if s.Clone == nil {
		return item
	}
	return s.Clone(item)
}

// Text builds a case-insensitive key from a string field. Empty values count
// as missing.
func Text[T any](get func(T) string) SortKey[T] {
	return func(item T) (string, bool) {
		v := get(item)
		if v == "" {
			return "", false
		}
		return strings.ToLower(v), true
	}
}

// Number builds a key from an integer field whose lexicographic order matches
// numeric order.
func Number[T any](get func(T) int64) SortKey[T] {
	return func(item T) (string, bool) {
		return fmt.Sprintf("%020d", uint64(get(item))^(1<<63)), true
	}
}
