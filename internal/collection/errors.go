package collection

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNoDraft       = errors.New("no draft is open")
	ErrOutOfRange    = errors.New("position out of range")
	ErrStalePosition = errors.New("position no longer holds the expected entity")
	ErrDuplicateID   = errors.New("an entity with this id already exists")
	ErrUnknownField  = errors.New("unknown sort field")
	ErrClosed        = errors.New("collection manager closed")
)

// FieldErrors maps form field names to user-facing messages.
// A non-empty value blocks submission.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has an error.
func (e FieldErrors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}
