package document

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidDocument   = errors.New("invalid document")
	ErrInvalidSearchType = errors.New("invalid search type")
	ErrNotFound          = errors.New("document not found")
	// ErrIndexUnavailable wraps every failure reported by the index backend.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// ValidationError lists the payload fields that failed the presence check.
// It unwraps to ErrInvalidDocument.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid document: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }
