package storage

import "errors"

var (
	// ErrNotFound indicates the requested object or bucket does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrEmptyKey indicates an empty object path was provided.
	ErrEmptyKey = errors.New("object path must not be empty")
	// ErrInvalidKey indicates the object path contains a path traversal segment.
	ErrInvalidKey = errors.New("object path contains invalid path segment")
)

// MaxListCap bounds the page size requested from list operations.
const MaxListCap int32 = 5000
