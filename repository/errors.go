package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no stored article matches a lookup.
	ErrNotFound = errors.New("article not found")
	// ErrPersistenceConflict is returned when an article kept changing
	// underneath a save until the retry budget ran out.
	ErrPersistenceConflict = errors.New("article was modified concurrently")
)

// PersistenceError wraps an unexpected store failure with the operation and
// path that triggered it.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DecodeError reports a stored file that could not be parsed as an article.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
