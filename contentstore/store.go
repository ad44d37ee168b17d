// Package contentstore abstracts a remote version-controlled file repository
// into the four primitives edupress uses as its database.
package contentstore

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a file or directory does not exist.
	ErrNotFound = errors.New("content store: not found")
	// ErrConflict is returned when a create hits an existing file or an
	// update carries a stale version tag.
	ErrConflict = errors.New("content store: conflict")
)

// File is a stored file together with the version tag required to update it.
type File struct {
	Path    string
	Content []byte
	Version string
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Path string
}

// Client is the capability the article repository needs from the store.
// Content is always passed and returned decoded; transfer encodings are a
// backend concern.
type Client interface {
	Read(ctx context.Context, path string) (File, error)
	List(ctx context.Context, dir string) ([]Entry, error)
	Create(ctx context.Context, path string, content []byte, message string) error
	Update(ctx context.Context, path string, content []byte, message, version string) error
}

// cleanPath normalises p to a slash separated, root-relative path.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
