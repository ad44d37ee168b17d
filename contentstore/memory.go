package contentstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// Commit records one write applied to a Memory store.
type Commit struct {
	Path    string
	Message string
	Version string
}

// Memory is an in-process Client. Listings are returned in lexical path
// order, which matches what the hosted stores return.
type Memory struct {
	mu      sync.RWMutex
	files   map[string]File
	commits []Commit
	seq     int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]File)}
}

func (m *Memory) Read(ctx context.Context, p string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	p = cleanPath(p)
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[p]
	if !ok {
		return File{}, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	f.Content = append([]byte(nil), f.Content...)
	return f, nil
}

func (m *Memory) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir = cleanPath(dir)
	prefix := dir + "/"

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var entries []Entry
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		name := strings.SplitN(strings.TrimPrefix(p, prefix), "/", 2)[0]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, Entry{Name: name, Path: path.Join(dir, name)})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("list %s: %w", dir, ErrNotFound)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (m *Memory) Create(ctx context.Context, p string, content []byte, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = cleanPath(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; ok {
		return fmt.Errorf("create %s: %w", p, ErrConflict)
	}
	m.write(p, content, message)
	return nil
}

func (m *Memory) Update(ctx context.Context, p string, content []byte, message, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = cleanPath(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.files[p]
	if !ok {
		return fmt.Errorf("update %s: %w", p, ErrNotFound)
	}
	if existing.Version != version {
		return fmt.Errorf("update %s: stale version %q: %w", p, version, ErrConflict)
	}
	m.write(p, content, message)
	return nil
}

// Commits returns a copy of the write log in application order.
func (m *Memory) Commits() []Commit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Commit(nil), m.commits...)
}

// Put stores content without going through create/update checks. Useful
// for seeding fixtures, including deliberately corrupt files.
func (m *Memory) Put(p string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write(cleanPath(p), content, "seed "+p)
}

func (m *Memory) write(p string, content []byte, message string) {
	m.seq++
	version := blobVersion(content, m.seq)
	m.files[p] = File{Path: p, Content: append([]byte(nil), content...), Version: version}
	m.commits = append(m.commits, Commit{Path: p, Message: message, Version: version})
}

// blobVersion derives a git-style opaque version tag. The sequence number
// keeps tags distinct when identical content is rewritten.
func blobVersion(content []byte, seq int) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	fmt.Fprintf(h, "\x00%d", seq)
	return hex.EncodeToString(h.Sum(nil))
}
