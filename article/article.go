// Package article defines the article entity published through edupress and
// the slug derivation used for public lookups.
package article

import (
	"strings"
	"time"
)

// ContentType tells readers how Content should be rendered.
type ContentType string

const (
	Markdown  ContentType = "markdown"
	Plaintext ContentType = "plaintext"
)

// ParseContentType normalises raw into a known content type. Empty input
// yields Plaintext; ok is false for anything outside the enum.
func ParseContentType(raw string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", Plaintext:
		return Plaintext, true
	case Markdown:
		return Markdown, true
	default:
		return Plaintext, false
	}
}

// Article is the persisted entity. One article is one file in the content store.
type Article struct {
	ID          string
	Title       string
	Author      string
	Content     string
	ContentType ContentType
	Images      []string
	PublishedAt time.Time
	Slug        string
}

// Metadata is the listing projection of an Article.
type Metadata struct {
	ID          string
	Title       string
	Author      string
	PublishedAt time.Time
	Slug        string
}

// Metadata projects a onto its listing fields.
func (a Article) Metadata() Metadata {
	return Metadata{
		ID:          a.ID,
		Title:       a.Title,
		Author:      a.Author,
		PublishedAt: a.PublishedAt,
		Slug:        a.Slug,
	}
}

// IsMarkdown reports whether the content should go through the markdown renderer.
func (a Article) IsMarkdown() bool {
	return a.ContentType == Markdown
}
