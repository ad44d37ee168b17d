// Package codec converts articles to and from their stored JSON form and
// handles the base64 transfer encoding used by the content store.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eringen/edupress/article"
)

// articleJSON is the wire shape shared with the web client. JSON field names
// are part of the public contract; YAML names serve the CLI.
type articleJSON struct {
	ID          string    `json:"Id" yaml:"id"`
	Title       string    `json:"Title" yaml:"title"`
	Author      string    `json:"Author" yaml:"author"`
	Content     string    `json:"Content" yaml:"content"`
	ContentType string    `json:"ContentType" yaml:"content_type"`
	Images      []string  `json:"Images" yaml:"images"`
	PublishedAt time.Time `json:"PublishedAt" yaml:"published_at"`
	Slug        string    `json:"Slug" yaml:"slug"`
}

type metadataJSON struct {
	ID          string    `json:"Id" yaml:"id"`
	Title       string    `json:"Title" yaml:"title"`
	Author      string    `json:"Author" yaml:"author"`
	PublishedAt time.Time `json:"PublishedAt" yaml:"published_at"`
	Slug        string    `json:"Slug" yaml:"slug"`
}

// ArticleJSON returns the wire representation of a, ready for json.Marshal.
func ArticleJSON(a article.Article) any {
	return toWire(a)
}

// MetadataJSON returns the wire representation of m, ready for json.Marshal.
func MetadataJSON(m article.Metadata) any {
	return metadataJSON{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		PublishedAt: m.PublishedAt.UTC(),
		Slug:        m.Slug,
	}
}

// MetadataListJSON converts a listing to its wire form. The result is never
// nil so it always encodes as a JSON array.
func MetadataListJSON(items []article.Metadata) []any {
	out := make([]any, 0, len(items))
	for _, m := range items {
		out = append(out, MetadataJSON(m))
	}
	return out
}

// EncodeArticle renders a as the indented JSON document stored in the repository.
func EncodeArticle(a article.Article) ([]byte, error) {
	data, err := json.MarshalIndent(toWire(a), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode article %s: %w", a.ID, err)
	}
	return data, nil
}

// DecodeArticle parses a stored article. Unknown fields are ignored and a
// missing or unrecognised content type falls back to plaintext.
func DecodeArticle(data []byte) (article.Article, error) {
	var w articleJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return article.Article{}, fmt.Errorf("decode article: %w", err)
	}
	ct, _ := article.ParseContentType(w.ContentType)
	return article.Article{
		ID:          w.ID,
		Title:       w.Title,
		Author:      w.Author,
		Content:     w.Content,
		ContentType: ct,
		Images:      w.Images,
		PublishedAt: w.PublishedAt.UTC(),
		Slug:        w.Slug,
	}, nil
}

func toWire(a article.Article) articleJSON {
	ct := a.ContentType
	if ct == "" {
		ct = article.Plaintext
	}
	var images []string
	if len(a.Images) > 0 {
		images = a.Images
	}
	return articleJSON{
		ID:          a.ID,
		Title:       a.Title,
		Author:      a.Author,
		Content:     a.Content,
		ContentType: string(ct),
		Images:      images,
		PublishedAt: a.PublishedAt.UTC(),
		Slug:        a.Slug,
	}
}

var transferWhitespace = strings.NewReplacer("\n", "", "\r", "", " ", "")

// EncodeTransfer base64-encodes content for the store's transfer format.
func EncodeTransfer(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

// DecodeTransfer reverses EncodeTransfer. The store wraps base64 payloads
// across lines and sometimes returns small files unencoded, so whitespace is
// stripped first and undecodable input is returned as-is.
func DecodeTransfer(payload string) []byte {
	decoded, err := base64.StdEncoding.DecodeString(transferWhitespace.Replace(payload))
	if err != nil {
		return []byte(payload)
	}
	return decoded
}
