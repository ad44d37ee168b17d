package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/codec"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
}

// writeStructured encodes payload as JSON or YAML. It reports false for the
// text format so callers can print their own layout.
func writeStructured(w io.Writer, format string, payload any) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(payload)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func writeMetadataList(w io.Writer, format string, items []article.Metadata) error {
	if ok, err := writeStructured(w, format, codec.MetadataListJSON(items)); ok {
		return err
	}
	for _, m := range items {
		if _, err := fmt.Fprintf(w, "%s  %s  %s (%s)\n", formatTime(m.PublishedAt), m.Slug, m.Title, m.Author); err != nil {
			return err
		}
	}
	return nil
}

func writeArticle(w io.Writer, format string, a article.Article) error {
	if ok, err := writeStructured(w, format, codec.ArticleJSON(a)); ok {
		return err
	}
	lines := []string{
		fmt.Sprintf("id: %s", a.ID),
		fmt.Sprintf("title: %s", a.Title),
		fmt.Sprintf("author: %s", a.Author),
		fmt.Sprintf("slug: %s", a.Slug),
		fmt.Sprintf("content_type: %s", a.ContentType),
		fmt.Sprintf("published_at: %s", formatTime(a.PublishedAt)),
	}
	for _, img := range a.Images {
		lines = append(lines, fmt.Sprintf("image: %s", img))
	}
	lines = append(lines, "", a.Content)
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
