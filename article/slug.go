package article

import (
	"regexp"
	"strings"
)

const maxSlugLength = 50

var (
	quoteReplacer  = strings.NewReplacer(" ", "-", "'", "", "\"", "", "‘", "", "’", "", "“", "", "”", "")
	reSlugInvalid  = regexp.MustCompile(`[^a-z0-9-]`)
	reHyphenRepeat = regexp.MustCompile(`-+`)
)

// Slugify converts a title to a URL-safe slug of at most 50 characters.
// Titles without any ASCII letters or digits produce an empty slug.
func Slugify(title string) string {
	s := quoteReplacer.Replace(strings.ToLower(title))
	s = reSlugInvalid.ReplaceAllString(s, "")
	s = reHyphenRepeat.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}
