package edupress

import (
	"net/url"
	"path"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if len(pathSegments) == 0 {
		if u.Path == "" {
			u.Path = "/"
		}
		return u.String()
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	return u.String()
}

// ArticleURL is the frontend page of the article with slug.
func ArticleURL(base, slug string) string {
	return BuildURL(base, "article", slug)
}
