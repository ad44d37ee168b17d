package edupress

import (
	"context"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/markdown"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

const pageStyle = `body{max-width:42rem;margin:2rem auto;padding:0 1rem;font-family:system-ui,sans-serif;line-height:1.6}` +
	`img{max-width:100%}pre{overflow-x:auto;background:#f4f4f4;padding:.75rem}.byline{color:#666}`

// articlePage is a standalone preview of a single article.
func articlePage(a article.Article, siteName string) templ.Component {
	body := markdown.Plaintext(a.Content)
	if a.IsMarkdown() {
		body = markdown.Markdown(a.Content)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"/>`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		b.WriteString("<title>" + html.EscapeString(a.Title) + " | " + html.EscapeString(siteName) + "</title>")
		b.WriteString("<style>" + pageStyle + "</style></head><body><article>")
		b.WriteString("<h1>" + html.EscapeString(a.Title) + "</h1>")
		b.WriteString(`<p class="byline">By ` + html.EscapeString(a.Author) + ` on <time datetime="` +
			a.PublishedAt.UTC().Format("2006-01-02T15:04:05Z07:00") + `">` +
			a.PublishedAt.UTC().Format("January 2, 2006") + "</time></p>")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}

		b.Reset()
		for _, src := range a.Images {
			if safe := markdown.SafeURL(src); safe != "" {
				b.WriteString(`<figure><img src="` + safe + `" alt="" loading="lazy"/></figure>`)
			}
		}
		b.WriteString("</article></body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
