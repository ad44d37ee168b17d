package edupress

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/edupress/article"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderRSS(c echo.Context, items []article.Metadata) error {
	base := a.Config.SiteURL
	entries := make([]rssItem, 0, len(items))
	for _, m := range items {
		link := ArticleURL(base, m.Slug)
		entries = append(entries, rssItem{
			Title:       m.Title,
			Link:        link,
			Description: "By " + m.Author,
			PubDate:     m.PublishedAt.UTC().Format(time.RFC1123Z),
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.SiteName,
			Link:        base,
			Description: a.Config.Description,
			Items:       entries,
		},
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", feed)
}

func (a *App) renderSitemap(c echo.Context, items []article.Metadata) error {
	base := a.Config.SiteURL
	urls := []sitemapURL{{Loc: BuildURL(base)}}
	for _, m := range items {
		urls = append(urls, sitemapURL{
			Loc:     ArticleURL(base, m.Slug),
			LastMod: m.PublishedAt.UTC().Format("2006-01-02"),
		})
	}
	return writeXML(c, "application/xml; charset=utf-8", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(v)
}
