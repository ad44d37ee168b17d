package edupress

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/edupress/codec"
)

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleListArticles(c echo.Context) error {
	items, err := a.Cache.List(c.Request().Context())
	if err != nil {
		return err
	}
	a.Logger.Debug("listed articles", "count", len(items))
	return c.JSON(http.StatusOK, codec.MetadataListJSON(items))
}

func (a *App) handleGetArticle(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Slug is required")
	}
	art, err := a.Articles.GetBySlug(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, codec.ArticleJSON(art))
}

func (a *App) handleArticleHTML(c echo.Context) error {
	art, err := a.Articles.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return Render(c, articlePage(art, a.Config.SiteName))
}

func (a *App) handleFeed(c echo.Context) error {
	items, err := a.Cache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, items)
}

func (a *App) handleSitemap(c echo.Context) error {
	items, err := a.Cache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, items)
}
