// Package edupress serves a small publishing API whose storage engine is a
// version-controlled content repository. Articles are listed, read by slug
// and published by authenticated callers; feeds and HTML previews are
// derived from the same store.
package edupress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"

	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/identity"
	"github.com/eringen/edupress/repository"
)

// Articles is the persistence surface the HTTP layer needs.
type Articles interface {
	ListMetadata(ctx context.Context) ([]article.Metadata, error)
	GetBySlug(ctx context.Context, slug string) (article.Article, error)
	Save(ctx context.Context, a article.Article) (article.Article, error)
	SaveImages(ctx context.Context, articleID string, images []repository.Image) ([]string, error)
}

// App wires the article repository, identity validator, listing cache and
// HTTP routes together.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Articles Articles
	Auth     identity.Validator
	Cache    *ListingCache
	Logger   *slog.Logger

	authLimiter  *AuthLimiter
	newID        func() string
	customRoutes []func(*App)
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the structured logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Logger = l
		}
	}
}

// WithIDGenerator replaces the uuid generator for new article ids.
func WithIDGenerator(fn func() string) Option {
	return func(a *App) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// WithCustomRoutes registers additional routes once the built-in ones exist.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// New creates an App with middleware and routes registered. The server is
// not started.
func New(cfg Config, articles Articles, auth identity.Validator, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:   cfg,
		Echo:     echo.New(),
		Articles: articles,
		Auth:     auth,
		Logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.Cache = NewListingCache(articles, cfg.ListCacheTTL)
	a.authLimiter = NewAuthLimiter(cfg.AuthFailureLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/health", handleHealth)
	e.GET("/get-articles", a.handleListArticles)
	e.GET("/get-article/:slug", a.handleGetArticle)
	e.GET("/get-article/:slug/html", a.handleArticleHTML)
	e.POST("/publish-article", a.handlePublish)

	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)

	if a.Config.EnablePprof {
		pprof.Register(e)
	}
}

// Start serves HTTP on Config.Addr until Shutdown is called.
func (a *App) Start() error {
	a.Logger.Info("server starting", "addr", a.Config.Addr, "backend", a.Config.StoreBackend)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases background workers.
func (a *App) Shutdown(ctx context.Context) error {
	a.authLimiter.Stop()
	return a.Echo.Shutdown(ctx)
}
