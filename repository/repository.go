// Package repository stores articles in a version-controlled content store,
// one JSON file per article, and reads them back by scanning the articles
// directory. Lookups are linear in the number of stored articles.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/codec"
	"github.com/eringen/edupress/contentstore"
)

const (
	articlesDir = "articles"
	articleExt  = ".json"
	imagesRoot  = "images/articles"

	// DefaultConflictRetries is the retry budget used by the server.
	DefaultConflictRetries = 3

	defaultRetryInterval   = 200 * time.Millisecond
	defaultReadConcurrency = 8
)

// Config identifies the repository behind the store. Owner and Repo derive
// public asset URLs using the GitHub Pages convention unless AssetBaseURL
// is set.
type Config struct {
	Owner        string
	Repo         string
	AssetBaseURL string
	// MaxConflictRetries bounds how many times a save re-reads the version
	// tag after a conflict. Zero surfaces the first conflict.
	MaxConflictRetries int
}

// Image is one uploaded file to attach to an article.
type Image struct {
	Data []byte
	Name string
}

// Repository implements save/list/get over a contentstore.Client.
type Repository struct {
	store           contentstore.Client
	cfg             Config
	logger          *slog.Logger
	conflictRetries int
	retryInterval   time.Duration
	readConcurrency int
	now             func() time.Time
	newID           func() string
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryInterval sets the initial backoff between conflict retries.
func WithRetryInterval(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// WithReadConcurrency caps concurrent file reads while scanning.
func WithReadConcurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.readConcurrency = n
		}
	}
}

// WithClock replaces time.Now for publish timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces the uuid generator for article ids and image tokens.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// New creates a Repository on top of store.
func New(store contentstore.Client, cfg Config, opts ...Option) *Repository {
	r := &Repository{
		store:           store,
		cfg:             cfg,
		logger:          slog.Default(),
		conflictRetries: max(cfg.MaxConflictRetries, 0),
		retryInterval:   defaultRetryInterval,
		readConcurrency: defaultReadConcurrency,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "repository")
	return r
}

// ArticlePath is the store path of the article with the given id.
func ArticlePath(id string) string {
	return path.Join(articlesDir, id+articleExt)
}

// ImagePath is the store path of the index-th image of an article. The
// token keeps same-named uploads apart.
func ImagePath(articleID string, index int, token, originalName string) string {
	name := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	return fmt.Sprintf("%s/%s/%d_%s%s", imagesRoot, articleID, index, token, path.Ext(name))
}

// AssetURL returns the public URL of a stored file.
func (r *Repository) AssetURL(p string) string {
	if r.cfg.AssetBaseURL != "" {
		return strings.TrimRight(r.cfg.AssetBaseURL, "/") + "/" + p
	}
	return fmt.Sprintf("https://%s.github.io/%s/%s", r.cfg.Owner, r.cfg.Repo, p)
}

// Save persists a, assigning id, slug and publish time when they are unset,
// and returns the article as written. An existing file is overwritten as a
// whole.
func (r *Repository) Save(ctx context.Context, a article.Article) (article.Article, error) {
	if a.ID == "" {
		a.ID = r.newID()
	}
	if a.Slug == "" {
		a.Slug = article.Slugify(a.Title)
	}
	if a.PublishedAt.IsZero() {
		a.PublishedAt = r.now().UTC()
	}
	if a.ContentType == "" {
		a.ContentType = article.Plaintext
	}

	p := ArticlePath(a.ID)
	data, err := codec.EncodeArticle(a)
	if err != nil {
		return article.Article{}, &PersistenceError{Op: "save article", Path: p, Err: err}
	}

	attempt := func() error {
		err := r.write(ctx, p, data, a.Title)
		if err == nil || errors.Is(err, contentstore.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(attempt, r.conflictBackOff(ctx)); err != nil {
		if errors.Is(err, contentstore.ErrConflict) {
			return article.Article{}, fmt.Errorf("%w: %s: %w", ErrPersistenceConflict, p, err)
		}
		return article.Article{}, &PersistenceError{Op: "save article", Path: p, Err: err}
	}
	return a, nil
}

// write creates the file or updates it against the version tag just read.
func (r *Repository) write(ctx context.Context, p string, data []byte, title string) error {
	existing, err := r.store.Read(ctx, p)
	switch {
	case err == nil:
		return r.store.Update(ctx, p, data, "Update article: "+title, existing.Version)
	case errors.Is(err, contentstore.ErrNotFound):
		return r.store.Create(ctx, p, data, "Add new article: "+title)
	default:
		return err
	}
}

func (r *Repository) conflictBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.conflictRetries)), ctx)
}

// ListMetadata returns metadata for every readable article, newest first.
// Files that cannot be read or decoded are skipped. Articles sharing a
// publish time keep the store's listing order.
func (r *Repository) ListMetadata(ctx context.Context) ([]article.Metadata, error) {
	articles, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]article.Metadata, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Metadata())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}

// GetBySlug returns the first article, in listing order, whose slug matches.
// Slugs are not unique; duplicates resolve to the first hit.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (article.Article, error) {
	articles, err := r.scan(ctx)
	if err != nil {
		return article.Article{}, err
	}
	for _, a := range articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return article.Article{}, fmt.Errorf("slug %q: %w", slug, ErrNotFound)
}

// GetByID reads a single article directly from its path. Unlike the scans,
// a corrupt file is reported as a DecodeError.
func (r *Repository) GetByID(ctx context.Context, id string) (article.Article, error) {
	p := ArticlePath(id)
	f, err := r.store.Read(ctx, p)
	if errors.Is(err, contentstore.ErrNotFound) {
		return article.Article{}, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return article.Article{}, &PersistenceError{Op: "get article", Path: p, Err: err}
	}
	a, err := codec.DecodeArticle(f.Content)
	if err != nil {
		return article.Article{}, &DecodeError{Path: p, Err: err}
	}
	return a, nil
}

// SaveImages stores images under the article's image directory and returns
// their public URLs in input order. The first failed upload aborts the
// batch and no URLs are returned.
func (r *Repository) SaveImages(ctx context.Context, articleID string, images []Image) ([]string, error) {
	if articleID == "" {
		return nil, fmt.Errorf("save images: article id is required")
	}
	urls := make([]string, 0, len(images))
	for i, img := range images {
		p := ImagePath(articleID, i, r.newID(), img.Name)
		if err := r.store.Create(ctx, p, img.Data, "Add image for article "+articleID); err != nil {
			return nil, &PersistenceError{Op: "save image " + img.Name, Path: p, Err: err}
		}
		urls = append(urls, r.AssetURL(p))
	}
	return urls, nil
}

// scan reads and decodes every article file, preserving listing order. A
// missing articles directory is an empty store.
func (r *Repository) scan(ctx context.Context) ([]article.Article, error) {
	entries, err := r.store.List(ctx, articlesDir)
	if errors.Is(err, contentstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "list articles", Path: articlesDir, Err: err}
	}

	slots := make([]*article.Article, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.readConcurrency)
	for i, entry := range entries {
		if !strings.HasSuffix(entry.Name, articleExt) {
			continue
		}
		g.Go(func() error {
			a, err := r.readEntry(gctx, entry.Path)
			if err != nil {
				r.logger.Warn("skipping article file", "path", entry.Path, "error", err)
				return nil
			}
			slots[i] = &a
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, &PersistenceError{Op: "list articles", Path: articlesDir, Err: err}
	}

	out := make([]article.Article, 0, len(entries))
	for _, a := range slots {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *Repository) readEntry(ctx context.Context, p string) (article.Article, error) {
	f, err := r.store.Read(ctx, p)
	if err != nil {
		return article.Article{}, err
	}
	a, err := codec.DecodeArticle(f.Content)
	if err != nil {
		return article.Article{}, &DecodeError{Path: p, Err: err}
	}
	return a, nil
}
