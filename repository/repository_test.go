package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/contentstore"
)

// faultyStore wraps a Memory store and injects failures.
type faultyStore struct {
	*contentstore.Memory

	mu           sync.Mutex
	readErrs     map[string]error
	listErr      error
	failCreateAt int // 1-based create call to fail; 0 disables
	creates      int
	staleUpdates int // updates rejected as stale before delegating
	reads        int
	updates      int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: contentstore.NewMemory(), readErrs: map[string]error{}}
}

func (f *faultyStore) Read(ctx context.Context, p string) (contentstore.File, error) {
	f.mu.Lock()
	f.reads++
	err := f.readErrs[p]
	f.mu.Unlock()
	if err != nil {
		return contentstore.File{}, err
	}
	return f.Memory.Read(ctx, p)
}

func (f *faultyStore) List(ctx context.Context, dir string) ([]contentstore.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Memory.List(ctx, dir)
}

func (f *faultyStore) Create(ctx context.Context, p string, content []byte, message string) error {
	f.mu.Lock()
	f.creates++
	fail := f.failCreateAt != 0 && f.creates == f.failCreateAt
	f.mu.Unlock()
	if fail {
		return errors.New("upstream unavailable")
	}
	return f.Memory.Create(ctx, p, content, message)
}

func (f *faultyStore) Update(ctx context.Context, p string, content []byte, message, version string) error {
	f.mu.Lock()
	f.updates++
	stale := f.staleUpdates > 0
	if stale {
		f.staleUpdates--
	}
	f.mu.Unlock()
	if stale {
		return fmt.Errorf("update %s: %w", p, contentstore.ErrConflict)
	}
	return f.Memory.Update(ctx, p, content, message, version)
}

func sequentialIDs() func() string {
	var n int
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var fixedNow = time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)

func newTestRepo(store contentstore.Client, cfg Config) *Repository {
	if cfg.Owner == "" {
		cfg.Owner, cfg.Repo = "acme", "site"
	}
	return New(store, cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithRetryInterval(time.Millisecond),
	)
}

func draft(title string) article.Article {
	return article.Article{
		Title:       title,
		Author:      "Ada Lovelace",
		Content:     "Some body text for the article.",
		ContentType: article.Markdown,
	}
}

func TestSaveAssignsIdentity(t *testing.T) {
	repo := New(contentstore.NewMemory(), Config{Owner: "acme", Repo: "site"},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	saved, err := repo.Save(context.Background(), article.Article{Title: "Hello World", Author: "Ada", Content: "Body text here"})
	require.NoError(t, err)

	_, err = uuid.Parse(saved.ID)
	assert.NoError(t, err, "id should be a uuid")
	assert.Equal(t, "hello-world", saved.Slug)
	assert.Equal(t, article.Plaintext, saved.ContentType)
	assert.Equal(t, time.UTC, saved.PublishedAt.Location())
	assert.WithinDuration(t, time.Now(), saved.PublishedAt, time.Minute)
}

func TestSaveThenGetBySlug(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	saved, err := repo.Save(ctx, draft("Hello, World!"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", saved.ID)
	assert.Equal(t, "hello-world", saved.Slug)
	assert.Equal(t, fixedNow, saved.PublishedAt)

	got, err := repo.GetBySlug(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	commits := store.Commits()
	require.Len(t, commits, 1)
	assert.Equal(t, "articles/id-1.json", commits[0].Path)
	assert.Equal(t, "Add new article: Hello, World!", commits[0].Message)
}

func TestSaveKeepsProvidedFields(t *testing.T) {
	repo := newTestRepo(contentstore.NewMemory(), Config{})
	published := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	a := draft("Anything")
	a.ID = "fixed"
	a.Slug = "custom-slug"
	a.PublishedAt = published

	saved, err := repo.Save(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "fixed", saved.ID)
	assert.Equal(t, "custom-slug", saved.Slug)
	assert.Equal(t, published, saved.PublishedAt)
}

func TestSaveOverwritesWholeFile(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	first, err := repo.Save(ctx, draft("Original"))
	require.NoError(t, err)

	edited := first
	edited.Title = "Edited"
	edited.Content = "Replacement body text."
	edited.Images = nil
	_, err = repo.Save(ctx, edited)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title)
	assert.Equal(t, "Replacement body text.", got.Content)
	assert.Equal(t, first.Slug, got.Slug)

	list, err := repo.ListMetadata(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	commits := store.Commits()
	require.Len(t, commits, 2)
	assert.Equal(t, "Update article: Edited", commits[1].Message)
}

func TestListMetadataEmptyStore(t *testing.T) {
	repo := newTestRepo(contentstore.NewMemory(), Config{})

	list, err := repo.ListMetadata(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListMetadataSkipsUnreadableEntries(t *testing.T) {
	store := newFaultyStore()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	for _, title := range []string{"First post", "Second post", "Third post"} {
		_, err := repo.Save(ctx, draft(title))
		require.NoError(t, err)
	}
	store.Put("articles/broken.json", []byte("{not json"))
	store.Put("articles/README.md", []byte("not an article"))
	store.readErrs["articles/id-2.json"] = errors.New("transient read failure")

	list, err := repo.ListMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var ids []string
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"id-1", "id-3"}, ids)
}

func TestListMetadataOrdering(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		id     string
		offset time.Duration
	}{
		{"a", 0},
		{"b", 2 * time.Hour},
		{"c", time.Hour},
		{"d", 2 * time.Hour},
	} {
		a := draft("Post " + tc.id)
		a.ID = tc.id
		a.PublishedAt = base.Add(tc.offset)
		_, err := repo.Save(ctx, a)
		require.NoError(t, err)
	}

	list, err := repo.ListMetadata(ctx)
	require.NoError(t, err)

	var ids []string
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	// b and d share a timestamp and keep listing order.
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
}

func TestListMetadataListFailure(t *testing.T) {
	store := newFaultyStore()
	store.listErr = errors.New("rate limited")
	repo := newTestRepo(store, Config{})

	_, err := repo.ListMetadata(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "articles", perr.Path)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestListMetadataCanceledContext(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})
	_, err := repo.Save(context.Background(), draft("Something"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.ListMetadata(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetBySlugNotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		repo := newTestRepo(contentstore.NewMemory(), Config{})
		_, err := repo.GetBySlug(ctx, "anything")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no match", func(t *testing.T) {
		repo := newTestRepo(contentstore.NewMemory(), Config{})
		_, err := repo.Save(ctx, draft("Present"))
		require.NoError(t, err)
		_, err = repo.GetBySlug(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetBySlugFirstMatchWins(t *testing.T) {
	repo := newTestRepo(contentstore.NewMemory(), Config{})
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		a := draft("Same Title")
		a.ID = id
		a.Author = "author " + id
		_, err := repo.Save(ctx, a)
		require.NoError(t, err)
	}

	got, err := repo.GetBySlug(ctx, "same-title")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestGetBySlugSkipsBrokenEntries(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	store.Put("articles/0-broken.json", []byte("]["))
	saved, err := repo.Save(ctx, draft("Readable"))
	require.NoError(t, err)

	got, err := repo.GetBySlug(ctx, "readable")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
}

func TestGetByID(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	store.Put("articles/corrupt.json", []byte("{"))
	_, err = repo.GetByID(ctx, "corrupt")
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "articles/corrupt.json", derr.Path)
}

func TestSaveImages(t *testing.T) {
	store := contentstore.NewMemory()
	repo := newTestRepo(store, Config{})

	urls, err := repo.SaveImages(context.Background(), "art-1", []Image{
		{Data: []byte("png-bytes"), Name: "diagram.png"},
		{Data: []byte("jpg-bytes"), Name: `C:\Users\me\photo.JPG`},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://acme.github.io/site/images/articles/art-1/0_id-1.png",
		"https://acme.github.io/site/images/articles/art-1/1_id-2.JPG",
	}, urls)

	f, err := store.Read(context.Background(), "images/articles/art-1/0_id-1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), f.Content)

	for _, c := range store.Commits() {
		assert.Equal(t, "Add image for article art-1", c.Message)
	}
}

func TestSaveImagesAssetBaseURL(t *testing.T) {
	repo := newTestRepo(contentstore.NewMemory(), Config{AssetBaseURL: "https://cdn.example.com/"})

	urls, err := repo.SaveImages(context.Background(), "x", []Image{{Data: []byte("a"), Name: "a.gif"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/images/articles/x/0_id-1.gif"}, urls)
}

func TestSaveImagesEmptyBatch(t *testing.T) {
	repo := newTestRepo(contentstore.NewMemory(), Config{})

	urls, err := repo.SaveImages(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestSaveImagesAbortsOnFailure(t *testing.T) {
	store := newFaultyStore()
	store.failCreateAt = 2
	repo := newTestRepo(store, Config{})

	urls, err := repo.SaveImages(context.Background(), "art-9", []Image{
		{Data: []byte("1"), Name: "one.png"},
		{Data: []byte("2"), Name: "two.png"},
		{Data: []byte("3"), Name: "three.png"},
	})
	assert.Nil(t, urls)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.True(t, strings.HasPrefix(perr.Path, "images/articles/art-9/1_"), perr.Path)
	assert.Contains(t, err.Error(), "two.png")
	assert.Equal(t, 2, store.creates, "third image must not be attempted")
}

func TestSaveRetriesStaleVersion(t *testing.T) {
	store := newFaultyStore()
	repo := newTestRepo(store, Config{MaxConflictRetries: 3})
	ctx := context.Background()

	saved, err := repo.Save(ctx, draft("Contended"))
	require.NoError(t, err)

	store.staleUpdates = 1
	saved.Content = "Second revision of the body."
	_, err = repo.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, 2, store.updates)

	got, err := repo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second revision of the body.", got.Content)
}

func TestSaveConflictWithoutRetries(t *testing.T) {
	store := newFaultyStore()
	repo := newTestRepo(store, Config{})
	ctx := context.Background()

	saved, err := repo.Save(ctx, draft("Contended"))
	require.NoError(t, err)

	store.staleUpdates = 1
	_, err = repo.Save(ctx, saved)
	assert.ErrorIs(t, err, ErrPersistenceConflict)
	assert.ErrorIs(t, err, contentstore.ErrConflict)
	assert.Equal(t, 1, store.updates)
}

func TestSaveConflictRetriesExhausted(t *testing.T) {
	store := newFaultyStore()
	repo := newTestRepo(store, Config{MaxConflictRetries: 2})
	ctx := context.Background()

	saved, err := repo.Save(ctx, draft("Contended"))
	require.NoError(t, err)

	store.staleUpdates = 10
	_, err = repo.Save(ctx, saved)
	assert.ErrorIs(t, err, ErrPersistenceConflict)
	assert.Equal(t, 3, store.updates)
}

func TestSaveDoesNotRetryOtherFailures(t *testing.T) {
	store := newFaultyStore()
	repo := newTestRepo(store, Config{MaxConflictRetries: 3})

	store.readErrs["articles/id-1.json"] = errors.New("bad credentials")
	_, err := repo.Save(context.Background(), draft("Doomed"))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "articles/id-1.json", perr.Path)
	assert.NotErrorIs(t, err, ErrPersistenceConflict)
	assert.Equal(t, 1, store.reads)
}

func TestArticlePath(t *testing.T) {
	assert.Equal(t, "articles/abc.json", ArticlePath("abc"))
	assert.Equal(t, "images/articles/a/3_tok.webp", ImagePath("a", 3, "tok", "x.webp"))
	assert.Equal(t, "images/articles/a/0_tok", ImagePath("a", 0, "tok", "noext"))
}
