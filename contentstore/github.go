package contentstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/eringen/edupress/codec"
)

const defaultBranch = "main"

// GitHubConfig identifies the repository used as the content store.
type GitHubConfig struct {
	Token  string
	Owner  string
	Repo   string
	Branch string // default "main"

	// BaseURL overrides the REST endpoint, e.g. for GitHub Enterprise.
	BaseURL string
	// HTTPClient replaces the token-authenticated client when set.
	HTTPClient *http.Client
}

// ParseRepo splits an "owner/name" repository reference.
func ParseRepo(full string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(full), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be in format 'owner/repo', got %q", full)
	}
	return parts[0], parts[1], nil
}

// GitHub is a Client backed by the GitHub repository contents API. Each call
// is a full round trip; nothing is cached.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHub builds a GitHub client for cfg.
func NewGitHub(ctx context.Context, cfg GitHubConfig) (*GitHub, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.Token == "" {
			return nil, fmt.Errorf("github token is required")
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}
	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = u
	}
	branch := cfg.Branch
	if branch == "" {
		branch = defaultBranch
	}
	return &GitHub{client: client, owner: cfg.Owner, repo: cfg.Repo, branch: branch}, nil
}

func (g *GitHub) Read(ctx context.Context, p string) (File, error) {
	p = cleanPath(p)
	fc, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, p,
		&github.RepositoryContentGetOptions{Ref: g.branch})
	if err != nil {
		return File{}, classify("read", p, resp, err)
	}
	if fc == nil {
		return File{}, fmt.Errorf("read %s: path is a directory: %w", p, ErrNotFound)
	}
	var raw string
	if fc.Content != nil {
		raw = *fc.Content
	}
	return File{
		Path:    fc.GetPath(),
		Content: codec.DecodeTransfer(raw),
		Version: fc.GetSHA(),
	}, nil
}

func (g *GitHub) List(ctx context.Context, dir string) ([]Entry, error) {
	dir = cleanPath(dir)
	fc, dc, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dir,
		&github.RepositoryContentGetOptions{Ref: g.branch})
	if err != nil {
		return nil, classify("list", dir, resp, err)
	}
	if fc != nil {
		return nil, fmt.Errorf("list %s: path is a file: %w", dir, ErrNotFound)
	}
	entries := make([]Entry, 0, len(dc))
	for _, c := range dc {
		entries = append(entries, Entry{Name: c.GetName(), Path: c.GetPath()})
	}
	return entries, nil
}

// Create commits a new file. go-github base64-encodes Content on the wire.
func (g *GitHub) Create(ctx context.Context, p string, content []byte, message string) error {
	p = cleanPath(p)
	_, resp, err := g.client.Repositories.CreateFile(ctx, g.owner, g.repo, p, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(g.branch),
	})
	if err != nil {
		return classify("create", p, resp, err)
	}
	return nil
}

func (g *GitHub) Update(ctx context.Context, p string, content []byte, message, version string) error {
	p = cleanPath(p)
	_, resp, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, p, &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		SHA:     github.String(version),
		Branch:  github.String(g.branch),
	})
	if err != nil {
		return classify("update", p, resp, err)
	}
	return nil
}

// classify maps GitHub status codes onto the store taxonomy. 422 is what the
// API answers when a create targets an existing path without a sha.
func classify(op, p string, resp *github.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	var ge *github.ErrorResponse
	if status == 0 && errors.As(err, &ge) && ge.Response != nil {
		status = ge.Response.StatusCode
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", op, p, ErrNotFound)
	case status == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", op, p, ErrConflict)
	case status == http.StatusUnprocessableEntity && (op == "create" || op == "update"):
		return fmt.Errorf("%s %s: %w", op, p, ErrConflict)
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}
