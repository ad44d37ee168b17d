package edupress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/codec"
	"github.com/eringen/edupress/identity"
	"github.com/eringen/edupress/repository"
)

type publishRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`

	images    []repository.Image
	imageErrs []string
}

type lengthRule struct {
	field    string
	value    string
	min, max int
}

// ValidateDraft trims publish input and checks it, returning the unsaved
// article. Failures are reported together in a *ValidationError.
func ValidateDraft(title, author, content, contentType string) (article.Article, error) {
	draft, errs := validateDraft(title, author, content, contentType)
	if len(errs) > 0 {
		return article.Article{}, &ValidationError{Message: "Validation failed", Errors: errs}
	}
	return draft, nil
}

func validateDraft(title, author, content, contentType string) (article.Article, []string) {
	draft := article.Article{
		Title:   strings.TrimSpace(title),
		Author:  strings.TrimSpace(author),
		Content: strings.TrimSpace(content),
	}

	var errs []string
	for _, rule := range []lengthRule{
		{"Title", draft.Title, 3, 200},
		{"Author", draft.Author, 2, 100},
		{"Content", draft.Content, 10, 50000},
	} {
		n := utf8.RuneCountInString(rule.value)
		switch {
		case n == 0:
			errs = append(errs, fmt.Sprintf("The %s field is required.", rule.field))
		case n < rule.min || n > rule.max:
			errs = append(errs, fmt.Sprintf("The field %s must be a string with a minimum length of %d and a maximum length of %d.", rule.field, rule.min, rule.max))
		}
	}
	ct, ok := article.ParseContentType(contentType)
	if !ok {
		errs = append(errs, "The field ContentType must be 'markdown' or 'plaintext'.")
	}
	draft.ContentType = ct
	return draft, errs
}

func (a *App) handlePublish(c echo.Context) error {
	ctx := c.Request().Context()
	ip := c.RealIP()

	if !a.authLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many failed authentication attempts")
	}
	principal, err := a.authenticate(c)
	if err != nil {
		a.authLimiter.Record(ip)
		a.Logger.Warn("publish rejected", "ip", ip, "error", err)
		return err
	}

	req, err := a.bindPublish(c)
	if err != nil {
		return err
	}
	draft, errs := validateDraft(req.Title, req.Author, req.Content, req.ContentType)
	if errs = append(errs, req.imageErrs...); len(errs) > 0 {
		return &ValidationError{Message: "Validation failed", Errors: errs}
	}

	draft.ID = a.newID()
	if len(req.images) > 0 {
		urls, err := a.Articles.SaveImages(ctx, draft.ID, req.images)
		if err != nil {
			return err
		}
		draft.Images = urls
	}

	saved, err := a.Articles.Save(ctx, draft)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()

	a.Logger.Info("article published",
		"id", saved.ID,
		"slug", saved.Slug,
		"images", len(saved.Images),
		"subject", principal.Subject,
	)
	return c.JSON(http.StatusCreated, codec.ArticleJSON(saved))
}

func (a *App) authenticate(c echo.Context) (identity.Principal, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return identity.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
	}
	token, ok := identity.BearerToken(header)
	if !ok {
		return identity.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "Bearer token is required")
	}
	principal, err := a.Auth.Validate(c.Request().Context(), token)
	if err != nil {
		return identity.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
	}
	return principal, nil
}

// bindPublish reads a JSON or multipart publish request. The body is capped
// at MaxUploadBytes.
func (a *App) bindPublish(c echo.Context) (*publishRequest, error) {
	r := c.Request()
	if a.Config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(c.Response(), r.Body, a.Config.MaxUploadBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(echo.HeaderContentType))
	if mediaType == echo.MIMEMultipartForm {
		return readMultipart(r)
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}
	return &req, nil
}

// readMultipart streams the parts in order so image indexes follow the
// upload order. Field names match case-insensitively.
func readMultipart(r *http.Request) (*publishRequest, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid multipart boundary").SetInternal(err)
	}

	req := &publishRequest{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, multipartError(err)
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, multipartError(err)
		}

		if name := part.FileName(); name != "" {
			if !IsImageFile(name) {
				continue
			}
			if err := VerifyImage(name, data); err != nil {
				req.imageErrs = append(req.imageErrs, err.Error())
				continue
			}
			req.images = append(req.images, repository.Image{Data: data, Name: name})
			continue
		}

		switch strings.ToLower(part.FormName()) {
		case "title":
			req.Title = string(data)
		case "author":
			req.Author = string(data)
		case "content":
			req.Content = string(data)
		case "contenttype":
			req.ContentType = string(data)
		}
	}
	return req, nil
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid multipart body").SetInternal(err)
}
