package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eringen/edupress"
	"github.com/eringen/edupress/article"
	"github.com/eringen/edupress/repository"
)

func newListCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := st.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			items, err := repo.ListMetadata(cmd.Context())
			if err != nil {
				return err
			}
			return writeMetadataList(cmd.OutOrStdout(), st.output, items)
		},
	}
}

func newShowCmd(st *cliState) *cobra.Command {
	var byID string

	cmd := &cobra.Command{
		Use:   "show [slug]",
		Short: "Show one article by slug or id",
		Args: func(cmd *cobra.Command, args []string) error {
			if byID != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := st.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			var a article.Article
			if byID != "" {
				a, err = repo.GetByID(cmd.Context(), byID)
			} else {
				a, err = repo.GetBySlug(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return writeArticle(cmd.OutOrStdout(), st.output, a)
		},
	}
	cmd.Flags().StringVar(&byID, "id", "", "look the article up by id instead of slug")
	return cmd
}

func newPublishCmd(st *cliState) *cobra.Command {
	var (
		title       string
		author      string
		file        string
		contentType string
		images      []string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an article from a local file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read content: %w", err)
			}
			if contentType == "" {
				contentType = contentTypeFor(file)
			}
			draft, err := edupress.ValidateDraft(title, author, string(body), contentType)
			if err != nil {
				return err
			}

			uploads, err := readImages(images)
			if err != nil {
				return err
			}

			repo, closeStore, err := st.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			draft.ID = uuid.NewString()
			if len(uploads) > 0 {
				urls, err := repo.SaveImages(cmd.Context(), draft.ID, uploads)
				if err != nil {
					return err
				}
				draft.Images = urls
			}
			saved, err := repo.Save(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return writeArticle(cmd.OutOrStdout(), st.output, saved)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "article title")
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding the article body")
	cmd.Flags().StringVar(&contentType, "content-type", "", "markdown or plaintext (default from file extension)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image to attach (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func contentTypeFor(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".md", ".markdown":
		return string(article.Markdown)
	}
	return string(article.Plaintext)
}

func readImages(paths []string) ([]repository.Image, error) {
	out := make([]repository.Image, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if !edupress.IsImageFile(name) {
			return nil, fmt.Errorf("%s: unsupported image type", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := edupress.VerifyImage(name, data); err != nil {
			return nil, err
		}
		out = append(out, repository.Image{Data: data, Name: name})
	}
	return out, nil
}
