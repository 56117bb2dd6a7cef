package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/output"
	"github.com/Aman-CERP/gutenindex/internal/search"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

type searchOptions struct {
	page       int
	perPage    int
	book       string
	jsonOutput bool
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the indexed books and chapters",
		Example: `  # Books by title, author or subject
  gutenindex search books "pride prejudice"

  # Chapters mentioning a phrase, within one book
  gutenindex search chapters whale --book moby-dick-or-the-whale

  # Everything, second page, as JSON
  gutenindex search books "*" --page 2 --json`,
	}

	cmd.PersistentFlags().IntVar(&opts.page, "page", 1, "Result page (1-based)")
	cmd.PersistentFlags().IntVar(&opts.perPage, "per-page", 0, "Results per page (default: search.per_page)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	books := &cobra.Command{
		Use:   "books [query]",
		Short: "Search books by title, author and subjects",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, flags, opts, search.BooksCollection, strings.Join(args, " "))
		},
	}

	chapters := &cobra.Command{
		Use:   "chapters [query]",
		Short: "Search chapter text and titles",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, flags, opts, search.ChaptersCollection, strings.Join(args, " "))
		},
	}
	chapters.Flags().StringVar(&opts.book, "book", "", "Only search chapters of the book with this slug")

	cmd.AddCommand(books, chapters)
	return cmd
}

func runSearch(cmd *cobra.Command, flags *globalFlags, opts *searchOptions, collection, query string) error {
	if opts.page < 1 {
		return gerrors.New(gerrors.ErrCodeInvalidQuery, fmt.Sprintf("--page must be at least 1, got %d", opts.page), nil)
	}

	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireCredentials(); err != nil {
		return err
	}
	perPage := opts.perPage
	if perPage <= 0 {
		perPage = a.cfg.Search.PerPage
	}

	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	w := output.NewWithColor(out, ui.IsTTY(out) && !ui.DetectNoColor())

	switch collection {
	case search.BooksCollection:
		page, err := search.SearchBooks(ctx, engine, query, opts.page, perPage)
		if err != nil {
			return searchError(err)
		}
		a.logger.Info("search_completed", "collection", collection, "query", query, "found", page.TotalFound)
		if opts.jsonOutput {
			return writeJSON(out, page)
		}
		printBookHits(w, page)

	default:
		page, err := search.SearchChapters(ctx, engine, query, opts.book, opts.page, perPage)
		if err != nil {
			return searchError(err)
		}
		a.logger.Info("search_completed", "collection", collection, "query", query, "book", opts.book, "found", page.TotalFound)
		if opts.jsonOutput {
			return writeJSON(out, page)
		}
		printChapterHits(w, page)
	}
	return nil
}

func searchError(err error) error {
	return gerrors.New(gerrors.ErrCodeSearchFailed, "search failed", err).
		WithSuggestion("run `gutenindex index` first and check `gutenindex status`")
}

func printBookHits(w *output.Writer, page *search.Page[search.BookHit]) {
	w.Statusf("", "%d books found (page %d)", page.TotalFound, page.Page)
	w.Newline()
	for _, h := range page.Hits {
		title := h.Title
		if hl, ok := h.Highlights["title"]; ok {
			title = w.Highlight(hl)
		}
		w.Statusf("•", "%s by %s [%s]", title, h.AuthorName, h.Slug)
		w.Statusf("", "%d chapters, %d words", h.TotalChapters, h.TotalWordCount)
	}
	if facets := page.Facets["subjects"]; len(facets) > 0 {
		w.Newline()
		parts := make([]string, len(facets))
		for i, f := range facets {
			parts[i] = fmt.Sprintf("%s (%d)", f.Value, f.Count)
		}
		w.KV("Subjects", strings.Join(parts, ", "))
	}
}

func printChapterHits(w *output.Writer, page *search.Page[search.ChapterHit]) {
	w.Statusf("", "%d chapters found (page %d)", page.TotalFound, page.Page)
	w.Newline()
	for _, h := range page.Hits {
		w.Statusf("•", "%s, chapter %d: %s [%s]", h.BookTitle, h.ChapterNumber, h.ChapterTitle, h.BookSlug)
		w.Indent(w.Highlight(h.Snippet))
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
