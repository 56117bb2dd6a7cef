// Package process turns raw texts into processed books: boilerplate is
// stripped, chapters are segmented, and every book gets a unique slug.
package process

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/segment"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

// DefaultLanguage is recorded on every processed book.
const DefaultLanguage = "en"

// Options configures a Processor.
type Options struct {
	Language      string
	MaxSlugLength int
	Segment       segment.Options

	Logger   *slog.Logger
	Renderer ui.Renderer
}

// Result summarizes a processing run.
type Result struct {
	Processed       int
	SkippedMissing  int
	SkippedTooShort int
	Strategies      map[segment.Strategy]int
	Books           []corpus.BookMeta
}

// Skipped returns the total number of skipped entries.
func (r *Result) Skipped() int {
	return r.SkippedMissing + r.SkippedTooShort
}

// Processor converts catalog entries with raw texts into books.
type Processor struct {
	opts      Options
	store     *corpus.Store
	segmenter *segment.Segmenter
	logger    *slog.Logger
	ui        ui.Renderer
}

// NewProcessor creates a processor reading from and writing to store.
func NewProcessor(store *corpus.Store, opts Options) *Processor {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.MaxSlugLength <= 0 {
		opts.MaxSlugLength = segment.DefaultMaxSlugLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		opts:      opts,
		store:     store,
		segmenter: segment.NewSegmenterWithOptions(opts.Segment),
		logger:    logger.With("stage", "process"),
		ui:        ui.OrNop(opts.Renderer),
	}
}

// Run processes entries sequentially in input order, writing each book as it
// is produced and the book index once at the end.
func (p *Processor) Run(ctx context.Context, entries []corpus.CatalogEntry) (*Result, error) {
	res := &Result{
		Strategies: make(map[segment.Strategy]int),
		Books:      make([]corpus.BookMeta, 0, len(entries)),
	}
	slugs := NewSlugRegistry()

	p.logger.Info("process_started", "entries", len(entries))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		book, strategy, err := p.processOne(entry, slugs)
		switch {
		case err == nil:
		case gerrors.GetCode(err) == gerrors.ErrCodeMissingRaw:
			res.SkippedMissing++
			p.logger.Debug("process_skipped", "id", entry.ID, "reason", "missing_raw_text")
			continue
		case stderrors.Is(err, segment.ErrTooShort):
			res.SkippedTooShort++
			p.logger.Info("process_skipped", "id", entry.ID, "title", entry.Title, "reason", "too_short", "error", err)
			p.ui.AddError(ui.ErrorEvent{Item: "book " + strconv.Itoa(entry.ID), Err: err, IsWarn: true})
			continue
		default:
			return nil, err
		}

		if err := p.store.WriteBook(book); err != nil {
			return nil, err
		}
		res.Processed++
		res.Strategies[strategy]++
		res.Books = append(res.Books, book.Meta())

		p.logger.Debug("book_processed",
			"id", book.ID,
			"slug", book.Slug,
			"chapters", book.TotalChapters,
			"words", book.TotalWordCount,
			"strategy", string(strategy))
		p.ui.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageProcess,
			Current: i + 1,
			Total:   len(entries),
			Item:    book.Slug,
		})
	}

	if err := p.store.WriteBookIndex(res.Books); err != nil {
		return nil, err
	}

	p.logger.Info("process_complete",
		"processed", res.Processed,
		"skipped_missing", res.SkippedMissing,
		"skipped_too_short", res.SkippedTooShort,
		"heading", res.Strategies[segment.StrategyHeading],
		"roman", res.Strategies[segment.StrategyRoman],
		"chunk", res.Strategies[segment.StrategyChunk])
	return res, nil
}

func (p *Processor) processOne(entry corpus.CatalogEntry, slugs *SlugRegistry) (*corpus.Book, segment.Strategy, error) {
	raw, err := p.store.ReadRawText(entry.ID)
	if err != nil {
		return nil, "", err
	}

	text, err := p.segmenter.Clean(raw)
	if err != nil {
		return nil, "", fmt.Errorf("book %d: %w", entry.ID, err)
	}

	split := p.segmenter.Split(text)
	slug := slugs.Assign(segment.BaseSlug(entry.Title, entry.ID, p.opts.MaxSlugLength), entry.ID)

	book := corpus.NewBook(corpus.BookMeta{
		ID:          entry.ID,
		Slug:        slug,
		Title:       entry.Title,
		Author:      entry.Author,
		Subjects:    entry.Subjects,
		Bookshelves: entry.Bookshelves,
		Language:    p.opts.Language,
	}, split.Chapters)
	return book, split.Strategy, nil
}
