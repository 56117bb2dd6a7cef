// Package index populates the search engine from the processed corpus.
package index

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/search"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

// Default batch sizes.
const (
	DefaultBookBatchSize    = 100
	DefaultChapterBatchSize = 200
)

// Dependencies are the injected collaborators of a Builder.
type Dependencies struct {
	// Engine receives the collections (required).
	Engine search.Engine

	// Store supplies the processed books (required).
	Store *corpus.Store

	// Renderer for progress display. Nil means no display.
	Renderer ui.Renderer

	Logger *slog.Logger
}

// Options tunes batching. Zero values use the defaults.
type Options struct {
	BookBatchSize    int
	ChapterBatchSize int
}

// Result tallies one index run. Failures are counts, not errors.
type Result struct {
	BooksIndexed    int
	BookFailures    int
	ChaptersIndexed int
	ChapterFailures int
	MissingBooks    int
	Duration        time.Duration
}

// Builder recreates the books and chapters collections and fills them.
type Builder struct {
	engine search.Engine
	store  *corpus.Store
	opts   Options
	ui     ui.Renderer
	logger *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(deps Dependencies, opts Options) (*Builder, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("corpus store is required")
	}
	if opts.BookBatchSize <= 0 {
		opts.BookBatchSize = DefaultBookBatchSize
	}
	if opts.ChapterBatchSize <= 0 {
		opts.ChapterBatchSize = DefaultChapterBatchSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		engine: deps.Engine,
		store:  deps.Store,
		opts:   opts,
		ui:     ui.OrNop(deps.Renderer),
		logger: logger.With("stage", "index"),
	}, nil
}

// Run indexes books. The engine must be reachable before anything is
// deleted; after that only schema failures and cancellation abort the run.
func (b *Builder) Run(ctx context.Context, books []corpus.BookMeta) (*Result, error) {
	start := time.Now()

	if err := b.engine.Health(ctx); err != nil {
		return nil, gerrors.New(gerrors.ErrCodeNetworkUnavailable, "search engine is unreachable", err).
			WithSuggestion("Start the search server or choose a local backend with search.backend: bleve")
	}

	if err := b.recreateCollections(ctx); err != nil {
		return nil, err
	}

	res := &Result{}
	b.logger.Info("index_started", "books", len(books))

	if err := b.indexBooks(ctx, books, res); err != nil {
		return nil, err
	}
	if err := b.indexChapters(ctx, books, res); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	b.logger.Info("index_complete",
		"books_indexed", res.BooksIndexed,
		"book_failures", res.BookFailures,
		"chapters_indexed", res.ChaptersIndexed,
		"chapter_failures", res.ChapterFailures,
		"missing_books", res.MissingBooks,
		"duration", res.Duration)
	return res, nil
}

// recreateCollections drops chapters then books and creates both afresh.
func (b *Builder) recreateCollections(ctx context.Context) error {
	for _, name := range []string{search.ChaptersCollection, search.BooksCollection} {
		err := b.engine.DeleteCollection(ctx, name)
		switch {
		case err == nil:
			b.logger.Debug("collection_deleted", "name", name)
		case stderrors.Is(err, search.ErrNotFound):
			b.logger.Debug("collection_absent", "name", name)
		default:
			return gerrors.New(gerrors.ErrCodeSchemaFailed, "delete collection "+name, err)
		}
	}

	for _, schema := range []search.Schema{search.BooksSchema(), search.ChaptersSchema()} {
		if err := b.engine.CreateCollection(ctx, schema); err != nil {
			return gerrors.New(gerrors.ErrCodeSchemaFailed, "create collection "+schema.Name, err)
		}
		b.logger.Debug("collection_created", "name", schema.Name, "fields", len(schema.Fields))
	}
	return nil
}

func (b *Builder) indexBooks(ctx context.Context, books []corpus.BookMeta, res *Result) error {
	for start := 0; start < len(books); start += b.opts.BookBatchSize {
		end := min(start+b.opts.BookBatchSize, len(books))

		docs := make([]search.Document, 0, end-start)
		for _, m := range books[start:end] {
			docs = append(docs, search.BookDocument(m))
		}

		ok, failed, err := b.importBatch(ctx, search.BooksCollection, docs)
		if err != nil {
			return err
		}
		res.BooksIndexed += ok
		res.BookFailures += failed

		b.ui.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageIndexBooks,
			Current: end,
			Total:   len(books),
			Message: fmt.Sprintf("%d indexed, %d failed", res.BooksIndexed, res.BookFailures),
		})
	}
	return nil
}

func (b *Builder) indexChapters(ctx context.Context, books []corpus.BookMeta, res *Result) error {
	buf := make([]search.Document, 0, b.opts.ChapterBatchSize)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		ok, failed, err := b.importBatch(ctx, search.ChaptersCollection, buf)
		if err != nil {
			return err
		}
		res.ChaptersIndexed += ok
		res.ChapterFailures += failed
		buf = buf[:0]
		return nil
	}

	for i, meta := range books {
		if err := ctx.Err(); err != nil {
			return err
		}

		book, err := b.store.ReadBook(meta.Slug)
		if err != nil {
			res.MissingBooks++
			b.logger.Warn("book_missing", "slug", meta.Slug, "error", err)
			b.ui.AddError(ui.ErrorEvent{Item: meta.Slug, Err: err, IsWarn: true})
			continue
		}

		for _, ch := range book.Chapters {
			buf = append(buf, search.ChapterDocument(meta, ch))
			if len(buf) >= b.opts.ChapterBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		b.ui.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageIndexChapters,
			Current: i + 1,
			Total:   len(books),
			Item:    meta.Slug,
		})
	}
	return flush()
}

// importBatch imports docs and tallies the outcomes. A transport failure
// counts the whole batch as failed; only cancellation is returned.
func (b *Builder) importBatch(ctx context.Context, collection string, docs []search.Document) (ok, failed int, err error) {
	results, err := b.engine.Import(ctx, collection, docs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, 0, ctxErr
		}
		attrs := append([]any{"collection", collection, "documents", len(docs)}, gerrors.LogAttrs(err)...)
		b.logger.Error("batch_import_failed", attrs...)
		b.ui.AddError(ui.ErrorEvent{
			Item: fmt.Sprintf("%s batch of %d", collection, len(docs)),
			Err:  err,
		})
		return 0, len(docs), nil
	}

	for _, r := range results {
		if r.Success {
			ok++
			continue
		}
		failed++
		b.logger.Warn("document_import_failed", "collection", collection, "id", r.ID, "error", r.Error)
	}
	// Documents the engine did not report on count as failed.
	if missing := len(docs) - len(results); missing > 0 {
		failed += missing
	}
	return ok, failed, nil
}
