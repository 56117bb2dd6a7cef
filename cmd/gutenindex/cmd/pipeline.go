package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gutenindex/internal/catalog"
	"github.com/Aman-CERP/gutenindex/internal/config"
	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/index"
	"github.com/Aman-CERP/gutenindex/internal/process"
	"github.com/Aman-CERP/gutenindex/internal/profiling"
	"github.com/Aman-CERP/gutenindex/internal/retrieve"
	"github.com/Aman-CERP/gutenindex/internal/segment"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

// stageFunc runs one pipeline stage and reports its counts.
type stageFunc func(ctx context.Context, a *app, r ui.Renderer) ([]ui.Count, error)

func newCatalogCmd(flags *globalFlags) *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Fetch the book catalog",
		Long: `Page through the Gutendex catalog and write catalog.json with every English
book that has a plain-text rendition, stopping at catalog.target entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, flags, "Catalog fetched", func(a *app) {
				if target > 0 {
					a.cfg.Catalog.Target = target
				}
			}, stageCatalog)
		},
	}
	cmd.Flags().IntVar(&target, "target", 0, "Number of catalog entries to collect (overrides catalog.target)")
	return cmd
}

func newDownloadCmd(flags *globalFlags) *cobra.Command {
	var retryFailed bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download raw texts for the catalog",
		Long: `Download raw-texts/<id>.txt for every catalog entry that does not have one yet.
Entries that still fail after retries are listed in failed-downloads.json.

Use --retry-failed to attempt only the entries from the last failure report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stage := stageDownload
			if retryFailed {
				stage = stageRetryFailed
			}
			return runStages(cmd, flags, "Download complete", nil, stage)
		},
	}
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Only retry entries listed in failed-downloads.json")
	return cmd
}

func newProcessCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Split raw texts into chapters",
		Long: `Strip Project Gutenberg boilerplate from each raw text, split it into chapters,
and write processed/<slug>.json plus book-index.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, flags, "Processing complete", nil, stageProcess)
		},
	}
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the search collections",
		Long: `Drop and recreate the books and chapters collections, then import every
processed book. Per-document failures are counted and logged; they do not fail
the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, flags, "Index rebuilt", nil, stageIndex)
		},
	}
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var skipIndex bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run catalog, download, process and index in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stages := []stageFunc{stageCatalog, stageDownload, stageProcess}
			if !skipIndex {
				stages = append(stages, stageIndex)
			}
			return runStages(cmd, flags, "Pipeline complete", nil, stages...)
		},
	}
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Stop after processing")
	return cmd
}

// runStages runs stages under one data lock and one renderer.
func runStages(cmd *cobra.Command, flags *globalFlags, title string, adjust func(*app), stages ...stageFunc) error {
	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()
	if adjust != nil {
		adjust(a)
	}

	release, err := a.lock()
	if err != nil {
		return err
	}
	defer release()

	ctx := cmd.Context()
	r := a.renderer(cmd, "gutenindex")
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = r.Stop() }()

	prof, err := profiling.Start(a.flags.profile)
	if err != nil {
		return err
	}
	defer func() {
		if err := prof.Stop(); err != nil {
			a.logger.Warn("profile_write_failed", "error", err)
		}
		if a.flags.profile.Enabled() {
			a.logger.Info("profile_written", "heap_inuse", profiling.HeapInUse())
		}
	}()

	start := time.Now()
	var counts []ui.Count
	for _, stage := range stages {
		c, err := stage(ctx, a, r)
		if err != nil {
			a.logger.Error("stage_failed", gerrors.LogAttrs(err)...)
			return err
		}
		counts = append(counts, c...)
	}

	r.Complete(ui.CompletionStats{
		Title:    title,
		Counts:   counts,
		Duration: time.Since(start),
	})
	return nil
}

func stageCatalog(ctx context.Context, a *app, r ui.Renderer) ([]ui.Count, error) {
	c := a.cfg.Catalog
	delay := config.MustDuration(c.RequestDelay)
	if delay == 0 {
		delay = -1 // "0" in config disables the pause
	}
	f := catalog.NewFetcherWithOptions(catalog.Options{
		BaseURL:        c.BaseURL,
		Target:         c.Target,
		Language:       c.Language,
		RequestDelay:   delay,
		MaxAttempts:    c.MaxAttempts,
		RetryBaseDelay: config.MustDuration(c.RetryBaseDelay),
		Timeout:        config.MustDuration(c.Timeout),
		Logger:         a.logger,
		Renderer:       r,
	})
	res, err := f.Run(ctx, a.store)
	if err != nil {
		return nil, err
	}
	return []ui.Count{
		{Label: "Catalog entries", Value: len(res.Entries)},
		{Label: "Pages", Value: res.Pages},
		{Label: "Discarded", Value: res.Discarded},
	}, nil
}

func (a *app) retriever(r ui.Renderer) *retrieve.Retriever {
	c := a.cfg.Retriever
	return retrieve.NewRetriever(a.store, retrieve.Options{
		Workers:        c.Workers,
		MaxAttempts:    c.MaxAttempts,
		RetryBaseDelay: config.MustDuration(c.RetryBaseDelay),
		ProgressEvery:  c.ProgressEvery,

		RequestsPerSecond: c.RequestsPerSecond,

		Downloader: retrieve.NewHTTPDownloader(config.MustDuration(c.Timeout)),
		Logger:     a.logger,
		Renderer:   r,
	})
}

func stageDownload(ctx context.Context, a *app, r ui.Renderer) ([]ui.Count, error) {
	entries, err := a.store.ReadCatalog()
	if err != nil {
		return nil, err
	}
	return downloadEntries(ctx, a, r, entries)
}

// stageRetryFailed narrows the catalog to the ids in the last failure report.
func stageRetryFailed(ctx context.Context, a *app, r ui.Renderer) ([]ui.Count, error) {
	entries, err := a.store.ReadCatalog()
	if err != nil {
		return nil, err
	}
	failed, err := a.store.ReadFailedDownloads()
	if err != nil {
		return nil, err
	}
	ids := make(map[int]bool, len(failed))
	for _, f := range failed {
		ids[f.ID] = true
	}
	retry := make([]corpus.CatalogEntry, 0, len(failed))
	for _, e := range entries {
		if ids[e.ID] {
			retry = append(retry, e)
		}
	}
	a.logger.Info("retrying_failed_downloads", "count", len(retry))
	return downloadEntries(ctx, a, r, retry)
}

func downloadEntries(ctx context.Context, a *app, r ui.Renderer, entries []corpus.CatalogEntry) ([]ui.Count, error) {
	res, err := a.retriever(r).Run(ctx, entries)
	if err != nil {
		return nil, err
	}
	return []ui.Count{
		{Label: "Downloaded", Value: res.Downloaded},
		{Label: "Already present", Value: res.AlreadyPresent},
		{Label: "Failed downloads", Value: res.Failed},
	}, nil
}

func stageProcess(ctx context.Context, a *app, r ui.Renderer) ([]ui.Count, error) {
	entries, err := a.store.ReadCatalog()
	if err != nil {
		return nil, err
	}

	c := a.cfg.Processor
	minLen := c.MinTextLength
	if minLen == 0 {
		minLen = -1 // "0" in config disables the check
	}
	p := process.NewProcessor(a.store, process.Options{
		Language:      a.cfg.Catalog.Language,
		MaxSlugLength: c.MaxSlugLength,
		Segment: segment.Options{
			ChunkWords:    c.ChunkWords,
			MinTextLength: minLen,
		},
		Logger:   a.logger,
		Renderer: r,
	})
	res, err := p.Run(ctx, entries)
	if err != nil {
		return nil, err
	}
	return []ui.Count{
		{Label: "Processed", Value: res.Processed},
		{Label: "Skipped (no raw text)", Value: res.SkippedMissing},
		{Label: "Skipped (too short)", Value: res.SkippedTooShort},
		{Label: "Split by heading", Value: res.Strategies[segment.StrategyHeading]},
		{Label: "Split by roman numeral", Value: res.Strategies[segment.StrategyRoman]},
		{Label: "Split into chunks", Value: res.Strategies[segment.StrategyChunk]},
	}, nil
}

func stageIndex(ctx context.Context, a *app, r ui.Renderer) ([]ui.Count, error) {
	if err := a.requireCredentials(); err != nil {
		return nil, err
	}
	books, err := a.store.ReadBookIndex()
	if err != nil {
		return nil, err
	}

	engine, err := a.openEngine()
	if err != nil {
		return nil, err
	}
	defer func() { _ = engine.Close() }()

	b, err := index.NewBuilder(index.Dependencies{
		Engine:   engine,
		Store:    a.store,
		Renderer: r,
		Logger:   a.logger,
	}, index.Options{
		BookBatchSize:    a.cfg.Search.BookBatchSize,
		ChapterBatchSize: a.cfg.Search.ChapterBatchSize,
	})
	if err != nil {
		return nil, err
	}

	res, err := b.Run(ctx, books)
	if err != nil {
		return nil, err
	}
	return []ui.Count{
		{Label: "Books indexed", Value: res.BooksIndexed},
		{Label: "Book failures", Value: res.BookFailures},
		{Label: "Chapters indexed", Value: res.ChaptersIndexed},
		{Label: "Chapter failures", Value: res.ChapterFailures},
		{Label: "Missing books", Value: res.MissingBooks},
	}, nil
}
