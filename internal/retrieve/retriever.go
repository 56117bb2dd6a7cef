// Package retrieve downloads raw book texts with a bounded worker pool.
package retrieve

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

// Defaults mirror config.NewConfig.
const (
	DefaultWorkers        = 5
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 2 * time.Second
	DefaultTimeout        = 60 * time.Second
	DefaultProgressEvery  = 50
)

// Options configures a Retriever. Zero values select the defaults.
type Options struct {
	Workers        int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	ProgressEvery  int

	// RequestsPerSecond caps download requests across all workers,
	// retries included. Zero means no cap.
	RequestsPerSecond float64

	Downloader Downloader // defaults to an HTTPDownloader with DefaultTimeout
	Logger     *slog.Logger
	Renderer   ui.Renderer
}

// Result summarizes a retrieval run.
type Result struct {
	Total          int
	AlreadyPresent int
	Downloaded     int
	Failed         int
	Failures       []corpus.FailedDownload
}

// outcome is the per-position result slot.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeDownloaded
	outcomeFailed
)

type slot struct {
	outcome outcome
	failure corpus.FailedDownload
}

// Retriever downloads the raw text of every catalog entry not yet stored.
type Retriever struct {
	opts    Options
	store   *corpus.Store
	dl      Downloader
	limiter *rate.Limiter
	logger  *slog.Logger
	ui      ui.Renderer
	now     func() time.Time
}

// NewRetriever creates a retriever writing into store.
func NewRetriever(store *corpus.Store, opts Options) *Retriever {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	dl := opts.Downloader
	if dl == nil {
		dl = NewHTTPDownloader(DefaultTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Retriever{
		opts:    opts,
		store:   store,
		dl:      dl,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("stage", "download"),
		ui:      ui.OrNop(opts.Renderer),
		now:     time.Now,
	}
}

// Run processes entries with a fixed pool of workers. Per-entry failures are
// recorded, never returned; only cancellation or failing to write the
// failure report ends the run with an error.
func (r *Retriever) Run(ctx context.Context, entries []corpus.CatalogEntry) (*Result, error) {
	slots := make([]slot, len(entries))
	positions := make(chan int, r.opts.Workers)
	var completed atomic.Int64

	present := 0
	for _, e := range entries {
		if r.store.HasRawText(e.ID) {
			present++
		}
	}
	r.logger.Info("download_started",
		"total", len(entries),
		"already_present", present,
		"remaining", len(entries)-present,
		"workers", r.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(positions)
		for i := range entries {
			select {
			case positions <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < min(r.opts.Workers, max(len(entries), 1)); w++ {
		g.Go(func() error {
			for i := range positions {
				slots[i] = r.retrieve(gctx, entries[i])
				r.reportProgress(int(completed.Add(1)), len(entries))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Total: len(entries), Failures: []corpus.FailedDownload{}}
	for _, s := range slots {
		switch s.outcome {
		case outcomeSkipped:
			res.AlreadyPresent++
		case outcomeDownloaded:
			res.Downloaded++
		case outcomeFailed:
			res.Failed++
			res.Failures = append(res.Failures, s.failure)
		}
	}

	if err := r.store.WriteFailedDownloads(res.Failures); err != nil {
		return nil, err
	}

	r.logger.Info("download_complete",
		"total", res.Total,
		"already_present", res.AlreadyPresent,
		"downloaded", res.Downloaded,
		"failed", res.Failed)
	return res, nil
}

// retrieve handles one entry. Its error never escapes to the group so a
// failing entry cannot cancel its siblings.
func (r *Retriever) retrieve(ctx context.Context, e corpus.CatalogEntry) slot {
	if r.store.HasRawText(e.ID) {
		return slot{outcome: outcomeSkipped}
	}

	retry := gerrors.DefaultRetryConfig().WithAttempts(r.opts.MaxAttempts)
	retry.InitialDelay = r.opts.RetryBaseDelay
	retry.MaxDelay = 0
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.logger.Debug("download_retry", "id", e.ID, "attempt", attempt, "wait", wait, "error", err)
	}
	retry.Retryable = retryable

	err := gerrors.Retry(ctx, retry, func() error {
		if e.DownloadURL == "" {
			return gerrors.New(gerrors.ErrCodeNoDownloadURL, "catalog entry has no download url", nil)
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		body, err := r.dl.Fetch(ctx, e.DownloadURL)
		if err != nil {
			return err
		}
		return r.store.WriteRawText(e.ID, body)
	})
	if err == nil {
		r.logger.Debug("download_saved", "id", e.ID)
		return slot{outcome: outcomeDownloaded}
	}

	failure := corpus.FailedDownload{
		ID:        e.ID,
		URL:       e.DownloadURL,
		Error:     rootMessage(err),
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}
	r.logger.Warn("download_failed", "id", e.ID, "url", e.DownloadURL, "error", failure.Error)
	r.ui.AddError(ui.ErrorEvent{Item: "book " + strconv.Itoa(e.ID), Err: err, IsWarn: true})
	return slot{outcome: outcomeFailed, failure: failure}
}

func (r *Retriever) reportProgress(done, total int) {
	if done%r.opts.ProgressEvery != 0 && done != total {
		return
	}
	r.logger.Info("download_progress", "completed", done, "total", total)
	r.ui.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageDownload,
		Current: done,
		Total:   total,
		Message: fmt.Sprintf("%d/%d processed", done, total),
	})
}

// retryable repeats transient failures. Errors without a code come from
// custom downloaders and are treated as transient; a bad URL, a failed write
// or cancellation is final.
func retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if gerrors.GetCode(err) == "" {
		return true
	}
	return gerrors.IsRetryable(err)
}

// rootMessage drops the retry wrapper so the report carries the final
// attempt's own error text.
func rootMessage(err error) string {
	if inner := stderrors.Unwrap(err); inner != nil {
		err = inner
	}
	var ge *gerrors.GutenError
	if stderrors.As(err, &ge) && ge.Cause != nil {
		return ge.Message + ": " + ge.Cause.Error()
	}
	if ge != nil {
		return ge.Message
	}
	return err.Error()
}
