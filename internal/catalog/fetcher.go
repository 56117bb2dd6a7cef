// Package catalog pages through the Gutendex book catalog and keeps the
// entries that have an English plain text rendition.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/ui"
	"github.com/Aman-CERP/gutenindex/pkg/version"
)

// Defaults mirror config.NewConfig.
const (
	DefaultTarget         = 3000
	DefaultLanguage       = "en"
	DefaultRequestDelay   = time.Second
	DefaultMaxAttempts    = 5
	DefaultRetryBaseDelay = 2 * time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultProgressEvery  = 100
)

// Options configures a Fetcher. Zero values select the defaults; a negative
// RequestDelay disables the inter-page delay.
type Options struct {
	BaseURL        string
	Target         int
	Language       string
	RequestDelay   time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
	ProgressEvery  int

	HTTPClient *http.Client
	Logger     *slog.Logger
	Renderer   ui.Renderer
}

// Result summarizes a catalog run.
type Result struct {
	Entries   []corpus.CatalogEntry
	Pages     int
	Discarded int
	Exhausted bool // the source ran out before Target
}

// Fetcher pages through the catalog source.
type Fetcher struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
	ui     ui.Renderer
}

// NewFetcher creates a fetcher with default options against baseURL.
func NewFetcher(baseURL string) *Fetcher {
	return NewFetcherWithOptions(Options{BaseURL: baseURL})
}

// NewFetcherWithOptions creates a fetcher.
func NewFetcherWithOptions(opts Options) *Fetcher {
	if opts.Target <= 0 {
		opts.Target = DefaultTarget
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	} else if opts.RequestDelay == 0 {
		opts.RequestDelay = DefaultRequestDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		opts:   opts,
		client: client,
		logger: logger.With("stage", "catalog"),
		ui:     ui.OrNop(opts.Renderer),
	}
}

// FirstPageURL builds the initial query URL.
func (f *Fetcher) FirstPageURL() (string, error) {
	u, err := url.Parse(f.opts.BaseURL)
	if err != nil {
		return "", gerrors.ConfigError("invalid catalog base url "+f.opts.BaseURL, err)
	}
	q := u.Query()
	q.Set("languages", f.opts.Language)
	q.Set("mime_type", "text/plain")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch collects up to Target entries. Any page that still fails after
// MaxAttempts aborts the run with ErrCodeNetworkUnavailable.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	next, err := f.FirstPageURL()
	if err != nil {
		return nil, err
	}

	res := &Result{Entries: make([]corpus.CatalogEntry, 0, min(f.opts.Target, 1024))}
	f.logger.Info("catalog_started", "target", f.opts.Target, "url", next)

	for next != "" && len(res.Entries) < f.opts.Target {
		p, err := f.fetchPage(ctx, next, res.Pages+1)
		if err != nil {
			return nil, err
		}
		res.Pages++

		for _, b := range p.Results {
			entry, ok := toEntry(b, f.opts.Language)
			if !ok {
				res.Discarded++
				continue
			}
			res.Entries = append(res.Entries, entry)
			if n := len(res.Entries); n%f.opts.ProgressEvery == 0 {
				f.logger.Info("catalog_progress", "collected", n)
				f.ui.UpdateProgress(ui.ProgressEvent{
					Stage:   ui.StageCatalog,
					Current: n,
					Total:   f.opts.Target,
					Message: fmt.Sprintf("%d books collected", n),
				})
			}
			if len(res.Entries) >= f.opts.Target {
				break
			}
		}

		f.logger.Debug("catalog_page_fetched",
			"page", res.Pages,
			"results", len(p.Results),
			"collected", len(res.Entries))

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
		if next != "" && len(res.Entries) < f.opts.Target {
			if err := f.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	res.Exhausted = len(res.Entries) < f.opts.Target
	return res, nil
}

// Run fetches the catalog and writes it atomically to the store. Nothing is
// written when the fetch fails.
func (f *Fetcher) Run(ctx context.Context, store *corpus.Store) (*Result, error) {
	res, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.WriteCatalog(res.Entries); err != nil {
		return nil, err
	}
	f.logger.Info("catalog_written",
		"entries", len(res.Entries),
		"pages", res.Pages,
		"discarded", res.Discarded,
		"exhausted", res.Exhausted,
		"path", store.Layout().CatalogPath())
	return res, nil
}

// pause waits RequestDelay after a page's response has been read, so the
// gap between pages never shrinks when the server is slow.
func (f *Fetcher) pause(ctx context.Context) error {
	if f.opts.RequestDelay <= 0 {
		return nil
	}
	t := time.NewTimer(f.opts.RequestDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string, n int) (*page, error) {
	retry := gerrors.DefaultRetryConfig().WithAttempts(f.opts.MaxAttempts)
	retry.InitialDelay = f.opts.RetryBaseDelay
	retry.MaxDelay = 0
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		f.logger.Warn("catalog_page_retry",
			"page", n,
			"attempt", attempt,
			"max_attempts", f.opts.MaxAttempts,
			"wait", wait,
			"rate_limited", gerrors.GetCode(err) == gerrors.ErrCodeRateLimited,
			"error", err)
	}

	p, err := gerrors.RetryWithResult(ctx, retry, func() (*page, error) {
		return f.getPage(ctx, pageURL)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, gerrors.New(gerrors.ErrCodeNetworkUnavailable,
			fmt.Sprintf("catalog page %d failed after %d attempts", n, retry.Attempts()), err).
			WithDetail("url", pageURL).
			WithSuggestion("check connectivity to the catalog API and re-run `gutenindex catalog`")
	}
	return p, nil
}

func (f *Fetcher) getPage(ctx context.Context, pageURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, gerrors.ValidationError("bad page url "+pageURL, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, gerrors.NetworkError("catalog request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, gerrors.New(gerrors.ErrCodeRateLimited, "catalog rate limited", nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, gerrors.New(gerrors.ErrCodeHTTPStatus, "catalog returned "+resp.Status, nil)
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, gerrors.New(gerrors.ErrCodeInvalidInput, "decode catalog page", err)
	}
	return &p, nil
}
