package preflight

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Aman-CERP/gutenindex/pkg/version"
)

const checkTimeout = 5 * time.Second

// CheckCatalog fetches the catalog's first page. A failure is a warning
// because the later stages work from files already on disk.
func (c *Checker) CheckCatalog(ctx context.Context, url string) CheckResult {
	result := CheckResult{Name: "catalog"}

	if c.offline {
		result.Status = StatusSkip
		result.Message = "offline"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("invalid url %s: %v", url, err)
		return result
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unreachable: %v", err)
		result.Details = "Check catalog.base_url and your network connection"
		return result
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s returned HTTP %d", url, resp.StatusCode)
		return result
	}
	result.Status = StatusPass
	result.Message = url
	return result
}

// CheckSearch reports whether the backend is configured and healthy.
// Missing credentials or an unreachable server only block `index` and
// `search`, so neither is critical.
func (c *Checker) CheckSearch(ctx context.Context, backend string, credentials error, health func(context.Context) error) CheckResult {
	result := CheckResult{Name: "search_backend"}

	if credentials != nil {
		result.Status = StatusWarn
		result.Message = credentials.Error()
		result.Details = "export TYPESENSE_API_KEY, or set search.backend to bleve or sqlite"
		return result
	}
	if health == nil {
		result.Status = StatusSkip
		result.Message = backend + " not checked"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := health(ctx); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable: %v", backend, err)
		return result
	}
	result.Status = StatusPass
	result.Message = backend + " ready"
	return result
}
