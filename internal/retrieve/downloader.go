package retrieve

import (
	"context"
	"io"
	"net/http"
	"time"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/pkg/version"
)

// Downloader fetches the body at url.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPDownloader is the default Downloader.
type HTTPDownloader struct {
	Client *http.Client
}

// NewHTTPDownloader returns a downloader whose requests time out after timeout.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{Client: &http.Client{Timeout: timeout}}
}

// Fetch implements Downloader. Any non-2xx status is an error.
func (d *HTTPDownloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, gerrors.New(gerrors.ErrCodeNoDownloadURL, "bad download url "+url, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, gerrors.NetworkError("download failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, gerrors.New(gerrors.ErrCodeHTTPStatus, "HTTP "+resp.Status, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gerrors.NetworkError("read download body", err)
	}
	return body, nil
}
