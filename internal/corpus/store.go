package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
)

// Store reads and writes pipeline artifacts. Every write is atomic: readers
// see either the previous file or the complete new one.
type Store struct {
	layout Layout
}

// NewStore creates a store over dataDir.
func NewStore(dataDir string) *Store {
	return &Store{layout: NewLayout(dataDir)}
}

// Layout returns the store's path layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// WriteCatalog persists the catalog checkpoint.
func (s *Store) WriteCatalog(entries []CatalogEntry) error {
	if entries == nil {
		entries = []CatalogEntry{}
	}
	return writeJSON(s.layout.CatalogPath(), entries)
}

// ReadCatalog loads the catalog checkpoint.
func (s *Store) ReadCatalog() ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := readJSON(s.layout.CatalogPath(), &entries); err != nil {
		return nil, withSuggestion(err, "run `gutenindex catalog` first")
	}
	return entries, nil
}

// HasRawText reports whether the raw text for id is already stored.
func (s *Store) HasRawText(id int) bool {
	info, err := os.Stat(s.layout.RawTextPath(id))
	return err == nil && !info.IsDir()
}

// WriteRawText stores the raw body for id.
func (s *Store) WriteRawText(id int, body []byte) error {
	return writeFile(s.layout.RawTextPath(id), body)
}

// ReadRawText loads the raw body for id. A missing file is ErrCodeMissingRaw.
func (s *Store) ReadRawText(id int) (string, error) {
	data, err := os.ReadFile(s.layout.RawTextPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", gerrors.New(gerrors.ErrCodeMissingRaw, fmt.Sprintf("no raw text for book %d", id), err)
		}
		return "", gerrors.New(gerrors.ErrCodeFilePermission, fmt.Sprintf("read raw text for book %d", id), err)
	}
	return string(data), nil
}

// WriteFailedDownloads replaces the failure report for the latest run.
func (s *Store) WriteFailedDownloads(failures []FailedDownload) error {
	if failures == nil {
		failures = []FailedDownload{}
	}
	return writeJSON(s.layout.FailedDownloadsPath(), failures)
}

// ReadFailedDownloads loads the latest failure report.
func (s *Store) ReadFailedDownloads() ([]FailedDownload, error) {
	var failures []FailedDownload
	if err := readJSON(s.layout.FailedDownloadsPath(), &failures); err != nil {
		return nil, err
	}
	return failures, nil
}

// WriteBook persists processed/<slug>.json.
func (s *Store) WriteBook(book *Book) error {
	return writeJSON(s.layout.BookPath(book.Slug), book)
}

// ReadBook loads processed/<slug>.json.
func (s *Store) ReadBook(slug string) (*Book, error) {
	var book Book
	if err := readJSON(s.layout.BookPath(slug), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// WriteBookIndex persists the ordered book summaries.
func (s *Store) WriteBookIndex(metas []BookMeta) error {
	if metas == nil {
		metas = []BookMeta{}
	}
	return writeJSON(s.layout.BookIndexPath(), metas)
}

// ReadBookIndex loads the ordered book summaries.
func (s *Store) ReadBookIndex() ([]BookMeta, error) {
	var metas []BookMeta
	if err := readJSON(s.layout.BookIndexPath(), &metas); err != nil {
		return nil, withSuggestion(err, "run `gutenindex process` first")
	}
	return metas, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return gerrors.New(gerrors.ErrCodeInternal, "marshal "+filepath.Base(path), err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return gerrors.New(gerrors.ErrCodeWriteFailed, "create directory for "+path, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return gerrors.New(gerrors.ErrCodeWriteFailed, "write "+path, err)
	}
	return nil
}

// readJSON maps a missing file to ErrCodeFileNotFound and undecodable
// content to ErrCodeArtifactCorrupt.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return gerrors.New(gerrors.ErrCodeFileNotFound, "missing artifact "+path, err)
		}
		return gerrors.New(gerrors.ErrCodeFilePermission, "read "+path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return gerrors.New(gerrors.ErrCodeArtifactCorrupt, "corrupt artifact "+path, err)
	}
	return nil
}

func withSuggestion(err error, hint string) error {
	if ge, ok := err.(*gerrors.GutenError); ok && ge.Code == gerrors.ErrCodeFileNotFound {
		return ge.WithSuggestion(hint)
	}
	return err
}
