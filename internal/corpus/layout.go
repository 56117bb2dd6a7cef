package corpus

import (
	"path/filepath"
	"strconv"
)

// Artifact file and directory names inside the data directory.
const (
	CatalogFile         = "catalog.json"
	FailedDownloadsFile = "failed-downloads.json"
	BookIndexFile       = "book-index.json"
	RawTextsDir         = "raw-texts"
	ProcessedDir        = "processed"
	SearchDir           = "search"
	LockFile            = ".gutenindex.lock"
)

// Layout resolves artifact paths under a data directory.
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	return Layout{Root: dataDir}
}

func (l Layout) CatalogPath() string         { return filepath.Join(l.Root, CatalogFile) }
func (l Layout) FailedDownloadsPath() string { return filepath.Join(l.Root, FailedDownloadsFile) }
func (l Layout) BookIndexPath() string       { return filepath.Join(l.Root, BookIndexFile) }
func (l Layout) RawTextDir() string          { return filepath.Join(l.Root, RawTextsDir) }
func (l Layout) ProcessedDir() string        { return filepath.Join(l.Root, ProcessedDir) }
func (l Layout) SearchDir() string           { return filepath.Join(l.Root, SearchDir) }
func (l Layout) LockPath() string            { return filepath.Join(l.Root, LockFile) }

// RawTextPath returns raw-texts/<id>.txt.
func (l Layout) RawTextPath(id int) string {
	return filepath.Join(l.RawTextDir(), strconv.Itoa(id)+".txt")
}

// BookPath returns processed/<slug>.json.
func (l Layout) BookPath(slug string) string {
	return filepath.Join(l.ProcessedDir(), slug+".json")
}
