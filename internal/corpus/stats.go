package corpus

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
)

// Stats summarizes what the pipeline has produced so far. Missing artifacts
// count as zero.
type Stats struct {
	CatalogEntries  int
	CatalogUpdated  time.Time
	RawTexts        int
	RawSize         int64
	FailedDownloads int
	ProcessedBooks  int
	TotalChapters   int
	TotalWords      int
	IndexUpdated    time.Time
	ProcessedSize   int64
	SearchSize      int64
}

// TotalSize is the combined size of raw, processed and search artifacts.
func (s Stats) TotalSize() int64 {
	return s.RawSize + s.ProcessedSize + s.SearchSize
}

// Stats scans the data directory. Corrupt artifacts are reported as errors.
func (s *Store) Stats() (Stats, error) {
	var st Stats

	if entries, err := s.ReadCatalog(); err == nil {
		st.CatalogEntries = len(entries)
		st.CatalogUpdated = modTime(s.layout.CatalogPath())
	} else if !isNotFound(err) {
		return st, err
	}

	if failures, err := s.ReadFailedDownloads(); err == nil {
		st.FailedDownloads = len(failures)
	} else if !isNotFound(err) {
		return st, err
	}

	if metas, err := s.ReadBookIndex(); err == nil {
		st.ProcessedBooks = len(metas)
		for _, m := range metas {
			st.TotalChapters += m.TotalChapters
			st.TotalWords += m.TotalWordCount
		}
		st.IndexUpdated = modTime(s.layout.BookIndexPath())
	} else if !isNotFound(err) {
		return st, err
	}

	var err error
	if st.RawTexts, st.RawSize, err = dirUsage(s.layout.RawTextDir(), ".txt"); err != nil {
		return st, err
	}
	if _, st.ProcessedSize, err = dirUsage(s.layout.ProcessedDir(), ".json"); err != nil {
		return st, err
	}
	if _, st.SearchSize, err = dirUsage(s.layout.SearchDir(), ""); err != nil {
		return st, err
	}
	return st, nil
}

// dirUsage counts files with the given suffix and sums their sizes.
// A missing directory is empty.
func dirUsage(dir, suffix string) (int, int64, error) {
	var count int
	var size int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		count++
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, gerrors.New(gerrors.ErrCodeFilePermission, "scan "+dir, err)
	}
	return count, size, nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func isNotFound(err error) bool {
	return gerrors.GetCode(err) == gerrors.ErrCodeFileNotFound
}
