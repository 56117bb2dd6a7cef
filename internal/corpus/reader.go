package corpus

import (
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
)

// DefaultReaderCacheSize is the number of full books kept in memory.
const DefaultReaderCacheSize = 256

// Reader is the read-only query layer over the processed corpus. The book
// index is loaded once; full books go through an LRU cache. A Reader never
// observes writes made after it loaded something, so create a new one (or
// call Reset) after re-processing.
type Reader struct {
	store *Store
	books *lru.Cache[string, *Book]

	mu       sync.Mutex
	index    []BookMeta
	subjects []string
	authors  []string
}

// NewReader creates a reader over store holding up to cacheSize books.
func NewReader(store *Store, cacheSize int) *Reader {
	if cacheSize <= 0 {
		cacheSize = DefaultReaderCacheSize
	}
	cache, _ := lru.New[string, *Book](cacheSize)
	return &Reader{store: store, books: cache}
}

// Reset drops everything cached.
func (r *Reader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index, r.subjects, r.authors = nil, nil, nil
	r.books.Purge()
}

// AllBooks returns every book summary in index order.
func (r *Reader) AllBooks() ([]BookMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadIndexLocked()
}

func (r *Reader) loadIndexLocked() ([]BookMeta, error) {
	if r.index != nil {
		return r.index, nil
	}
	index, err := r.store.ReadBookIndex()
	if err != nil {
		return nil, err
	}
	r.index = index
	return index, nil
}

// BookBySlug returns the full book, or (nil, nil) if no such book exists.
func (r *Reader) BookBySlug(slug string) (*Book, error) {
	if book, ok := r.books.Get(slug); ok {
		return book, nil
	}
	book, err := r.store.ReadBook(slug)
	if err != nil {
		if gerrors.GetCode(err) == gerrors.ErrCodeFileNotFound {
			return nil, nil
		}
		return nil, err
	}
	r.books.Add(slug, book)
	return book, nil
}

// Chapter returns one chapter of a book, or (nil, nil) if either is missing.
func (r *Reader) Chapter(slug string, number int) (*Chapter, error) {
	book, err := r.BookBySlug(slug)
	if err != nil || book == nil {
		return nil, err
	}
	return book.Chapter(number), nil
}

// BooksBySubject returns books with a subject containing subject, case-insensitively.
func (r *Reader) BooksBySubject(subject string) ([]BookMeta, error) {
	lower := strings.ToLower(subject)
	return r.filter(func(b BookMeta) bool {
		for _, s := range b.Subjects {
			if strings.Contains(strings.ToLower(s), lower) {
				return true
			}
		}
		return false
	})
}

// BooksByAuthor returns books whose author name contains name, case-insensitively.
func (r *Reader) BooksByAuthor(name string) ([]BookMeta, error) {
	lower := strings.ToLower(name)
	return r.filter(func(b BookMeta) bool {
		return strings.Contains(strings.ToLower(b.Author.Name), lower)
	})
}

func (r *Reader) filter(keep func(BookMeta) bool) ([]BookMeta, error) {
	books, err := r.AllBooks()
	if err != nil {
		return nil, err
	}
	var out []BookMeta
	for _, b := range books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Subjects returns every distinct subject, sorted.
func (r *Reader) Subjects() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subjects != nil {
		return r.subjects, nil
	}
	index, err := r.loadIndexLocked()
	if err != nil {
		return nil, err
	}
	var all []string
	for _, b := range index {
		all = append(all, b.Subjects...)
	}
	r.subjects = sortedUnique(all)
	return r.subjects, nil
}

// Authors returns every distinct author name, sorted.
func (r *Reader) Authors() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.authors != nil {
		return r.authors, nil
	}
	index, err := r.loadIndexLocked()
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(index))
	for _, b := range index {
		all = append(all, b.Author.Name)
	}
	r.authors = sortedUnique(all)
	return r.authors, nil
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
