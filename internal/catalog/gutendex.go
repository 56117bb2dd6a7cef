package catalog

import (
	"slices"
	"sort"
	"strings"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
)

// Preferred MIME type for raw text downloads.
const (
	mimePlainUTF8   = "text/plain; charset=utf-8"
	mimePlainPrefix = "text/plain"
)

// page is one response from the Gutendex /books endpoint.
type page struct {
	Count    int          `json:"count"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Results  []sourceBook `json:"results"`
}

type sourceAuthor struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

type sourceBook struct {
	ID          int               `json:"id"`
	Title       string            `json:"title"`
	Authors     []sourceAuthor    `json:"authors"`
	Subjects    []string          `json:"subjects"`
	Bookshelves []string          `json:"bookshelves"`
	Languages   []string          `json:"languages"`
	Formats     map[string]string `json:"formats"`
}

// Format is one downloadable rendition of a book.
type Format struct {
	MimeType string
	URL      string
}

// Formats decodes a formats map into pairs sorted by MIME type.
func Formats(m map[string]string) []Format {
	out := make([]Format, 0, len(m))
	for mime, url := range m {
		out = append(out, Format{MimeType: mime, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MimeType < out[j].MimeType })
	return out
}

// PlainTextURL picks the UTF-8 plain text rendition, falling back to any
// text/plain variant. ok is false when there is none.
func PlainTextURL(formats []Format) (string, bool) {
	for _, f := range formats {
		if f.MimeType == mimePlainUTF8 {
			return f.URL, true
		}
	}
	for _, f := range formats {
		if strings.HasPrefix(f.MimeType, mimePlainPrefix) {
			return f.URL, true
		}
	}
	return "", false
}

// toEntry converts a source record, reporting false when it has no plain
// text rendition or is not in language.
func toEntry(b sourceBook, language string) (corpus.CatalogEntry, bool) {
	url, ok := PlainTextURL(Formats(b.Formats))
	if !ok {
		return corpus.CatalogEntry{}, false
	}
	if !slices.Contains(b.Languages, language) {
		return corpus.CatalogEntry{}, false
	}

	author := corpus.Author{Name: corpus.UnknownAuthor}
	if len(b.Authors) > 0 {
		a := b.Authors[0]
		author = corpus.Author{Name: a.Name, BirthYear: a.BirthYear, DeathYear: a.DeathYear}
	}

	return corpus.CatalogEntry{
		ID:          b.ID,
		Title:       b.Title,
		Author:      author,
		Subjects:    nonNil(b.Subjects),
		Bookshelves: nonNil(b.Bookshelves),
		DownloadURL: url,
		Languages:   nonNil(b.Languages),
	}, true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
