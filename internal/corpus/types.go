// Package corpus defines the pipeline's data model and the on-disk layout of
// its artifacts: catalog, raw texts, processed books, and the book index.
package corpus

import "strings"

// UnknownAuthor is the sentinel name used when a catalog record lists no author.
const UnknownAuthor = "Unknown"

// Author identifies a book's author. Years are nil when unknown.
type Author struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birthYear"`
	DeathYear *int   `json:"deathYear"`
}

// DisplayName turns "Last, First" into "First Last". Other shapes are returned as-is.
func (a Author) DisplayName() string {
	parts := strings.Split(a.Name, ", ")
	if len(parts) == 2 {
		return parts[1] + " " + parts[0]
	}
	return a.Name
}

// CatalogEntry is one book's metadata as discovered by the catalog fetcher.
type CatalogEntry struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Author      Author   `json:"author"`
	Subjects    []string `json:"subjects"`
	Bookshelves []string `json:"bookshelves"`
	DownloadURL string   `json:"downloadUrl"`
	Languages   []string `json:"languages"`
}

// FailedDownload records an entry whose retrieval exhausted all attempts.
type FailedDownload struct {
	ID        int    `json:"id"`
	URL       string `json:"url"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// Chapter is one segment of a processed book. Numbers start at 1 and are contiguous.
//
// For heading-split chapters Content starts with the heading line, but
// WordCount counts only the prose below it. For fixed chunks the two agree.
type Chapter struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

// BookMeta is a processed book without its chapter bodies.
type BookMeta struct {
	ID             int      `json:"id"`
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Author         Author   `json:"author"`
	Subjects       []string `json:"subjects"`
	Bookshelves    []string `json:"bookshelves"`
	TotalChapters  int      `json:"totalChapters"`
	TotalWordCount int      `json:"totalWordCount"`
	Language       string   `json:"language"`
}

// Book is a fully processed book. BookMeta is embedded so the summary and the
// full record share one definition.
type Book struct {
	BookMeta
	Chapters []Chapter `json:"chapters"`
}

// NewBook assembles a Book and derives its totals from the chapters.
func NewBook(meta BookMeta, chapters []Chapter) *Book {
	total := 0
	for _, ch := range chapters {
		total += ch.WordCount
	}
	meta.TotalChapters = len(chapters)
	meta.TotalWordCount = total
	return &Book{BookMeta: meta, Chapters: chapters}
}

// Meta returns the book's summary.
func (b *Book) Meta() BookMeta {
	return b.BookMeta
}

// Chapter returns the chapter with the given number, or nil.
func (b *Book) Chapter(number int) *Chapter {
	for i := range b.Chapters {
		if b.Chapters[i].Number == number {
			return &b.Chapters[i]
		}
	}
	return nil
}
