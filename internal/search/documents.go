package search

import (
	"strconv"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
)

// Document is one searchable record keyed by field name.
type Document map[string]any

// ID returns the document id, or "" when absent.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// String returns a string field, or "".
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Int returns a numeric field as int, or 0.
func (d Document) Int(field string) int {
	switch n := d[field].(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Strings returns a string[] field.
func (d Document) Strings(field string) []string {
	switch v := d[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// BookDocument flattens a book summary. The slug is the document id; author
// years are omitted when unknown.
func BookDocument(m corpus.BookMeta) Document {
	doc := Document{
		"id":               m.Slug,
		"title":            m.Title,
		"author_name":      m.Author.Name,
		"subjects":         nonNil(m.Subjects),
		"bookshelves":      nonNil(m.Bookshelves),
		"total_chapters":   m.TotalChapters,
		"total_word_count": m.TotalWordCount,
		"slug":             m.Slug,
	}
	if m.Author.BirthYear != nil {
		doc["author_birth_year"] = *m.Author.BirthYear
	}
	if m.Author.DeathYear != nil {
		doc["author_death_year"] = *m.Author.DeathYear
	}
	return doc
}

// ChapterDocumentID is "<bookSlug>:<chapterNumber>".
func ChapterDocumentID(slug string, number int) string {
	return slug + ":" + strconv.Itoa(number)
}

// ChapterDocument flattens one chapter; book fields come from the summary.
func ChapterDocument(m corpus.BookMeta, ch corpus.Chapter) Document {
	return Document{
		"id":             ChapterDocumentID(m.Slug, ch.Number),
		"book_slug":      m.Slug,
		"book_title":     m.Title,
		"author_name":    m.Author.Name,
		"chapter_number": ch.Number,
		"chapter_title":  ch.Title,
		"content":        ch.Content,
		"word_count":     ch.WordCount,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
