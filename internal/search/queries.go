package search

import (
	"context"
)

// snippetFallbackLen is how much chapter content stands in for a missing highlight.
const snippetFallbackLen = 200

// BookHit is a book-level search result.
type BookHit struct {
	Slug           string            `json:"slug"`
	Title          string            `json:"title"`
	AuthorName     string            `json:"authorName"`
	Subjects       []string          `json:"subjects"`
	Bookshelves    []string          `json:"bookshelves"`
	TotalChapters  int               `json:"totalChapters"`
	TotalWordCount int               `json:"totalWordCount"`
	Highlights     map[string]string `json:"highlights,omitempty"`
}

// ChapterHit is a chapter-level search result.
type ChapterHit struct {
	BookSlug      string `json:"bookSlug"`
	BookTitle     string `json:"bookTitle"`
	AuthorName    string `json:"authorName"`
	ChapterNumber int    `json:"chapterNumber"`
	ChapterTitle  string `json:"chapterTitle"`
	WordCount     int    `json:"wordCount"`
	Snippet       string `json:"snippet"`
}

// Page is a typed page of results.
type Page[T any] struct {
	Hits       []T                     `json:"hits"`
	TotalFound int                     `json:"totalFound"`
	Page       int                     `json:"page"`
	Facets     map[string][]FacetCount `json:"facets,omitempty"`
}

// BooksQuery searches title, author and subjects, weighted 3:2:1.
func BooksQuery(text string, page, perPage int) Query {
	return Query{
		Text:    text,
		QueryBy: []string{"title", "author_name", "subjects"},
		Weights: []int{3, 2, 1},
		FacetBy: []string{"subjects"},
		Page:    page,
		PerPage: perPage,
	}.Normalize()
}

// ChaptersQuery searches chapter content and titles, weighted 2:1,
// optionally within one book.
func ChaptersQuery(text, bookSlug string, page, perPage int) Query {
	return Query{
		Text:           text,
		QueryBy:        []string{"content", "chapter_title"},
		Weights:        []int{2, 1},
		Page:           page,
		PerPage:        perPage,
		FilterBookSlug: bookSlug,
	}.Normalize()
}

// SearchBooks runs a BooksQuery and maps the hits.
func SearchBooks(ctx context.Context, e Engine, text string, page, perPage int) (*Page[BookHit], error) {
	res, err := e.Search(ctx, BooksCollection, BooksQuery(text, page, perPage))
	if err != nil {
		return nil, err
	}
	out := &Page[BookHit]{Hits: make([]BookHit, 0, len(res.Hits)), TotalFound: res.Found, Page: res.Page, Facets: res.Facets}
	for _, h := range res.Hits {
		d := h.Document
		out.Hits = append(out.Hits, BookHit{
			Slug:           d.String("slug"),
			Title:          d.String("title"),
			AuthorName:     d.String("author_name"),
			Subjects:       d.Strings("subjects"),
			Bookshelves:    d.Strings("bookshelves"),
			TotalChapters:  d.Int("total_chapters"),
			TotalWordCount: d.Int("total_word_count"),
			Highlights:     h.Highlights,
		})
	}
	return out, nil
}

// SearchChapters runs a ChaptersQuery and maps the hits. A hit without a
// content highlight gets the first 200 characters of content as its snippet.
func SearchChapters(ctx context.Context, e Engine, text, bookSlug string, page, perPage int) (*Page[ChapterHit], error) {
	res, err := e.Search(ctx, ChaptersCollection, ChaptersQuery(text, bookSlug, page, perPage))
	if err != nil {
		return nil, err
	}
	out := &Page[ChapterHit]{Hits: make([]ChapterHit, 0, len(res.Hits)), TotalFound: res.Found, Page: res.Page}
	for _, h := range res.Hits {
		d := h.Document
		snippet := h.Highlights["content"]
		if snippet == "" {
			snippet = fallbackSnippet(d.String("content"))
		}
		out.Hits = append(out.Hits, ChapterHit{
			BookSlug:      d.String("book_slug"),
			BookTitle:     d.String("book_title"),
			AuthorName:    d.String("author_name"),
			ChapterNumber: d.Int("chapter_number"),
			ChapterTitle:  d.String("chapter_title"),
			WordCount:     d.Int("word_count"),
			Snippet:       snippet,
		})
	}
	return out, nil
}

func fallbackSnippet(content string) string {
	r := []rune(content)
	if len(r) > snippetFallbackLen {
		r = r[:snippetFallbackLen]
	}
	return string(r) + "..."
}
