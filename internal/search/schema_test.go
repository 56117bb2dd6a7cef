package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gutenindex/internal/corpus"
)

func intPtr(n int) *int { return &n }

func TestBookDocument(t *testing.T) {
	meta := corpus.BookMeta{
		ID:             1342,
		Slug:           "emma",
		Title:          "Emma",
		Author:         corpus.Author{Name: "Austen, Jane", BirthYear: intPtr(1775)},
		TotalChapters:  3,
		TotalWordCount: 900,
	}

	doc := BookDocument(meta)

	assert.Equal(t, "emma", doc.ID())
	assert.Equal(t, 1775, doc.Int("author_birth_year"))
	_, hasDeath := doc["author_death_year"]
	assert.False(t, hasDeath)
	assert.Equal(t, []string{}, doc.Strings("subjects"))
	require.NoError(t, BooksSchema().Validate(doc))
}

func TestChapterDocument(t *testing.T) {
	meta := corpus.BookMeta{Slug: "emma", Title: "Emma", Author: corpus.Author{Name: "Austen, Jane"}}
	ch := corpus.Chapter{Number: 4, Title: "Chapter IV", Content: "Text", WordCount: 1}

	doc := ChapterDocument(meta, ch)

	assert.Equal(t, "emma:4", doc.ID())
	assert.Equal(t, "Emma", doc.String("book_title"))
	assert.Equal(t, "Austen, Jane", doc.String("author_name"))
	require.NoError(t, ChaptersSchema().Validate(doc))
}

func TestSchemaValidate(t *testing.T) {
	s := ChaptersSchema()
	good := Document{"id": "a:1", "book_slug": "a", "book_title": "A", "author_name": "X",
		"chapter_number": float64(1), "chapter_title": "One", "content": "c", "word_count": 1}
	require.NoError(t, s.Validate(good))

	missing := Document{"id": "a:1"}
	assert.ErrorContains(t, s.Validate(missing), "book_slug")

	wrongType := Document{}
	for k, v := range good {
		wrongType[k] = v
	}
	wrongType["word_count"] = "many"
	assert.ErrorContains(t, s.Validate(wrongType), "word_count")

	fractional := Document{}
	for k, v := range good {
		fractional[k] = v
	}
	fractional["chapter_number"] = 1.5
	assert.Error(t, s.Validate(fractional))
}

func TestSchemaTextFields(t *testing.T) {
	var names []string
	for _, f := range BooksSchema().TextFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"title", "author_name", "subjects", "bookshelves", "slug"}, names)
}

// stubEngine answers every search with a fixed result.
type stubEngine struct {
	Engine
	result *SearchResult
	last   Query
}

func (s *stubEngine) Search(_ context.Context, _ string, q Query) (*SearchResult, error) {
	s.last = q
	return s.result, nil
}

func TestSearchChapters_FallbackSnippet(t *testing.T) {
	// Given: a hit without a content highlight
	long := strings.Repeat("a", 250)
	e := &stubEngine{result: &SearchResult{Found: 1, Page: 1, Hits: []Hit{
		{Document: Document{"id": "x:1", "content": long}, Highlights: map[string]string{"chapter_title": "<mark>x</mark>"}},
	}}}

	// When: mapping chapter hits
	page, err := SearchChapters(context.Background(), e, "x", "", 0, 0)

	// Then: the first 200 characters stand in for the snippet
	require.NoError(t, err)
	require.Len(t, page.Hits, 1)
	assert.Equal(t, strings.Repeat("a", 200)+"...", page.Hits[0].Snippet)
	assert.Equal(t, 1, e.last.Page)
	assert.Equal(t, DefaultPerPage, e.last.PerPage)
}

func TestFallbackSnippet_ShortContent(t *testing.T) {
	assert.Equal(t, "Short....", fallbackSnippet("Short."))
	assert.Equal(t, strings.Repeat("é", 200)+"...", fallbackSnippet(strings.Repeat("é", 300)))
}
