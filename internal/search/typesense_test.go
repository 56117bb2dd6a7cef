package search

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTypesense(t *testing.T, h http.HandlerFunc) *TypesenseEngine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	e := NewTypesenseEngine(TypesenseOptions{BaseURL: srv.URL, APIKey: "secret"})
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// writeJSON answers the way Typesense does; the client only decodes bodies
// served as application/json.
func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestTypesense_Health(t *testing.T) {
	// Given: a healthy server that checks the API key
	var gotKey string
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-TYPESENSE-API-KEY")
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	})

	// When/Then: health succeeds and the key is sent
	require.NoError(t, e.Health(context.Background()))
	assert.Equal(t, "secret", gotKey)
}

func TestTypesense_HealthUnreachable(t *testing.T) {
	// Given: a server that has gone away
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	e := NewTypesenseEngine(TypesenseOptions{BaseURL: base})
	defer e.Close()

	// When/Then: health fails
	assert.Error(t, e.Health(context.Background()))
}

func TestTypesense_DeleteMissingCollection(t *testing.T) {
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/collections/chapters", r.URL.Path)
		writeJSON(w, http.StatusNotFound, `{"message":"Not Found"}`)
	})

	err := e.DeleteCollection(context.Background(), ChaptersCollection)

	assert.ErrorIs(t, err, ErrNotFound)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Not Found", se.Message)
}

func TestTypesense_DeleteServerError(t *testing.T) {
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
	})

	err := e.DeleteCollection(context.Background(), ChaptersCollection)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTypesense_CreateCollectionSendsSchema(t *testing.T) {
	var got Schema
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, `{"name":"books","fields":[],"num_documents":0,"created_at":0}`)
	})

	require.NoError(t, e.CreateCollection(context.Background(), BooksSchema()))

	assert.Equal(t, BooksCollection, got.Name)
	assert.Equal(t, "total_word_count", got.DefaultSortingField)
	f, ok := got.Field("subjects")
	require.True(t, ok)
	assert.True(t, f.Facet)
}

func TestTypesense_ImportPerDocumentResults(t *testing.T) {
	// Given: a server that rejects the second document of a JSONL batch
	var lines int
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/books/documents/import", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-TYPESENSE-API-KEY"))
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var d Document
			require.NoError(t, json.Unmarshal(sc.Bytes(), &d))
			lines++
		}
		writeJSON(w, http.StatusOK, "{\"success\":true}\n{\"success\":false,\"error\":\"Bad JSON.\",\"document\":\"{}\"}\n{\"success\":true}\n")
	})

	docs := []Document{{"id": "a"}, {"id": "b"}, {"id": "c"}}

	// When: importing
	results, err := e.Import(context.Background(), BooksCollection, docs)

	// Then: outcomes line up with the input order
	require.NoError(t, err)
	assert.Equal(t, 3, lines)
	require.Len(t, results, 3)
	assert.Equal(t, ImportResult{ID: "a", Success: true}, results[0])
	assert.Equal(t, ImportResult{ID: "b", Success: false, Error: "Bad JSON."}, results[1])
	assert.Equal(t, ImportResult{ID: "c", Success: true}, results[2])
}

func TestTypesense_ImportResultCountMismatch(t *testing.T) {
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "{\"success\":true}\n")
	})

	_, err := e.Import(context.Background(), BooksCollection, []Document{{"id": "a"}, {"id": "b"}})

	assert.Error(t, err)
}

func TestTypesense_ImportEmptyBatch(t *testing.T) {
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	results, err := e.Import(context.Background(), BooksCollection, nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTypesense_SearchChapters(t *testing.T) {
	// Given: a server answering a chapter search
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/collections/chapters/documents/search", r.URL.Path)
		assert.Equal(t, "storm", q.Get("q"))
		assert.Equal(t, "content,chapter_title", q.Get("query_by"))
		assert.Equal(t, "2,1", q.Get("query_by_weights"))
		assert.Equal(t, "book_slug:=old-house", q.Get("filter_by"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "20", q.Get("per_page"))
		assert.Equal(t, "<mark>", q.Get("highlight_start_tag"))
		writeJSON(w, http.StatusOK, `{
			"found": 21, "page": 2,
			"hits": [{
				"document": {"id": "old-house:2", "book_slug": "old-house", "chapter_number": 2, "content": "A storm came."},
				"text_match": 578730123365187705,
				"highlights": [{"field": "content", "snippet": "A <mark>storm</mark> came."}]
			}]
		}`)
	})

	// When: searching one book's chapters
	page, err := SearchChapters(context.Background(), e, "storm", "old-house", 2, 0)

	// Then: the hit is mapped with its highlight as snippet
	require.NoError(t, err)
	assert.Equal(t, 21, page.TotalFound)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Hits, 1)
	assert.Equal(t, "old-house", page.Hits[0].BookSlug)
	assert.Equal(t, 2, page.Hits[0].ChapterNumber)
	assert.Equal(t, "A <mark>storm</mark> came.", page.Hits[0].Snippet)
}

func TestTypesense_SearchBooksFacets(t *testing.T) {
	e := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("q"))
		assert.Equal(t, "title,author_name,subjects", q.Get("query_by"))
		assert.Equal(t, "3,2,1", q.Get("query_by_weights"))
		assert.Equal(t, "subjects", q.Get("facet_by"))
		assert.Equal(t, "10", q.Get("max_facet_values"))
		writeJSON(w, http.StatusOK, `{
			"found": 1, "page": 1,
			"hits": [{"document": {"id": "emma", "slug": "emma", "title": "Emma", "subjects": ["Fiction"], "total_word_count": 900}}],
			"facet_counts": [{"field_name": "subjects", "counts": [{"value": "Fiction", "count": 1}]}]
		}`)
	})

	page, err := SearchBooks(context.Background(), e, "", 1, 20)

	require.NoError(t, err)
	require.Len(t, page.Hits, 1)
	assert.Equal(t, "Emma", page.Hits[0].Title)
	assert.Equal(t, []string{"Fiction"}, page.Hits[0].Subjects)
	assert.Equal(t, 900, page.Hits[0].TotalWordCount)
	assert.Equal(t, []FacetCount{{Value: "Fiction", Count: 1}}, page.Facets["subjects"])
}
