package corpus

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
)

func intPtr(v int) *int { return &v }

func sampleBook(slug string, subjects []string, author string) *Book {
	return NewBook(BookMeta{
		ID:          1,
		Slug:        slug,
		Title:       "Title " + slug,
		Author:      Author{Name: author, BirthYear: intPtr(1800)},
		Subjects:    subjects,
		Bookshelves: []string{},
		Language:    "en",
	}, []Chapter{
		{Number: 1, Title: "One", Content: "a b c", WordCount: 3},
		{Number: 2, Title: "Two", Content: "d e", WordCount: 2},
	})
}

func TestNewBook_DerivesTotals(t *testing.T) {
	// Given/When: a book with two chapters
	book := sampleBook("x", nil, "A")

	// Then: totals match the chapters
	assert.Equal(t, 2, book.TotalChapters)
	assert.Equal(t, 5, book.TotalWordCount)
	assert.Equal(t, book.BookMeta, book.Meta())
	assert.Equal(t, "d e", book.Chapter(2).Content)
	assert.Nil(t, book.Chapter(3))
}

func TestBook_JSONShape(t *testing.T) {
	// Given: a book with an unknown death year
	book := sampleBook("the-slug", []string{"Fiction"}, "Doe, Jane")

	// When
	data, err := json.Marshal(book)
	require.NoError(t, err)

	// Then: flat camelCase keys with explicit nulls
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "the-slug", m["slug"])
	assert.Equal(t, float64(2), m["totalChapters"])
	assert.Contains(t, m, "chapters")
	author := m["author"].(map[string]any)
	assert.Nil(t, author["deathYear"])
	assert.Contains(t, author, "deathYear")
	assert.Equal(t, float64(1800), author["birthYear"])
}

func TestAuthor_DisplayName(t *testing.T) {
	assert.Equal(t, "Jane Austen", Author{Name: "Austen, Jane"}.DisplayName())
	assert.Equal(t, "Homer", Author{Name: "Homer"}.DisplayName())
}

func TestStore_CatalogRoundTrip(t *testing.T) {
	// Given: a store over a temp dir
	s := NewStore(t.TempDir())
	entries := []CatalogEntry{{ID: 42, Title: "T", Author: Author{Name: UnknownAuthor}, Languages: []string{"en"}}}

	// When
	require.NoError(t, s.WriteCatalog(entries))
	got, err := s.ReadCatalog()

	// Then
	require.NoError(t, err)
	assert.Equal(t, entries[0].ID, got[0].ID)
	assert.Nil(t, got[0].Author.BirthYear)
}

func TestStore_MissingCatalogHasSuggestion(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.ReadCatalog()

	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeFileNotFound, gerrors.GetCode(err))
	assert.Contains(t, gerrors.FormatForCLI(err, false), "gutenindex catalog")
}

func TestStore_CorruptIndexIsFatal(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(s.Layout().BookIndexPath(), []byte("{not json"), 0o644))

	_, err := s.ReadBookIndex()

	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeArtifactCorrupt, gerrors.GetCode(err))
	assert.True(t, gerrors.IsFatal(err))
}

func TestStore_RawText(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.False(t, s.HasRawText(7))

	_, err := s.ReadRawText(7)
	assert.Equal(t, gerrors.ErrCodeMissingRaw, gerrors.GetCode(err))

	require.NoError(t, s.WriteRawText(7, []byte("body")))
	assert.True(t, s.HasRawText(7))
	body, err := s.ReadRawText(7)
	require.NoError(t, err)
	assert.Equal(t, "body", body)
}

func TestStore_EmptyFailuresWrittenAsArray(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.WriteFailedDownloads(nil))

	data, err := os.ReadFile(s.Layout().FailedDownloadsPath())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDataLock_ExclusiveAcrossInstances(t *testing.T) {
	// Given: one holder of the data dir lock
	dir := t.TempDir()
	first := NewDataLock(dir)
	require.NoError(t, first.Acquire())
	defer func() { _ = first.Release() }()

	// When: a second lock tries the same dir
	second := NewDataLock(dir)
	err := second.Acquire()

	// Then: it is refused with a lock-held error
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeLockHeld, gerrors.GetCode(err))
	assert.False(t, second.IsLocked())

	// And: it succeeds after release
	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
	require.NoError(t, second.Release())
}

func TestReader_QueriesAndCache(t *testing.T) {
	// Given: a processed corpus of two books
	s := NewStore(t.TempDir())
	a := sampleBook("alpha", []string{"Sea stories", "Adventure"}, "Melville, Herman")
	b := sampleBook("beta", []string{"Adventure"}, "Austen, Jane")
	require.NoError(t, s.WriteBook(a))
	require.NoError(t, s.WriteBook(b))
	require.NoError(t, s.WriteBookIndex([]BookMeta{a.Meta(), b.Meta()}))

	r := NewReader(s, 4)

	// Then: summaries, lookups, filters, and sorted lists
	all, err := r.AllBooks()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	subjects, err := r.Subjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"Adventure", "Sea stories"}, subjects)

	authors, err := r.Authors()
	require.NoError(t, err)
	assert.Equal(t, []string{"Austen, Jane", "Melville, Herman"}, authors)

	bySubject, err := r.BooksBySubject("SEA")
	require.NoError(t, err)
	require.Len(t, bySubject, 1)
	assert.Equal(t, "alpha", bySubject[0].Slug)

	byAuthor, err := r.BooksByAuthor("austen")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "beta", byAuthor[0].Slug)

	ch, err := r.Chapter("alpha", 2)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, "Two", ch.Title)

	missing, err := r.BookBySlug("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// When: the file is removed after the first read
	require.NoError(t, os.Remove(s.Layout().BookPath("alpha")))

	// Then: the cached copy is still served until Reset
	cached, err := r.BookBySlug("alpha")
	require.NoError(t, err)
	assert.NotNil(t, cached)

	r.Reset()
	gone, err := r.BookBySlug("alpha")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestStore_StatsOnEmptyDir(t *testing.T) {
	s := NewStore(t.TempDir())

	st, err := s.Stats()

	require.NoError(t, err)
	assert.Zero(t, st.CatalogEntries)
	assert.Zero(t, st.RawTexts)
	assert.Zero(t, st.TotalSize())
	assert.True(t, st.CatalogUpdated.IsZero())
}

func TestStore_StatsCountsArtifacts(t *testing.T) {
	// Given: a data dir with catalog, raw texts, failures and a processed book
	s := NewStore(t.TempDir())
	require.NoError(t, s.WriteCatalog([]CatalogEntry{{ID: 1}, {ID: 2}, {ID: 3}}))
	require.NoError(t, s.WriteRawText(1, []byte("hello")))
	require.NoError(t, s.WriteRawText(2, []byte("world!")))
	require.NoError(t, s.WriteFailedDownloads([]FailedDownload{{ID: 3}}))
	book := sampleBook("x", nil, "A")
	require.NoError(t, s.WriteBook(book))
	require.NoError(t, s.WriteBookIndex([]BookMeta{book.Meta()}))

	// When: stats are gathered
	st, err := s.Stats()

	// Then: every artifact is counted
	require.NoError(t, err)
	assert.Equal(t, 3, st.CatalogEntries)
	assert.Equal(t, 2, st.RawTexts)
	assert.EqualValues(t, 11, st.RawSize)
	assert.Equal(t, 1, st.FailedDownloads)
	assert.Equal(t, 1, st.ProcessedBooks)
	assert.Equal(t, 2, st.TotalChapters)
	assert.Equal(t, 5, st.TotalWords)
	assert.Positive(t, st.ProcessedSize)
	assert.False(t, st.CatalogUpdated.IsZero())
}

func TestStore_StatsRejectsCorruptCatalog(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, os.WriteFile(s.Layout().CatalogPath(), []byte("{"), 0o644))

	_, err := s.Stats()

	assert.Equal(t, gerrors.ErrCodeArtifactCorrupt, gerrors.GetCode(err))
}
