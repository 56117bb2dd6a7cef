package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/gutenindex/configs"
	"github.com/Aman-CERP/gutenindex/internal/config"
	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/search"
	"github.com/Aman-CERP/gutenindex/internal/ui"
	"github.com/Aman-CERP/gutenindex/pkg/version"
)

// isolateEnv keeps the developer's config and environment out of a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, k := range []string{
		"GUTENINDEX_DATA_DIR", "GUTENINDEX_LOG_LEVEL", "GUTENINDEX_CATALOG_URL",
		"GUTENINDEX_CATALOG_TARGET", "GUTENINDEX_WORKERS", "GUTENINDEX_SEARCH_BACKEND",
		"TYPESENSE_HOST", "TYPESENSE_PORT", "TYPESENSE_PROTOCOL", "TYPESENSE_API_KEY",
		"NO_COLOR",
	} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd_DefaultOutput(t *testing.T) {
	// Given: a version command
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// When: executing without flags
	err := cmd.Execute()

	// Then: it prints program name, version and commit
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "gutenindex")
	assert.Contains(t, buf.String(), version.Version)
	assert.Contains(t, buf.String(), "commit")
}

func TestVersionCmd_ShortOutput(t *testing.T) {
	// Given: a version command with --short
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--short"})

	// When: executing
	err := cmd.Execute()

	// Then: only the version number is printed
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(buf.String()))
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	// Given: a version command with --json
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	// When: executing
	err := cmd.Execute()

	// Then: the output is valid JSON with the version field
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.Version, info["version"])
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"catalog", "download", "process", "index", "run", "search", "books", "status", "doctor", "logs", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(fmt.Errorf("boom")))
	assert.Equal(t, ExitFailure, ExitCode(gerrors.New(gerrors.ErrCodeNoDownloadURL, "no url", nil)))
	assert.Equal(t, ExitFatal, ExitCode(gerrors.New(gerrors.ErrCodeNetworkUnavailable, "catalog down", nil)))
}

func TestConfigShow_MergesProjectConfigAndRedactsKey(t *testing.T) {
	// Given: a project config selecting sqlite and an API key in the environment
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gutenindex.yaml"),
		[]byte("search:\n  backend: sqlite\n  per_page: 7\n"), 0o644))
	t.Setenv("TYPESENSE_API_KEY", "super-secret")

	// When: showing the merged config
	out, err := execute(t, "config", "show", "--config-dir", dir)

	// Then: project values are merged and the key is hidden
	require.NoError(t, err)
	assert.Contains(t, out, "backend: sqlite")
	assert.Contains(t, out, "per_page: 7")
	assert.NotContains(t, out, "super-secret")
}

func TestConfigShow_InvalidConfig(t *testing.T) {
	// Given: a project config with an unknown backend
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gutenindex.yaml"),
		[]byte("search:\n  backend: elastic\n"), 0o644))

	// When: loading it
	_, err := execute(t, "config", "show", "--config-dir", dir)

	// Then: a config error is reported
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeConfigInvalid, gerrors.GetCode(err))
}

func TestConfigInit_WritesTemplateAndBacksUp(t *testing.T) {
	isolateEnv(t)
	path := config.GetUserConfigPath()

	// Given: no user config
	// When: running init
	out, err := execute(t, "config", "init")

	// Then: the template is written
	require.NoError(t, err)
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigTemplate, string(data))

	// Given: a user-edited config
	require.NoError(t, os.WriteFile(path, []byte("data_dir: mine\n"), 0o644))

	// When: running init without --force
	out, err = execute(t, "config", "init")

	// Then: the file is kept
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data_dir: mine\n", string(data))

	// When: running init with --force
	_, err = execute(t, "config", "init", "--force")

	// Then: the old file is backed up and replaced
	require.NoError(t, err)
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.ConfigTemplate, string(data))
}

func TestSearch_RejectsPageZero(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "search", "books", "whale", "--page", "0", "--data-dir", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeInvalidQuery, gerrors.GetCode(err))
}

func TestIndex_RequiresTypesenseKey(t *testing.T) {
	// Given: the default typesense backend without an API key
	isolateEnv(t)
	dataDir := t.TempDir()

	// When: indexing
	_, err := execute(t, "index", "--no-tui", "--data-dir", dataDir)

	// Then: the command fails before touching the engine
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeConfigInvalid, gerrors.GetCode(err))
}

func TestBooksChapter_InvalidNumber(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "books", "chapter", "some-book", "zero", "--data-dir", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, gerrors.ErrCodeInvalidInput, gerrors.GetCode(err))
}

const lighthouseText = `The Project Gutenberg eBook of The Lighthouse Keeper

*** START OF THE PROJECT GUTENBERG EBOOK THE LIGHTHOUSE KEEPER ***

CHAPTER I. The Storm

The keeper climbed the lighthouse stairs as the storm rolled in from the sea.
Every night he trimmed the lamp and watched the ships pass the rocks below.

CHAPTER II. The Rescue

At dawn a fishing boat struck the reef and the keeper rowed out through the
grey water to bring the crew back to the lighthouse before the tide turned.

*** END OF THE PROJECT GUTENBERG EBOOK THE LIGHTHOUSE KEEPER ***
`

// gutendexServer serves one catalog page and the raw texts it points to.
// Book 3's text is missing so its download fails.
func gutendexServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	book := func(id int, title, author string, subjects ...string) map[string]any {
		return map[string]any{
			"id":          id,
			"title":       title,
			"authors":     []map[string]any{{"name": author, "birth_year": 1850, "death_year": 1920}},
			"subjects":    subjects,
			"bookshelves": []string{"Adventure"},
			"languages":   []string{"en"},
			"formats": map[string]string{
				"text/plain; charset=utf-8": fmt.Sprintf("%s/files/%d.txt", srv.URL, id),
			},
		}
	}

	mux.HandleFunc("/books", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("languages") != "en" {
			t.Errorf("unexpected languages filter %q", r.URL.Query().Get("languages"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count": 3,
			"next":  nil,
			"results": []map[string]any{
				book(1, "The Lighthouse Keeper", "Doe, Jane", "Sea stories", "Lighthouses -- Fiction"),
				book(2, "A Short Note", "Roe, Richard", "Letters"),
				book(3, "The Lost Manuscript", "Poe, Edgar", "Mystery"),
			},
		})
	})
	mux.HandleFunc("/files/1.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(lighthouseText))
	})
	mux.HandleFunc("/files/2.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("*** START OF X ***\nToo short.\n*** END OF X ***\n"))
	})
	return srv
}

func writeProjectConfig(t *testing.T, dir, baseURL string) {
	t.Helper()
	cfg := fmt.Sprintf(`data_dir: data
catalog:
  base_url: %s/books
  target: 3
  request_delay: "0"
  max_attempts: 2
  retry_base_delay: 10ms
retriever:
  workers: 2
  max_attempts: 1
  retry_base_delay: 10ms
search:
  backend: bleve
`, baseURL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gutenindex.yaml"), []byte(cfg), 0o644))
}

func TestRun_EndToEndWithBleve(t *testing.T) {
	// Given: a fake catalog with one good book, one too short and one missing
	isolateEnv(t)
	srv := gutendexServer(t)
	dir := t.TempDir()
	writeProjectConfig(t, dir, srv.URL)
	dataDir := filepath.Join(dir, "data")

	// When: running the whole pipeline
	out, err := execute(t, "run", "--no-tui", "--config-dir", dir)

	// Then: every stage ran and reported its counts
	require.NoError(t, err)
	assert.Contains(t, out, "Pipeline complete")
	assert.Contains(t, out, "Chapters indexed:")

	store := corpus.NewStore(dataDir)
	entries, err := store.ReadCatalog()
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	failed, err := store.ReadFailedDownloads()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].ID)

	index, err := store.ReadBookIndex()
	require.NoError(t, err)
	require.Len(t, index, 1, "short book is skipped")
	assert.Equal(t, "the-lighthouse-keeper", index[0].Slug)
	assert.Equal(t, 2, index[0].TotalChapters)

	t.Run("search chapters", func(t *testing.T) {
		out, err := execute(t, "search", "chapters", "reef", "--book", "the-lighthouse-keeper", "--json", "--config-dir", dir)
		require.NoError(t, err)

		var page search.Page[search.ChapterHit]
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		require.Equal(t, 1, page.TotalFound)
		assert.Equal(t, 2, page.Hits[0].ChapterNumber)
		assert.Equal(t, "CHAPTER II. The Rescue", page.Hits[0].ChapterTitle)
	})

	t.Run("search books text output", func(t *testing.T) {
		out, err := execute(t, "search", "books", "lighthouse", "--config-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "1 books found")
		assert.Contains(t, out, "[the-lighthouse-keeper]")
	})

	t.Run("books show", func(t *testing.T) {
		out, err := execute(t, "books", "show", "the-lighthouse-keeper", "--json", "--config-dir", dir)
		require.NoError(t, err)

		var book corpus.Book
		require.NoError(t, json.Unmarshal([]byte(out), &book))
		assert.Equal(t, "Doe, Jane", book.Author.Name)
		assert.Len(t, book.Chapters, 2)
	})

	t.Run("books chapter", func(t *testing.T) {
		out, err := execute(t, "books", "chapter", "the-lighthouse-keeper", "1", "--config-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "CHAPTER I. The Storm")
		assert.Contains(t, out, "trimmed the lamp")
	})

	t.Run("books list by subject", func(t *testing.T) {
		out, err := execute(t, "books", "list", "--subject", "lighthouses", "--config-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "the-lighthouse-keeper")
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := execute(t, "books", "show", "no-such-book", "--config-dir", dir)
		require.Error(t, err)
		assert.Equal(t, gerrors.ErrCodeFileNotFound, gerrors.GetCode(err))
	})

	t.Run("status", func(t *testing.T) {
		out, err := execute(t, "status", "--json", "--config-dir", dir)
		require.NoError(t, err)

		var info ui.StatusInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, 3, info.CatalogEntries)
		assert.Equal(t, 1, info.FailedDownloads)
		assert.Equal(t, 1, info.ProcessedBooks)
		assert.Equal(t, "bleve", info.SearchBackend)
		assert.Equal(t, "ready", info.SearchStatus)
	})

	t.Run("doctor offline", func(t *testing.T) {
		out, err := execute(t, "doctor", "--offline", "--config-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "[PASS] data_dir")
		assert.Contains(t, out, "[SKIP] catalog")
	})

	t.Run("logs by stage", func(t *testing.T) {
		out, err := execute(t, "logs", "--stage", "download", "-n", "0", "--no-color", "--config-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "[download]")
	})
}

func TestDownload_RetryFailedOnlyRetriesReportedIDs(t *testing.T) {
	// Given: a completed run where book 3 failed
	isolateEnv(t)
	srv := gutendexServer(t)
	dir := t.TempDir()
	writeProjectConfig(t, dir, srv.URL)
	_, err := execute(t, "run", "--no-tui", "--skip-index", "--config-dir", dir)
	require.NoError(t, err)

	// When: retrying the failures
	heap := filepath.Join(dir, "heap.prof")
	out, err := execute(t, "download", "--retry-failed", "--no-tui", "--memprofile", heap, "--config-dir", dir)

	// Then: only the failed entry is attempted and it fails again
	require.NoError(t, err)
	assert.Contains(t, out, "Failed downloads:")
	assert.FileExists(t, heap)
	failed, err := corpus.NewStore(filepath.Join(dir, "data")).ReadFailedDownloads()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].ID)
}
