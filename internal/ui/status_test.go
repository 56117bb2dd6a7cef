package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRenderer_Render(t *testing.T) {
	// Given: a populated status
	var buf bytes.Buffer
	r := NewStatusRenderer(&buf, true)
	info := StatusInfo{
		DataDir:         "/data",
		CatalogEntries:  3000,
		RawTexts:        2990,
		FailedDownloads: 10,
		ProcessedBooks:  2950,
		TotalChapters:   41000,
		TotalWords:      150000000,
		RawSize:         2 * 1024 * 1024 * 1024,
		ProcessedSize:   512 * 1024 * 1024,
		TotalSize:       2*1024*1024*1024 + 512*1024*1024,
		SearchBackend:   "bleve",
		SearchStatus:    "ready",
	}

	// When: rendered
	require.NoError(t, r.Render(info))

	// Then: counts and sizes appear
	out := buf.String()
	assert.Contains(t, out, "Corpus Status: /data")
	assert.Contains(t, out, "Catalog entries:  3000")
	assert.Contains(t, out, "Failed downloads: 10")
	assert.Contains(t, out, "Raw texts:  2.0 GB")
	assert.Contains(t, out, "Processed:  512.0 MB")
	assert.Contains(t, out, "Backend: bleve")
	assert.Contains(t, out, "Status:  ready")
	assert.NotContains(t, out, "Search:     ")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewStatusRenderer(&buf, true)

	require.NoError(t, r.RenderJSON(StatusInfo{DataDir: "/d", ProcessedBooks: 2, SearchStatus: "n/a"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "/d", got["data_dir"])
	assert.EqualValues(t, 2, got["processed_books"])
	assert.Equal(t, "n/a", got["search_status"])
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "1.0 MB", FormatBytes(1024*1024))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "just now", formatTime(time.Now()))
	assert.Equal(t, "5 minutes ago", formatTime(time.Now().Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "1 hour ago", formatTime(time.Now().Add(-61*time.Minute)))
}
