package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_WithTotal(t *testing.T) {
	// Given: a plain renderer
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))
	require.NoError(t, r.Start(context.Background()))

	// When: progress is reported for a known total
	r.UpdateProgress(ProgressEvent{Stage: StageDownload, Current: 50, Total: 120, Message: "downloaded 50"})

	// Then: the line carries the stage icon and counts
	assert.Equal(t, "[DOWNLOAD] 50/120 - downloaded 50\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_UnknownTotalUsesItem(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.UpdateProgress(ProgressEvent{Stage: StageCatalog, Current: 200, Item: "page 7"})

	assert.Equal(t, "[CATALOG] 200 - page 7\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_SilentWithoutMessage(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.UpdateProgress(ProgressEvent{Stage: StageProcess, Current: 3})

	assert.Empty(t, buf.String())
}

func TestPlainRenderer_AddError(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.AddError(ErrorEvent{Item: "book 42", Err: errors.New("boom")})
	r.AddError(ErrorEvent{Err: errors.New("short"), IsWarn: true})

	assert.Equal(t, "ERROR: book 42: boom\nWARN: short\n", buf.String())
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a plain renderer
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	// When: the command completes with counts
	r.Complete(CompletionStats{
		Title:    "Download complete",
		Counts:   []Count{{Label: "Downloaded", Value: 3}, {Label: "Failed", Value: 1}},
		Duration: 1500 * time.Millisecond,
		Errors:   1,
	})

	// Then: a summary header and aligned counts are printed
	out := buf.String()
	assert.Contains(t, out, "Download complete in 1.5s (1 errors, 0 warnings)\n")
	assert.Contains(t, out, "  Downloaded: 3\n")
	assert.Contains(t, out, "  Failed:     1\n")
	require.NoError(t, r.Stop())
}

func TestNewRenderer_FallsBackToPlainForNonTTY(t *testing.T) {
	var buf bytes.Buffer

	r := NewRenderer(NewConfig(&buf))

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	_, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, NopRenderer{}, OrNop(nil))

	var buf bytes.Buffer
	p := NewPlainRenderer(NewConfig(&buf))
	assert.Same(t, p, OrNop(p))
}

func TestStage_StringAndIcon(t *testing.T) {
	tests := []struct {
		stage Stage
		name  string
		icon  string
	}{
		{StageCatalog, "Catalog", "CATALOG"},
		{StageDownload, "Download", "DOWNLOAD"},
		{StageProcess, "Process", "PROCESS"},
		{StageIndexBooks, "Index books", "BOOKS"},
		{StageIndexChapters, "Index chapters", "CHAPTERS"},
		{StageComplete, "Complete", "DONE"},
		{Stage(99), "Unknown", "???"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.String())
			assert.Equal(t, tt.icon, tt.stage.Icon())
		})
	}
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}
