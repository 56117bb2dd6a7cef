package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_SetStageResetsCounters(t *testing.T) {
	// Given: a tracker part way through a stage
	p := NewProgressTracker()
	p.SetStage(StageDownload, 10)
	p.Update(5, 0, "book 5")

	// When: the next stage begins
	p.SetStage(StageProcess, 4)

	// Then: counters restart for that stage
	stats := p.Stats()
	assert.Equal(t, StageProcess, stats.Stage)
	assert.Equal(t, 0, stats.Current)
	assert.Equal(t, 4, stats.Total)
	assert.Empty(t, stats.Item)
}

func TestProgressTracker_ProgressIsClamped(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageIndexBooks, 4)

	p.Update(2, 0, "")
	assert.InDelta(t, 0.5, p.Progress(), 0.0001)

	p.Update(9, 0, "")
	assert.InDelta(t, 1.0, p.Progress(), 0.0001)
}

func TestProgressTracker_UpdateLearnsTotal(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageCatalog, 0)

	p.Update(32, 3000, "page 1")

	stats := p.Stats()
	assert.Equal(t, 3000, stats.Total)
	assert.Equal(t, "page 1", stats.Item)
}

func TestProgressTracker_ErrorsAndWarnings(t *testing.T) {
	p := NewProgressTracker()

	p.AddError(ErrorEvent{Item: "a", Err: errors.New("x")})
	p.AddError(ErrorEvent{Item: "b", Err: errors.New("y"), IsWarn: true})
	p.AddError(ErrorEvent{Item: "c", Err: errors.New("z"), IsWarn: true})

	stats := p.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 2, stats.WarnCount)
	require.Len(t, p.Errors(), 1)
	assert.Equal(t, "a", p.Errors()[0].Item)
	assert.Len(t, p.Warnings(), 2)
}

func TestPipelineModel_ViewShowsStagesAndCounts(t *testing.T) {
	// Given: a model in the download stage
	tracker := NewProgressTracker()
	tracker.SetStage(StageDownload, 10)
	tracker.Update(4, 0, "book 4")
	m := newPipelineModel(tracker, "")
	m.styles = NoColorStyles()

	// When: rendered
	view := m.View()

	// Then: stage names, counts and the current item appear
	assert.Contains(t, view, "gutenindex")
	assert.Contains(t, view, "● Catalog")
	assert.Contains(t, view, "○ Process")
	assert.Contains(t, view, "4 / 10")
	assert.Contains(t, view, "book 4")
	assert.Contains(t, view, "q to quit")
}

func TestPipelineModel_CompleteMessageQuits(t *testing.T) {
	m := newPipelineModel(NewProgressTracker(), "Run")
	m.styles = NoColorStyles()

	_, cmd := m.Update(completeMsg(CompletionStats{
		Title:    "Pipeline complete",
		Counts:   []Count{{Label: "Books", Value: 2}},
		Duration: 3 * time.Second,
		Warnings: 1,
	}))

	require.NotNil(t, cmd)
	assert.True(t, m.complete)
	view := m.View()
	assert.Contains(t, view, "✓ Pipeline complete")
	assert.Contains(t, view, "Books:")
	assert.Contains(t, view, "3s")
	assert.Contains(t, view, "⚠ 1 warnings")
}

func TestPipelineModel_QuitKey(t *testing.T) {
	m := newPipelineModel(NewProgressTracker(), "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m", formatDuration(2*time.Minute))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 30m", formatDuration(90*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...6789", truncate("0123456789", 7))
}
