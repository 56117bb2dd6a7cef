// Package ui provides terminal progress and status display for pipeline stages.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a pipeline stage.
type Stage int

const (
	// StageCatalog is catalog pagination.
	StageCatalog Stage = iota
	// StageDownload is raw-text retrieval.
	StageDownload
	// StageProcess is boilerplate stripping and segmentation.
	StageProcess
	// StageIndexBooks is the book collection import.
	StageIndexBooks
	// StageIndexChapters is the chapter collection import.
	StageIndexChapters
	// StageComplete indicates the command finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageCatalog:
		return "Catalog"
	case StageDownload:
		return "Download"
	case StageProcess:
		return "Process"
	case StageIndexBooks:
		return "Index books"
	case StageIndexChapters:
		return "Index chapters"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage label for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageCatalog:
		return "CATALOG"
	case StageDownload:
		return "DOWNLOAD"
	case StageProcess:
		return "PROCESS"
	case StageIndexBooks:
		return "BOOKS"
	case StageIndexChapters:
		return "CHAPTERS"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int // 0 when unknown
	Item    string
	Message string
}

// ErrorEvent represents a per-item failure or warning.
type ErrorEvent struct {
	Item   string
	Err    error
	IsWarn bool
}

// Count is one labeled number in a completion summary.
type Count struct {
	Label string
	Value int
}

// CompletionStats is the final summary of a command.
type CompletionStats struct {
	Title    string
	Counts   []Count
	Duration time.Duration
	Errors   int
	Warnings int
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Title      string // shown in the TUI panel header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithTitle sets the panel title.
func WithTitle(title string) ConfigOption {
	return func(c *Config) {
		c.Title = title
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// renderer for CI, pipes, or --no-tui.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// NopRenderer discards everything. Used by library callers and tests.
type NopRenderer struct{}

func (NopRenderer) Start(context.Context) error { return nil }
func (NopRenderer) UpdateProgress(ProgressEvent) {}
func (NopRenderer) AddError(ErrorEvent) {}
func (NopRenderer) Complete(CompletionStats) {}
func (NopRenderer) Stop() error { return nil }

// OrNop returns r, or a NopRenderer when r is nil.
func OrNop(r Renderer) Renderer {
	if r == nil {
		return NopRenderer{}
	}
	return r
}
