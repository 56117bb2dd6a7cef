package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *pipelineModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newPipelineModel(tracker, cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var runCtx context.Context
	runCtx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(runCtx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.tracker.Stage() {
		r.tracker.SetStage(event.Stage, event.Total)
	}
	r.tracker.Update(event.Current, event.Total, event.Item)

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddError(event)

	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(StageComplete, 0)

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}

	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		// An unresponsive program must not hang shutdown on Ctrl+C.
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type tickMsg time.Time

// pipelineModel is the bubbletea model for pipeline progress.
type pipelineModel struct {
	tracker     *ProgressTracker
	title       string
	width       int
	quitting    bool
	complete    bool
	stats       CompletionStats
	lastErr     string
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newPipelineModel(tracker *ProgressTracker, title string) *pipelineModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	p := progress.New(
		progress.WithSolidFill(ColorAccent),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	if title == "" {
		title = "gutenindex"
	}

	return &pipelineModel{
		tracker:     tracker,
		title:       title,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
	}
}

// Init implements tea.Model.
func (m *pipelineModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *pipelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-20, 20)

	case progressUpdateMsg:
		// tracker already updated by the renderer
		return m, nil

	case errorMsg:
		if msg.Err != nil && !msg.IsWarn {
			m.lastErr = fmt.Sprintf("%s: %v", msg.Item, msg.Err)
		}
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *pipelineModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	contentWidth := max(m.width-4, 40)
	stats := m.tracker.Stats()

	sections := []string{
		m.renderStages(stats.Stage),
		m.renderDivider(contentWidth),
		m.renderProgress(stats),
		m.renderRate(stats),
	}
	if stats.Item != "" {
		sections = append(sections, m.renderDivider(contentWidth))
		sections = append(sections, m.styles.Dim.Render(truncate(stats.Item, contentWidth-2)))
	}

	panel := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(m.title),
		m.styles.Panel.Width(contentWidth).Render(strings.Join(sections, "\n")),
	)
	return panel + "\n" + m.renderStatusBar(stats, contentWidth) + "\n"
}

var pipelineStages = []Stage{StageCatalog, StageDownload, StageProcess, StageIndexBooks, StageIndexChapters}

func (m *pipelineModel) renderStages(current Stage) string {
	parts := make([]string, 0, len(pipelineStages))
	for _, s := range pipelineStages {
		var icon string
		var style lipgloss.Style

		switch {
		case s < current:
			icon = "●"
			style = m.styles.Success
		case s == current:
			icon = m.spinner.View()
			style = m.styles.Active
		default:
			icon = "○"
			style = m.styles.Dim
		}
		parts = append(parts, style.Render(icon+" "+s.String()))
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *pipelineModel) renderProgress(stats ProgressStats) string {
	if stats.Total == 0 {
		return fmt.Sprintf("%s %s... %s",
			m.spinner.View(),
			stats.Stage.String(),
			m.styles.Label.Render(fmt.Sprintf("%d so far", stats.Current)))
	}

	bar := m.progressBar.ViewAs(stats.Progress)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))
	count := m.styles.Label.Render(fmt.Sprintf("%d / %d", stats.Current, stats.Total))
	return fmt.Sprintf("%s  %s\n%s", bar, pct, count)
}

func (m *pipelineModel) renderRate(stats ProgressStats) string {
	parts := []string{m.styles.Speed.Render(fmt.Sprintf("Rate: %.1f/s", stats.Rate))}
	if stats.ETA > 0 {
		parts = append(parts, m.styles.Label.Render("ETA: "+formatDuration(stats.ETA)))
	}
	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

func (m *pipelineModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

func (m *pipelineModel) renderStatusBar(stats ProgressStats, width int) string {
	var parts []string
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.ErrorCount)))
	}
	if m.lastErr != "" {
		parts = append(parts, m.styles.Dim.Render(truncate(m.lastErr, width/2)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

func (m *pipelineModel) renderComplete() string {
	title := m.stats.Title
	if title == "" {
		title = "Complete"
	}

	lines := []string{m.styles.Success.Render("✓ " + title), ""}

	width := len("Duration")
	for _, c := range m.stats.Counts {
		width = max(width, len(c.Label))
	}
	for _, c := range m.stats.Counts {
		label := m.styles.Label.Render(fmt.Sprintf("%-*s", width+1, c.Label+":"))
		lines = append(lines, label+" "+m.styles.Active.Render(fmt.Sprintf("%d", c.Value)))
	}
	label := m.styles.Label.Render(fmt.Sprintf("%-*s", width+1, "Duration:"))
	lines = append(lines, label+" "+m.styles.Active.Render(formatDuration(m.stats.Duration)))

	if m.stats.Errors > 0 || m.stats.Warnings > 0 {
		lines = append(lines, "")
		if m.stats.Errors > 0 {
			lines = append(lines, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
		}
		if m.stats.Warnings > 0 {
			lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.stats.Warnings)))
		}
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(1, 2).
		Width(max(m.width-4, 40))

	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// truncate shortens s to maxLen runes, keeping the tail.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen < 4 || len(r) <= maxLen {
		return s
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

var _ Renderer = (*TUIRenderer)(nil)
