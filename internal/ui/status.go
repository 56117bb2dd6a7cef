package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo summarizes the artifacts under a data directory.
type StatusInfo struct {
	DataDir string `json:"data_dir"`

	CatalogEntries  int       `json:"catalog_entries"`
	CatalogUpdated  time.Time `json:"catalog_updated,omitempty"`
	RawTexts        int       `json:"raw_texts"`
	FailedDownloads int       `json:"failed_downloads"`
	ProcessedBooks  int       `json:"processed_books"`
	TotalChapters   int       `json:"total_chapters"`
	TotalWords      int       `json:"total_words"`
	IndexUpdated    time.Time `json:"index_updated,omitempty"`

	// Storage sizes (in bytes)
	RawSize       int64 `json:"raw_size"`
	ProcessedSize int64 `json:"processed_size"`
	SearchSize    int64 `json:"search_size"`
	TotalSize     int64 `json:"total_size"`

	SearchBackend string `json:"search_backend"`
	SearchStatus  string `json:"search_status"` // "ready", "offline", "error", "n/a"
}

// StatusRenderer displays corpus status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus Status: "+info.DataDir))

	_, _ = fmt.Fprintf(r.out, "  Catalog entries:  %d\n", info.CatalogEntries)
	if !info.CatalogUpdated.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Catalog updated:  %s\n", formatTime(info.CatalogUpdated))
	}
	_, _ = fmt.Fprintf(r.out, "  Raw texts:        %d\n", info.RawTexts)
	if info.FailedDownloads > 0 {
		_, _ = fmt.Fprintf(r.out, "  Failed downloads: %s\n", r.styles.Warning.Render(fmt.Sprintf("%d", info.FailedDownloads)))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Failed downloads: 0\n")
	}
	_, _ = fmt.Fprintf(r.out, "  Processed books:  %d\n", info.ProcessedBooks)
	_, _ = fmt.Fprintf(r.out, "  Chapters:         %d\n", info.TotalChapters)
	_, _ = fmt.Fprintf(r.out, "  Words:            %d\n", info.TotalWords)
	if !info.IndexUpdated.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last processed:   %s\n", formatTime(info.IndexUpdated))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Raw texts:  %s\n", FormatBytes(info.RawSize))
	_, _ = fmt.Fprintf(r.out, "    Processed:  %s\n", FormatBytes(info.ProcessedSize))
	if info.SearchSize > 0 {
		_, _ = fmt.Fprintf(r.out, "    Search:     %s\n", FormatBytes(info.SearchSize))
	}
	_, _ = fmt.Fprintf(r.out, "    Total:      %s\n", FormatBytes(info.TotalSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Search:")
	_, _ = fmt.Fprintf(r.out, "    Backend: %s\n", info.SearchBackend)
	_, _ = fmt.Fprintf(r.out, "    Status:  %s\n", r.renderStatus(info.SearchStatus))

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// renderStatus formats a status string with color.
func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
