package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gutenindex/internal/ui"
)

const statusHealthTimeout = 3 * time.Second

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the pipeline has produced",
		Long: `Summarize the data directory: catalog size, downloaded and failed texts,
processed books and chapters, disk usage, and whether the search backend is
reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.store.Stats()
			if err != nil {
				return err
			}

			info := ui.StatusInfo{
				DataDir:         a.cfg.DataDir,
				CatalogEntries:  stats.CatalogEntries,
				CatalogUpdated:  stats.CatalogUpdated,
				RawTexts:        stats.RawTexts,
				FailedDownloads: stats.FailedDownloads,
				ProcessedBooks:  stats.ProcessedBooks,
				TotalChapters:   stats.TotalChapters,
				TotalWords:      stats.TotalWords,
				IndexUpdated:    stats.IndexUpdated,
				RawSize:         stats.RawSize,
				ProcessedSize:   stats.ProcessedSize,
				SearchSize:      stats.SearchSize,
				TotalSize:       stats.TotalSize(),
				SearchBackend:   a.cfg.Search.Backend,
				SearchStatus:    searchStatus(cmd.Context(), a),
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// searchStatus checks the backend without failing the command.
func searchStatus(ctx context.Context, a *app) string {
	if a.cfg.RequireSearchCredentials() != nil {
		return "n/a"
	}
	engine, err := a.openEngine()
	if err != nil {
		a.logger.Warn("status_engine_open_failed", "error", err)
		return "error"
	}
	defer func() { _ = engine.Close() }()

	ctx, cancel := context.WithTimeout(ctx, statusHealthTimeout)
	defer cancel()
	if err := engine.Health(ctx); err != nil {
		a.logger.Debug("status_engine_unhealthy", "error", err)
		return "offline"
	}
	return "ready"
}
