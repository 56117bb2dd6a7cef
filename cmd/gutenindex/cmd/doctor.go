package cmd

import (
	"context"

	"github.com/spf13/cobra"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/preflight"
)

func newDoctorCmd(flags *globalFlags) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the pipeline can run here",
		Long: `Run system diagnostics before a long pipeline run.

Checks:
  - Data directory exists and is writable
  - Free disk space for catalog.target books
  - Open-file limit for retriever.workers
  - Catalog endpoint is reachable (skipped with --offline)
  - Search backend credentials and health

Only the first three are critical; the rest are warnings because the local
stages still work without them.`,
		Example: `  gutenindex doctor
  gutenindex doctor --offline --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			target := preflight.Target{
				DataDir:       a.cfg.DataDir,
				ExpectedBooks: a.cfg.Catalog.Target,
				Workers:       a.cfg.Retriever.Workers,
				CatalogURL:    a.cfg.Catalog.BaseURL,
				Backend:       a.cfg.Search.Backend,
				Credentials:   a.cfg.RequireSearchCredentials(),
			}
			if target.Credentials == nil {
				engine, err := a.openEngine()
				if err != nil {
					a.logger.Warn("doctor_engine_open_failed", "error", err)
					target.Health = func(context.Context) error { return err }
				} else {
					defer func() { _ = engine.Close() }()
					target.Health = engine.Health
				}
			}

			checker := preflight.New(
				preflight.WithOffline(offline),
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(cmd.Context(), target)
			for _, r := range results {
				a.logger.Debug("preflight_check", "name", r.Name, "status", r.Status.String(), "message", r.Message)
			}

			if jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return gerrors.New(gerrors.ErrCodeInternal, "system check failed", nil).
					WithSuggestion("fix the FAIL items above and run `gutenindex doctor` again")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the catalog network check")

	return cmd
}
