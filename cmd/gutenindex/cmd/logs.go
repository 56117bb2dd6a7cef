package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/logging"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

func newLogsCmd(flags *globalFlags) *cobra.Command {
	var (
		lines   int
		level   string
		stage   string
		runID   string
		pattern string
		file    string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the pipeline log",
		Long: `Print the tail of <data_dir>/logs/gutenindex.log, filtered by level, stage,
run id, or a regular expression.`,
		Example: `  gutenindex logs -n 200 --level warn
  gutenindex logs --stage download --grep "attempt"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Config only: creating a logger here would write to the file being viewed.
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			path, err := logging.FindLogFile(file, cfg.DataDir)
			if err != nil {
				return gerrors.New(gerrors.ErrCodeFileNotFound, err.Error(), nil)
			}

			var re *regexp.Regexp
			if pattern != "" {
				re, err = regexp.Compile(pattern)
				if err != nil {
					return gerrors.New(gerrors.ErrCodeInvalidInput, fmt.Sprintf("invalid --grep pattern %q", pattern), err)
				}
			}

			viewer := logging.NewViewer(logging.ViewerConfig{
				Level:   level,
				Pattern: re,
				Stage:   stage,
				RunID:   runID,
				NoColor: noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
			}, cmd.OutOrStdout())

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return gerrors.New(gerrors.ErrCodeFileNotFound, "cannot read log file", err)
			}
			viewer.Print(entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&stage, "stage", "", "Only entries from a stage: catalog, download, process, index")
	cmd.Flags().StringVar(&runID, "run", "", "Only entries from one run id")
	cmd.Flags().StringVar(&pattern, "grep", "", "Only lines matching a regular expression")
	cmd.Flags().StringVar(&file, "file", "", "Read this log file instead of the data directory's")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
