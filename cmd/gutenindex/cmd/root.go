// Package cmd provides the CLI commands for gutenindex.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/profiling"
	"github.com/Aman-CERP/gutenindex/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	dataDir   string
	configDir string
	debug     bool
	noTUI     bool

	profile profiling.Options
}

// NewRootCmd creates the root command for the gutenindex CLI.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "gutenindex",
		Short: "Build a chapter-level search index of Project Gutenberg books",
		Long: `gutenindex fetches the Gutendex catalog, downloads plain-text books,
splits them into chapters, and loads books and chapters into a search engine.

Each stage reads the previous stage's files from the data directory and can be
re-run on its own:

  gutenindex catalog    fetch catalog.json
  gutenindex download   fetch raw-texts/<id>.txt
  gutenindex process    write processed/<slug>.json and book-index.json
  gutenindex index      load the books and chapters collections

or all at once with 'gutenindex run'.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("gutenindex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Data directory (overrides data_dir from config)")
	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "Directory holding .gutenindex.yaml (default: current directory)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging to the log file and stderr")
	cmd.PersistentFlags().BoolVar(&flags.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")

	cmd.PersistentFlags().StringVar(&flags.profile.CPUPath, "cpuprofile", "", "Write a CPU profile of pipeline stages to this file")
	cmd.PersistentFlags().StringVar(&flags.profile.HeapPath, "memprofile", "", "Write a heap profile after pipeline stages to this file")
	cmd.PersistentFlags().StringVar(&flags.profile.TracePath, "trace", "", "Write an execution trace of pipeline stages to this file")
	for _, name := range []string{"cpuprofile", "memprofile", "trace"} {
		_ = cmd.PersistentFlags().MarkHidden(name)
	}

	cmd.AddCommand(newCatalogCmd(flags))
	cmd.AddCommand(newDownloadCmd(flags))
	cmd.AddCommand(newProcessCmd(flags))
	cmd.AddCommand(newIndexCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newBooksCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newDoctorCmd(flags))
	cmd.AddCommand(newLogsCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Exit codes.
const (
	ExitFailure = 1
	// ExitFatal reports an aborted run: unreachable service, corrupt
	// artifact, held lock, full disk.
	ExitFatal = 2
)

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context; errors are printed with their hint and code, plus cause and
// details under --debug.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		debug, _ := root.PersistentFlags().GetBool("debug")
		fmt.Fprint(os.Stderr, gerrors.FormatForCLI(err, debug))
	}
	return err
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case gerrors.IsFatal(err):
		return ExitFatal
	default:
		return ExitFailure
	}
}
