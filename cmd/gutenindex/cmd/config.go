package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gutenindex/configs"
	"github.com/Aman-CERP/gutenindex/internal/config"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/output"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
		Long: `Configuration is merged from, in order:

  1. Built-in defaults
  2. User config (~/.config/gutenindex/config.yaml)
  3. Project config (.gutenindex.yaml in --config-dir or the current directory)
  4. Environment variables (GUTENINDEX_*, TYPESENSE_*)
  5. Command-line flags`,
	}

	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigPathCmd(flags))
	return cmd
}

func newConfigShowCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if jsonOutput {
				redacted := *cfg
				if redacted.Search.Typesense.APIKey != "" {
					redacted.Search.Typesense.APIKey = "********"
				}
				return writeJSON(cmd.OutOrStdout(), &redacted)
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented user config file",
		Long: `Write the example configuration to ~/.config/gutenindex/config.yaml
(or $XDG_CONFIG_HOME/gutenindex/config.yaml). An existing file is kept unless
--force is given, in which case it is backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			path := config.GetUserConfigPath()

			if config.UserConfigExists() {
				if !force {
					out.Warningf("Config already exists at %s", path)
					out.Status("", "Use --force to overwrite it (a backup is kept)")
					return nil
				}
				backup, err := config.BackupFile(path)
				if err != nil {
					return gerrors.New(gerrors.ErrCodeWriteFailed, "failed to back up existing config", err)
				}
				out.Statusf("", "Backed up previous config to %s", backup)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return gerrors.New(gerrors.ErrCodeConfigPermission, "cannot create config directory", err)
			}
			if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
				return gerrors.New(gerrors.ErrCodeConfigPermission, "cannot write config file", err)
			}
			out.Successf("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config (after backing it up)")
	return cmd
}

func newConfigPathCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := flags.configDir
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			project := config.ProjectConfigPath(dir)
			if project == "" {
				project = filepath.Join(dir, ".gutenindex.yaml")
			}
			out := output.New(cmd.OutOrStdout())
			out.KV(
				"User", existence(config.GetUserConfigPath()),
				"Project", existence(project),
			)
			return nil
		},
	}
}

func existence(path string) string {
	if _, err := os.Stat(path); err != nil {
		return fmt.Sprintf("%s (not found)", path)
	}
	return path
}
