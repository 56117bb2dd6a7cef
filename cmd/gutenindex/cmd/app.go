package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gutenindex/internal/config"
	"github.com/Aman-CERP/gutenindex/internal/corpus"
	gerrors "github.com/Aman-CERP/gutenindex/internal/errors"
	"github.com/Aman-CERP/gutenindex/internal/logging"
	"github.com/Aman-CERP/gutenindex/internal/search"
	"github.com/Aman-CERP/gutenindex/internal/ui"
)

// app is the per-invocation state: merged config, logger and data store.
type app struct {
	cfg    *config.Config
	flags  *globalFlags
	logger *slog.Logger
	store  *corpus.Store
	runID  string

	closeLog func()
}

// loadConfig merges defaults, user and project config, environment, and
// the --data-dir flag.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	dir := flags.configDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, gerrors.New(gerrors.ErrCodeConfigInvalid, "failed to load configuration", err).
			WithSuggestion("check your config with `gutenindex config show`")
	}
	if flags.dataDir != "" {
		abs, err := filepath.Abs(flags.dataDir)
		if err != nil {
			return nil, err
		}
		cfg.DataDir = abs
	}
	return cfg, nil
}

// newApp loads configuration and starts file logging tagged with a run id.
func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig(cfg.DataDir)
	logCfg.Level = cfg.Log.Level
	if flags.debug {
		logCfg = logging.DebugConfig(cfg.DataDir)
	}
	logCfg.MaxSizeMB = cfg.Log.MaxSizeMB
	logCfg.MaxFiles = cfg.Log.MaxFiles
	logCfg.Stderr = cmd.ErrOrStderr()

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, gerrors.New(gerrors.ErrCodeWriteFailed, "failed to set up logging", err)
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID, "command", cmd.CommandPath())
	slog.SetDefault(logger)
	logger.Debug("command_started", "data_dir", cfg.DataDir, "backend", cfg.Search.Backend)

	return &app{
		cfg:      cfg,
		flags:    flags,
		logger:   logger,
		store:    corpus.NewStore(cfg.DataDir),
		runID:    runID,
		closeLog: cleanup,
	}, nil
}

// Close flushes the log file.
func (a *app) Close() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

// lock takes the data-directory lock; callers defer the returned release.
func (a *app) lock() (func(), error) {
	l := corpus.NewDataLock(a.cfg.DataDir)
	if err := l.Acquire(); err != nil {
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			a.logger.Warn("lock_release_failed", "error", err)
		}
	}, nil
}

// renderer builds the progress renderer for a pipeline command.
func (a *app) renderer(cmd *cobra.Command, title string) ui.Renderer {
	cfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(a.flags.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithTitle(title))
	return ui.NewRenderer(cfg)
}

// openEngine opens the configured search backend.
func (a *app) openEngine() (search.Engine, error) {
	ts := a.cfg.Search.Typesense
	engine, err := search.Open(search.Options{
		Backend: a.cfg.Search.Backend,
		Dir:     a.store.Layout().SearchDir(),
		Typesense: search.TypesenseOptions{
			Host:     ts.Host,
			Port:     ts.Port,
			Protocol: ts.Protocol,
			APIKey:   ts.APIKey,
			Timeout:  config.MustDuration(ts.Timeout),
		},
		Logger: a.logger,
	})
	if err != nil {
		return nil, gerrors.New(gerrors.ErrCodeConfigInvalid, fmt.Sprintf("cannot open %s search backend", a.cfg.Search.Backend), err)
	}
	return engine, nil
}

// requireCredentials reports a missing search API key as a config error.
func (a *app) requireCredentials() error {
	if err := a.cfg.RequireSearchCredentials(); err != nil {
		return gerrors.New(gerrors.ErrCodeConfigInvalid, err.Error(), nil).
			WithSuggestion("export TYPESENSE_API_KEY, or set search.backend to bleve or sqlite")
	}
	return nil
}
