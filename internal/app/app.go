package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/loglens/internal/config"
	"github.com/five82/loglens/internal/ingest"
	"github.com/five82/loglens/internal/logging"
	"github.com/five82/loglens/internal/prefs"
	"github.com/five82/loglens/internal/state"
	"github.com/five82/loglens/internal/ui"
)

// Options configure the loglens application.
type Options struct {
	// Path is the file or glob to tail. Empty reopens the last file.
	Path       string
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/loglens/prefs.toml
	Theme      string // overrides the saved theme
	Plain      bool   // print rows to Stdout instead of running the TUI
	Overrides  Overrides
	Logger     *zap.Logger
	Stdout     io.Writer
	// Reload, in plain mode, triggers a config reload per receive.
	Reload <-chan os.Signal
}

// Run boots loglens until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	logger := logging.Default(opts.Logger)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("prefs unavailable, using defaults", zap.Error(err))
	}

	pattern := strings.TrimSpace(opts.Path)
	if pattern == "" {
		pattern = userPrefs.LastFile
	}
	if pattern == "" {
		return errors.New("no log file given and none remembered")
	}

	columns, err := cfg.Columnizer()
	if err != nil {
		return err
	}
	colors, err := cfg.Colorizer()
	if err != nil {
		return err
	}

	store := &state.Store{}
	deps := Deps{
		Config:    cfg,
		Overrides: opts.Overrides,
		Columns:   columns,
		Colors:    colors,
		Store:     store,
		Logger:    logger,
	}

	if opts.Plain {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		deps.Sink = ui.NewPrinter(out, columns, colors)
		ctrl := NewController(ctx, pattern, deps)
		return runPlain(ctx, ctrl, opts.Reload, logger)
	}

	deps.Records = ingest.NewRecordList(cfg.Ingest.MaxRecords)
	ctrl := NewController(ctx, pattern, deps)
	defer ctrl.Stop()

	if opts.Theme != "" {
		userPrefs.Theme = opts.Theme
	}

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: ctrl,
		Store:      store,
		Records:    deps.Records,
		Columns:    columns,
		Colors:     colors,
		Prefs:      userPrefs,
		PrefsPath:  opts.PrefsPath,
		Logger:     logger,
	})
}
