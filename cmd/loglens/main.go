// Command loglens tails a log file and shows it as colored columns.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/five82/loglens/internal/app"
	"github.com/five82/loglens/internal/config"
	"github.com/five82/loglens/internal/ingest"
	"github.com/five82/loglens/internal/logging"
	"github.com/five82/loglens/internal/logtail"
	"github.com/five82/loglens/internal/ui"
)

var version = "dev"

const defaultLogFile = "~/.local/state/loglens/loglens.log"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "loglens: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "loglens [file|glob]",
		Short:         "Tail a log file as colored columns",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.config/loglens/config.toml)")
	rootCmd.PersistentFlags().String("log-file", "", "write loglens' own log here (default "+defaultLogFile+")")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	flags := rootCmd.Flags()
	flags.String("prefs", "", "preferences file (default ~/.config/loglens/prefs.toml)")
	flags.String("theme", "", "color theme: "+fmt.Sprint(ui.ThemeNames()))
	flags.Bool("plain", false, "print records to stdout instead of running the interface")
	flags.Bool("from-start", false, "read the whole file instead of the last lines")
	flags.Int("batch-size", 0, "lines per delivered batch (default from config)")
	flags.Duration("flush-interval", 0, "longest a partial batch waits (default from config)")
	flags.Int("max-records", 0, "records kept in memory, 0 for unbounded (default from config)")

	parseCmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the last lines of a file through the configured columns",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	parseCmd.Flags().Int("lines", 50, "lines to read from the end of the file, 0 for all")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(parseCmd, checkCmd, versionCmd)
	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	prefsPath, _ := flags.GetString("prefs")
	theme, _ := flags.GetString("theme")
	plain, _ := flags.GetBool("plain")
	fromStart, _ := flags.GetBool("from-start")
	batchSize, _ := flags.GetInt("batch-size")
	flushInterval, _ := flags.GetDuration("flush-interval")
	var maxRecords *int
	if flags.Changed("max-records") {
		n, _ := flags.GetInt("max-records")
		maxRecords = &n
	}

	logger, closeLog, err := newLogger(cmd, plain)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var reload chan os.Signal
	if plain {
		reload = make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)
		defer signal.Stop(reload)
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}

	logger.Info("loglens starting", zap.String("version", version), zap.String("path", path), zap.Bool("plain", plain))
	err = app.Run(ctx, app.Options{
		Path:       path,
		ConfigPath: configPath,
		PrefsPath:  prefsPath,
		Theme:      theme,
		Plain:      plain,
		Overrides: app.Overrides{
			FromStart:     fromStart,
			BatchSize:     batchSize,
			FlushInterval: flushInterval,
			MaxRecords:    maxRecords,
		},
		Logger: logger,
		Stdout: cmd.OutOrStdout(),
		Reload: reload,
	})
	if err != nil {
		logger.Error("loglens stopped", zap.Error(err))
		return err
	}
	logger.Info("loglens stopped")
	return nil
}

// newLogger logs to a rotated file. In plain mode stdout carries records,
// so logs also go to stderr.
func newLogger(cmd *cobra.Command, plain bool) (*zap.Logger, func() error, error) {
	logFile, _ := cmd.Flags().GetString("log-file")
	level, _ := cmd.Flags().GetString("log-level")
	if logFile == "" {
		logFile = defaultLogFile
	}
	resolved, err := config.ExpandPath(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	return logging.New(logging.Options{
		File:   resolved,
		Level:  level,
		Stderr: plain,
	})
}

func runParse(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	lines, _ := cmd.Flags().GetInt("lines")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	columns, err := cfg.Columnizer()
	if err != nil {
		return err
	}
	colors, err := cfg.Colorizer()
	if err != nil {
		return err
	}

	path, err := logtail.Resolve(args[0])
	if err != nil {
		return err
	}
	raw, err := logtail.Read(path, lines)
	if err != nil {
		return err
	}

	// The buffer runs its flushes inline so parse skips and batches lines
	// exactly as a live session does.
	p := ui.NewPrinter(cmd.OutOrStdout(), columns, colors)
	buf := ingest.NewBuffer(columns, p, ingest.DispatchFunc(func(fn func()) error {
		fn()
		return nil
	}))
	buf.SetBatchSize(cfg.Ingest.BatchSize)
	buf.SetSkipEmptyLines(cfg.Ingest.SkipEmptyLines)
	buf.Init()
	for _, line := range raw {
		buf.Handle(line)
	}
	buf.Flush()
	buf.Stop()
	return p.Err()
}

func runCheck(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	state := "found"
	if _, err := os.Stat(cfg.Path); err != nil {
		state = "missing, using defaults"
	}
	fmt.Fprintf(out, "config:   %s (%s)\n", cfg.Path, state)
	fmt.Fprintf(out, "columns:  %d\n", len(cfg.Columns))
	for _, c := range cfg.Columns {
		fmt.Fprintf(out, "  %-12s %q visible=%t width=%d\n", c.Name, c.Header, c.Visible, c.Width)
	}
	fmt.Fprintf(out, "patterns: %d\n", len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		fmt.Fprintf(out, "  %-12s %s\n", p.Name, p.Expr)
	}
	fmt.Fprintf(out, "rules:    %d\n", len(cfg.Rules))
	for _, r := range cfg.Rules {
		target := "line"
		if r.Field != "" {
			target = r.Field
		}
		fmt.Fprintf(out, "  %-12s %s ~ %s\n", r.Name, target, r.Pattern)
	}
	in := cfg.Ingest
	fmt.Fprintf(out, "ingest:   batch=%d flush=%s max_records=%d backlog=%d poll=%s\n",
		in.BatchSize, in.FlushInterval, in.MaxRecords, in.Backlog, in.PollInterval.Round(time.Millisecond))
	fmt.Fprintf(out, "ok: %s\n", filepath.Base(cfg.Path))
	return nil
}
