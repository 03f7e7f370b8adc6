// Package logging builds the zap loggers used across loglens.
//
// Loggers are injected, never global. Components accept an optional
// *zap.Logger, pass it through Default and scope it once at construction:
//
//	func NewComponent(logger *zap.Logger) *Component {
//		logger = logging.Default(logger)
//		return &Component{logger: logger.With(zap.String("component", "name"))}
//	}
//
// The TUI owns the terminal, so in TUI mode logs go to a rotated file.
// Logging is sparse: lifecycle boundaries only, never once per line.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure New.
type Options struct {
	// File is the log file path. Empty disables file output.
	File string
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Stderr also writes logs to standard error. Only safe outside the TUI.
	Stderr bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 14
)

// New returns a logger for opts and a function that flushes and closes its
// outputs. With no output configured it returns a no-op logger.
func New(opts Options) (*zap.Logger, func() error, error) {
	var sinks []zapcore.WriteSyncer
	var closers []io.Closer

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
			MaxAge:     orDefault(opts.MaxAgeDays, defaultMaxAgeDays),
		}
		sinks = append(sinks, zapcore.AddSync(lj))
		closers = append(closers, lj)
	}
	if opts.Stderr {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}
	if len(sinks) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.NewMultiWriteSyncer(sinks...),
		ParseLevel(opts.Level),
	)
	logger := zap.New(core)

	closeFn := func() error {
		_ = logger.Sync()
		var err error
		for _, c := range closers {
			err = multierr.Append(err, c.Close())
		}
		return err
	}
	return logger, closeFn, nil
}

// ParseLevel converts a level name to a zap level. Unknown strings default
// to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Default returns logger if non-nil, otherwise a no-op logger.
func Default(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.NewNop()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
