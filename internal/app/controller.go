package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/loglens/internal/colorize"
	"github.com/five82/loglens/internal/columnize"
	"github.com/five82/loglens/internal/config"
	"github.com/five82/loglens/internal/ingest"
	"github.com/five82/loglens/internal/logging"
	"github.com/five82/loglens/internal/logtail"
	"github.com/five82/loglens/internal/state"
)

// ErrNotStarted is returned by Open before Start has supplied a dispatcher.
var ErrNotStarted = errors.New("controller not started")

// Overrides are command-line values that win over the config file. Zero
// values leave the config alone.
type Overrides struct {
	FromStart     bool
	BatchSize     int
	FlushInterval time.Duration
	// MaxRecords is nil when unset; 0 means unbounded.
	MaxRecords *int
}

func (o Overrides) apply(in *config.Ingest) {
	if o.FromStart {
		in.FromStart = true
	}
	if o.BatchSize > 0 {
		in.BatchSize = o.BatchSize
	}
	if o.FlushInterval > 0 {
		in.FlushInterval = o.FlushInterval
	}
	if o.MaxRecords != nil {
		in.MaxRecords = max(0, *o.MaxRecords)
	}
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Config    config.Config
	Overrides Overrides
	Columns   *columnize.Columnizer
	Colors    *colorize.Colorizer
	// Sink receives parsed batches. When nil, Records is used.
	Sink ingest.Sink
	// Records is cleared on every open and follows max_records on reload.
	Records *ingest.RecordList
	Store   *state.Store
	Logger  *zap.Logger
}

// Controller owns the tailing session. Every method except Path and Config
// must be called from the consumer context, which is also where the sink
// runs.
type Controller struct {
	ctx     context.Context
	deps    Deps
	cfg     config.Config
	logger  *zap.Logger
	sink    ingest.Sink
	monitor ingest.Monitor

	dispatch ingest.Dispatcher
	pattern  string
	path     string
	session  *ingest.Session
}

// NewController prepares a controller for pattern, a path or glob. Nothing
// is opened until Start.
func NewController(ctx context.Context, pattern string, deps Deps) *Controller {
	sink := deps.Sink
	if sink == nil && deps.Records != nil {
		sink = deps.Records
	}
	var monitor ingest.Monitor
	if deps.Store != nil {
		monitor = deps.Store
	}
	deps.Overrides.apply(&deps.Config.Ingest)
	if deps.Records != nil {
		deps.Records.SetMaxRetained(deps.Config.Ingest.MaxRecords)
	}
	return &Controller{
		ctx:     ctx,
		deps:    deps,
		cfg:     deps.Config,
		logger:  logging.Default(deps.Logger).With(zap.String("component", "controller")),
		sink:    sink,
		monitor: monitor,
		pattern: pattern,
	}
}

// Start records the dispatcher that marshals batches onto the consumer
// context and opens the initial file.
func (c *Controller) Start(d ingest.Dispatcher) error {
	c.dispatch = d
	return c.Open(c.pattern)
}

// Open stops the current session and starts tailing pattern. A glob is
// resolved to its newest match.
func (c *Controller) Open(pattern string) error {
	if c.dispatch == nil {
		return ErrNotStarted
	}
	if c.sink == nil {
		return errors.New("controller has no sink")
	}
	path, err := logtail.Resolve(pattern)
	if err != nil {
		return fmt.Errorf("open %s: %w", pattern, err)
	}

	c.Stop()
	if c.deps.Records != nil {
		c.deps.Records.Clear()
	}

	sess, err := ingest.Start(c.ctx, c.sessionOptions(path), c.deps.Columns, c.sink, c.dispatch, c.monitor)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	c.session = sess
	c.pattern = pattern
	c.path = path
	c.logger.Info("opened log", zap.String("path", path), zap.String("session", sess.ID()))
	return nil
}

func (c *Controller) sessionOptions(path string) ingest.Options {
	in := c.cfg.Ingest
	return ingest.Options{
		Path:           path,
		BatchSize:      in.BatchSize,
		FlushInterval:  in.FlushInterval,
		SkipEmptyLines: in.SkipEmptyLines,
		Tail: logtail.Options{
			PollInterval: in.PollInterval,
			FromStart:    in.FromStart,
			Backlog:      in.Backlog,
		},
		Logger: c.deps.Logger,
	}
}

// Restart reopens the current pattern, picking up a newer glob match.
func (c *Controller) Restart() error {
	if c.pattern == "" {
		return errors.New("no file open")
	}
	return c.Open(c.pattern)
}

// Stop ends the current session, if any.
func (c *Controller) Stop() {
	if c.session == nil {
		return
	}
	c.session.Stop()
	c.session = nil
}

// Reload re-reads the config file and pushes it into the live columnizer
// and colorizer. Batching settings apply to the running session; tailing
// settings apply from the next Open. A config that fails to load changes
// nothing.
func (c *Controller) Reload() error {
	cfg, err := config.Load(c.cfg.Path)
	if err != nil {
		c.logger.Warn("config reload failed", zap.Error(err))
		return err
	}
	c.deps.Overrides.apply(&cfg.Ingest)

	patterns, err := cfg.CompiledPatterns()
	if err != nil {
		return err
	}
	if c.deps.Columns != nil {
		if err := c.deps.Columns.Replace(cfg.Columns, patterns); err != nil {
			return fmt.Errorf("reload columns: %w", err)
		}
	}
	if c.deps.Colors != nil {
		if err := c.deps.Colors.Apply(cfg.Rules, cfg.DefaultStyle); err != nil {
			return fmt.Errorf("reload rules: %w", err)
		}
	}
	if c.deps.Records != nil {
		c.deps.Records.SetMaxRetained(cfg.Ingest.MaxRecords)
	}
	if c.session != nil {
		buf := c.session.Buffer()
		buf.SetBatchSize(cfg.Ingest.BatchSize)
		buf.SetFlushInterval(cfg.Ingest.FlushInterval)
		buf.SetSkipEmptyLines(cfg.Ingest.SkipEmptyLines)
	}

	c.cfg = cfg
	c.logger.Info("config reloaded",
		zap.String("config", cfg.Path),
		zap.Int("rules", len(cfg.Rules)),
		zap.Int("patterns", len(cfg.Patterns)),
	)
	return nil
}

// Path returns the resolved file being tailed.
func (c *Controller) Path() string { return c.path }

// Config returns the active configuration.
func (c *Controller) Config() config.Config { return c.cfg }

// Session returns the running session, or nil.
func (c *Controller) Session() *ingest.Session { return c.session }
