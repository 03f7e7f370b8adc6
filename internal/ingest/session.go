package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/loglens/internal/logging"
	"github.com/five82/loglens/internal/logtail"
)

// Monitor observes session lifecycle. Implementations must be safe for
// concurrent use: Delivered runs on the consumer context, the rest on
// session goroutines.
type Monitor interface {
	Started(id, path string)
	Rotated(id string)
	FileMissing(id string)
	Delivered(id string, lines int)
	Failed(id string, err error)
	Stopped(id string)
}

type nopMonitor struct{}

func (nopMonitor) Started(string, string) {}
func (nopMonitor) Rotated(string)         {}
func (nopMonitor) FileMissing(string)     {}
func (nopMonitor) Delivered(string, int)  {}
func (nopMonitor) Failed(string, error)   {}
func (nopMonitor) Stopped(string)         {}

// Options configure a tailing session.
type Options struct {
	Path           string
	BatchSize      int
	FlushInterval  time.Duration
	SkipEmptyLines bool
	Tail           logtail.Options
	Logger         *zap.Logger
}

// Session tails one file into a Buffer. It owns two goroutines joined by
// an errgroup: the tailer and the flush ticker.
type Session struct {
	id      string
	path    string
	buf     *Buffer
	monitor Monitor
	logger  *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	stopOnce sync.Once
}

// Start begins tailing opts.Path. Lines are parsed by p and delivered to
// sink through d. A nil monitor is allowed.
func Start(ctx context.Context, opts Options, p Parser, sink Sink, d Dispatcher, monitor Monitor) (*Session, error) {
	if opts.Path == "" {
		return nil, errors.New("ingest: path is required")
	}
	if p == nil || sink == nil || d == nil {
		return nil, errors.New("ingest: parser, sink and dispatcher are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if monitor == nil {
		monitor = nopMonitor{}
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		path:    opts.Path,
		monitor: monitor,
		done:    make(chan struct{}),
		logger: logging.Default(opts.Logger).With(
			zap.String("component", "ingest"),
			zap.String("session", id),
			zap.String("path", opts.Path),
		),
	}

	s.buf = NewBuffer(p, sink, d)
	s.buf.SetLogger(s.logger)
	s.buf.SetBatchSize(opts.BatchSize)
	s.buf.SetFlushInterval(opts.FlushInterval)
	s.buf.SetSkipEmptyLines(opts.SkipEmptyLines)
	s.buf.OnDelivered(func(n int) { monitor.Delivered(id, n) })
	s.buf.Init()

	tailOpts := opts.Tail
	if tailOpts.Logger == nil {
		tailOpts.Logger = opts.Logger
	}
	tailer := logtail.New(opts.Path, logtail.Handler{
		OnLine:        s.buf.Handle,
		OnRotated:     s.rotated,
		OnFileMissing: func() { monitor.FileMissing(id) },
	}, tailOpts)

	monitor.Started(id, opts.Path)
	s.logger.Info("session started")

	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return tailer.Run(gctx)
	})
	g.Go(func() error {
		s.tick(gctx)
		return nil
	})

	go func() {
		err := g.Wait()
		cancel()
		s.buf.Stop()
		if err != nil {
			s.err = err
			s.logger.Error("session failed", zap.Error(err))
			monitor.Failed(id, err)
		} else {
			s.logger.Info("session stopped")
			monitor.Stopped(id)
		}
		close(s.done)
	}()
	return s, nil
}

func (s *Session) tick(ctx context.Context) {
	every := s.buf.FlushInterval() / 2
	if every < 5*time.Millisecond {
		every = 5 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.buf.Tick()
		}
	}
}

func (s *Session) rotated() {
	s.logger.Info("file rotated, discarding pending records")
	s.buf.FileRotated()
	s.monitor.Rotated(s.id)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Path returns the tailed path.
func (s *Session) Path() string { return s.path }

// Buffer exposes the session's ingestion buffer.
func (s *Session) Buffer() *Buffer { return s.buf }

// Stop ends the session. The buffer stops first so nothing read after this
// call is delivered; then the tailer is cancelled and releases its file.
// Stop waits for both goroutines to exit.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.buf.Stop()
		s.cancel()
	})
	<-s.done
}

// Done is closed once the session has fully ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns its fatal error, if any.
// A session ended by Stop or context cancellation returns nil.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}
