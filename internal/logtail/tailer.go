package logtail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/five82/loglens/internal/logging"
)

const (
	defaultPollInterval  = 250 * time.Millisecond
	defaultRotateGrace   = 5 * time.Second
	defaultRetryInterval = 2 * time.Second

	// maxLineBytes bounds a single line; longer runs are split.
	maxLineBytes = 1024 * 1024
)

// ErrFileVanished is returned by Run when the followed file disappears and
// does not come back within the rotation grace period.
var ErrFileVanished = errors.New("log file vanished")

// Handler receives tailing callbacks. All callbacks run on the goroutine
// that called Run, in file order. Nil callbacks are skipped.
type Handler struct {
	// OnLine receives each complete line without its line terminator.
	OnLine func(line string)
	// OnRotated fires when the file was truncated or replaced. Reading
	// restarts at the beginning of the new content.
	OnRotated func()
	// OnFileMissing fires when the file does not exist at start, and when
	// it vanished for longer than the grace period.
	OnFileMissing func()
	// OnError receives fatal I/O errors just before Run returns them.
	OnError func(err error)
}

// Options tune a Tailer.
type Options struct {
	// PollInterval is the fallback stat cadence. fsnotify events trigger
	// reads sooner.
	PollInterval time.Duration
	// FromStart reads the whole existing file before following.
	FromStart bool
	// Backlog is the number of existing trailing lines delivered before
	// following. Ignored when FromStart is set.
	Backlog int
	// RotateGrace is how long the path may be missing before the session
	// gives up.
	RotateGrace time.Duration
	// RetryInterval is the base backoff while waiting for a missing file.
	RetryInterval time.Duration
	Logger        *zap.Logger
}

// Tailer follows a single file, tail -F style.
type Tailer struct {
	path   string
	h      Handler
	opts   Options
	logger *zap.Logger

	file    *os.File
	info    os.FileInfo
	offset  int64
	partial []byte

	missingSince time.Time
	now          func() time.Time
}

// New returns a Tailer for path. It does not touch the file until Run.
func New(path string, h Handler, opts Options) *Tailer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.RotateGrace <= 0 {
		opts.RotateGrace = defaultRotateGrace
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	path = filepath.Clean(path)
	logger := logging.Default(opts.Logger).With(
		zap.String("component", "logtail"),
		zap.String("path", path),
	)
	return &Tailer{path: path, h: h, opts: opts, logger: logger, now: time.Now}
}

// Path returns the followed path.
func (t *Tailer) Path() string { return t.path }

// Run follows the file until ctx is cancelled or a fatal error occurs. It
// returns nil on cancellation. The file handle and the watcher are always
// released before Run returns.
func (t *Tailer) Run(ctx context.Context) (err error) {
	watcher, werr := fsnotify.NewWatcher()
	if werr != nil {
		t.logger.Warn("fsnotify unavailable, polling only", zap.Error(werr))
		watcher = nil
	} else if aerr := watcher.Add(filepath.Dir(t.path)); aerr != nil {
		t.logger.Warn("failed to watch directory", zap.Error(aerr))
	}

	defer func() {
		var cerr error
		if t.file != nil {
			cerr = multierr.Append(cerr, t.file.Close())
			t.file = nil
		}
		if watcher != nil {
			cerr = multierr.Append(cerr, watcher.Close())
		}
		if cerr != nil {
			t.logger.Warn("close failed", zap.Error(cerr))
		}
		if err != nil && !errors.Is(err, ErrFileVanished) && t.h.OnError != nil {
			t.h.OnError(err)
		}
	}()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	waited, err := t.waitForFile(ctx, events)
	if err != nil || ctx.Err() != nil {
		return err
	}
	if err := t.prime(waited); err != nil {
		return err
	}
	t.logger.Debug("following", zap.Int64("offset", t.offset))

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != t.path {
				continue
			}
			if err := t.check(); err != nil {
				return err
			}
		case werr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.logger.Warn("fsnotify error", zap.Error(werr))
		case <-ticker.C:
			if err := t.check(); err != nil {
				return err
			}
		}
	}
}

// waitForFile opens the file, waiting with backoff while it does not exist.
// It reports whether it had to wait.
func (t *Tailer) waitForFile(ctx context.Context, events <-chan fsnotify.Event) (bool, error) {
	failures := 0
	for {
		err := t.open()
		if err == nil {
			return failures > 0, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
		if failures == 0 {
			t.logger.Info("file missing, waiting for it to appear")
			if t.h.OnFileMissing != nil {
				t.h.OnFileMissing()
			}
		}

		timer := time.NewTimer(calculateBackoff(failures, t.opts.RetryInterval))
		failures++
	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return false, nil
			case <-timer.C:
				break wait
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Clean(ev.Name) == t.path && ev.Has(fsnotify.Create) {
					timer.Stop()
					break wait
				}
			}
		}
	}
}

func (t *Tailer) open() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	if t.file != nil {
		_ = t.file.Close()
	}
	t.file = f
	t.info = info
	t.offset = 0
	t.partial = nil
	return nil
}

// prime positions the reader and delivers any requested existing content.
func (t *Tailer) prime(waited bool) error {
	size := t.info.Size()
	switch {
	case t.opts.FromStart || waited:
		return t.consume(size, t.h.OnLine)
	case t.opts.Backlog > 0:
		r := newRing(t.opts.Backlog)
		if err := t.consume(size, r.push); err != nil {
			return err
		}
		if t.h.OnLine != nil {
			for _, line := range r.lines() {
				t.h.OnLine(line)
			}
		}
		return nil
	default:
		t.offset = size
		return nil
	}
}

// consume reads [offset, size) and delivers complete lines to emit.
func (t *Tailer) consume(size int64, emit func(string)) error {
	if size <= t.offset {
		return nil
	}
	if emit == nil {
		emit = func(string) {}
	}
	section := io.NewSectionReader(t.file, t.offset, size-t.offset)
	rest, n, err := readLines(section, t.partial, emit)
	t.partial = rest
	t.offset += n
	if err != nil {
		return fmt.Errorf("read %s: %w", t.path, err)
	}
	return nil
}

// check stats the path and reacts to growth, truncation, replacement or
// disappearance.
func (t *Tailer) check() error {
	info, err := os.Stat(t.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", t.path, err)
		}
		return t.missing()
	}
	if !t.missingSince.IsZero() {
		t.logger.Info("file reappeared")
		t.missingSince = time.Time{}
	}

	if !os.SameFile(info, t.info) {
		// Finish the old handle before switching; anything written to it
		// after the rename still belongs to the old file.
		if cur, serr := t.file.Stat(); serr == nil {
			if err := t.consume(cur.Size(), t.h.OnLine); err != nil {
				return err
			}
		}
		t.logger.Info("file replaced, reopening")
		if err := t.open(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return t.missing()
			}
			return err
		}
		t.rotated()
		return t.consume(t.info.Size(), t.h.OnLine)
	}

	t.info = info
	if info.Size() < t.offset {
		t.logger.Info("truncation detected, resetting")
		t.offset = 0
		t.partial = nil
		t.rotated()
	}
	return t.consume(info.Size(), t.h.OnLine)
}

func (t *Tailer) rotated() {
	if t.h.OnRotated != nil {
		t.h.OnRotated()
	}
}

// missing handles a path that no longer exists. Data still reachable
// through the open handle is delivered; after the grace period the
// session fails.
func (t *Tailer) missing() error {
	now := t.now()
	if t.missingSince.IsZero() {
		t.missingSince = now
		t.logger.Info("file disappeared, waiting for replacement",
			zap.Duration("grace", t.opts.RotateGrace))
	}
	if cur, err := t.file.Stat(); err == nil {
		if err := t.consume(cur.Size(), t.h.OnLine); err != nil {
			return err
		}
	}
	if now.Sub(t.missingSince) < t.opts.RotateGrace {
		return nil
	}
	t.logger.Warn("file did not come back")
	if t.h.OnFileMissing != nil {
		t.h.OnFileMissing()
	}
	return fmt.Errorf("%s: %w", t.path, ErrFileVanished)
}

// maxBackoff caps the wait between attempts to open a missing file.
const maxBackoff = 30 * time.Second

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return min(base, maxBackoff)
	}
	if failures >= 31 {
		return maxBackoff
	}
	d := base << failures
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
