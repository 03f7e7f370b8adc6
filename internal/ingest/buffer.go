package ingest

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/five82/loglens/internal/columnize"
	"github.com/five82/loglens/internal/logging"
)

const (
	DefaultBatchSize     = 200
	DefaultFlushInterval = 100 * time.Millisecond
)

// Parser turns a raw line into a record. *columnize.Columnizer satisfies it.
type Parser interface {
	Parse(line string) columnize.Record
}

// Sink receives batches on the consumer's context, in read order.
type Sink interface {
	AppendBatch(records []columnize.Record)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(records []columnize.Record)

// AppendBatch calls f.
func (f SinkFunc) AppendBatch(records []columnize.Record) { f(records) }

// Buffer batches parsed records from a producer goroutine and hands them to
// a Sink on the consumer's context.
//
// A batch is flushed when it reaches the batch size or when the time since
// the last flush exceeds the flush interval. The pending slice is guarded by
// a single mutex held for append and for swap plus dispatch, so batches
// leave the buffer in the order their lines arrived.
type Buffer struct {
	parser   Parser
	sink     Sink
	dispatch Dispatcher
	now      func() time.Time
	logger   *zap.Logger

	running       atomic.Bool
	skipEmpty     atomic.Bool
	batchSize     atomic.Int64
	flushInterval atomic.Int64

	delivered func(n int)

	mu        sync.Mutex
	pending   []columnize.Record
	lastFlush time.Time
}

// NewBuffer returns a stopped buffer. Call Init before feeding lines.
func NewBuffer(p Parser, sink Sink, d Dispatcher) *Buffer {
	b := &Buffer{parser: p, sink: sink, dispatch: d, now: time.Now, logger: zap.NewNop()}
	b.batchSize.Store(DefaultBatchSize)
	b.flushInterval.Store(int64(DefaultFlushInterval))
	return b
}

// SetLogger sets the logger used to report a rejected batch.
func (b *Buffer) SetLogger(l *zap.Logger) { b.logger = logging.Default(l) }

// SetSkipEmptyLines drops blank lines before parsing.
func (b *Buffer) SetSkipEmptyLines(skip bool) { b.skipEmpty.Store(skip) }

// SetBatchSize sets the size that triggers a flush. Non-positive values
// restore the default.
func (b *Buffer) SetBatchSize(n int) {
	if n <= 0 {
		n = DefaultBatchSize
	}
	b.batchSize.Store(int64(n))
}

// SetFlushInterval sets the maximum dwell time of a pending record.
// Non-positive values restore the default.
func (b *Buffer) SetFlushInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultFlushInterval
	}
	b.flushInterval.Store(int64(d))
}

// FlushInterval returns the configured dwell time.
func (b *Buffer) FlushInterval() time.Duration {
	return time.Duration(b.flushInterval.Load())
}

// OnDelivered registers fn to run on the consumer context after each
// delivered batch. Call before Init.
func (b *Buffer) OnDelivered(fn func(n int)) { b.delivered = fn }

// Init marks the buffer running and starts the flush clock.
func (b *Buffer) Init() {
	b.mu.Lock()
	b.pending = nil
	b.lastFlush = b.now()
	b.mu.Unlock()
	b.running.Store(true)
}

// Running reports whether the buffer accepts lines.
func (b *Buffer) Running() bool { return b.running.Load() }

// Pending returns the number of records waiting for a flush.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Handle parses line and queues the record. It is a no-op once stopped.
func (b *Buffer) Handle(line string) {
	if !b.running.Load() {
		return
	}
	if b.skipEmpty.Load() && strings.TrimSpace(line) == "" {
		return
	}
	rec := b.parser.Parse(line)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, rec)
	now := b.now()
	if len(b.pending) >= int(b.batchSize.Load()) || now.Sub(b.lastFlush) > b.FlushInterval() {
		b.flushLocked(now)
	}
}

// Tick flushes a partial batch whose dwell time has expired. The session
// calls it periodically so a quiet file still gets its last lines shown.
func (b *Buffer) Tick() {
	if !b.running.Load() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if len(b.pending) > 0 && now.Sub(b.lastFlush) > b.FlushInterval() {
		b.flushLocked(now)
	}
}

// Flush delivers whatever is pending regardless of size or age.
func (b *Buffer) Flush() {
	if !b.running.Load() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) > 0 {
		b.flushLocked(b.now())
	}
}

// FileRotated discards pending records and restarts the flush clock.
// Pending records describe content that no longer exists in that form.
func (b *Buffer) FileRotated() {
	b.mu.Lock()
	b.pending = nil
	b.lastFlush = b.now()
	b.mu.Unlock()
}

// Stop makes further Handle calls no-ops. Batches already dispatched but
// not yet delivered are dropped on the consumer context.
func (b *Buffer) Stop() {
	b.running.Store(false)
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}

// flushLocked swaps the pending slice out and dispatches it. A dispatcher
// that refuses the batch has no consumer left, so the buffer stops. Caller
// holds mu.
func (b *Buffer) flushLocked(now time.Time) {
	b.lastFlush = now
	if len(b.pending) == 0 {
		return
	}
	batch := b.pending
	b.pending = make([]columnize.Record, 0, len(batch))
	err := b.dispatch.Dispatch(func() {
		if !b.running.Load() {
			return
		}
		b.sink.AppendBatch(batch)
		if b.delivered != nil {
			b.delivered(len(batch))
		}
	})
	if err != nil {
		b.running.Store(false)
		b.pending = nil
		b.logger.Debug("batch rejected, stopping buffer",
			zap.Int("records", len(batch)),
			zap.Error(err),
		)
	}
}
