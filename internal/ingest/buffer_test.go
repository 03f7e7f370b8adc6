package ingest

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/five82/loglens/internal/columnize"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// rawParser stores the line in a single "msg" field.
type rawParser struct{}

func (rawParser) Parse(line string) columnize.Record {
	return columnize.NewRecord(line, map[string]string{"msg": line})
}

// batchSink records every delivered batch. Safe for concurrent use.
type batchSink struct {
	mu      sync.Mutex
	batches [][]string
}

func (s *batchSink) AppendBatch(records []columnize.Record) {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Raw()
	}
	s.mu.Lock()
	s.batches = append(s.batches, lines)
	s.mu.Unlock()
}

func (s *batchSink) snapshot() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.batches...)
}

func (s *batchSink) lines() []string {
	var out []string
	for _, b := range s.snapshot() {
		out = append(out, b...)
	}
	return out
}

// direct runs dispatched functions immediately.
var direct = DispatchFunc(func(fn func()) error {
	fn()
	return nil
})

// queued holds dispatched functions until run is called.
type queued struct{ fns []func() }

func (q *queued) Dispatch(fn func()) error {
	q.fns = append(q.fns, fn)
	return nil
}

func (q *queued) run() {
	fns := q.fns
	q.fns = nil
	for _, fn := range fns {
		fn()
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBuffer(sink Sink, d Dispatcher, batch int, interval time.Duration) (*Buffer, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBuffer(rawParser{}, sink, d)
	b.now = clock.now
	b.SetBatchSize(batch)
	b.SetFlushInterval(interval)
	b.Init()
	return b, clock
}

func feed(b *Buffer, lines ...string) {
	for _, l := range lines {
		b.Handle(l)
	}
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestBuffer_FullBatchFlushesOnce(t *testing.T) {
	sink := &batchSink{}
	b, _ := newTestBuffer(sink, direct, 5, time.Second)

	feed(b, numbered("l", 5)...)

	batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, numbered("l", 5), batches[0])
	assert.Equal(t, 0, b.Pending())
}

func TestBuffer_PartialBatchFlushesAfterInterval(t *testing.T) {
	sink := &batchSink{}
	b, clock := newTestBuffer(sink, direct, 5, time.Second)

	feed(b, "a", "b", "c")
	b.Tick()
	assert.Empty(t, sink.snapshot())

	clock.advance(time.Second + time.Millisecond)
	b.Tick()
	b.Tick()

	batches := sink.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a", "b", "c"}, batches[0])
}

func TestBuffer_ElapsedIntervalFlushesOnHandle(t *testing.T) {
	sink := &batchSink{}
	b, clock := newTestBuffer(sink, direct, 100, time.Second)

	feed(b, "a")
	clock.advance(2 * time.Second)
	feed(b, "b")

	require.Len(t, sink.snapshot(), 1)
	assert.Equal(t, []string{"a", "b"}, sink.snapshot()[0])
}

func TestBuffer_StoppedIgnoresLines(t *testing.T) {
	sink := &batchSink{}
	b, clock := newTestBuffer(sink, direct, 2, time.Second)

	b.Stop()
	assert.False(t, b.Running())
	feed(b, "a", "b", "c", "d")
	clock.advance(time.Hour)
	b.Tick()
	b.Flush()

	assert.Empty(t, sink.snapshot())
	assert.Equal(t, 0, b.Pending())
}

func TestBuffer_InFlightBatchDroppedAfterStop(t *testing.T) {
	sink := &batchSink{}
	q := &queued{}
	b, _ := newTestBuffer(sink, q, 2, time.Second)

	feed(b, "a", "b")
	require.Len(t, q.fns, 1)

	b.Stop()
	q.run()
	assert.Empty(t, sink.snapshot())
}

func TestBuffer_NotStartedUntilInit(t *testing.T) {
	sink := &batchSink{}
	b := NewBuffer(rawParser{}, sink, direct)
	b.SetBatchSize(1)

	b.Handle("early")
	assert.Empty(t, sink.snapshot())

	b.Init()
	b.Handle("late")
	assert.Equal(t, []string{"late"}, sink.lines())
}

func TestBuffer_RotationDiscardsPending(t *testing.T) {
	sink := &batchSink{}
	b, clock := newTestBuffer(sink, direct, 10, time.Second)

	feed(b, "old1", "old2", "old3")
	clock.advance(500 * time.Millisecond)
	b.FileRotated()
	assert.Equal(t, 0, b.Pending())

	// The flush clock restarted at rotation.
	clock.advance(700 * time.Millisecond)
	feed(b, "new1", "new2")
	b.Tick()
	assert.Empty(t, sink.snapshot())

	b.Flush()
	assert.Equal(t, []string{"new1", "new2"}, sink.lines())
}

func TestBuffer_SkipEmptyLines(t *testing.T) {
	sink := &batchSink{}
	b, _ := newTestBuffer(sink, direct, 100, time.Second)

	feed(b, "a", "", "  ")
	b.SetSkipEmptyLines(true)
	feed(b, "", "\t", "b")
	b.Flush()

	assert.Equal(t, []string{"a", "", "  ", "b"}, sink.lines())
}

func TestBuffer_DefaultsForNonPositiveSettings(t *testing.T) {
	b := NewBuffer(rawParser{}, &batchSink{}, direct)
	b.SetBatchSize(-1)
	b.SetFlushInterval(0)
	assert.Equal(t, int64(DefaultBatchSize), b.batchSize.Load())
	assert.Equal(t, DefaultFlushInterval, b.FlushInterval())
}

func TestBuffer_PreservesOrderAcrossBatches(t *testing.T) {
	sink := &batchSink{}
	loop := NewLoop(nil)
	defer loop.Close()

	b := NewBuffer(rawParser{}, sink, loop)
	b.SetBatchSize(7)
	b.SetFlushInterval(time.Microsecond)
	b.Init()

	want := numbered("line-", 2000)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.Tick()
			}
		}
	}()

	feed(b, want...)
	close(stop)
	wg.Wait()
	b.Flush()
	require.NoError(t, loop.Sync())

	got := sink.lines()
	assert.Equal(t, want, got)
	assert.Greater(t, len(sink.snapshot()), 1)
}

func TestBuffer_DeliveredCallback(t *testing.T) {
	sink := &batchSink{}
	var counts []int
	b := NewBuffer(rawParser{}, sink, direct)
	b.OnDelivered(func(n int) { counts = append(counts, n) })
	b.SetBatchSize(3)
	b.Init()

	feed(b, strings.Split("a b c d", " ")...)
	b.Flush()
	assert.Equal(t, []int{3, 1}, counts)
}

func TestBuffer_RejectedDispatchStopsAndLogs(t *testing.T) {
	sink := &batchSink{}
	core, logs := observer.New(zapcore.DebugLevel)
	rejected := DispatchFunc(func(func()) error { return ErrStopped })
	b, _ := newTestBuffer(sink, rejected, 2, time.Second)
	b.SetLogger(zap.New(core))

	feed(b, "a", "b")
	assert.False(t, b.Running())
	assert.Equal(t, 0, b.Pending())

	feed(b, "c")
	assert.Equal(t, 0, b.Pending())
	assert.Empty(t, sink.lines())

	entries := logs.FilterMessage("batch rejected, stopping buffer").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["records"])
}
