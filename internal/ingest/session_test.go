package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/loglens/internal/logtail"
)

type monitorRecorder struct {
	mu        sync.Mutex
	started   int
	rotated   int
	missing   int
	delivered int
	failed    []error
	stopped   int
}

func (m *monitorRecorder) Started(string, string) { m.with(func() { m.started++ }) }
func (m *monitorRecorder) Rotated(string)         { m.with(func() { m.rotated++ }) }
func (m *monitorRecorder) FileMissing(string)     { m.with(func() { m.missing++ }) }
func (m *monitorRecorder) Delivered(_ string, n int) {
	m.with(func() { m.delivered += n })
}
func (m *monitorRecorder) Failed(_ string, err error) {
	m.with(func() { m.failed = append(m.failed, err) })
}
func (m *monitorRecorder) Stopped(string) { m.with(func() { m.stopped++ }) }

func (m *monitorRecorder) with(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

func sessionOptions(path string) Options {
	return Options{
		Path:          path,
		BatchSize:     3,
		FlushInterval: 20 * time.Millisecond,
		Tail: logtail.Options{
			PollInterval: 10 * time.Millisecond,
			FromStart:    true,
			RotateGrace:  30 * time.Millisecond,
		},
	}
}

func TestSession_DeliversLinesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	sink := &batchSink{}
	loop := NewLoop(nil)
	defer loop.Close()
	mon := &monitorRecorder{}

	s, err := Start(context.Background(), sessionOptions(path), rawParser{}, sink, loop, mon)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, path, s.Path())

	require.Eventually(t, func() bool { return len(sink.lines()) == 2 }, 3*time.Second, 5*time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("three\nfour\nfive\nsix\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(sink.lines()) == 6 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three", "four", "five", "six"}, sink.lines())

	s.Stop()
	require.NoError(t, s.Wait())
	require.NoError(t, loop.Sync())

	mon.with(func() {
		assert.Equal(t, 1, mon.started)
		assert.Equal(t, 1, mon.stopped)
		assert.Equal(t, 6, mon.delivered)
		assert.Empty(t, mon.failed)
	})
}

func TestSession_StopPreventsFurtherDelivery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))

	sink := &batchSink{}
	loop := NewLoop(nil)
	defer loop.Close()

	s, err := Start(context.Background(), sessionOptions(path), rawParser{}, sink, loop, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sink.lines()) == 1 }, 3*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.Buffer().Running())

	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0o644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, loop.Sync())
	assert.Equal(t, []string{"a"}, sink.lines())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestSession_VanishedFileFailsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))

	sink := &batchSink{}
	loop := NewLoop(nil)
	defer loop.Close()
	mon := &monitorRecorder{}

	s, err := Start(context.Background(), sessionOptions(path), rawParser{}, sink, loop, mon)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sink.lines()) == 1 }, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, os.Remove(path))

	err = s.Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, logtail.ErrFileVanished))
	assert.False(t, s.Buffer().Running())

	mon.with(func() {
		require.Len(t, mon.failed, 1)
		assert.Equal(t, 1, mon.missing)
		assert.Equal(t, 0, mon.stopped)
	})
	// Previously delivered records stay with the consumer.
	assert.Equal(t, []string{"a"}, sink.lines())
}

func TestSession_RotationReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("first line\nsecond line\n"), 0o644))

	sink := &batchSink{}
	loop := NewLoop(nil)
	defer loop.Close()
	mon := &monitorRecorder{}

	s, err := Start(context.Background(), sessionOptions(path), rawParser{}, sink, loop, mon)
	require.NoError(t, err)
	defer s.Stop()
	require.Eventually(t, func() bool { return len(sink.lines()) == 2 }, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	require.Eventually(t, func() bool { return len(sink.lines()) == 3 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, "x", sink.lines()[2])
	mon.with(func() { assert.GreaterOrEqual(t, mon.rotated, 1) })
}

func TestStart_Validation(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	_, err := Start(context.Background(), Options{}, rawParser{}, &batchSink{}, loop, nil)
	assert.Error(t, err)

	_, err = Start(context.Background(), Options{Path: "x"}, nil, &batchSink{}, loop, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Start(ctx, Options{Path: "x"}, rawParser{}, &batchSink{}, loop, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_ContextCancelStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	loop := NewLoop(nil)
	defer loop.Close()
	ctx, cancel := context.WithCancel(context.Background())

	s, err := Start(ctx, sessionOptions(path), rawParser{}, &batchSink{}, loop, nil)
	require.NoError(t, err)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop on cancel")
	}
	assert.NoError(t, s.Wait())
}
