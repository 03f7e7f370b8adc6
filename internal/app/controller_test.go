package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/loglens/internal/config"
	"github.com/five82/loglens/internal/ingest"
	"github.com/five82/loglens/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = 3 * time.Second
	pollFor = 5 * time.Millisecond
)

type fixture struct {
	t       *testing.T
	dir     string
	loop    *ingest.Loop
	ctrl    *Controller
	records *ingest.RecordList
	store   *state.Store
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func appendLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func newFixture(t *testing.T, pattern string) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	cfg.Ingest.PollInterval = 10 * time.Millisecond

	columns, err := cfg.Columnizer()
	require.NoError(t, err)
	colors, err := cfg.Colorizer()
	require.NoError(t, err)

	f := &fixture{
		t:       t,
		dir:     dir,
		loop:    ingest.NewLoop(nil),
		records: ingest.NewRecordList(cfg.Ingest.MaxRecords),
		store:   &state.Store{},
	}
	f.ctrl = NewController(context.Background(), pattern, Deps{
		Config: cfg,
		Overrides: Overrides{
			FromStart:     true,
			BatchSize:     2,
			FlushInterval: 20 * time.Millisecond,
		},
		Columns: columns,
		Colors:  colors,
		Records: f.records,
		Store:   f.store,
	})
	t.Cleanup(func() {
		f.run(f.ctrl.Stop)
		f.loop.Close()
	})
	return f
}

// run executes fn on the consumer context and waits for it.
func (f *fixture) run(fn func()) {
	f.t.Helper()
	require.NoError(f.t, dispatchWait(f.loop, fn))
}

func (f *fixture) call(fn func() error) error {
	var err error
	f.run(func() { err = fn() })
	return err
}

func (f *fixture) raws() []string {
	var out []string
	f.run(func() {
		for _, rec := range f.records.Records() {
			out = append(out, rec.Raw())
		}
	})
	return out
}

func (f *fixture) waitRecords(n int) {
	f.t.Helper()
	require.Eventually(f.t, func() bool { return len(f.raws()) == n }, waitFor, pollFor)
}

func TestController_OpenBeforeStart(t *testing.T) {
	f := newFixture(t, "/tmp/whatever.log")
	assert.ErrorIs(t, f.ctrl.Open("/tmp/whatever.log"), ErrNotStarted)
}

func TestController_TailsIntoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeLines(t, path,
		"2025-10-08 21:01:05 INFO [api] one",
		"2025-10-08 21:01:06 WARN [api] two",
	)
	f := newFixture(t, path)

	require.NoError(t, f.call(func() error { return f.ctrl.Start(f.loop) }))
	assert.Equal(t, path, f.ctrl.Path())
	f.waitRecords(2)

	appendLines(t, path, "2025-10-08 21:01:07 ERROR [db] three")
	f.waitRecords(3)

	var level string
	f.run(func() { level = f.records.At(2).Field("level") })
	assert.Equal(t, "ERROR", level)

	snap := f.store.Snapshot()
	assert.Equal(t, path, snap.Path)
	assert.Equal(t, state.PhaseTailing, snap.Phase)
	assert.Equal(t, 3, snap.LinesDelivered)
}

func TestController_RestartClearsAndRereads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeLines(t, path, "a", "b", "c")
	f := newFixture(t, path)
	require.NoError(t, f.call(func() error { return f.ctrl.Start(f.loop) }))
	f.waitRecords(3)
	firstSession := f.store.Snapshot().SessionID

	require.NoError(t, f.call(f.ctrl.Restart))
	f.waitRecords(3)
	assert.Equal(t, []string{"a", "b", "c"}, f.raws())
	assert.NotEqual(t, firstSession, f.store.Snapshot().SessionID)
}

func TestController_GlobOpensNewestMatch(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "app-1.log")
	newer := filepath.Join(dir, "app-2.log")
	writeLines(t, older, "old")
	writeLines(t, newer, "new")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	f := newFixture(t, filepath.Join(dir, "*.log"))
	require.NoError(t, f.call(func() error { return f.ctrl.Start(f.loop) }))
	assert.Equal(t, newer, f.ctrl.Path())
	f.waitRecords(1)
	assert.Equal(t, []string{"new"}, f.raws())
}

func TestController_GlobWithoutMatchFails(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "*.log"))
	require.Error(t, f.call(func() error { return f.ctrl.Start(f.loop) }))
	assert.Nil(t, f.ctrl.Session())
}

func TestController_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writeLines(t, path, "x1", "x2", "x3")
	f := newFixture(t, path)
	require.NoError(t, f.call(func() error { return f.ctrl.Start(f.loop) }))
	f.waitRecords(3)

	cfgPath := f.ctrl.Config().Path
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[ingest]
max_records = 2
batch_size = 7

[[rules]]
name = "x"
pattern = "^x"
fg = "#00FF00"
`), 0o600))

	require.NoError(t, f.call(f.ctrl.Reload))
	f.run(func() {
		assert.Equal(t, 2, f.records.MaxRetained())
		assert.Equal(t, 2, f.records.Len())
		assert.Equal(t, "#00FF00", f.ctrl.deps.Colors.StyleFor(f.records.At(0)).Foreground)
	})
	// Command-line overrides survive the reload.
	assert.Equal(t, 2, f.ctrl.Config().Ingest.BatchSize)
	assert.True(t, f.ctrl.Config().Ingest.FromStart)

	require.NoError(t, os.WriteFile(cfgPath, []byte("[[rules]]\nname = \"bad\"\npattern = \"(\"\n"), 0o600))
	require.Error(t, f.call(f.ctrl.Reload))
	f.run(func() {
		assert.Len(t, f.ctrl.deps.Colors.Specs(), 1)
	})
}

func TestOverrides_Apply(t *testing.T) {
	in := config.Default().Ingest
	Overrides{}.apply(&in)
	assert.Equal(t, config.Default().Ingest, in)

	unbounded := 0
	Overrides{FromStart: true, BatchSize: 5, FlushInterval: time.Second, MaxRecords: &unbounded}.apply(&in)
	assert.True(t, in.FromStart)
	assert.Equal(t, 5, in.BatchSize)
	assert.Equal(t, time.Second, in.FlushInterval)
	assert.Equal(t, 0, in.MaxRecords)
}

func TestNewController_AppliesMaxRecordsOverride(t *testing.T) {
	cfg := config.Default()
	records := ingest.NewRecordList(cfg.Ingest.MaxRecords)
	limit := 5

	ctrl := NewController(context.Background(), "unused.log", Deps{
		Config:    cfg,
		Overrides: Overrides{MaxRecords: &limit},
		Records:   records,
	})
	assert.Equal(t, 5, records.MaxRetained())
	assert.Equal(t, 5, ctrl.Config().Ingest.MaxRecords)

	other := ingest.NewRecordList(cfg.Ingest.MaxRecords)
	NewController(context.Background(), "unused.log", Deps{Config: cfg, Records: other})
	assert.Equal(t, cfg.Ingest.MaxRecords, other.MaxRetained())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_PlainPrintsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	writeLines(t, path, "2025-10-08 21:01:05 INFO [api] hello")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, Options{
			Path:       path,
			ConfigPath: filepath.Join(dir, "config.toml"),
			PrefsPath:  filepath.Join(dir, "prefs.toml"),
			Plain:      true,
			Overrides:  Overrides{FromStart: true, FlushInterval: 20 * time.Millisecond},
			Stdout:     out,
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "hello")
	}, waitFor, pollFor)
	assert.Contains(t, out.String(), "2025-10-08 21:01:05 INFO  api          hello")

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_RequiresPath(t *testing.T) {
	dir := t.TempDir()
	err := Run(context.Background(), Options{
		ConfigPath: filepath.Join(dir, "config.toml"),
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
		Plain:      true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log file")
}
