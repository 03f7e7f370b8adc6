package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/loglens/internal/colorize"
	"github.com/five82/loglens/internal/columnize"
	"github.com/five82/loglens/internal/config"
	"github.com/five82/loglens/internal/ingest"
	"github.com/five82/loglens/internal/prefs"
	"github.com/five82/loglens/internal/state"
)

type fakeController struct {
	path      string
	reloads   int
	restarts  int
	reloadErr error
	onReload  func()
}

func (f *fakeController) Start(ingest.Dispatcher) error { return nil }
func (f *fakeController) Path() string                  { return f.path }

func (f *fakeController) Restart() error {
	f.restarts++
	return nil
}

func (f *fakeController) Reload() error {
	f.reloads++
	if f.reloadErr != nil {
		return f.reloadErr
	}
	if f.onReload != nil {
		f.onReload()
	}
	return nil
}

type harness struct {
	m         Model
	ctrl      *fakeController
	records   *ingest.RecordList
	columns   *columnize.Columnizer
	colors    *colorize.Colorizer
	prefsPath string
}

// bodyHeight is the number of record lines a 20-row terminal shows.
const bodyHeight = 20 - chromeRows - boxBorders - headerRows

func newHarness(t *testing.T, maxRecords int) *harness {
	t.Helper()
	cfg := config.Default()
	columns, err := cfg.Columnizer()
	require.NoError(t, err)
	colors, err := cfg.Colorizer()
	require.NoError(t, err)

	h := &harness{
		ctrl:      &fakeController{path: "/var/log/app.log"},
		records:   ingest.NewRecordList(maxRecords),
		columns:   columns,
		colors:    colors,
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	h.m = New(Options{
		Controller: h.ctrl,
		Store:      &state.Store{},
		Records:    h.records,
		Columns:    columns,
		Colors:     colors,
		PrefsPath:  h.prefsPath,
	})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 20})
	t.Cleanup(func() { h.m.Close() })
	return h
}

func (h *harness) send(msg tea.Msg) {
	next, _ := h.m.Update(msg)
	h.m = next.(Model)
}

func (h *harness) keys(keys ...string) {
	for _, k := range keys {
		switch k {
		case "enter":
			h.send(tea.KeyMsg{Type: tea.KeyEnter})
		case "esc":
			h.send(tea.KeyMsg{Type: tea.KeyEsc})
		default:
			h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
}

func (h *harness) appendLines(lines ...string) {
	batch := make([]columnize.Record, len(lines))
	for i, line := range lines {
		batch[i] = h.columns.Parse(line)
	}
	h.send(runMsg(func() { h.records.Append(batch) }))
}

func infoLines(from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("2025-10-08 21:01:05 INFO [api] request %d", from+i)
	}
	return out
}

func TestModel_FollowsTail(t *testing.T) {
	h := newHarness(t, 0)
	h.appendLines(infoLines(0, 30)...)
	require.True(t, h.m.table.follow)
	assert.Equal(t, 30-bodyHeight, h.m.table.offset)

	h.keys("k")
	assert.False(t, h.m.table.follow)
	assert.Equal(t, 30-bodyHeight-1, h.m.table.offset)

	h.appendLines(infoLines(30, 10)...)
	assert.Equal(t, 30-bodyHeight-1, h.m.table.offset, "paused view must not move")

	h.keys("G")
	assert.True(t, h.m.table.follow)
	assert.Equal(t, 40-bodyHeight, h.m.table.offset)

	h.keys(" ")
	assert.False(t, h.m.table.follow)
}

func TestModel_EvictionKeepsPausedRowsInPlace(t *testing.T) {
	h := newHarness(t, 20)
	h.appendLines(infoLines(0, 20)...)
	h.keys("g", "j", "j", "j", "j", "j")
	require.Equal(t, 5, h.m.table.offset)
	top := h.records.At(5)

	h.appendLines(infoLines(20, 3)...)
	assert.Equal(t, 2, h.m.table.offset)
	assert.Same(t, top, h.records.At(h.m.table.offset))
}

func TestModel_ClearResetsView(t *testing.T) {
	h := newHarness(t, 0)
	h.appendLines(infoLines(0, 30)...)
	h.keys("g")
	require.False(t, h.m.table.follow)

	h.send(runMsg(h.records.Clear))
	assert.True(t, h.m.table.follow)
	assert.Equal(t, 0, h.m.table.offset)
	assert.Contains(t, h.m.View(), "Waiting for lines")
}

func TestModel_BindingPoolFollowsWindow(t *testing.T) {
	h := newHarness(t, 0)
	h.appendLines(infoLines(0, 3)...)
	require.Len(t, h.m.table.rows, bodyHeight)
	assert.Same(t, h.records.At(0), h.m.table.rows[0].Record())
	assert.Nil(t, h.m.table.rows[3].Record())

	h.send(tea.WindowSizeMsg{Width: 120, Height: 10})
	assert.Len(t, h.m.table.rows, 10-chromeRows-boxBorders-headerRows)
}

func TestModel_Search(t *testing.T) {
	h := newHarness(t, 0)
	lines := infoLines(0, 40)
	lines[5] = "2025-10-08 21:01:05 ERROR [disk] Disk full"
	h.appendLines(lines...)

	h.keys("/", "disk", "enter")
	require.NotNil(t, h.m.search.match)
	assert.Equal(t, lines[5], h.m.search.match.Raw())
	assert.False(t, h.m.table.follow)
	assert.Equal(t, "(?i)disk", h.colors.HighlightPattern())
	assert.Equal(t, h.m.theme.SearchStyle(), h.colors.StyleFor(h.records.At(5)))

	// A single match wraps onto itself.
	h.keys("n")
	assert.Equal(t, lines[5], h.m.search.match.Raw())

	h.keys("esc")
	assert.Nil(t, h.m.search.match)
	assert.Equal(t, "", h.colors.HighlightPattern())

	h.keys("/", "nothing-here", "enter")
	assert.True(t, h.m.search.missed)
	assert.Contains(t, h.m.View(), "Pattern not found")

	h.keys("/", "(", "enter")
	assert.True(t, h.m.notice.err)
}

func TestModel_SearchTypingIsNotACommand(t *testing.T) {
	h := newHarness(t, 0)
	h.keys("/", "q")
	assert.True(t, h.m.search.active)
	assert.Equal(t, "q", h.m.search.input.Value())
}

func TestModel_ToggleColumnSavesPrefs(t *testing.T) {
	h := newHarness(t, 0)

	h.keys("3")
	assert.Equal(t, []string{"ts", "level", "msg"}, visibleNames(h.columns))
	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"component"}, saved.HiddenColumns)

	h.keys("3")
	assert.Len(t, h.columns.Visible(), 4)
	saved, err = prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Empty(t, saved.HiddenColumns)

	// Out of range is ignored.
	h.keys("9")
	assert.Len(t, h.columns.Visible(), 4)
}

func TestModel_ToggleColors(t *testing.T) {
	h := newHarness(t, 0)
	h.keys("c")
	assert.False(t, h.colors.Enabled())
	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.True(t, saved.ColorsOff)
	assert.Contains(t, h.m.View(), "colors off")

	h.keys("c")
	assert.True(t, h.colors.Enabled())
}

func TestModel_ReloadReappliesViewPrefs(t *testing.T) {
	h := newHarness(t, 0)
	h.keys("2")
	h.ctrl.onReload = func() { _ = h.columns.SetVisible("level", true) }

	h.keys("R")
	assert.Equal(t, 1, h.ctrl.reloads)
	assert.NotContains(t, visibleNames(h.columns), "level")
	assert.Equal(t, "Config reloaded", h.m.notice.text)

	h.ctrl.reloadErr = errors.New("invalid config: boom")
	h.keys("R")
	assert.True(t, h.m.notice.err)
	assert.Contains(t, h.m.notice.text, "boom")
}

func TestModel_Restart(t *testing.T) {
	h := newHarness(t, 0)
	h.keys("r")
	assert.Equal(t, 1, h.ctrl.restarts)
	assert.Contains(t, h.m.notice.text, "/var/log/app.log")
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	h := newHarness(t, 0)
	before := h.m.theme.Name
	h.keys("T")
	assert.Equal(t, NextTheme(before), h.m.theme.Name)
	saved, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, h.m.theme.Name, saved.Theme)
}

func TestModel_HelpClosesOnAnyKey(t *testing.T) {
	h := newHarness(t, 0)
	h.keys("?")
	require.True(t, h.m.showHelp)
	assert.Contains(t, h.m.View(), "Keyboard Shortcuts")
	h.keys("x")
	assert.False(t, h.m.showHelp)
}

func TestModel_ViewRendersRecords(t *testing.T) {
	h := newHarness(t, 0)
	h.appendLines(
		"2025-10-08 21:01:05 WARN [encoder] slow frame",
		"goroutine 1 [running]:",
	)

	view := h.m.View()
	lines := strings.Split(view, "\n")
	assert.Len(t, lines, 20)
	assert.Contains(t, view, "loglens")
	assert.Contains(t, view, "Time")
	assert.Contains(t, view, "Message")
	assert.Contains(t, view, "slow frame")
	assert.Contains(t, view, "goroutine 1 [running]:")
	assert.Contains(t, view, "/var/log/app.log")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(Options{})
	assert.Equal(t, "Loading...", m.View())
}

func visibleNames(c *columnize.Columnizer) []string {
	var out []string
	for _, f := range c.Visible() {
		out = append(out, f.Name)
	}
	return out
}
