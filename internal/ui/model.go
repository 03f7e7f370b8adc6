package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/loglens/internal/colorize"
	"github.com/five82/loglens/internal/columnize"
	"github.com/five82/loglens/internal/ingest"
	"github.com/five82/loglens/internal/logging"
	"github.com/five82/loglens/internal/prefs"
	"github.com/five82/loglens/internal/state"
)

// Controller drives the tailing session. The UI calls it from its event
// loop, which is also where delivered batches run.
type Controller interface {
	Start(d ingest.Dispatcher) error
	Restart() error
	Reload() error
	Path() string
}

// Options configures the UI.
type Options struct {
	Context      context.Context
	Controller   Controller
	Store        *state.Store
	Records      *ingest.RecordList
	Columns      *columnize.Columnizer
	Colors       *colorize.Colorizer
	Prefs        prefs.Prefs
	PrefsPath    string
	RefreshEvery time.Duration
	Logger       *zap.Logger
}

// notice is a transient status-line message.
type notice struct {
	text string
	err  bool
	at   time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctrl      Controller
	store     *state.Store
	records   *ingest.RecordList
	columns   *columnize.Columnizer
	colors    *colorize.Colorizer
	prefs     prefs.Prefs
	prefsPath string
	logger    *zap.Logger
	keys      keyMap
	refresh   time.Duration

	// UI state
	theme  Theme
	width  int
	height int
	ready  bool

	// Data state
	snapshot state.Snapshot
	table    tableState
	search   searchState
	notice   notice

	// Help overlay
	showHelp bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	refresh := opts.RefreshEvery
	if refresh <= 0 {
		refresh = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	records := opts.Records
	if records == nil {
		records = ingest.NewRecordList(0)
	}

	input := textinput.New()
	input.Placeholder = "regular expression"
	input.Prompt = "/"
	input.CharLimit = 200

	m := Model{
		ctrl:      opts.Controller,
		store:     opts.Store,
		records:   records,
		columns:   opts.Columns,
		colors:    opts.Colors,
		prefs:     opts.Prefs,
		prefsPath: prefsPath,
		logger:    logging.Default(opts.Logger).With(zap.String("component", "ui")),
		keys:      DefaultKeyMap(),
		refresh:   refresh,
		theme:     GetTheme(opts.Prefs.Theme),
		table: tableState{
			viewport: viewport.New(0, 0),
			follow:   true,
		},
		search: searchState{input: input},
	}
	m.applyViewPrefs()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.refresh),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case runMsg:
		// Delivered batches and other consumer-context work.
		msg()
		m.refreshSnapshot()

	case tea.KeyMsg:
		var model tea.Model
		model, cmd = m.handleKey(msg)
		m = model.(Model)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		m.refreshSnapshot()
		if !m.notice.at.IsZero() && time.Since(m.notice.at) > NoticeTTL {
			m.notice = notice{}
		}
		cmd = tickCmd(m.refresh)
	}

	if m.ready {
		m.layoutTable()
		m.renderTable()
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m *Model) refreshSnapshot() {
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = notice{text: text, err: isErr, at: time.Now()}
}

// savePrefs writes the view state along with the file being tailed.
func (m *Model) savePrefs() {
	if m.ctrl != nil && m.ctrl.Path() != "" {
		m.prefs.LastFile = m.ctrl.Path()
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", zap.Error(err))
	}
}

// Close releases every row binding.
func (m *Model) Close() {
	m.table.release(0)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// Typed search text is not a command
	if m.search.active {
		return m, m.handleTableKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		if m.search.re != nil && m.colors != nil {
			_ = m.colors.Highlight("(?i)"+m.search.query, m.theme.SearchStyle())
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.reload()
		return m, nil

	case key.Matches(msg, m.keys.Restart):
		if m.ctrl == nil {
			return m, nil
		}
		if err := m.ctrl.Restart(); err != nil {
			m.setNotice("Restart failed: "+err.Error(), true)
		} else {
			m.setNotice("Restarted "+m.ctrl.Path(), false)
		}
		m.refreshSnapshot()
		return m, nil

	case key.Matches(msg, m.keys.ToggleColors):
		if m.colors != nil {
			on := !m.colors.Enabled()
			m.colors.SetEnabled(on)
			m.prefs.ColorsOff = !on
			m.savePrefs()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleColumn):
		m.toggleColumn(msg.String())
		return m, nil
	}

	return m, m.handleTableKey(msg)
}

// reload re-reads the config file into the live columnizer and colorizer,
// then restores the per-user view state on top of it.
func (m *Model) reload() {
	if m.ctrl == nil {
		return
	}
	if err := m.ctrl.Reload(); err != nil {
		m.logger.Warn("config reload failed", zap.Error(err))
		m.setNotice("Reload failed: "+err.Error(), true)
		return
	}
	m.applyViewPrefs()
	m.setNotice("Config reloaded", false)
}

// applyViewPrefs applies saved hidden columns and the color switch.
func (m *Model) applyViewPrefs() {
	if m.columns != nil {
		for _, name := range m.prefs.HiddenColumns {
			// Columns dropped from the config are ignored.
			_ = m.columns.SetVisible(name, false)
		}
	}
	if m.colors != nil {
		m.colors.SetEnabled(!m.prefs.ColorsOff)
	}
}

// toggleColumn flips the visibility of the column numbered by digit.
func (m *Model) toggleColumn(digit string) {
	if m.columns == nil || len(digit) != 1 {
		return
	}
	idx := int(digit[0] - '1')
	fields := m.columns.Fields()
	if idx < 0 || idx >= len(fields) {
		return
	}
	f := fields[idx]
	if err := m.columns.SetVisible(f.Name, !f.Visible); err != nil {
		m.setNotice(err.Error(), true)
		return
	}
	m.prefs.SetHidden(f.Name, f.Visible)
	m.savePrefs()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + session status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderRecords())
	return b.String()
}

// Messages

// runMsg carries a function dispatched onto the UI context.
type runMsg func()

type tickMsg time.Time

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program. The program's event loop is the
// consumer context: batches reach the record list as runMsg values, queued
// through an ingest.Loop so the tailer never waits on rendering.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Controller == nil {
		return errors.New("ui: controller is required")
	}

	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	loop := ingest.NewLoop(func(fn func()) { p.Send(runMsg(fn)) })
	defer loop.Close()

	if err := opts.Controller.Start(loop); err != nil {
		return err
	}
	m.savePrefs()

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
