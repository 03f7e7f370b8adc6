package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grafana/regexp"

	"github.com/five82/loglens/internal/colorize"
	"github.com/five82/loglens/internal/columnize"
)

// columnGap separates adjacent cells.
const columnGap = " "

// tableState holds the record view. Only the visible window is rendered:
// rows is a pool of colorizer bindings, one per screen line, re-pointed at
// whichever record sits on that line.
type tableState struct {
	viewport   viewport.Model
	offset     int
	follow     bool
	evicted    int
	generation int
	rows       []*colorize.Binding
}

// searchState holds the record search.
type searchState struct {
	active bool
	input  textinput.Model
	query  string
	re     *regexp.Regexp
	match  *columnize.Record
	missed bool
}

// bodyRows is the number of record lines that fit in the box.
func (m Model) bodyRows() int {
	return max(m.height-chromeRows-boxBorders-headerRows, 0)
}

// layoutTable sizes the viewport and the binding pool and settles the
// scroll offset after appends, evictions and clears.
func (m *Model) layoutTable() {
	rows := m.bodyRows()
	m.table.viewport.Width = max(m.width-boxBorders, 0)
	m.table.viewport.Height = rows

	if gen := m.records.Generation(); gen != m.table.generation {
		m.table.generation = gen
		m.table.offset = 0
		m.table.follow = true
		m.search.match = nil
	}
	ev := m.records.Evicted()
	if !m.table.follow {
		m.table.offset -= ev - m.table.evicted
	}
	m.table.evicted = ev

	maxOffset := max(m.records.Len()-rows, 0)
	if m.table.follow || m.table.offset > maxOffset {
		m.table.offset = maxOffset
	}
	m.table.offset = max(m.table.offset, 0)

	m.ensureRows(rows)
}

// ensureRows grows or shrinks the binding pool to n.
func (m *Model) ensureRows(n int) {
	if m.colors == nil {
		return
	}
	for len(m.table.rows) < n {
		m.table.rows = append(m.table.rows, m.colors.Bind())
	}
	m.table.release(n)
}

// release closes every pooled binding past n.
func (t *tableState) release(n int) {
	if n >= len(t.rows) {
		return
	}
	for _, b := range t.rows[n:] {
		b.Close()
	}
	clear(t.rows[n:])
	t.rows = t.rows[:n]
}

// renderTable binds the visible records and renders them into the
// viewport.
func (m *Model) renderTable() {
	vp := &m.table.viewport
	width := vp.Width
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	total := m.records.Len()
	if total == 0 {
		for _, b := range m.table.rows {
			b.Set(nil)
		}
		vp.SetContent(bg.FillLine(bg.Render(m.emptyMessage(), styles.MutedText), width))
		return
	}

	var all, fields []columnize.FieldDefinition
	if m.columns != nil {
		all = m.columns.Fields()
		fields = m.columns.Visible()
	}
	widths := columnWidths(fields, width)
	base := m.theme.RowBase()
	current := colorize.Style{
		Foreground: m.theme.SelectionText,
		Background: m.theme.SelectionBg,
		Bold:       true,
	}

	lines := make([]string, 0, vp.Height)
	for i := 0; i < vp.Height; i++ {
		var rec *columnize.Record
		if idx := m.table.offset + i; idx < total {
			rec = m.records.At(idx)
		}
		var binding *colorize.Binding
		if i < len(m.table.rows) {
			binding = m.table.rows[i]
			binding.Set(rec)
		}
		if rec == nil {
			continue
		}

		st := base
		if binding != nil {
			st = binding.Style().Over(base)
		}
		if rec == m.search.match {
			st = current
		}
		text := formatRecord(rec, all, fields, widths, width)
		lines = append(lines, st.Lipgloss().Width(width).Render(text))
	}
	vp.SetContent(strings.Join(lines, "\n"))
}

func (m Model) emptyMessage() string {
	if m.snapshot.LastError != nil {
		return "No records: " + m.snapshot.LastError.Error()
	}
	return "Waiting for lines…"
}

// renderHeaderRow renders the column headers above the records.
func (m Model) renderHeaderRow(width int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	if m.columns == nil {
		return bg.FillLine("", width)
	}
	fields := m.columns.Visible()
	if len(fields) == 0 {
		return bg.FillLine(bg.Render(fitCell("(all columns hidden)", width), styles.FaintText), width)
	}
	widths := columnWidths(fields, width)
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = fitCell(f.Header, widths[i])
	}
	line := fitCell(strings.Join(cells, columnGap), width)
	return bg.FillLine(bg.Render(line, styles.AccentText.Bold(true)), width)
}

// columnWidths lays out fields across total cells. Fixed widths are
// honored; columns without a width share the rest, and when every column
// is fixed the last one absorbs the slack.
func columnWidths(fields []columnize.FieldDefinition, total int) []int {
	widths := make([]int, len(fields))
	if len(fields) == 0 {
		return widths
	}

	avail := total - len(columnGap)*(len(fields)-1)
	var flex []int
	for i, f := range fields {
		if f.Width > 0 {
			widths[i] = f.Width
			avail -= f.Width
			continue
		}
		flex = append(flex, i)
	}
	if len(flex) == 0 {
		last := len(fields) - 1
		avail += widths[last]
		flex = []int{last}
	}

	share := max(avail/len(flex), LayoutMinColumnWidth)
	for _, i := range flex {
		widths[i] = share
	}
	if rest := avail - share*len(flex); rest > 0 {
		widths[flex[len(flex)-1]] += rest
	}
	return widths
}

// formatRecord lays rec out in the visible columns. Lines no pattern
// recognized carry the raw text in the first field and are shown whole.
func formatRecord(rec *columnize.Record, all, fields []columnize.FieldDefinition, widths []int, width int) string {
	if len(fields) == 0 || unparsed(rec, all) {
		return fitCell(rec.Raw(), width)
	}
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = fitCell(rec.Field(f.Name), widths[i])
	}
	return fitCell(strings.Join(cells, columnGap), width)
}

func unparsed(rec *columnize.Record, all []columnize.FieldDefinition) bool {
	if len(all) < 2 || rec.Field(all[0].Name) != rec.Raw() {
		return false
	}
	for _, f := range all[1:] {
		if rec.Field(f.Name) != "" {
			return false
		}
	}
	return true
}

// renderRecords renders the titled box holding the header row and the
// visible records, with the status line below it.
func (m Model) renderRecords() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	boxHeight := m.height - chromeRows

	content := m.renderHeaderRow(m.table.viewport.Width) + "\n" + m.table.viewport.View()
	box := m.renderTitledBox(m.tableTitle(), content, m.width, boxHeight, true)
	return box + "\n" + m.renderStatus(styles, bg)
}

func (m Model) tableTitle() string {
	path := m.snapshot.Path
	if path == "" && m.ctrl != nil {
		path = m.ctrl.Path()
	}
	if path == "" {
		return "Records"
	}
	return truncateMiddle(path, max(m.width/2, 10))
}

// renderStatus renders the line below the record box.
func (m Model) renderStatus(styles Styles, bg BgStyle) string {
	if m.search.active {
		return bg.FillLine(m.search.input.View(), m.width)
	}

	if m.notice.text != "" {
		st := styles.InfoText
		if m.notice.err {
			st = styles.DangerText
		}
		return bg.FillLine(bg.Render(truncate(m.notice.text, m.width), st), m.width)
	}

	if m.search.re != nil {
		if m.search.missed {
			return bg.FillLine(bg.Render("Pattern not found: "+m.search.query, styles.DangerText), m.width)
		}
		return bg.FillLine(
			bg.Render("/"+m.search.query, styles.AccentText)+
				bg.Render(" - Press ", styles.FaintText)+
				bg.Render("n", styles.AccentText)+
				bg.Render(" for next, ", styles.FaintText)+
				bg.Render("N", styles.AccentText)+
				bg.Render(" for previous, ", styles.FaintText)+
				bg.Render("Esc", styles.AccentText)+
				bg.Render(" to clear", styles.FaintText),
			m.width)
	}

	follow := "off"
	if m.table.follow {
		follow = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d records", m.records.Len()), styles.FaintText),
	}
	if ev := m.records.Evicted(); ev > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d evicted", ev), styles.FaintText))
	}
	parts = append(parts, bg.Render("follow "+follow, styles.FaintText))
	if m.colors != nil && !m.colors.Enabled() {
		parts = append(parts, bg.Render("colors off", styles.WarningText))
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return bg.FillLine(strings.Join(parts, sep), m.width)
}

// handleTableKey processes navigation and search keys.
func (m *Model) handleTableKey(msg tea.KeyMsg) tea.Cmd {
	if m.search.active {
		return m.handleSearchInput(msg)
	}

	page := max(m.bodyRows(), 1)
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.table.follow = !m.table.follow
	case key.Matches(msg, m.keys.Search):
		m.search.active = true
		m.search.input.SetValue("")
		return m.search.input.Focus()
	case key.Matches(msg, m.keys.NextMatch):
		m.findMatch(1)
	case key.Matches(msg, m.keys.PrevMatch):
		m.findMatch(-1)
	case key.Matches(msg, m.keys.Escape):
		m.clearSearch()
	case key.Matches(msg, m.keys.Top):
		m.scrollTo(0)
	case key.Matches(msg, m.keys.Bottom):
		m.table.follow = true
	case key.Matches(msg, m.keys.Down):
		m.scrollTo(m.table.offset + 1)
	case key.Matches(msg, m.keys.Up):
		m.scrollTo(m.table.offset - 1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.scrollTo(m.table.offset + page/2)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.scrollTo(m.table.offset - page/2)
	case key.Matches(msg, m.keys.PageDown):
		m.scrollTo(m.table.offset + page)
	case key.Matches(msg, m.keys.PageUp):
		m.scrollTo(m.table.offset - page)
	}
	return nil
}

// scrollTo moves the window to offset and leaves follow mode. Reaching the
// bottom does not re-enable following; G does.
func (m *Model) scrollTo(offset int) {
	m.table.follow = false
	maxOffset := max(m.records.Len()-m.bodyRows(), 0)
	m.table.offset = min(max(offset, 0), maxOffset)
}

// handleSearchInput handles keyboard input while typing a search.
func (m *Model) handleSearchInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := strings.TrimSpace(m.search.input.Value())
		m.search.active = false
		m.search.input.Blur()
		if query == "" {
			return nil
		}
		if err := m.applySearch(query); err != nil {
			m.setNotice("Invalid search: "+err.Error(), true)
		}
		return nil

	case key.Matches(msg, m.keys.Escape):
		m.search.active = false
		m.search.input.Blur()
		m.search.input.SetValue("")
		return nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return cmd
}

// applySearch highlights every record matching query and jumps to the
// nearest match at or before the bottom of the window.
func (m *Model) applySearch(query string) error {
	expr := "(?i)" + query
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	if m.colors != nil {
		if err := m.colors.Highlight(expr, m.theme.SearchStyle()); err != nil {
			return err
		}
	}
	m.search.re = re
	m.search.query = query
	m.search.match = nil
	m.search.missed = false
	m.findMatch(-1)
	return nil
}

// clearSearch drops the highlight and the current match.
func (m *Model) clearSearch() {
	if m.colors != nil {
		m.colors.ClearHighlight()
	}
	m.search.re = nil
	m.search.query = ""
	m.search.match = nil
	m.search.missed = false
}

// findMatch moves to the next (dir > 0) or previous matching record,
// wrapping around. Without a current match the search starts from the
// bottom of the window.
func (m *Model) findMatch(dir int) {
	if m.search.re == nil {
		return
	}
	total := m.records.Len()
	if total == 0 {
		m.search.missed = true
		return
	}

	start := m.indexOf(m.search.match)
	if start < 0 {
		start = min(m.table.offset+m.bodyRows(), total)
		if dir > 0 {
			start = m.table.offset - 1
		}
	}

	for step := 1; step <= total; step++ {
		idx := ((start+dir*step)%total + total) % total
		rec := m.records.At(idx)
		if m.search.re.MatchString(rec.Raw()) {
			m.search.match = rec
			m.search.missed = false
			m.reveal(idx)
			return
		}
	}
	m.search.match = nil
	m.search.missed = true
}

// indexOf returns the position of rec in the record list, or -1.
func (m *Model) indexOf(rec *columnize.Record) int {
	if rec == nil {
		return -1
	}
	for i := m.records.Len() - 1; i >= 0; i-- {
		if m.records.At(i) == rec {
			return i
		}
	}
	return -1
}

// reveal scrolls so idx is visible, centering it when it was off screen.
func (m *Model) reveal(idx int) {
	rows := m.bodyRows()
	if idx >= m.table.offset && idx < m.table.offset+rows {
		m.table.follow = false
		return
	}
	m.scrollTo(idx - rows/2)
}
