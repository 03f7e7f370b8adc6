package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"

	"github.com/five82/loglens/internal/colorize"
	"github.com/five82/loglens/internal/columnize"
	"github.com/five82/loglens/internal/ingest"
)

// Printer writes each record as one line, laid out in the visible columns
// and styled by the first matching color rule. It is the sink for plain
// mode and runs on the consumer context.
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	columns  *columnize.Columnizer
	colors   *colorize.Colorizer
	err      error
}

var _ ingest.Sink = (*Printer)(nil)

// NewPrinter returns a printer writing to out. Color is emitted only when
// out is a terminal that supports it.
func NewPrinter(out io.Writer, columns *columnize.Columnizer, colors *colorize.Colorizer) *Printer {
	return &Printer{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		columns:  columns,
		colors:   colors,
	}
}

// AppendBatch implements ingest.Sink.
func (p *Printer) AppendBatch(batch []columnize.Record) {
	if len(batch) == 0 {
		return
	}
	var all, fields []columnize.FieldDefinition
	if p.columns != nil {
		all = p.columns.Fields()
		fields = p.columns.Visible()
	}

	var b strings.Builder
	for i := range batch {
		rec := &batch[i]
		line := plainLine(rec, all, fields)
		if p.colors != nil {
			if st := p.colors.StyleFor(rec); !st.IsZero() {
				line = p.renderer.NewStyle().Inherit(st.Lipgloss()).Render(line)
			}
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(p.out, b.String()); err != nil {
		p.err = multierr.Append(p.err, err)
	}
}

// Err returns every write error seen so far.
func (p *Printer) Err() error { return p.err }

// plainLine pads fixed-width columns and leaves the rest at their natural
// width. The last column is never padded.
func plainLine(rec *columnize.Record, all, fields []columnize.FieldDefinition) string {
	if len(fields) == 0 || unparsed(rec, all) {
		return flatten(rec.Raw())
	}
	cells := make([]string, len(fields))
	for i, f := range fields {
		v := flatten(rec.Field(f.Name))
		if f.Width > 0 && i < len(fields)-1 {
			v = fitCell(v, f.Width)
		}
		cells[i] = v
	}
	return strings.TrimRight(strings.Join(cells, columnGap), " ")
}
