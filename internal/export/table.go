// Package export renders report tables to the terminal, spreadsheets and CSV
// snapshots.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind says how a column's values are formatted.
type Kind int

const (
	Text Kind = iota
	Amount
	Quantity
)

// Column is a table column.
type Column struct {
	Name string
	Kind Kind
}

// Table is a titled grid of cells. Cells hold string, int, int64 or
// decimal.Decimal values.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]any
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Numbers formats amounts with digit grouping.
type Numbers struct {
	p *message.Printer
}

// NewNumbers returns a formatter for tag, e.g. language.AmericanEnglish.
func NewNumbers(tag language.Tag) Numbers {
	return Numbers{p: message.NewPrinter(tag)}
}

// Format renders d with places decimals and grouped thousands.
func (n Numbers) Format(d decimal.Decimal, places int32) string {
	s := d.Abs().StringFixed(places)
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		// too large to group
		return d.StringFixed(places)
	}
	out := n.p.Sprintf("%d", w)
	if frac != "" {
		out += "." + frac
	}
	if d.Round(places).IsNegative() {
		out = "-" + out
	}
	return out
}

// Cell renders one value. Decimals get two places.
func (n Numbers) Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		return n.Format(x, 2)
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(x)
	}
}

// Terminal writes tables as aligned text.
type Terminal struct {
	out     *termenv.Output
	numbers Numbers
}

// NewTerminal returns a Terminal writing to w. Styling is dropped when w is
// not a terminal.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{out: termenv.NewOutput(w), numbers: NewNumbers(language.AmericanEnglish)}
}

const columnGap = 2

// Render writes t with a title line, a header row and one line per row.
// Text columns are left aligned and numbers right aligned; widths are
// measured in terminal cells.
func (term *Terminal) Render(t Table) error {
	cells := make([][]string, len(t.Rows))
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = runewidth.StringWidth(c.Name)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				cells[r][i] = term.numbers.Cell(row[i])
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cells[r][i]))
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(term.out.String(t.Title).Bold().String())
		b.WriteString("\n")
	}
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = term.out.String(pad(c.Name, widths[i], c.Kind != Text)).Bold().String()
	}
	b.WriteString(strings.TrimRight(strings.Join(header, strings.Repeat(" ", columnGap)), " "))
	b.WriteString("\n")

	for r, row := range cells {
		line := make([]string, len(row))
		for i, s := range row {
			padded := pad(s, widths[i], t.Columns[i].Kind != Text)
			if d, ok := valueAt(t.Rows[r], i).(decimal.Decimal); ok && d.IsNegative() {
				padded = term.out.String(padded).Foreground(term.out.Color("1")).String()
			}
			line[i] = padded
		}
		b.WriteString(strings.TrimRight(strings.Join(line, strings.Repeat(" ", columnGap)), " "))
		b.WriteString("\n")
	}
	_, err := io.WriteString(term.out, b.String())
	return err
}

func valueAt(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func pad(s string, width int, right bool) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}
