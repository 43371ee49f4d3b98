package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/farmbooks-dev/farmbooks/internal/config"
)

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

const (
	minColWidth = 8
	maxColWidth = 60
)

// Workbook collects tables as sheets of one spreadsheet.
type Workbook struct {
	f        *excelize.File
	header   int
	currency int
	sheets   []string
}

// NewWorkbook returns an empty workbook styled by cfg.
func NewWorkbook(cfg config.ExcelConfig) (*Workbook, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(headerStyle(cfg.Header))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	numFmt := cfg.Currency
	if numFmt == "" {
		numFmt = "#,##0.00"
	}
	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating currency style: %w", err)
	}
	return &Workbook{f: f, header: header, currency: currency}, nil
}

func headerStyle(h config.HeaderStyle) *excelize.Style {
	s := &excelize.Style{
		Font:      &excelize.Font{Bold: h.Bold, Color: h.FontColor},
		Alignment: &excelize.Alignment{WrapText: h.TextWrap, Vertical: h.VAlign},
	}
	if h.FgColor != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{h.FgColor}}
	}
	if h.Border > 0 {
		for _, side := range []string{"left", "top", "right", "bottom"} {
			s.Border = append(s.Border, excelize.Border{Type: side, Color: "000000", Style: h.Border})
		}
	}
	return s
}

// SheetName makes name usable as a sheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// AddSheet writes t to a new sheet named after its title. Amount columns get
// the currency format.
func (w *Workbook) AddSheet(t Table) error {
	name := w.uniqueName(SheetName(t.Title))
	if len(w.sheets) == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("naming sheet %s: %w", name, err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("adding sheet %s: %w", name, err)
	}
	w.sheets = append(w.sheets, name)

	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := w.f.SetCellValue(name, cell, c.Name); err != nil {
			return fmt.Errorf("writing header %s: %w", cell, err)
		}
		widths[i] = len(c.Name)
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := w.f.SetCellStyle(name, "A1", last, w.header); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
	}

	for r, row := range t.Rows {
		for i, v := range row {
			if i >= len(t.Columns) {
				break
			}
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(name, cell, cellValue(v)); err != nil {
				return fmt.Errorf("writing %s: %w", cell, err)
			}
			if t.Columns[i].Kind == Amount {
				if err := w.f.SetCellStyle(name, cell, cell, w.currency); err != nil {
					return fmt.Errorf("styling %s: %w", cell, err)
				}
			}
			widths[i] = max(widths[i], len(fmt.Sprint(v)))
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(name, col, col, float64(min(max(width+2, minColWidth), maxColWidth))); err != nil {
			return fmt.Errorf("sizing column %s: %w", col, err)
		}
	}
	return nil
}

func (w *Workbook) uniqueName(name string) string {
	taken := func(n string) bool {
		for _, s := range w.sheets {
			if strings.EqualFold(s, n) {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		if n := string(base) + suffix; !taken(n) {
			return n
		}
	}
}

func cellValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}

// Sheets returns the sheet names in order.
func (w *Workbook) Sheets() []string {
	return w.sheets
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

// WriteTo writes the workbook as xlsx bytes.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}
