package audit

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName = 31
	maxColWidth  = 60
)

// ExcelizeWriter implements ExcelWriter on top of excelize.
type ExcelizeWriter struct {
	file      *excelize.File
	sheet     string
	row       int
	widths    []int
	timeStyle int
}

// NewExcelizeWriter creates an empty workbook.
func NewExcelizeWriter() ExcelWriter {
	f := excelize.NewFile()
	custom := "yyyy-mm-dd hh:mm"
	style, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	return &ExcelizeWriter{file: f, timeStyle: style}
}

// AddSheet starts a new sheet. The first call renames the default sheet.
func (w *ExcelizeWriter) AddSheet(name string) error {
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}

	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.flushWidths()
	w.sheet = name
	w.row = 1
	w.widths = nil
	return nil
}

// WriteHeader writes a bold header row and freezes it.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeValues(values); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		start, _ := excelize.CoordinatesToCellName(1, w.row)
		end, _ := excelize.CoordinatesToCellName(len(columns), w.row)
		_ = w.file.SetCellStyle(w.sheet, start, end, style)
	}
	_ = w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      w.row,
		TopLeftCell: fmt.Sprintf("A%d", w.row+1),
		ActivePane:  "bottomLeft",
	})

	w.row++
	return nil
}

// WriteRow appends a data row. time.Time values get a date format.
func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	if err := w.writeValues(row); err != nil {
		return err
	}
	w.row++
	return nil
}

func (w *ExcelizeWriter) writeValues(values []interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if b, ok := val.([]byte); ok {
			val = string(b)
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
		if _, ok := val.(time.Time); ok {
			_ = w.file.SetCellStyle(w.sheet, cell, cell, w.timeStyle)
		}
		w.trackWidth(i, val)
	}
	return nil
}

func (w *ExcelizeWriter) trackWidth(col int, val interface{}) {
	for len(w.widths) <= col {
		w.widths = append(w.widths, 8)
	}
	n := utf8.RuneCountInString(fmt.Sprint(val)) + 2
	if _, ok := val.(time.Time); ok {
		n = 18
	}
	if n > maxColWidth {
		n = maxColWidth
	}
	if n > w.widths[col] {
		w.widths[col] = n
	}
}

func (w *ExcelizeWriter) flushWidths() {
	for i, width := range w.widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		_ = w.file.SetColWidth(w.sheet, name, name, float64(width))
	}
}

// Save writes the workbook to wr.
func (w *ExcelizeWriter) Save(wr io.Writer) error {
	w.flushWidths()
	return w.file.Write(wr)
}

// Close releases resources.
func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}
