package audit

import (
	"context"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to database tables for export.
type TableExporter interface {
	// GetTableNames returns list of table names to export.
	GetTableNames(ctx context.Context) ([]string, error)

	// GetTableData returns rows for a table as maps.
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// ExcelWriter writes tabular data to a workbook.
type ExcelWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	Close() error
}

// GenerateFilename names the workbook for the month containing t,
// e.g. "shifts_2026-01.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("shifts_%04d-%02d.xlsx", t.Year(), int(t.Month()))
}
