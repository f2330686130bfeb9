package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Service renders the database tables into xlsx workbooks, on demand and
// once a month into the export directory.
type Service struct {
	exporter TableExporter
	writer   func() ExcelWriter
	dir      string
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewService creates an export service. writerFactory may be nil to use excelize.
func NewService(exporter TableExporter, writerFactory func() ExcelWriter, dir string, logger *zerolog.Logger) *Service {
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}
	l := logger.With().Str("component", "audit").Logger()
	return &Service{
		exporter: exporter,
		writer:   writerFactory,
		dir:      dir,
		now:      time.Now,
		logger:   &l,
	}
}

// Start writes a workbook on the first of every month until ctx is done.
func (s *Service) Start(ctx context.Context) {
	for {
		next := nextFirstOfMonth(s.now())
		s.logger.Info().Time("next_run", next).Msg("Next export scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.ExportToDir(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Monthly export failed")
			}
		}
	}
}

func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// ExportToDir writes the workbook for the previous month's close into the
// export directory and returns its path.
func (s *Service) ExportToDir(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(s.dir, GenerateFilename(s.now().AddDate(0, -1, 0)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := s.WriteShiftsWorkbook(ctx, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.logger.Info().Str("path", path).Msg("Export written")
	return path, nil
}

// WriteShiftsWorkbook renders every exported table as a sheet into w.
func (s *Service) WriteShiftsWorkbook(ctx context.Context, w io.Writer) error {
	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	excel := s.writer()
	defer excel.Close()

	if len(tables) == 0 {
		if err := excel.AddSheet("empty"); err != nil {
			return err
		}
	}

	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			return fmt.Errorf("get %s data: %w", tableName, err)
		}

		if err := excel.AddSheet(tableName); err != nil {
			return err
		}
		if err := excel.WriteHeader(columns); err != nil {
			return fmt.Errorf("write %s header: %w", tableName, err)
		}

		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				return fmt.Errorf("write %s row: %w", tableName, err)
			}
		}

		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("Exported table")
	}

	if err := excel.Save(w); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}
