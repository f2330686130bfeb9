package google

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"shiftboard/internal/config"
	"shiftboard/internal/events"
	"shiftboard/internal/metrics"
	"shiftboard/internal/models"
)

var sheetHeader = []interface{}{"ID", "Employee", "Position", "Start", "End", "Status", "Notes", "Created", "Updated"}

// ShiftLister is the source of truth mirrored into the sheet.
type ShiftLister interface {
	ListShifts(ctx context.Context) ([]models.Shift, error)
}

// valuesClient is the subset of the Sheets values API in use.
type valuesClient interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error
}

type googleValues struct {
	srv *sheets.Service
}

func (g googleValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := g.srv.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g googleValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error {
	_, err := g.srv.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// SheetsService mirrors the non-cancelled shifts into a Google Sheet.
// Writes are queued by HandleEvent and applied by the Start loop, so API
// requests never wait on Google.
type SheetsService struct {
	values        valuesClient
	spreadsheetID string
	sheetName     string
	source        ShiftLister
	logger        *zerolog.Logger

	trigger chan struct{}

	mu         sync.Mutex
	rowCache   map[int64]int
	fullSync   bool
	rowUpdates map[int64]models.Shift
}

// NewSheetsService authenticates with the service account in cfg.CredentialsFile.
func NewSheetsService(ctx context.Context, cfg config.SheetsConfig, source ShiftLister, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := googleoauth.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newSheetsService(googleValues{srv: srv}, cfg.SpreadsheetID, cfg.SheetName, source, logger), nil
}

func newSheetsService(values valuesClient, spreadsheetID, sheetName string, source ShiftLister, logger *zerolog.Logger) *SheetsService {
	l := logger.With().Str("component", "sheets").Logger()
	return &SheetsService{
		values:        values,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		source:        source,
		logger:        &l,
		trigger:       make(chan struct{}, 1),
		rowCache:      make(map[int64]int),
		rowUpdates:    make(map[int64]models.Shift),
	}
}

// HandleEvent queues the sheet change for a committed shift write.
// An update to a row already on the sheet is patched in place; anything that
// adds, removes or hides a row triggers a full rewrite.
func (s *SheetsService) HandleEvent(e events.Event) error {
	s.mu.Lock()
	_, cached := s.rowCache[e.ShiftID]
	if e.Type == events.ShiftUpdated && e.Shift != nil && cached && e.Shift.Status != models.StatusCancelled {
		s.rowUpdates[e.ShiftID] = *e.Shift
	} else {
		s.fullSync = true
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// RequestSync schedules a full rewrite.
func (s *SheetsService) RequestSync() {
	s.mu.Lock()
	s.fullSync = true
	s.mu.Unlock()
	s.notify()
}

func (s *SheetsService) notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start applies queued changes until ctx is done. Bursts coalesce into one run.
func (s *SheetsService) Start(ctx context.Context) {
	s.RequestSync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			if err := s.flush(ctx); err != nil {
				metrics.IncSheetsSync("error")
				s.logger.Error().Err(err).Msg("sheets sync failed")
				continue
			}
			metrics.IncSheetsSync("ok")
		}
	}
}

func (s *SheetsService) flush(ctx context.Context) error {
	s.mu.Lock()
	full := s.fullSync
	updates := s.rowUpdates
	s.fullSync = false
	s.rowUpdates = make(map[int64]models.Shift)
	s.mu.Unlock()

	if full {
		if err := s.SyncAll(ctx); err != nil {
			s.mu.Lock()
			s.fullSync = true
			s.mu.Unlock()
			return err
		}
		return nil
	}

	for id := range updates {
		shift := updates[id]
		if err := s.updateRow(ctx, &shift); err != nil {
			s.RequestSync()
			return err
		}
	}
	return nil
}

// SyncAll rewrites the sheet from the current shift list.
func (s *SheetsService) SyncAll(ctx context.Context) error {
	shifts, err := s.source.ListShifts(ctx)
	if err != nil {
		return fmt.Errorf("list shifts: %w", err)
	}
	active := s.filterActiveShifts(shifts)

	rows := make([][]interface{}, 0, len(active)+1)
	rows = append(rows, sheetHeader)
	for i := range active {
		rows = append(rows, shiftRowValues(&active[i]))
	}

	if err := s.values.Clear(ctx, s.spreadsheetID, s.sheetName); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if err := s.values.Update(ctx, s.spreadsheetID, s.sheetName+"!A1", rows); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.ClearCache()
	for i := range active {
		// Row 1 is the header.
		s.setCachedRow(active[i].ID, i+2)
	}

	s.logger.Info().Int("rows", len(active)).Msg("sheet synced")
	return nil
}

func (s *SheetsService) updateRow(ctx context.Context, shift *models.Shift) error {
	row, ok := s.getCachedRow(shift.ID)
	if !ok {
		return fmt.Errorf("shift %d has no row", shift.ID)
	}
	rng := fmt.Sprintf("%s!A%d", s.sheetName, row)
	if err := s.values.Update(ctx, s.spreadsheetID, rng, [][]interface{}{shiftRowValues(shift)}); err != nil {
		s.deleteCacheRow(shift.ID)
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

func (s *SheetsService) filterActiveShifts(shifts []models.Shift) []models.Shift {
	out := make([]models.Shift, 0, len(shifts))
	for _, sh := range shifts {
		if sh.Status == models.StatusCancelled {
			continue
		}
		out = append(out, sh)
	}
	return out
}

func shiftRowValues(s *models.Shift) []interface{} {
	return []interface{}{
		s.ID,
		s.EmployeeName,
		s.Position,
		s.StartTime.UTC().Format("2006-01-02 15:04"),
		s.EndTime.UTC().Format("2006-01-02 15:04"),
		s.Status,
		s.Notes,
		s.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		s.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache forgets every known row position.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[int64]int)
}
