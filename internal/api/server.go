package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"shiftboard/internal/config"
	"shiftboard/internal/events"
	"shiftboard/internal/models"
)

// ShiftStore is the persistence the API needs.
type ShiftStore interface {
	ListShifts(ctx context.Context) ([]models.Shift, error)
	GetShift(ctx context.Context, id int64) (*models.Shift, error)
	CreateShift(ctx context.Context, fields models.ShiftFields) (*models.Shift, error)
	UpdateShift(ctx context.Context, id int64, fields models.ShiftFields) (*models.Shift, error)
	DeleteShift(ctx context.Context, id int64) error
}

// ShiftExporter renders the shift table as a spreadsheet.
type ShiftExporter interface {
	WriteShiftsWorkbook(ctx context.Context, w io.Writer) error
}

// HTTPServer serves the shifts REST API.
type HTTPServer struct {
	server   *http.Server
	store    ShiftStore
	exporter ShiftExporter
	bus      *events.EventBus
	limiter  *ipRateLimiter
	cors     map[string]bool
	log      *zerolog.Logger
}

// Option customizes an HTTPServer.
type Option func(*HTTPServer)

// WithExporter enables GET /api/exports/shifts.xlsx.
func WithExporter(e ShiftExporter) Option {
	return func(s *HTTPServer) { s.exporter = e }
}

// WithEventBus publishes shift lifecycle events after each committed write.
func WithEventBus(bus *events.EventBus) Option {
	return func(s *HTTPServer) { s.bus = bus }
}

// NewHTTPServer builds the API server. It does not start listening.
func NewHTTPServer(cfg *config.Config, store ShiftStore, logger *zerolog.Logger, opts ...Option) *HTTPServer {
	l := logger.With().Str("component", "api").Logger()
	s := &HTTPServer{
		store:   store,
		limiter: newIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		cors:    make(map[string]bool),
		log:     &l,
	}
	for _, o := range opts {
		o(s)
	}
	for _, origin := range cfg.Server.CORSOrigins {
		s.cors[origin] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shifts", s.handleListShifts)
	mux.HandleFunc("POST /api/shifts", s.handleCreateShift)
	mux.HandleFunc("GET /api/shifts/{id}", s.handleGetShift)
	mux.HandleFunc("PUT /api/shifts/{id}", s.handleUpdateShift)
	mux.HandleFunc("PATCH /api/shifts/{id}", s.handleUpdateShift)
	mux.HandleFunc("DELETE /api/shifts/{id}", s.handleDeleteShift)
	if s.exporter != nil {
		mux.HandleFunc("GET /api/exports/shifts.xlsx", s.handleExportShifts)
	}

	s.server = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.withCORS(s.withRateLimit(s.instrument(mux))),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
