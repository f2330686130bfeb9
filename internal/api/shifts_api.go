package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"shiftboard/internal/events"
	"shiftboard/internal/metrics"
	"shiftboard/internal/models"
)

const (
	msgShiftParamMissing = "param is missing or the value is empty: shift"
	msgInvalidJSON       = "invalid JSON body"
	msgShiftNotFound     = "Shift not found"

	maxBodyBytes = 1 << 20
)

// ValidationErrorResponse is the 422 body.
type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}

// handleListShifts returns every shift.
// GET /api/shifts
func (s *HTTPServer) handleListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.store.ListShifts(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

// GET /api/shifts/{id}
func (s *HTTPServer) handleGetShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgShiftNotFound)
		return
	}

	shift, err := s.store.GetShift(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgShiftNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

// handleCreateShift validates and persists a new shift.
// POST /api/shifts {"shift": {...}}
func (s *HTTPServer) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	fields, status, msg := decodeShiftParams(r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	shift, err := s.store.CreateShift(r.Context(), fields)
	if s.writeValidationError(w, err) {
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	metrics.IncShiftMutation("create")
	zerolog.Ctx(r.Context()).Info().
		Int64("shift_id", shift.ID).
		Str("employee", shift.EmployeeName).
		Msg("shift created")
	s.publish(events.ShiftCreated, shift.ID, shift)

	w.Header().Set("Location", "/api/shifts/"+strconv.FormatInt(shift.ID, 10))
	writeJSON(w, http.StatusCreated, shift)
}

// handleUpdateShift merges submitted fields onto an existing shift.
// PUT|PATCH /api/shifts/{id} {"shift": {...}}
func (s *HTTPServer) handleUpdateShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgShiftNotFound)
		return
	}

	fields, status, msg := decodeShiftParams(r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	shift, err := s.store.UpdateShift(r.Context(), id, fields)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgShiftNotFound)
		return
	}
	if s.writeValidationError(w, err) {
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	metrics.IncShiftMutation("update")
	zerolog.Ctx(r.Context()).Info().
		Int64("shift_id", shift.ID).
		Str("status", shift.Status).
		Msg("shift updated")
	s.publish(events.ShiftUpdated, shift.ID, shift)

	writeJSON(w, http.StatusOK, shift)
}

// DELETE /api/shifts/{id}
func (s *HTTPServer) handleDeleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgShiftNotFound)
		return
	}

	err := s.store.DeleteShift(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgShiftNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	metrics.IncShiftMutation("delete")
	zerolog.Ctx(r.Context()).Info().Int64("shift_id", id).Msg("shift deleted")
	s.publish(events.ShiftDeleted, id, nil)

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/exports/shifts.xlsx
func (s *HTTPServer) handleExportShifts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.exporter.WriteShiftsWorkbook(r.Context(), &buf); err != nil {
		s.internalError(w, r, err)
		return
	}

	filename := "shifts_" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for _, fe := range verr.Errors {
		metrics.IncValidationFailure(fe.Field)
	}
	writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: verr.Messages()})
	return true
}

func (s *HTTPServer) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (s *HTTPServer) publish(eventType string, id int64, shift *models.Shift) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, ShiftID: id, Shift: shift})
}

// shiftID parses the {id} path segment. Non-numeric ids cannot match a row.
func shiftID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeShiftParams reads {"shift": {...}} into ShiftFields. On failure it
// returns a non-zero status with the message to send.
func decodeShiftParams(r *http.Request) (models.ShiftFields, int, string) {
	var fields models.ShiftFields

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fields, http.StatusBadRequest, msgInvalidJSON
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, http.StatusBadRequest, msgShiftParamMissing
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fields, http.StatusBadRequest, msgInvalidJSON
	}

	var params map[string]json.RawMessage
	raw, ok := envelope["shift"]
	if !ok || json.Unmarshal(raw, &params) != nil || len(params) == 0 {
		return fields, http.StatusBadRequest, msgShiftParamMissing
	}

	fields.EmployeeName = stringParam(params, "employee_name")
	fields.Position = stringParam(params, "position")
	fields.Status = stringParam(params, "status")
	fields.Notes = stringParam(params, "notes")
	fields.StartTime = timeParam(params, "start_time")
	fields.EndTime = timeParam(params, "end_time")
	return fields, 0, ""
}

// stringParam coerces a submitted scalar to its string form. Absent keys yield
// nil; null, objects and arrays yield "".
func stringParam(params map[string]json.RawMessage, key string) *string {
	raw, ok := params[key]
	if !ok {
		return nil
	}

	var out string
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		switch val := v.(type) {
		case string:
			out = val
		case float64, bool:
			out = string(bytes.TrimSpace(raw))
		}
	}
	return &out
}

// timeParam parses a submitted timestamp. Unparseable values are carried as
// the zero time so they fail validation as blank.
func timeParam(params map[string]json.RawMessage, key string) *time.Time {
	str := stringParam(params, key)
	if str == nil {
		return nil
	}
	t, _ := models.ParseTimestamp(*str)
	return &t
}
