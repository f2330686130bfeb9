package models

import (
	"errors"
	"strings"
	"time"
)

// Shift statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Statuses lists the allowed shift statuses in display order.
var Statuses = []string{StatusScheduled, StatusCompleted, StatusCancelled}

// ErrNotFound is returned when no shift exists for the requested id.
var ErrNotFound = errors.New("shift not found")

// Shift represents a scheduled work interval assigned to one employee.
type Shift struct {
	ID           int64     `json:"id"`
	EmployeeName string    `json:"employee_name"`
	Position     string    `json:"position"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ShiftFields carries the writable attributes of a shift.
// A nil field was not submitted. A submitted timestamp that could not be
// parsed is carried as a pointer to the zero time so it validates as blank.
type ShiftFields struct {
	EmployeeName *string
	Position     *string
	StartTime    *time.Time
	EndTime      *time.Time
	Status       *string
	Notes        *string
}

// Apply copies every submitted field onto s.
func (f ShiftFields) Apply(s *Shift) {
	if f.EmployeeName != nil {
		s.EmployeeName = *f.EmployeeName
	}
	if f.Position != nil {
		s.Position = *f.Position
	}
	if f.StartTime != nil {
		s.StartTime = *f.StartTime
	}
	if f.EndTime != nil {
		s.EndTime = *f.EndTime
	}
	if f.Status != nil {
		s.Status = *f.Status
	}
	if f.Notes != nil {
		s.Notes = *f.Notes
	}
}

// NewShift builds an unsaved shift from submitted fields.
func NewShift(f ShiftFields) Shift {
	var s Shift
	f.Apply(&s)
	return s
}

// Validate checks the shift invariants and returns a *ValidationError
// listing every violation, or nil.
func (s *Shift) Validate() error {
	var verr ValidationError

	if isBlank(s.EmployeeName) {
		verr.Add("employee_name", "can't be blank")
	}
	if isBlank(s.Position) {
		verr.Add("position", "can't be blank")
	}
	if s.StartTime.IsZero() {
		verr.Add("start_time", "can't be blank")
	}
	if s.EndTime.IsZero() {
		verr.Add("end_time", "can't be blank")
	}
	switch {
	case isBlank(s.Status):
		verr.Add("status", "can't be blank")
	case !IsValidStatus(s.Status):
		verr.Add("status", "is not included in the list")
	}
	if !s.StartTime.IsZero() && !s.EndTime.IsZero() && !s.EndTime.After(s.StartTime) {
		verr.Add("end_time", "must be after start time")
	}

	if len(verr.Errors) > 0 {
		return &verr
	}
	return nil
}

// Duration returns the length of the shift.
func (s *Shift) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// IsValidStatus reports whether status is one of the allowed values.
func IsValidStatus(status string) bool {
	for _, st := range Statuses {
		if st == status {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
