package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validShift() Shift {
	start := time.Date(2025, 11, 8, 9, 0, 0, 0, time.UTC)
	return Shift{
		EmployeeName: "John Doe",
		Position:     "Cashier",
		StartTime:    start,
		EndTime:      start.Add(8 * time.Hour),
		Status:       StatusScheduled,
	}
}

func TestShift_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *Shift)
		messages []string
	}{
		{"valid", func(s *Shift) {}, nil},
		{"notes may be empty", func(s *Shift) { s.Notes = "" }, nil},
		{"blank employee", func(s *Shift) { s.EmployeeName = "   " }, []string{"Employee name can't be blank"}},
		{"blank position", func(s *Shift) { s.Position = "" }, []string{"Position can't be blank"}},
		{"missing start", func(s *Shift) { s.StartTime = time.Time{} }, []string{"Start time can't be blank"}},
		{"missing end", func(s *Shift) { s.EndTime = time.Time{} }, []string{"End time can't be blank"}},
		{"blank status", func(s *Shift) { s.Status = "" }, []string{"Status can't be blank"}},
		{"unknown status", func(s *Shift) { s.Status = "pending" }, []string{"Status is not included in the list"}},
		{"end equals start", func(s *Shift) { s.EndTime = s.StartTime }, []string{"End time must be after start time"}},
		{"end before start", func(s *Shift) { s.EndTime = s.StartTime.Add(-time.Minute) }, []string{"End time must be after start time"}},
		{
			"everything missing",
			func(s *Shift) { *s = Shift{} },
			[]string{
				"Employee name can't be blank",
				"Position can't be blank",
				"Start time can't be blank",
				"End time can't be blank",
				"Status can't be blank",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validShift()
			tt.mutate(&s)
			err := s.Validate()
			if tt.messages == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.messages, verr.Messages())
		})
	}
}

func TestShiftFields_Apply(t *testing.T) {
	s := validShift()
	s.ID = 7

	ShiftFields{Status: strPtr(StatusCompleted)}.Apply(&s)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, "John Doe", s.EmployeeName)
	assert.Equal(t, int64(7), s.ID)

	zero := time.Time{}
	ShiftFields{StartTime: &zero}.Apply(&s)
	var verr *ValidationError
	require.True(t, errors.As(s.Validate(), &verr))
	assert.True(t, verr.Has("start_time"))
	assert.False(t, verr.Has("end_time"))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 11, 8, 9, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2025-11-08T09:00:00Z",
		"2025-11-08T09:00:00.000Z",
		"2025-11-08T11:00:00+02:00",
		"2025-11-08T09:00:00",
		"2025-11-08T09:00",
	} {
		got, ok := ParseTimestamp(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), in)
	}

	for _, in := range []string{"", "  ", "tomorrow", "2025-13-45T99:00"} {
		_, ok := ParseTimestamp(in)
		assert.False(t, ok, in)
	}
}

func TestFormatFormTime(t *testing.T) {
	ts := time.Date(2025, 11, 8, 9, 30, 45, 123, time.UTC)
	assert.Equal(t, "2025-11-08T09:30", FormatFormTime(ts))
	assert.Equal(t, "", FormatFormTime(time.Time{}))
}
