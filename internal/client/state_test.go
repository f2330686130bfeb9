package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shiftboard/internal/models"
)

func sampleShift(id int64) models.Shift {
	start := time.Date(2025, 11, 8, 9, 0, 45, 500, time.UTC)
	return models.Shift{
		ID:           id,
		EmployeeName: "John Doe",
		Position:     "Cashier",
		StartTime:    start,
		EndTime:      start.Add(8 * time.Hour),
		Status:       models.StatusScheduled,
	}
}

func TestReduce_Load(t *testing.T) {
	s := Reduce(InitialState(), LoadStarted{})
	assert.True(t, s.Loading)

	failed := Reduce(s, LoadFailed{Err: errors.New("down")})
	assert.False(t, failed.Loading)
	assert.Equal(t, MsgLoadFailed, failed.Error)
	assert.Empty(t, failed.Shifts)

	ok := Reduce(failed, LoadSucceeded{Shifts: []models.Shift{sampleShift(1)}})
	assert.False(t, ok.Loading)
	assert.Empty(t, ok.Error)
	assert.Len(t, ok.Shifts, 1)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	shifts := []models.Shift{sampleShift(1), sampleShift(2)}
	before := Reduce(InitialState(), LoadSucceeded{Shifts: shifts})

	after := Reduce(before, DeleteSucceeded{ID: 1})
	assert.Len(t, before.Shifts, 2)
	assert.Len(t, after.Shifts, 1)
	assert.Equal(t, int64(2), after.Shifts[0].ID)

	edited := Reduce(before, FieldChanged{Field: FieldPosition, Value: "Cook"})
	assert.Equal(t, "", before.Form.Position)
	assert.Equal(t, "Cook", edited.Form.Position)
}

func TestReduce_EditTruncatesToMinute(t *testing.T) {
	s := Reduce(InitialState(), EditStarted{Shift: sampleShift(7)})
	assert.True(t, s.FormOpen)
	assert.True(t, s.Editing())
	assert.Equal(t, int64(7), s.EditingID)
	assert.Equal(t, "2025-11-08T09:00", s.Form.StartTime)
	assert.Equal(t, "2025-11-08T17:00", s.Form.EndTime)
	assert.Equal(t, models.StatusScheduled, s.Form.Status)
}

func TestReduce_SubmitLifecycle(t *testing.T) {
	s := Reduce(InitialState(), FormOpened{})
	s = Reduce(s, FieldChanged{Field: FieldEmployeeName, Value: "Jane"})

	rejected := Reduce(s, SubmitRejected{Missing: []Field{FieldPosition}})
	assert.Equal(t, MsgRequiredFields, rejected.Error)
	assert.True(t, rejected.FormOpen)
	assert.Equal(t, "Jane", rejected.Form.EmployeeName)

	started := Reduce(s, SubmitStarted{})
	assert.True(t, started.Loading)

	failed := Reduce(started, SubmitFailed{Err: errors.New("422")})
	assert.Equal(t, MsgSaveFailed, failed.Error)
	assert.False(t, failed.Loading)
	assert.True(t, failed.FormOpen)
	assert.Equal(t, "Jane", failed.Form.EmployeeName)

	done := Reduce(started, SubmitSucceeded{})
	assert.False(t, done.FormOpen)
	assert.False(t, done.Loading)
	assert.Equal(t, EmptyForm(), done.Form)
	assert.Zero(t, done.EditingID)
}

func TestReduce_DeleteFailedKeepsCache(t *testing.T) {
	s := Reduce(InitialState(), LoadSucceeded{Shifts: []models.Shift{sampleShift(1)}})
	s = Reduce(s, DeleteFailed{ID: 1, Err: errors.New("500")})
	assert.Equal(t, MsgDeleteFailed, s.Error)
	assert.Len(t, s.Shifts, 1)
}

func TestReduce_FormReset(t *testing.T) {
	s := Reduce(InitialState(), EditStarted{Shift: sampleShift(3)})
	s = Reduce(s, FormReset{})
	assert.False(t, s.FormOpen)
	assert.False(t, s.Editing())
	assert.Equal(t, models.StatusScheduled, s.Form.Status)
}

func TestForm_MissingAndMapRoundTrip(t *testing.T) {
	f := EmptyForm()
	assert.Equal(t, RequiredFields, f.Missing())

	f = f.With(FieldEmployeeName, "A").With(FieldPosition, "B").With(FieldStartTime, "x").With(FieldEndTime, "y")
	assert.Empty(t, f.Missing())

	assert.Equal(t, f, FormFromMap(f.ToMap()))

	field, ok := ParseField("Employee name")
	assert.True(t, ok)
	assert.Equal(t, FieldEmployeeName, field)
	_, ok = ParseField("salary")
	assert.False(t, ok)
}

func TestStatusBadge(t *testing.T) {
	assert.Equal(t, "blue", StatusBadge("scheduled").Color)
	assert.Equal(t, "green", StatusBadge("completed").Color)
	assert.Equal(t, "red", StatusBadge("cancelled").Color)

	unknown := StatusBadge("archived")
	assert.Equal(t, "gray", unknown.Color)
	assert.Equal(t, "archived", unknown.Label)
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2025, 11, 8, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "Nov 8, 2:05 PM", FormatDateTime(ts, nil))
	assert.Equal(t, "", FormatDateTime(time.Time{}, nil))
}
