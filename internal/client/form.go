package client

import (
	"strings"

	"shiftboard/internal/models"
)

// Field names a form input. Values match the JSON keys of a shift.
type Field string

const (
	FieldEmployeeName Field = "employee_name"
	FieldPosition     Field = "position"
	FieldStartTime    Field = "start_time"
	FieldEndTime      Field = "end_time"
	FieldStatus       Field = "status"
	FieldNotes        Field = "notes"
)

// RequiredFields are checked before a submission leaves the client.
// Status always has a value and is not listed.
var RequiredFields = []Field{FieldEmployeeName, FieldPosition, FieldStartTime, FieldEndTime}

// Form holds the raw text of the create/edit form.
type Form struct {
	EmployeeName string `json:"employee_name"`
	Position     string `json:"position"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

// EmptyForm is the blank create form.
func EmptyForm() Form {
	return Form{Status: models.StatusScheduled}
}

// FormFromShift fills the form from a stored shift. Timestamps are cut to
// minute precision since that is what the input accepts.
func FormFromShift(s models.Shift) Form {
	return Form{
		EmployeeName: s.EmployeeName,
		Position:     s.Position,
		StartTime:    models.FormatFormTime(s.StartTime),
		EndTime:      models.FormatFormTime(s.EndTime),
		Status:       s.Status,
		Notes:        s.Notes,
	}
}

// Get returns the value of field.
func (f Form) Get(field Field) string {
	switch field {
	case FieldEmployeeName:
		return f.EmployeeName
	case FieldPosition:
		return f.Position
	case FieldStartTime:
		return f.StartTime
	case FieldEndTime:
		return f.EndTime
	case FieldStatus:
		return f.Status
	case FieldNotes:
		return f.Notes
	}
	return ""
}

// With returns a copy of f with field set to value. Unknown fields are ignored.
func (f Form) With(field Field, value string) Form {
	switch field {
	case FieldEmployeeName:
		f.EmployeeName = value
	case FieldPosition:
		f.Position = value
	case FieldStartTime:
		f.StartTime = value
	case FieldEndTime:
		f.EndTime = value
	case FieldStatus:
		f.Status = value
	case FieldNotes:
		f.Notes = value
	}
	return f
}

// Missing lists the required fields left empty.
func (f Form) Missing() []Field {
	var out []Field
	for _, field := range RequiredFields {
		if f.Get(field) == "" {
			out = append(out, field)
		}
	}
	return out
}

// ToMap is used to persist drafts.
func (f Form) ToMap() map[string]string {
	return map[string]string{
		string(FieldEmployeeName): f.EmployeeName,
		string(FieldPosition):     f.Position,
		string(FieldStartTime):    f.StartTime,
		string(FieldEndTime):      f.EndTime,
		string(FieldStatus):       f.Status,
		string(FieldNotes):        f.Notes,
	}
}

// FormFromMap restores a draft saved with ToMap.
func FormFromMap(m map[string]string) Form {
	f := EmptyForm()
	for k, v := range m {
		f = f.With(Field(k), v)
	}
	return f
}

// ParseField maps user input such as "employee_name" or "Employee name" to a Field.
func ParseField(s string) (Field, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	for _, f := range []Field{FieldEmployeeName, FieldPosition, FieldStartTime, FieldEndTime, FieldStatus, FieldNotes} {
		if string(f) == key {
			return f, true
		}
	}
	return "", false
}
