package bot

import (
	"shiftboard/internal/client"
)

// Step is the position of a user in the shift form dialog.
type Step string

const (
	StepIdle         Step = "idle"
	StepEmployeeName Step = "ask_employee_name"
	StepPosition     Step = "ask_position"
	StepStartTime    Step = "ask_start_time"
	StepEndTime      Step = "ask_end_time"
	StepStatus       Step = "ask_status"
	StepNotes        Step = "ask_notes"
	StepReview       Step = "review"
	// StepEditField waits for a new value of one field picked on the review screen.
	StepEditField Step = "edit_field"
)

// wizard is the order in which a new shift is collected.
var wizard = []Step{StepEmployeeName, StepPosition, StepStartTime, StepEndTime, StepStatus, StepNotes, StepReview}

var stepFields = map[Step]client.Field{
	StepEmployeeName: client.FieldEmployeeName,
	StepPosition:     client.FieldPosition,
	StepStartTime:    client.FieldStartTime,
	StepEndTime:      client.FieldEndTime,
	StepStatus:       client.FieldStatus,
	StepNotes:        client.FieldNotes,
}

var fieldLabels = map[client.Field]string{
	client.FieldEmployeeName: "Employee",
	client.FieldPosition:     "Position",
	client.FieldStartTime:    "Start",
	client.FieldEndTime:      "End",
	client.FieldStatus:       "Status",
	client.FieldNotes:        "Notes",
}

var fieldPrompts = map[client.Field]string{
	client.FieldEmployeeName: "Employee name?",
	client.FieldPosition:     "Position?",
	client.FieldStartTime:    "Start time? Format: 2025-11-08 09:00 (UTC)",
	client.FieldEndTime:      "End time? Format: 2025-11-08 17:00 (UTC)",
	client.FieldStatus:       "Pick a status:",
	client.FieldNotes:        "Notes?",
}

// FSM guards the dialog transitions.
type FSM struct {
	transitions map[Step][]Step
}

// NewFSM builds the dialog graph. Every step may fall back to idle.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[Step][]Step{
			StepIdle:         {StepEmployeeName, StepReview},
			StepEmployeeName: {StepPosition, StepIdle},
			StepPosition:     {StepStartTime, StepIdle},
			StepStartTime:    {StepEndTime, StepIdle},
			StepEndTime:      {StepStatus, StepIdle},
			StepStatus:       {StepNotes, StepIdle},
			StepNotes:        {StepReview, StepIdle},
			StepReview:       {StepEditField, StepReview, StepIdle},
			StepEditField:    {StepReview, StepIdle},
		},
	}
}

// CanTransition reports whether from -> to is allowed.
func (f *FSM) CanTransition(from, to Step) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next is the wizard step after s, or review once the wizard is done.
func Next(s Step) Step {
	for i, w := range wizard {
		if w == s && i+1 < len(wizard) {
			return wizard[i+1]
		}
	}
	return StepReview
}

// FieldOf returns the form field collected at s.
func FieldOf(s Step) (client.Field, bool) {
	f, ok := stepFields[s]
	return f, ok
}
