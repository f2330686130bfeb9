package client

import (
	"shiftboard/internal/models"
)

// Banners shown to the user.
const (
	MsgLoadFailed     = "Unable to load shifts. Make sure the API is reachable."
	MsgRequiredFields = "Please fill in all required fields"
	MsgSaveFailed     = "Failed to save shift"
	MsgDeleteFailed   = "Failed to delete shift"
	MsgConfirmDelete  = "Are you sure you want to delete this shift?"
)

// State is everything the UI renders. It is a value; transitions go through Reduce.
type State struct {
	Shifts    []models.Shift
	Loading   bool
	Error     string
	FormOpen  bool
	Form      Form
	EditingID int64 // 0 while creating
}

// InitialState is the state before the first load.
func InitialState() State {
	return State{Form: EmptyForm()}
}

// Editing reports whether a submission would update an existing shift.
func (s State) Editing() bool {
	return s.EditingID != 0
}

// Find returns the cached shift with id.
func (s State) Find(id int64) (models.Shift, bool) {
	for _, sh := range s.Shifts {
		if sh.ID == id {
			return sh, true
		}
	}
	return models.Shift{}, false
}

// Event is an input to Reduce.
type Event interface {
	event()
}

type (
	LoadStarted   struct{}
	LoadSucceeded struct{ Shifts []models.Shift }
	LoadFailed    struct{ Err error }

	// FormOpened shows a blank create form.
	FormOpened   struct{}
	FieldChanged struct {
		Field Field
		Value string
	}
	EditStarted struct{ Shift models.Shift }
	FormReset   struct{}

	// SubmitRejected is the local required-fields check failing.
	SubmitRejected  struct{ Missing []Field }
	SubmitStarted   struct{}
	SubmitSucceeded struct{}
	SubmitFailed    struct{ Err error }

	DeleteSucceeded struct{ ID int64 }
	DeleteFailed    struct {
		ID  int64
		Err error
	}
)

func (LoadStarted) event()     {}
func (LoadSucceeded) event()   {}
func (LoadFailed) event()      {}
func (FormOpened) event()      {}
func (FieldChanged) event()    {}
func (EditStarted) event()     {}
func (FormReset) event()       {}
func (SubmitRejected) event()  {}
func (SubmitStarted) event()   {}
func (SubmitSucceeded) event() {}
func (SubmitFailed) event()    {}
func (DeleteSucceeded) event() {}
func (DeleteFailed) event()    {}

// Reduce returns the state after ev. It never mutates s.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case LoadStarted:
		s.Loading = true

	case LoadSucceeded:
		s.Shifts = append([]models.Shift(nil), e.Shifts...)
		s.Error = ""
		s.Loading = false

	case LoadFailed:
		s.Shifts = nil
		s.Error = MsgLoadFailed
		s.Loading = false

	case FormOpened:
		s.FormOpen = true
		s.Form = EmptyForm()
		s.EditingID = 0

	case FieldChanged:
		s.Form = s.Form.With(e.Field, e.Value)

	case EditStarted:
		s.FormOpen = true
		s.Form = FormFromShift(e.Shift)
		s.EditingID = e.Shift.ID

	case FormReset:
		s = resetForm(s)

	case SubmitRejected:
		s.Error = MsgRequiredFields

	case SubmitStarted:
		s.Loading = true

	case SubmitSucceeded:
		s = resetForm(s)
		s.Loading = false

	case SubmitFailed:
		s.Error = MsgSaveFailed
		s.Loading = false

	case DeleteSucceeded:
		kept := make([]models.Shift, 0, len(s.Shifts))
		for _, sh := range s.Shifts {
			if sh.ID != e.ID {
				kept = append(kept, sh)
			}
		}
		s.Shifts = kept
		s.Error = ""

	case DeleteFailed:
		s.Error = MsgDeleteFailed
	}
	return s
}

func resetForm(s State) State {
	s.Form = EmptyForm()
	s.EditingID = 0
	s.FormOpen = false
	return s
}
