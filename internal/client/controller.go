package client

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"shiftboard/internal/models"
)

var (
	// ErrMissingFields means the local required-fields check stopped a submit.
	ErrMissingFields = errors.New("required fields missing")
	// ErrBusy means a submission is already in flight.
	ErrBusy = errors.New("request already in flight")
	// ErrUnknownShift means the id is not in the local cache.
	ErrUnknownShift = errors.New("shift not in cache")
)

// ShiftAPI is the remote side the controller synchronizes with.
type ShiftAPI interface {
	ListShifts(ctx context.Context) ([]models.Shift, error)
	CreateShift(ctx context.Context, form Form) (*models.Shift, error)
	UpdateShift(ctx context.Context, id int64, form Form) (*models.Shift, error)
	DeleteShift(ctx context.Context, id int64) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Controller runs the round trips between the UI state and the API.
// All transitions go through Reduce; the controller only sequences them.
type Controller struct {
	api ShiftAPI

	mu    sync.Mutex
	state State

	listeners []func(State)
}

// NewController starts from InitialState.
func NewController(api ShiftAPI) *Controller {
	return &Controller{api: api, state: InitialState()}
}

// OnChange registers fn to run after every transition.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch applies ev and notifies listeners.
func (c *Controller) Dispatch(ev Event) State {
	c.mu.Lock()
	st, listeners := c.applyLocked(ev)
	c.mu.Unlock()

	notify(listeners, st)
	return st
}

func (c *Controller) applyLocked(ev Event) (State, []func(State)) {
	c.state = Reduce(c.state, ev)
	return c.state, append(([]func(State))(nil), c.listeners...)
}

func notify(listeners []func(State), st State) {
	for _, fn := range listeners {
		fn(st)
	}
}

// Load replaces the cache with the server's list.
func (c *Controller) Load(ctx context.Context) error {
	c.Dispatch(LoadStarted{})
	shifts, err := c.api.ListShifts(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("load shifts failed")
		c.Dispatch(LoadFailed{Err: err})
		return err
	}
	c.Dispatch(LoadSucceeded{Shifts: shifts})
	return nil
}

// OpenForm shows a blank create form.
func (c *Controller) OpenForm() {
	c.Dispatch(FormOpened{})
}

// SetField updates one form input.
func (c *Controller) SetField(field Field, value string) {
	c.Dispatch(FieldChanged{Field: field, Value: value})
}

// Edit loads a cached shift into the form and targets it for update.
func (c *Controller) Edit(id int64) error {
	shift, ok := c.State().Find(id)
	if !ok {
		return ErrUnknownShift
	}
	c.Dispatch(EditStarted{Shift: shift})
	return nil
}

// Reset closes the form and discards its contents.
func (c *Controller) Reset() {
	c.Dispatch(FormReset{})
}

// Submit sends the form as a create or update. Missing required fields stop
// it locally without a network call. On success the list is re-fetched and
// the form reset; on failure the form stays open with its data.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	if st.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if missing := st.Form.Missing(); len(missing) > 0 {
		c.mu.Unlock()
		c.Dispatch(SubmitRejected{Missing: missing})
		return ErrMissingFields
	}
	started, listeners := c.applyLocked(SubmitStarted{})
	c.mu.Unlock()
	notify(listeners, started)

	var err error
	if st.Editing() {
		_, err = c.api.UpdateShift(ctx, st.EditingID, st.Form)
	} else {
		_, err = c.api.CreateShift(ctx, st.Form)
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("shift_id", st.EditingID).Msg("save shift failed")
		c.Dispatch(SubmitFailed{Err: err})
		return err
	}

	// A failed re-fetch leaves its own banner; the save itself went through.
	_ = c.Load(ctx)
	c.Dispatch(SubmitSucceeded{})
	return nil
}

// Delete asks confirm first. A declined confirmation does nothing. On success
// the shift is dropped from the cache without a re-fetch.
func (c *Controller) Delete(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	ok, err := confirm.Confirm(ctx, MsgConfirmDelete)
	if err != nil || !ok {
		return false, err
	}

	if err := c.api.DeleteShift(ctx, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("shift_id", id).Msg("delete shift failed")
		c.Dispatch(DeleteFailed{ID: id, Err: err})
		return true, err
	}
	c.Dispatch(DeleteSucceeded{ID: id})
	return true, nil
}
