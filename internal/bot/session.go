package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shiftboard/internal/client"
	"shiftboard/internal/models"
)

// session is one user's view: a controller with its shift cache plus the
// dialog position. Only the dialog position and form draft are persisted.
type session struct {
	ctrl  *client.Controller
	step  Step
	field client.Field
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*session)}
}

func (s *sessionStore) lookup(userID int64) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *sessionStore) put(userID int64, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// session returns the user's session, restoring a persisted draft the first
// time a user is seen after a restart.
func (b *Bot) session(ctx context.Context, userID int64) *session {
	if sess, ok := b.sessions.lookup(userID); ok {
		return sess
	}

	sess := &session{ctrl: client.NewController(b.api), step: StepIdle}
	b.sessions.put(userID, sess)

	saved, err := b.states.GetState(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("load dialog state failed")
		return sess
	}
	if saved == nil || Step(saved.Step) == StepIdle {
		return sess
	}
	b.restore(ctx, sess, saved)
	return sess
}

func (b *Bot) restore(ctx context.Context, sess *session, saved *models.UserState) {
	l := zerolog.Ctx(ctx)
	if saved.EditingID != 0 {
		if err := b.editShift(ctx, sess, saved.EditingID); err != nil {
			l.Info().Err(err).Int64("shift_id", saved.EditingID).Msg("dropping stale edit draft")
			_ = b.states.ClearState(ctx, saved.UserID)
			return
		}
	} else {
		sess.ctrl.OpenForm()
	}
	for k, v := range saved.Form {
		sess.ctrl.SetField(client.Field(k), v)
	}
	sess.step = Step(saved.Step)
	sess.field = client.Field(saved.Field)
	l.Debug().Int64("user_id", saved.UserID).Str("step", saved.Step).Msg("dialog restored")
}

// editShift targets id for update, fetching the list when the cache misses.
func (b *Bot) editShift(ctx context.Context, sess *session, id int64) error {
	err := sess.ctrl.Edit(id)
	if !errors.Is(err, client.ErrUnknownShift) {
		return err
	}
	if err := sess.ctrl.Load(ctx); err != nil {
		return err
	}
	return sess.ctrl.Edit(id)
}

// persist saves the dialog position, or clears it when the user is idle.
func (b *Bot) persist(ctx context.Context, userID int64, sess *session) {
	var err error
	if sess.step == StepIdle {
		err = b.states.ClearState(ctx, userID)
	} else {
		st := sess.ctrl.State()
		err = b.states.SetState(ctx, &models.UserState{
			UserID:    userID,
			Step:      string(sess.step),
			Form:      st.Form.ToMap(),
			EditingID: st.EditingID,
			Field:     string(sess.field),
			UpdatedAt: time.Now(),
		})
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("save dialog state failed")
	}
}
