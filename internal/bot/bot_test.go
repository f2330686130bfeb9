package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftboard/internal/api"
	"shiftboard/internal/audit"
	"shiftboard/internal/client"
	"shiftboard/internal/config"
	"shiftboard/internal/database"
	"shiftboard/internal/models"
	"shiftboard/internal/repository"
)

const testUser int64 = 42

type fakeTelegram struct {
	mu     sync.Mutex
	sent   []tgbotapi.Chattable
	nextID int
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeTelegram) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "shift_test_bot"}
}

// texts returns the text of every message sent or edited so far.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeTelegram) lastText() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeTelegram) anyContains(sub string) bool {
	for _, t := range f.texts() {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

type testEnv struct {
	bot    *Bot
	tg     *fakeTelegram
	api    *client.APIClient
	states repository.StateRepository
	hits   *atomic.Int64
}

func newTestEnv(t *testing.T, managers ...int64) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exporter := audit.NewService(db, nil, t.TempDir(), &logger)
	server := api.NewHTTPServer(&config.Config{}, db, &logger, api.WithExporter(exporter))
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		server.Handler().ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	env := &testEnv{
		tg:     &fakeTelegram{},
		api:    client.NewAPIClient(ts.URL, 5*time.Second),
		states: repository.NewMemoryStateRepository(time.Hour),
		hits:   &hits,
	}
	env.bot = env.newBot(t, &config.Config{Managers: managers})
	return env
}

func (e *testEnv) newBot(t *testing.T, cfg *config.Config) *Bot {
	t.Helper()
	logger := zerolog.Nop()
	b, err := NewWithTelegramClient(e.tg, cfg, e.api, e.states, &logger)
	require.NoError(t, err)
	return b
}

func (e *testEnv) say(text string) {
	e.bot.handleUpdate(context.Background(), &tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUser},
		Chat: &tgbotapi.Chat{ID: testUser},
		Text: text,
	}})
}

func (e *testEnv) press(data string) {
	e.bot.handleUpdate(context.Background(), &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    data,
	}})
}

func (e *testEnv) seed(t *testing.T, name string) *models.Shift {
	t.Helper()
	form := client.EmptyForm().
		With(client.FieldEmployeeName, name).
		With(client.FieldPosition, "Cashier").
		With(client.FieldStartTime, "2025-11-08T09:00").
		With(client.FieldEndTime, "2025-11-08T17:00")
	sh, err := e.api.CreateShift(context.Background(), form)
	require.NoError(t, err)
	return sh
}

func TestBot_CreateShiftWizard(t *testing.T) {
	env := newTestEnv(t)

	env.say("/new")
	assert.Equal(t, fieldPrompts[client.FieldEmployeeName], env.tg.lastText())
	env.say("John Doe")
	env.say("Cashier")
	env.say("2025-11-08 09:00")
	env.say("2025-11-08T17:00")
	assert.Equal(t, fieldPrompts[client.FieldStatus], env.tg.lastText())
	env.press("status:" + models.StatusScheduled)
	env.say("/skip")
	assert.Contains(t, env.tg.lastText(), "📝 New shift")
	assert.Contains(t, env.tg.lastText(), "Start: 2025-11-08T09:00")

	env.press("form:save")
	assert.True(t, env.tg.anyContains("✅ Shift saved."))
	assert.Contains(t, env.tg.lastText(), "John Doe, Cashier")
	assert.Contains(t, env.tg.lastText(), "Nov 8, 9:00 AM")

	list, err := env.api.ListShifts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, time.Date(2025, 11, 8, 9, 0, 0, 0, time.UTC), list[0].StartTime.UTC())

	saved, err := env.states.GetState(context.Background(), testUser)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestBot_MissingFieldsNeverReachAPI(t *testing.T) {
	env := newTestEnv(t)

	env.say("/new")
	env.say("/skip")
	env.say("Cashier")
	env.say("2025-11-08 09:00")
	env.say("2025-11-08 17:00")
	env.press("status:" + models.StatusScheduled)
	env.say("/skip")

	before := env.hits.Load()
	env.press("form:save")
	assert.Equal(t, before, env.hits.Load())
	assert.Contains(t, env.tg.lastText(), client.MsgRequiredFields)
	assert.Contains(t, env.tg.lastText(), "Position: Cashier")

	sess, _ := env.bot.sessions.lookup(testUser)
	assert.Equal(t, StepReview, sess.step)
}

func TestBot_InvalidInputKeepsStep(t *testing.T) {
	env := newTestEnv(t)

	env.say("/new")
	env.say("John Doe")
	env.say("Cashier")
	env.say("tomorrow morning")
	assert.Equal(t, msgBadTime, env.tg.lastText())

	sess, _ := env.bot.sessions.lookup(testUser)
	assert.Equal(t, StepStartTime, sess.step)
}

func TestBot_ServerRejectionKeepsForm(t *testing.T) {
	env := newTestEnv(t)

	env.say("/new")
	env.say("John Doe")
	env.say("Cashier")
	env.say("2025-11-08 09:00")
	env.say("2025-11-08 09:00")
	env.press("status:" + models.StatusScheduled)
	env.say("/skip")
	env.press("form:save")

	assert.Contains(t, env.tg.lastText(), client.MsgSaveFailed)
	assert.Contains(t, env.tg.lastText(), "Employee: John Doe")

	list, err := env.api.ListShifts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBot_EditStatus(t *testing.T) {
	env := newTestEnv(t)
	sh := env.seed(t, "John Doe")

	env.press("edit:" + itoa(sh.ID))
	assert.Contains(t, env.tg.lastText(), "Editing shift #"+itoa(sh.ID))
	env.press("field:status")
	env.press("status:" + models.StatusCompleted)
	assert.Contains(t, env.tg.lastText(), "Status: 🟢 completed")
	env.press("form:save")

	got, err := env.api.GetShift(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "John Doe", got.EmployeeName)
}

func TestBot_EditUnknownShift(t *testing.T) {
	env := newTestEnv(t)

	env.say("/edit 999")
	assert.Equal(t, "Shift #999 not found.", env.tg.lastText())

	env.say("/edit")
	assert.Equal(t, "Usage: /edit <id>", env.tg.lastText())
}

func TestBot_DeleteAsksFirst(t *testing.T) {
	env := newTestEnv(t)
	sh := env.seed(t, "John Doe")
	ctx := context.Background()

	env.press("del:" + itoa(sh.ID))
	assert.Contains(t, env.tg.lastText(), client.MsgConfirmDelete)

	env.press("delno:" + itoa(sh.ID))
	assert.Equal(t, "Deletion cancelled.", env.tg.lastText())
	_, err := env.api.GetShift(ctx, sh.ID)
	require.NoError(t, err)

	env.say("/delete " + itoa(sh.ID))
	env.press("delyes:" + itoa(sh.ID))
	assert.True(t, env.tg.anyContains("🗑 Shift #"+itoa(sh.ID)+" deleted."))
	assert.Equal(t, msgEmptyList, env.tg.lastText())

	_, err = env.api.GetShift(ctx, sh.ID)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestBot_ListStates(t *testing.T) {
	env := newTestEnv(t)

	env.say("/list")
	texts := env.tg.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, msgLoading, texts[len(texts)-2])
	assert.Equal(t, msgEmptyList, env.tg.lastText())

	env.seed(t, "Ann")
	env.say("/list")
	assert.Contains(t, env.tg.lastText(), "Ann, Cashier")
	assert.Contains(t, env.tg.lastText(), "🔵 scheduled")
}

func TestBot_ListUnreachableAPI(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	tg := &fakeTelegram{}
	logger := zerolog.Nop()
	b, err := NewWithTelegramClient(tg, &config.Config{}, client.NewAPIClient(url, time.Second),
		repository.NewMemoryStateRepository(time.Hour), &logger)
	require.NoError(t, err)

	b.handleUpdate(context.Background(), &tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUser},
		Chat: &tgbotapi.Chat{ID: testUser},
		Text: "/list",
	}})
	assert.Contains(t, tg.lastText(), client.MsgLoadFailed)
	assert.NotContains(t, tg.lastText(), msgEmptyList)
}

func TestBot_Export(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "John Doe")

	env.say("/export")

	env.tg.mu.Lock()
	defer env.tg.mu.Unlock()
	last := env.tg.sent[len(env.tg.sent)-1]
	doc, ok := last.(tgbotapi.DocumentConfig)
	require.True(t, ok, "expected a document, got %T", last)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(file.Name, "shifts_"))
	assert.NotEmpty(t, file.Bytes)
}

func TestBot_AccessDenied(t *testing.T) {
	env := newTestEnv(t, 1)

	env.say("/list")
	assert.Equal(t, "⛔ Access denied.", env.tg.lastText())
	assert.Equal(t, int64(0), env.hits.Load())
}

func TestBot_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < rateLimitActions; i++ {
		env.say("/help")
	}
	assert.Equal(t, helpText, env.tg.lastText())
	env.say("/help")
	assert.Equal(t, "Too many requests. Try again in a minute.", env.tg.lastText())
}

func TestBot_DraftSurvivesRestart(t *testing.T) {
	env := newTestEnv(t)

	env.say("/new")
	env.say("John Doe")

	// A fresh bot over the same state repository picks the dialog back up.
	env.bot = env.newBot(t, &config.Config{})
	env.say("Cashier")
	assert.Equal(t, fieldPrompts[client.FieldStartTime], env.tg.lastText())

	saved, err := env.states.GetState(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, string(StepStartTime), saved.Step)
	assert.Equal(t, "John Doe", saved.Form[string(client.FieldEmployeeName)])
	assert.Equal(t, "Cashier", saved.Form[string(client.FieldPosition)])
}

func TestBot_Cancel(t *testing.T) {
	env := newTestEnv(t)

	env.say("/new")
	env.say("John Doe")
	env.say("/cancel")
	assert.Equal(t, "Cancelled.", env.tg.lastText())

	sess, _ := env.bot.sessions.lookup(testUser)
	assert.Equal(t, StepIdle, sess.step)
	assert.False(t, sess.ctrl.State().FormOpen)

	env.say("Cashier")
	assert.Equal(t, "Use /new to add a shift or /list to see the schedule.", env.tg.lastText())
}

func TestRenderList_Pages(t *testing.T) {
	st := client.InitialState()
	for i := 1; i <= 7; i++ {
		st.Shifts = append(st.Shifts, models.Shift{ID: int64(i), EmployeeName: "E", Position: "P", Status: models.StatusScheduled})
	}

	text, markup := renderList(st, 0)
	assert.Contains(t, text, "page 1 of 2")
	assert.Contains(t, text, "#5 E, P")
	assert.NotContains(t, text, "#6 E, P")
	nav := markup.InlineKeyboard[len(markup.InlineKeyboard)-2]
	require.Len(t, nav, 1)
	assert.Equal(t, "page:1", *nav[0].CallbackData)

	text, _ = renderList(st, 9)
	assert.Contains(t, text, "page 2 of 2")
	assert.Contains(t, text, "#7 E, P")
}

func TestRenderList_UnknownStatusBadge(t *testing.T) {
	st := client.InitialState()
	st.Shifts = []models.Shift{{ID: 1, EmployeeName: "E", Position: "P", Status: "on_hold"}}

	text, _ := renderList(st, 0)
	assert.Contains(t, text, "⚪ on_hold")
}

func TestFSM(t *testing.T) {
	f := NewFSM()
	assert.True(t, f.CanTransition(StepIdle, StepEmployeeName))
	assert.True(t, f.CanTransition(StepReview, StepEditField))
	assert.True(t, f.CanTransition(StepNotes, StepIdle))
	assert.False(t, f.CanTransition(StepEmployeeName, StepReview))
	assert.False(t, f.CanTransition(StepIdle, StepNotes))

	assert.Equal(t, StepPosition, Next(StepEmployeeName))
	assert.Equal(t, StepReview, Next(StepNotes))
	assert.Equal(t, StepReview, Next(StepReview))
}

func TestNormalizeInput(t *testing.T) {
	v, hint := normalizeInput(client.FieldStartTime, "2025-11-08 09:00")
	assert.Empty(t, hint)
	assert.Equal(t, "2025-11-08T09:00", v)

	_, hint = normalizeInput(client.FieldEndTime, "noon")
	assert.Equal(t, msgBadTime, hint)

	_, hint = normalizeInput(client.FieldStatus, "paused")
	assert.Contains(t, hint, "Unknown status")

	v, hint = normalizeInput(client.FieldNotes, "Cover for Ann")
	assert.Empty(t, hint)
	assert.Equal(t, "Cover for Ann", v)
}

func TestCommandID(t *testing.T) {
	tests := []struct {
		input string
		id    int64
		ok    bool
	}{
		{"/edit 12", 12, true},
		{"/delete #7", 7, true},
		{"/edit", 0, false},
		{"/edit abc", 0, false},
		{"/delete -3", 0, false},
	}
	for _, tt := range tests {
		id, ok := commandID(tt.input)
		assert.Equal(t, tt.ok, ok, "input: %s", tt.input)
		assert.Equal(t, tt.id, id, "input: %s", tt.input)
	}
}

func TestTomorrowShifts(t *testing.T) {
	now := time.Date(2025, 11, 7, 20, 0, 0, 0, time.UTC)
	shifts := []models.Shift{
		{ID: 1, Status: models.StatusScheduled, StartTime: time.Date(2025, 11, 8, 9, 0, 0, 0, time.UTC)},
		{ID: 2, Status: models.StatusCancelled, StartTime: time.Date(2025, 11, 8, 9, 0, 0, 0, time.UTC)},
		{ID: 3, Status: models.StatusScheduled, StartTime: time.Date(2025, 11, 9, 0, 0, 0, 0, time.UTC)},
		{ID: 4, Status: models.StatusScheduled, StartTime: time.Date(2025, 11, 7, 22, 0, 0, 0, time.UTC)},
	}

	got := tomorrowShifts(shifts, now)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "No shifts scheduled for tomorrow.", formatDigest(nil))
}

func TestTimeUntilNextHour(t *testing.T) {
	now := time.Date(2025, 11, 7, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Minute, timeUntilNextHour(now, 9))

	now = time.Date(2025, 11, 7, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 24*time.Hour, timeUntilNextHour(now, 9))
}

func TestSendTomorrowDigest(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "John Doe")
	env.bot.cfg = &config.Config{Managers: []int64{7, 8}}
	env.bot.now = func() time.Time { return time.Date(2025, 11, 7, 9, 0, 0, 0, time.UTC) }

	env.bot.sendTomorrowDigest(context.Background())

	texts := env.tg.texts()
	require.Len(t, texts, 2)
	for _, text := range texts {
		assert.Contains(t, text, "Tomorrow's shifts")
		assert.Contains(t, text, "John Doe, Cashier")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
