package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shiftboard/internal/client"
	"shiftboard/internal/config"
	"shiftboard/internal/metrics"
	"shiftboard/internal/models"
	"shiftboard/internal/repository"
)

const (
	rateLimitActions = 30
	rateLimitWindow  = time.Minute

	btnList   = "📋 Shifts"
	btnNew    = "➕ New shift"
	btnExport = "📤 Export"

	helpText = "Commands: /list, /new, /edit <id>, /delete <id>, /export, /skip, /cancel"
)

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnList),
		tgbotapi.NewKeyboardButton(btnNew),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnExport),
	),
)

const msgBadTime = "Could not read that time. Example: 2025-11-08 09:00"

// Bot is the Telegram front end of the shift client. Each user gets their own
// controller and cache; the dialog position survives restarts through the
// state repository.
type Bot struct {
	api      ShiftAPI
	states   repository.StateRepository
	cfg      *config.Config
	tg       telegramClient
	fsm      *FSM
	sessions *sessionStore
	logger   *zerolog.Logger
	now      func() time.Time
}

func New(cfg *config.Config, api ShiftAPI, states repository.StateRepository, logger *zerolog.Logger) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	tg.Debug = cfg.Telegram.Debug
	return newBot(&realTelegramClient{api: tg}, cfg, api, states, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(
	tg telegramClient,
	cfg *config.Config,
	api ShiftAPI,
	states repository.StateRepository,
	logger *zerolog.Logger,
) (*Bot, error) {
	return newBot(tg, cfg, api, states, logger)
}

func newBot(
	tg telegramClient,
	cfg *config.Config,
	api ShiftAPI,
	states repository.StateRepository,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if api == nil || states == nil {
		return nil, fmt.Errorf("shift api and state repository are required")
	}
	l := logger.With().Str("component", "bot").Logger()
	return &Bot{
		api:      api,
		states:   states,
		cfg:      cfg,
		tg:       tg,
		fsm:      NewFSM(),
		sessions: newSessionStore(),
		logger:   &l,
		now:      time.Now,
	}, nil
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Shift bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	chatID, userID := msg.Chat.ID, msg.From.ID

	if !b.allow(ctx, chatID, userID) {
		return
	}
	sess := b.session(ctx, userID)

	// Commands interrupt any active dialog.
	switch {
	case strings.HasPrefix(text, "/start"):
		b.resetDialog(ctx, userID, sess)
		b.sendMainMenu(chatID)
		b.showList(ctx, chatID, sess)
	case strings.HasPrefix(text, "/list") || text == btnList:
		b.showList(ctx, chatID, sess)
	case strings.HasPrefix(text, "/new") || text == btnNew:
		b.startCreate(ctx, chatID, userID, sess)
	case strings.HasPrefix(text, "/edit"):
		id, ok := commandID(text)
		if !ok {
			b.reply(chatID, "Usage: /edit <id>")
			return
		}
		b.startEdit(ctx, chatID, userID, sess, id)
	case strings.HasPrefix(text, "/delete"):
		id, ok := commandID(text)
		if !ok {
			b.reply(chatID, "Usage: /delete <id>")
			return
		}
		b.askDelete(chatID, id)
	case strings.HasPrefix(text, "/export") || text == btnExport:
		b.sendExport(ctx, chatID)
	case strings.HasPrefix(text, "/skip"):
		b.skipField(ctx, chatID, userID, sess)
	case strings.HasPrefix(text, "/cancel"):
		b.cancelDialog(ctx, chatID, userID, sess)
	case strings.HasPrefix(text, "/help"):
		b.reply(chatID, helpText)
	case strings.HasPrefix(text, "/"):
		b.reply(chatID, "Unknown command. "+helpText)
	default:
		b.handleInput(ctx, chatID, userID, sess, text)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.From == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID)

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	if !b.allow(ctx, chatID, userID) {
		return
	}
	sess := b.session(ctx, userID)

	switch {
	case data == "new":
		b.startCreate(ctx, chatID, userID, sess)
	case strings.HasPrefix(data, "page:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "page:"))
		b.sendList(chatID, cq.Message.MessageID, sess.ctrl.State(), page)
	case strings.HasPrefix(data, "edit:"):
		if id, ok := callbackID(data, "edit:"); ok {
			b.startEdit(ctx, chatID, userID, sess, id)
		}
	case strings.HasPrefix(data, "del:"):
		if id, ok := callbackID(data, "del:"); ok {
			b.askDelete(chatID, id)
		}
	case strings.HasPrefix(data, "delyes:"):
		if id, ok := callbackID(data, "delyes:"); ok {
			b.deleteShift(ctx, chatID, sess, id, true)
		}
	case strings.HasPrefix(data, "delno:"):
		if id, ok := callbackID(data, "delno:"); ok {
			b.deleteShift(ctx, chatID, sess, id, false)
		}
	case strings.HasPrefix(data, "status:"):
		if f, ok := b.currentField(sess); ok && f == client.FieldStatus {
			b.handleInput(ctx, chatID, userID, sess, strings.TrimPrefix(data, "status:"))
		}
	case strings.HasPrefix(data, "field:"):
		f, ok := client.ParseField(strings.TrimPrefix(data, "field:"))
		if !ok || sess.step != StepReview {
			return
		}
		sess.field = f
		b.moveTo(ctx, chatID, userID, sess, StepEditField)
	case data == "form:save":
		b.submit(ctx, chatID, userID, sess)
	case data == "form:skip":
		b.skipField(ctx, chatID, userID, sess)
	case data == "form:cancel":
		b.cancelDialog(ctx, chatID, userID, sess)
	}
}

// allow applies the manager list and the per-user rate limit.
func (b *Bot) allow(ctx context.Context, chatID, userID int64) bool {
	if !b.cfg.IsManager(userID) {
		metrics.IncBotAction("access", "denied")
		b.reply(chatID, "⛔ Access denied.")
		return false
	}
	ok, err := b.states.CheckRateLimit(ctx, userID, rateLimitActions, rateLimitWindow)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("rate limit check failed")
		return true
	}
	if !ok {
		metrics.IncBotAction("rate_limit", "denied")
		b.reply(chatID, "Too many requests. Try again in a minute.")
	}
	return ok
}

func (b *Bot) showList(ctx context.Context, chatID int64, sess *session) {
	loading, _ := b.tg.Send(tgbotapi.NewMessage(chatID, msgLoading))
	err := sess.ctrl.Load(ctx)
	metrics.IncBotAction("list", outcome(err))
	b.sendList(chatID, loading.MessageID, sess.ctrl.State(), 0)
}

// sendList edits messageID in place when it is set.
func (b *Bot) sendList(chatID int64, messageID int, st client.State, page int) {
	text, markup := renderList(st, page)
	if messageID != 0 {
		_, _ = b.tg.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup))
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, _ = b.tg.Send(msg)
}

func (b *Bot) startCreate(ctx context.Context, chatID, userID int64, sess *session) {
	sess.step = StepIdle
	sess.ctrl.OpenForm()
	metrics.IncBotAction("new", "ok")
	b.moveTo(ctx, chatID, userID, sess, StepEmployeeName)
}

func (b *Bot) startEdit(ctx context.Context, chatID, userID int64, sess *session, id int64) {
	sess.step = StepIdle
	if err := b.editShift(ctx, sess, id); err != nil {
		metrics.IncBotAction("edit", "error")
		if errors.Is(err, client.ErrUnknownShift) {
			b.reply(chatID, fmt.Sprintf("Shift #%d not found.", id))
			return
		}
		b.reply(chatID, client.MsgLoadFailed)
		return
	}
	metrics.IncBotAction("edit", "ok")
	b.moveTo(ctx, chatID, userID, sess, StepReview)
}

// moveTo advances the dialog, persists it and asks the next question.
func (b *Bot) moveTo(ctx context.Context, chatID, userID int64, sess *session, to Step) {
	if !b.fsm.CanTransition(sess.step, to) {
		zerolog.Ctx(ctx).Warn().
			Str("from", string(sess.step)).
			Str("to", string(to)).
			Msg("rejected dialog transition")
		return
	}
	sess.step = to
	if to != StepEditField {
		sess.field = ""
	}
	b.persist(ctx, userID, sess)
	b.prompt(chatID, sess)
}

func (b *Bot) prompt(chatID int64, sess *session) {
	if sess.step == StepReview {
		text, markup := renderForm(sess.ctrl.State())
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = markup
		_, _ = b.tg.Send(msg)
		return
	}

	field, ok := b.currentField(sess)
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chatID, fieldPrompts[field])
	if field == client.FieldStatus {
		msg.ReplyMarkup = statusKeyboard()
	} else {
		if cur := sess.ctrl.State().Form.Get(field); cur != "" {
			msg.Text += "\nCurrent: " + cur
		}
		msg.ReplyMarkup = skipKeyboard()
	}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) currentField(sess *session) (client.Field, bool) {
	if sess.step == StepEditField {
		return sess.field, sess.field != ""
	}
	return FieldOf(sess.step)
}

func (b *Bot) handleInput(ctx context.Context, chatID, userID int64, sess *session, text string) {
	field, ok := b.currentField(sess)
	if !ok {
		b.reply(chatID, "Use /new to add a shift or /list to see the schedule.")
		return
	}
	value, hint := normalizeInput(field, text)
	if hint != "" {
		b.reply(chatID, hint)
		return
	}
	sess.ctrl.SetField(field, value)
	b.advance(ctx, chatID, userID, sess)
}

// skipField keeps the current value and moves on.
func (b *Bot) skipField(ctx context.Context, chatID, userID int64, sess *session) {
	if _, ok := b.currentField(sess); !ok {
		return
	}
	b.advance(ctx, chatID, userID, sess)
}

func (b *Bot) advance(ctx context.Context, chatID, userID int64, sess *session) {
	if sess.step == StepEditField {
		b.moveTo(ctx, chatID, userID, sess, StepReview)
		return
	}
	b.moveTo(ctx, chatID, userID, sess, Next(sess.step))
}

// normalizeInput turns typed text into the form value for field. Times are
// stored the way the form renders them. A non-empty hint rejects the input.
func normalizeInput(field client.Field, text string) (value, hint string) {
	switch field {
	case client.FieldStartTime, client.FieldEndTime:
		t, ok := models.ParseTimestamp(text)
		if !ok {
			return "", msgBadTime
		}
		return models.FormatFormTime(t), ""
	case client.FieldStatus:
		if !models.IsValidStatus(text) {
			return "", fmt.Sprintf("Unknown status %q. Pick one of: %s", text, strings.Join(models.Statuses, ", "))
		}
	}
	return text, ""
}

func (b *Bot) submit(ctx context.Context, chatID, userID int64, sess *session) {
	if sess.step != StepReview {
		b.reply(chatID, "Nothing to save. Use /new to start a shift.")
		return
	}

	err := sess.ctrl.Submit(ctx)
	switch {
	case err == nil:
		metrics.IncBotAction("save", "ok")
		sess.step = StepIdle
		b.persist(ctx, userID, sess)
		b.reply(chatID, "✅ Shift saved.")
		b.sendList(chatID, 0, sess.ctrl.State(), 0)
	case errors.Is(err, client.ErrBusy):
		b.reply(chatID, "Still saving, please wait.")
	case errors.Is(err, client.ErrMissingFields):
		metrics.IncBotAction("save", "rejected")
		b.prompt(chatID, sess)
	default:
		metrics.IncBotAction("save", "error")
		b.prompt(chatID, sess)
	}
}

func (b *Bot) askDelete(chatID, id int64) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s (#%d)", client.MsgConfirmDelete, id))
	msg.ReplyMarkup = confirmDeleteKeyboard(id)
	_, _ = b.tg.Send(msg)
}

// deleteShift runs the delete with the answer given on the confirmation buttons.
func (b *Bot) deleteShift(ctx context.Context, chatID int64, sess *session, id int64, approved bool) {
	answer := client.ConfirmFunc(func(context.Context, string) (bool, error) {
		return approved, nil
	})
	done, err := sess.ctrl.Delete(ctx, id, answer)
	switch {
	case !done:
		metrics.IncBotAction("delete", "declined")
		b.reply(chatID, "Deletion cancelled.")
	case err != nil:
		metrics.IncBotAction("delete", "error")
		b.sendList(chatID, 0, sess.ctrl.State(), 0)
	default:
		metrics.IncBotAction("delete", "ok")
		b.reply(chatID, fmt.Sprintf("🗑 Shift #%d deleted.", id))
		b.sendList(chatID, 0, sess.ctrl.State(), 0)
	}
}

func (b *Bot) sendExport(ctx context.Context, chatID int64) {
	data, err := b.api.ExportShifts(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("export shifts failed")
		metrics.IncBotAction("export", "error")
		b.reply(chatID, "Export failed. Make sure the API is reachable.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "shifts_" + b.now().UTC().Format("2006-01-02") + ".xlsx",
		Bytes: data,
	})
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send export failed")
		metrics.IncBotAction("export", "error")
		return
	}
	metrics.IncBotAction("export", "ok")
}

func (b *Bot) cancelDialog(ctx context.Context, chatID, userID int64, sess *session) {
	b.resetDialog(ctx, userID, sess)
	b.reply(chatID, "Cancelled.")
}

func (b *Bot) resetDialog(ctx context.Context, userID int64, sess *session) {
	sess.ctrl.Reset()
	sess.step = StepIdle
	sess.field = ""
	b.persist(ctx, userID, sess)
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Choose an action:")
	msg.ReplyMarkup = mainMenu
	_, _ = b.tg.Send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = b.tg.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// commandID reads the id argument of "/edit 12" or "/delete #12".
func commandID(text string) (int64, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func callbackID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil
}
