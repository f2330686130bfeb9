package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shiftboard/internal/models"
)

const digestHour = 9

// StartReminders sends every manager the next day's scheduled shifts each
// morning. Nothing is sent when no managers are configured.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || len(b.cfg.Managers) == 0 {
		return
	}

	go func() {
		timer := time.NewTimer(timeUntilNextHour(b.now(), digestHour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowDigest(ctx)
				timer.Reset(timeUntilNextHour(b.now(), digestHour))
			}
		}
	}()
}

func (b *Bot) sendTomorrowDigest(ctx context.Context) {
	shifts, err := b.api.ListShifts(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("reminder: list shifts")
		return
	}

	text := formatDigest(tomorrowShifts(shifts, b.now()))
	for _, id := range b.cfg.Managers {
		if _, err := b.tg.Send(tgbotapi.NewMessage(id, text)); err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", id).Msg("reminder: send")
		}
	}
}

// tomorrowShifts keeps scheduled shifts starting on the UTC day after now.
func tomorrowShifts(shifts []models.Shift, now time.Time) []models.Shift {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 1)

	var out []models.Shift
	for _, sh := range shifts {
		if sh.Status != models.StatusScheduled {
			continue
		}
		if sh.StartTime.Before(start) || !sh.StartTime.Before(end) {
			continue
		}
		out = append(out, sh)
	}
	return out
}

func formatDigest(shifts []models.Shift) string {
	if len(shifts) == 0 {
		return "No shifts scheduled for tomorrow."
	}
	var b strings.Builder
	b.WriteString("📅 Tomorrow's shifts\n\n")
	for _, sh := range shifts {
		b.WriteString(formatShift(sh))
		b.WriteString("\n")
	}
	return b.String()
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
