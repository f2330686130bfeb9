package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shiftboard/internal/client"
	"shiftboard/internal/models"
)

const (
	msgEmptyList  = "No shifts scheduled yet. Create your first shift!"
	msgLoading    = "Loading shifts..."
	shiftsPerPage = 5
)

func banner(st client.State) string {
	if st.Error == "" {
		return ""
	}
	return "⚠️ " + st.Error + "\n\n"
}

func formatShift(sh models.Shift) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s, %s\n", sh.ID, sh.EmployeeName, sh.Position)
	fmt.Fprintf(&b, "%s  %s – %s\n",
		client.StatusBadge(sh.Status),
		client.FormatDateTime(sh.StartTime, nil),
		client.FormatDateTime(sh.EndTime, nil),
	)
	if sh.Notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", sh.Notes)
	}
	return b.String()
}

func pageCount(n int) int {
	if n == 0 {
		return 1
	}
	return (n + shiftsPerPage - 1) / shiftsPerPage
}

// renderList draws one page of the cached shifts with per-row actions.
func renderList(st client.State, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	newRow := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ New shift", "new"))

	var msg strings.Builder
	msg.WriteString(banner(st))

	switch {
	case st.Loading:
		msg.WriteString(msgLoading)
		return msg.String(), tgbotapi.NewInlineKeyboardMarkup(newRow)
	case len(st.Shifts) == 0:
		if st.Error == "" {
			msg.WriteString(msgEmptyList)
		}
		return msg.String(), tgbotapi.NewInlineKeyboardMarkup(newRow)
	}

	pages := pageCount(len(st.Shifts))
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	startIdx := page * shiftsPerPage
	endIdx := startIdx + shiftsPerPage
	if endIdx > len(st.Shifts) {
		endIdx = len(st.Shifts)
	}

	fmt.Fprintf(&msg, "📋 Shifts (page %d of %d)\n\n", page+1, pages)
	for _, sh := range st.Shifts[startIdx:endIdx] {
		msg.WriteString(formatShift(sh))
		msg.WriteString("\n")
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✏️ Edit #%d", sh.ID), fmt.Sprintf("edit:%d", sh.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Delete #%d", sh.ID), fmt.Sprintf("del:%d", sh.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("page:%d", page-1)))
	}
	if endIdx < len(st.Shifts) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("page:%d", page+1)))
	}
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}
	keyboard = append(keyboard, newRow)

	return msg.String(), tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// renderForm draws the review screen of the current draft.
func renderForm(st client.State) (string, tgbotapi.InlineKeyboardMarkup) {
	var msg strings.Builder
	msg.WriteString(banner(st))
	if st.Editing() {
		fmt.Fprintf(&msg, "✏️ Editing shift #%d\n\n", st.EditingID)
	} else {
		msg.WriteString("📝 New shift\n\n")
	}

	for _, f := range []client.Field{
		client.FieldEmployeeName, client.FieldPosition, client.FieldStartTime,
		client.FieldEndTime, client.FieldStatus, client.FieldNotes,
	} {
		v := st.Form.Get(f)
		switch {
		case f == client.FieldStatus:
			v = client.StatusBadge(v).String()
		case v == "":
			v = "(empty)"
		}
		fmt.Fprintf(&msg, "%s: %s\n", fieldLabels[f], v)
	}

	fieldBtn := func(f client.Field) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(fieldLabels[f], "field:"+string(f))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(fieldBtn(client.FieldEmployeeName), fieldBtn(client.FieldPosition)),
		tgbotapi.NewInlineKeyboardRow(fieldBtn(client.FieldStartTime), fieldBtn(client.FieldEndTime)),
		tgbotapi.NewInlineKeyboardRow(fieldBtn(client.FieldStatus), fieldBtn(client.FieldNotes)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Save", "form:save"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "form:cancel"),
		),
	)
	return msg.String(), markup
}

func statusKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range models.Statuses {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(client.StatusBadge(s).String(), "status:"+s))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func skipKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", "form:skip"),
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "form:cancel"),
	))
}

func confirmDeleteKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Yes, delete", fmt.Sprintf("delyes:%d", id)),
		tgbotapi.NewInlineKeyboardButtonData("No", fmt.Sprintf("delno:%d", id)),
	))
}
