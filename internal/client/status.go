package client

import (
	"time"

	"shiftboard/internal/models"
)

// Badge is the visual treatment of a status.
type Badge struct {
	Emoji string
	Label string
	Color string
}

var statusBadges = map[string]Badge{
	models.StatusScheduled: {Emoji: "🔵", Label: "scheduled", Color: "blue"},
	models.StatusCompleted: {Emoji: "🟢", Label: "completed", Color: "green"},
	models.StatusCancelled: {Emoji: "🔴", Label: "cancelled", Color: "red"},
}

// StatusBadge maps a status to its badge. Unknown values get a gray badge
// carrying the raw label.
func StatusBadge(status string) Badge {
	if b, ok := statusBadges[status]; ok {
		return b
	}
	return Badge{Emoji: "⚪", Label: status, Color: "gray"}
}

func (b Badge) String() string {
	return b.Emoji + " " + b.Label
}

// DisplayLayout renders list timestamps like "Nov 8, 9:00 AM".
const DisplayLayout = "Jan 2, 3:04 PM"

// FormatDateTime renders t in loc for the list. The zero time renders as "".
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}
