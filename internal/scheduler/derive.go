package scheduler

import (
	"fmt"
	"time"

	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
)

// Derived is a not-yet-persisted event computed from a confirmed shift.
type Derived struct {
	Kind    models.EventKind
	DueAt   time.Time
	Payload string
}

// DeriveShiftEvents computes the notifications owed to one booked worker once
// a shift is confirmed: a reminder the evening before (at remindHour) and an
// arrival prompt at the shift's start. Each is derived only if its instant is
// still in the future at confirmation time, so confirming close to the shift
// can yield one event or none. An unparseable shift date yields none.
func DeriveShiftEvents(shift models.ShiftRequest, city, address string, remindHour int, now time.Time, loc *time.Location) []Derived {
	d, ok := models.ParseDateFlexible(shift.Date)
	if !ok {
		return nil
	}

	var out []Derived

	remindAt := time.Date(d.Year(), d.Month(), d.Day(), remindHour, 0, 0, 0, loc).AddDate(0, 0, -1)
	if remindAt.After(now) {
		out = append(out, Derived{
			Kind:  models.KindRemind,
			DueAt: remindAt,
			Payload: fmt.Sprintf("🔔 Нагадування: завтра зміна\n%s, ТТ %s\n%s %s–%s\nАдреса: %s",
				city, shift.Store, shift.Date, shift.TimeFrom, shift.TimeTo, address),
		})
	}

	if startAt, ok := shift.StartAt(loc); ok && startAt.After(now) {
		out = append(out, Derived{Kind: models.KindArrival, DueAt: startAt})
	}

	return out
}
