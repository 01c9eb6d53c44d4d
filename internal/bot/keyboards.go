package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 Створити зміну", "menu:create"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Забронювати зміни", "menu:book"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 Мої відпрацьовані зміни", "menu:mydone"),
		),
	)
}

func stableMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("🏠 Меню")),
	)
	kb.ResizeKeyboard = true
	return kb
}

func contactRequestKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("📞 Поділитися номером")),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func regionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Київ і область", "region:kyiv"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Інші міста", "region:other"),
		),
	)
}

// citiesKeyboard lays cities out two per row.
func citiesKeyboard(cities []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, city := range cities {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(city, "pickcity:"+city))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// storesKeyboard lists a city's stores two per row, labeled with the street
// part of the address.
func storesKeyboard(entries []models.StoreDirectoryEntry) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		label := e.Store
		if short := shortAddress(e.Address, 22); short != "" {
			label = fmt.Sprintf("%s • %s", e.Store, short)
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "pickstore:"+e.Store))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func shortAddress(addr string, max int) string {
	short := strings.TrimSpace(strings.SplitN(addr, ",", 2)[0])
	if runes := []rune(short); len(runes) > max {
		short = string(runes[:max])
	}
	return short
}

// shiftOption is one bookable row offered in the date's shift list.
type shiftOption struct {
	RowIdx int
	Date   time.Time
	Label  string
}

// openShiftsOn filters the Requests rows down to bookable shifts in one city
// on one date: open status, free capacity, matching city (directory fallback
// for blank column C).
func openShiftsOn(rows [][]string, dir *models.Directory, city string, day time.Time) []shiftOption {
	var out []shiftOption
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		shift := models.ParseShiftRow(i+1, cells)
		if shift.Store == "" || dir.CityOf(&shift) != city {
			continue
		}
		if !models.IsOpenStatus(shift.Status) || shift.FreeSlots() <= 0 {
			continue
		}
		d, ok := models.ParseDateFlexible(shift.Date)
		if !ok || !sameDay(d, day) {
			continue
		}

		label := fmt.Sprintf("%s-%s • ТТ %s", shift.TimeFrom, shift.TimeTo, shift.Store)
		if e, ok := dir.Lookup(shift.Store); ok {
			if short := shortAddress(e.Address, 22); short != "" {
				label += " • " + short
			}
		}
		label += fmt.Sprintf(" • %d/%d", len(shift.BookedIDs), shift.Needed)
		if runes := []rune(label); len(runes) > 64 {
			label = string(runes[:64])
		}
		out = append(out, shiftOption{RowIdx: shift.RowIdx, Date: d, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowIdx < out[j].RowIdx })
	if len(out) > 50 {
		out = out[:50]
	}
	return out
}

func shiftListKeyboard(options []shiftOption) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, opt := range options {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, fmt.Sprintf("book:%d", opt.RowIdx)),
		})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// openDatesIn collects the dates with open shifts in a city, bounded to the
// booking window so stars never point past it.
func openDatesIn(rows [][]string, dir *models.Directory, city string, today time.Time, daysAhead int) map[string]bool {
	last := today.AddDate(0, 0, daysAhead)
	dates := make(map[string]bool)
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		shift := models.ParseShiftRow(i+1, cells)
		if dir.CityOf(&shift) != city || !models.IsOpenStatus(shift.Status) {
			continue
		}
		d, ok := models.ParseDateFlexible(shift.Date)
		if !ok || d.Before(today) || d.After(last) {
			continue
		}
		dates[d.Format("2006-01-02")] = true
	}
	return dates
}

const calendarWeekdays = "Пн Вт Ср Чт Пт Сб Нд"

func calendarHeader(prefix string, year, month int) [][]tgbotapi.InlineKeyboardButton {
	nav := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("«", fmt.Sprintf("%s:%d:%d:prev", prefix, year, month)),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d-%02d", year, month), "noop"),
		tgbotapi.NewInlineKeyboardButtonData("»", fmt.Sprintf("%s:%d:%d:next", prefix, year, month)),
	}
	var week []tgbotapi.InlineKeyboardButton
	for _, wd := range strings.Fields(calendarWeekdays) {
		week = append(week, tgbotapi.NewInlineKeyboardButtonData(wd, "noop"))
	}
	return [][]tgbotapi.InlineKeyboardButton{nav, week}
}

// calendarKeyboard is the plain month grid used when creating a shift; every
// day is pickable.
func calendarKeyboard(year, month int) tgbotapi.InlineKeyboardMarkup {
	rows := calendarHeader("calnav", year, month)

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := daysIn(year, time.Month(month))
	pad := (int(first.Weekday()) + 6) % 7 // Monday-first grid

	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < pad; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
	}
	for d := 1; d <= days; d++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", d),
			fmt.Sprintf("calpick:%04d-%02d-%02d", year, month, d),
		))
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// bookingCalendarKeyboard marks days that have open shifts with ⭐. Past days
// are inert; any future day stays pickable so the no-shifts notice can offer
// the calendar again.
func bookingCalendarKeyboard(year, month int, today time.Time, openDates map[string]bool) tgbotapi.InlineKeyboardMarkup {
	rows := calendarHeader("calnav2", year, month)

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := daysIn(year, time.Month(month))
	pad := (int(first.Weekday()) + 6) % 7

	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < pad; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
	}
	for d := 1; d <= days; d++ {
		cur := time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC)
		dateStr := cur.Format("2006-01-02")

		var btn tgbotapi.InlineKeyboardButton
		switch {
		case cur.Before(today):
			btn = tgbotapi.NewInlineKeyboardButtonData(" ", "noop")
		case openDates[dateStr]:
			btn = tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d⭐", d), "bookdate:"+dateStr)
		default:
			btn = tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", d), "bookdate:"+dateStr)
		}
		row = append(row, btn)
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// timePickerKeyboard is the –/+ stepper with an OK row; prefix is tstart or
// tend so both pickers share the handler.
func timePickerKeyboard(prefix string, h, m int) tgbotapi.InlineKeyboardMarkup {
	t := fmt.Sprintf("%02d:%02d", h, m)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(" – ", fmt.Sprintf("%s:dec:%d:%d", prefix, h, m)),
			tgbotapi.NewInlineKeyboardButtonData("        "+t+"        ", "noop"),
			tgbotapi.NewInlineKeyboardButtonData(" + ", fmt.Sprintf("%s:inc:%d:%d", prefix, h, m)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("OK", fmt.Sprintf("%s:ok:%d:%d", prefix, h, m)),
		),
	)
}

func stepTime(h, m, stepMinutes int) (int, int) {
	total := h*60 + m + stepMinutes
	total %= 24 * 60
	if total < 0 {
		total += 24 * 60
	}
	return total / 60, total % 60
}

func stepMonth(year, month int, forward bool) (int, int) {
	if forward {
		month++
		if month == 13 {
			month, year = 1, year+1
		}
	} else {
		month--
		if month == 0 {
			month, year = 12, year-1
		}
	}
	return year, month
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
