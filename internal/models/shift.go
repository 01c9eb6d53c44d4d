package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Requests sheet columns, 1-based. Column A holds a formula-generated ID and
// is never written by the bot.
const (
	ColStore        = 2  // B
	ColCity         = 3  // C
	ColDate         = 4  // D
	ColTimeFrom     = 5  // E
	ColTimeTo       = 6  // F
	ColNeeded       = 7  // G
	ColBooked       = 8  // H, Telegram IDs comma-joined
	ColStatus       = 9  // I
	ColNote         = 10 // J
	ColCreatorID    = 11 // K
	ColCreatorPhone = 12 // L
	ColBookedPhones = 13 // M
	ColBookedNames  = 14 // N
	ColArrived      = 15 // O
)

// Status values stored in column I. The awaiting/confirmed variants carry a
// "(n/needed)" suffix rendered by AwaitingStatus/ConfirmedStatus.
const (
	StatusPending   = "Pending"
	StatusAwaiting  = "Очікує підтвердження"
	StatusConfirmed = "Підтверджено"
)

// ArrivedYes is the column O marker set once the worker confirms arrival.
const ArrivedYes = "Так"

// ListSeparator joins the booked IDs, phones and names columns.
const ListSeparator = ", "

// ShiftRequest is one row of the Requests sheet.
type ShiftRequest struct {
	RowIdx       int // 1-based sheet row
	Store        string
	City         string
	Date         string // as stored, see ParseDateFlexible
	TimeFrom     string // HH:MM
	TimeTo       string // HH:MM
	Needed       int
	BookedIDs    []string
	Status       string
	CreatorID    string
	CreatorPhone string
	BookedPhones []string
	BookedNames  []string
	Arrived      bool
}

// ParseShiftRow decodes a Requests row. Cells are positional per the column
// constants; short rows are padded so a half-filled row still parses.
func ParseShiftRow(rowIdx int, cells []string) ShiftRequest {
	c := PadRow(cells, ColArrived)
	return ShiftRequest{
		RowIdx:       rowIdx,
		Store:        strings.TrimSpace(c[ColStore-1]),
		City:         strings.TrimSpace(c[ColCity-1]),
		Date:         strings.TrimSpace(c[ColDate-1]),
		TimeFrom:     strings.TrimSpace(c[ColTimeFrom-1]),
		TimeTo:       strings.TrimSpace(c[ColTimeTo-1]),
		Needed:       ParseNeeded(c[ColNeeded-1]),
		BookedIDs:    SplitIDs(c[ColBooked-1]),
		Status:       strings.TrimSpace(c[ColStatus-1]),
		CreatorID:    strings.TrimSpace(c[ColCreatorID-1]),
		CreatorPhone: strings.TrimSpace(c[ColCreatorPhone-1]),
		BookedPhones: SplitList(c[ColBookedPhones-1]),
		BookedNames:  SplitList(c[ColBookedNames-1]),
		Arrived:      strings.TrimSpace(c[ColArrived-1]) == ArrivedYes,
	}
}

// FreeSlots returns the remaining capacity, never negative.
func (s *ShiftRequest) FreeSlots() int {
	free := s.Needed - len(s.BookedIDs)
	if free < 0 {
		return 0
	}
	return free
}

// HasWorker reports whether the worker already booked this shift.
func (s *ShiftRequest) HasWorker(workerID string) bool {
	for _, id := range s.BookedIDs {
		if id == workerID {
			return true
		}
	}
	return false
}

// StartAt resolves the shift start instant in loc. Unparseable time-of-day
// falls back to 09:00, matching the sheet's manual-entry tolerance.
func (s *ShiftRequest) StartAt(loc *time.Location) (time.Time, bool) {
	d, ok := ParseDateFlexible(s.Date)
	if !ok {
		return time.Time{}, false
	}
	h, m := 9, 0
	if hh, mm, err := parseClock(s.TimeFrom); err == nil {
		h, m = hh, mm
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), true
}

// ParseNeeded applies the single capacity coercion rule: trimmed, comma
// tolerated as decimal point, float values truncated, anything unparseable
// defaults to 1, and the result is clamped to at least 1.
func ParseNeeded(raw string) int {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	n := 1
	if v, err := strconv.Atoi(s); err == nil {
		n = v
	} else if f, err := strconv.ParseFloat(s, 64); err == nil {
		n = int(f)
	}
	if n < 1 {
		return 1
	}
	return n
}

// SplitIDs decodes the booked-IDs column, keeping only digit-only tokens.
func SplitIDs(raw string) []string {
	var ids []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" && isDigits(tok) {
			ids = append(ids, tok)
		}
	}
	return ids
}

// SplitList decodes a comma-joined column (phones, names).
func SplitList(raw string) []string {
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// JoinList encodes a list back into its column form.
func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}

// AwaitingStatus renders "Очікує підтвердження (n/needed)".
func AwaitingStatus(booked, needed int) string {
	return fmt.Sprintf("%s (%d/%d)", StatusAwaiting, booked, needed)
}

// ConfirmedStatus renders "Підтверджено (n/needed)".
func ConfirmedStatus(booked, needed int) string {
	return fmt.Sprintf("%s (%d/%d)", StatusConfirmed, booked, needed)
}

// IsOpenStatus reports whether a status still admits bookings. Blank rows and
// both spellings of the confirmed/awaiting states count as open; anything
// else (cancelled, done, free text) does not.
func IsOpenStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return true
	}
	for _, marker := range []string{"pending", "очіку", "підтвер", "confirm"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "02/01/2006", "02-01-2006", "01/02/2006"}

// ParseDateFlexible accepts the date spellings found in manually edited rows.
func ParseDateFlexible(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DigitsOnly strips everything but digits; used to compare phone numbers.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PadRow extends cells to at least n entries.
func PadRow(cells []string, n int) []string {
	if len(cells) >= n {
		return cells
	}
	padded := make([]string, n)
	copy(padded, cells)
	return padded
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func parseClock(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("bad time %q", s)
	}
	return h, m, nil
}
