package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNeeded(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"2", 2},
		{" 3 ", 3},
		{"2.0", 2},
		{"2,5", 2},
		{"", 1},
		{"abc", 1},
		{"0", 1},
		{"-4", 1},
		{"10", 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseNeeded(tt.input), "input: %q", tt.input)
	}
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"111", "222"}, SplitIDs("111, 222"))
	assert.Equal(t, []string{"111"}, SplitIDs(" 111 ,, abc, 12a"))
	assert.Nil(t, SplitIDs(""))
	assert.Nil(t, SplitIDs(" , "))
}

func TestSplitJoinList(t *testing.T) {
	list := SplitList("Шевченко Тарас, Франко Іван")
	assert.Equal(t, []string{"Шевченко Тарас", "Франко Іван"}, list)
	assert.Equal(t, "Шевченко Тарас, Франко Іван", JoinList(list))
}

func TestParseDateFlexible(t *testing.T) {
	for _, input := range []string{"2025-09-15", "15.09.2025", "15/09/2025", "15-09-2025"} {
		d, ok := ParseDateFlexible(input)
		require.True(t, ok, "input: %q", input)
		assert.Equal(t, 2025, d.Year())
		assert.Equal(t, time.September, d.Month())
		assert.Equal(t, 15, d.Day())
	}

	_, ok := ParseDateFlexible("завтра")
	assert.False(t, ok)
}

func TestParseShiftRow(t *testing.T) {
	cells := []string{
		"=ROW()", "101", "Київ", "15.09.2025", "09:00", "18:00", "2",
		"111, 222", "Очікує підтвердження (2/2)", "",
		"999", "+380991112233", "380931112233, 380932223344", "Шевченко Тарас, Франко Іван", "Так",
	}

	s := ParseShiftRow(7, cells)
	assert.Equal(t, 7, s.RowIdx)
	assert.Equal(t, "101", s.Store)
	assert.Equal(t, "Київ", s.City)
	assert.Equal(t, 2, s.Needed)
	assert.Equal(t, []string{"111", "222"}, s.BookedIDs)
	assert.Equal(t, "999", s.CreatorID)
	assert.True(t, s.Arrived)
	assert.Equal(t, 0, s.FreeSlots())
	assert.True(t, s.HasWorker("222"))
	assert.False(t, s.HasWorker("333"))
}

func TestParseShiftRowShort(t *testing.T) {
	// Rows freshly appended by the bot have trailing blank columns.
	s := ParseShiftRow(2, []string{"", "101", "", "2025-09-15", "09:00", "18:00", ""})
	assert.Equal(t, 1, s.Needed)
	assert.Empty(t, s.BookedIDs)
	assert.Equal(t, 1, s.FreeSlots())
	assert.False(t, s.Arrived)
}

func TestStatusRendering(t *testing.T) {
	assert.Equal(t, "Очікує підтвердження (1/2)", AwaitingStatus(1, 2))
	assert.Equal(t, "Підтверджено (2/2)", ConfirmedStatus(2, 2))
}

func TestIsOpenStatus(t *testing.T) {
	for _, s := range []string{"", "Pending", "Очікує підтвердження (1/2)", "Підтверджено (2/2)", "confirmed"} {
		assert.True(t, IsOpenStatus(s), "status: %q", s)
	}
	for _, s := range []string{"Скасовано", "closed"} {
		assert.False(t, IsOpenStatus(s), "status: %q", s)
	}
}

func TestShiftStartAt(t *testing.T) {
	s := ShiftRequest{Date: "15.09.2025", TimeFrom: "10:30"}
	start, ok := s.StartAt(time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC), start)

	t.Run("BadClockFallsBackToMorning", func(t *testing.T) {
		s := ShiftRequest{Date: "2025-09-15", TimeFrom: "ранок"}
		start, ok := s.StartAt(time.UTC)
		require.True(t, ok)
		assert.Equal(t, 9, start.Hour())
	})

	t.Run("BadDate", func(t *testing.T) {
		s := ShiftRequest{Date: "колись", TimeFrom: "10:00"}
		_, ok := s.StartAt(time.UTC)
		assert.False(t, ok)
	})
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "380991112233", DigitsOnly("+38 (099) 111-22-33"))
	assert.Equal(t, "", DigitsOnly("абв"))
}

func TestEventRowRoundTrip(t *testing.T) {
	due := time.Date(2025, 9, 14, 18, 0, 0, 0, time.Local)
	ev := ScheduledEvent{
		ID:      "f4b0c3f2-0000-4000-8000-000000000001",
		Kind:    KindRemind,
		ChatID:  42,
		RowIdx:  7,
		DueAt:   due,
		Payload: "🔔 Нагадування: завтра зміна",
	}

	parsed, err := ParseEventRow(ev.EventRow())
	require.NoError(t, err)
	assert.Equal(t, ev.ID, parsed.ID)
	assert.Equal(t, KindRemind, parsed.Kind)
	assert.Equal(t, int64(42), parsed.ChatID)
	assert.Equal(t, 7, parsed.RowIdx)
	assert.True(t, due.Equal(parsed.DueAt))
	assert.False(t, parsed.Done)
}

func TestParseEventRowBareISO(t *testing.T) {
	// Rows written by the previous deployment carry zone-less ISO timestamps.
	cells := []string{"id-1", "arrival", "42", "7", "2025-09-15T09:00:00", "", "no"}
	ev, err := ParseEventRow(cells)
	require.NoError(t, err)
	assert.Equal(t, KindArrival, ev.Kind)
	assert.Equal(t, 9, ev.DueAt.Hour())
}

func TestParseEventRowMalformed(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
	}{
		{"EmptyID", []string{"", "remind", "42", "7", "2025-09-15T09:00:00", "", "no"}},
		{"UnknownType", []string{"id", "snooze", "42", "7", "2025-09-15T09:00:00", "", "no"}},
		{"BadChatID", []string{"id", "remind", "nope", "7", "2025-09-15T09:00:00", "", "no"}},
		{"BadWhen", []string{"id", "remind", "42", "7", "післязавтра", "", "no"}},
		{"BadRowIdx", []string{"id", "remind", "42", "x", "2025-09-15T09:00:00", "", "no"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEventRow(tt.cells)
			assert.Error(t, err)
		})
	}
}

func TestDirectory(t *testing.T) {
	rows := [][]string{
		{"№_магазину", "Місто", "Область", "Адреса", "ПІБ_ТМ", "Телефон_ТМ"},
		{"101", "Київ", "Київська", "вул. Хрещатик, 1", "Петренко П.П.", "+380991112233"},
		{"102", "Бровари", "Київська", "вул. Незалежності, 5", "Іваненко І.І.", "+380992223344"},
		{"201", "Львів", "Львівська", "пр. Свободи, 10", "Козак К.К.", "+380993334455"},
	}

	d := NewDirectory(rows)

	e, ok := d.Lookup("101")
	require.True(t, ok)
	assert.Equal(t, "Київ", e.City)

	assert.Equal(t, []string{"Бровари", "Київ", "Львів"}, d.Cities())
	assert.True(t, d.IsKyivArea("Київ"))
	assert.True(t, d.IsKyivArea("Бровари"))
	assert.False(t, d.IsKyivArea("Львів"))
	assert.Equal(t, []string{"Бровари", "Київ"}, d.CitiesInRegion(true))
	assert.Equal(t, []string{"Львів"}, d.CitiesInRegion(false))
	assert.Len(t, d.StoresInCity("Київ"), 1)

	t.Run("CityFallback", func(t *testing.T) {
		s := &ShiftRequest{Store: "201"}
		assert.Equal(t, "Львів", d.CityOf(s))
		s.City = "Винники"
		assert.Equal(t, "Винники", d.CityOf(s))
	})
}
