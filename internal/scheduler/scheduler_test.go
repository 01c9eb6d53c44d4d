package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyaskobsp-spec/helpme.bot/internal/booking"
	"github.com/iyaskobsp-spec/helpme.bot/internal/events"
	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

const testJobs = "JobQueue"

var jobsHeader = []string{"id", "type", "chat_id", "row_idx", "when", "text", "done"}

type fakeNotifier struct {
	mu      sync.Mutex
	texts   []string
	prompts []int
	err     error
	fired   chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fired: make(chan struct{}, 16)}
}

func (f *fakeNotifier) Notify(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	f.fired <- struct{}{}
	return f.err
}

func (f *fakeNotifier) NotifyArrivalPrompt(_ context.Context, _ int64, rowIdx int) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, rowIdx)
	f.mu.Unlock()
	f.fired <- struct{}{}
	return f.err
}

func newTestScheduler(m *store.Memory, n Notifier) *Scheduler {
	logger := zerolog.New(io.Discard)
	return New(m, n, Config{
		Table:        testJobs,
		CatchupDelay: 20 * time.Millisecond,
		FireTimeout:  2 * time.Second,
	}, events.NewBus(), &logger)
}

func waitFired(t *testing.T, f *fakeNotifier) {
	t.Helper()
	select {
	case <-f.fired:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func doneFlags(m *store.Memory) []string {
	var flags []string
	for i, row := range m.Rows(testJobs) {
		if i == 0 {
			continue
		}
		flags = append(flags, row[models.EvColDone-1])
	}
	return flags
}

func TestEnqueuePersistsAndFires(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.Seed(testJobs, [][]string{jobsHeader})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	id, err := s.Enqueue(ctx, models.KindRemind, 42, 7, time.Now().Add(50*time.Millisecond), "нагадування")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rows := m.Rows(testJobs)
	require.Len(t, rows, 2)
	assert.Equal(t, id, rows[1][models.EvColID-1])
	assert.Equal(t, models.DoneNo, rows[1][models.EvColDone-1])

	waitFired(t, n)
	require.Eventually(t, func() bool {
		return doneFlags(m)[0] == models.DoneYes
	}, 2*time.Second, 10*time.Millisecond, "done flag must flip after the delivery attempt")

	assert.Equal(t, []string{"нагадування"}, n.texts)
}

func TestArrivalEventSendsPrompt(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.Seed(testJobs, [][]string{jobsHeader})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	// Arrival events carry no payload; only the interactive prompt goes out.
	_, err := s.Enqueue(ctx, models.KindArrival, 42, 7, time.Now().Add(-time.Hour), "")
	require.NoError(t, err)

	waitFired(t, n)
	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Empty(t, n.texts)
	assert.Equal(t, []int{7}, n.prompts)
}

func TestLoadAndRearmFutureRow(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	due := time.Now().Add(80 * time.Millisecond)
	m.Seed(testJobs, [][]string{
		jobsHeader,
		{"ev-1", "remind", "42", "7", due.Format(time.RFC3339Nano), "текст", "no"},
	})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	armed, err := s.LoadAndRearm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, armed)
	assert.Equal(t, 1, s.Armed())

	waitFired(t, n)
	require.Eventually(t, func() bool {
		return doneFlags(m)[0] == models.DoneYes
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadAndRearmOverdueRowFiresSoon(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.Seed(testJobs, [][]string{
		jobsHeader,
		{"ev-1", "remind", "42", "7", time.Now().Add(-time.Hour).Format(time.RFC3339), "прострочене", "no"},
	})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	start := time.Now()
	_, err := s.LoadAndRearm(ctx)
	require.NoError(t, err)

	waitFired(t, n)
	assert.Less(t, time.Since(start), time.Second, "overdue events fire after the short catch-up delay, not at their past due time")
}

func TestLoadAndRearmSkipsDoneAndMalformed(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	due := time.Now().Add(time.Hour).Format(time.RFC3339)
	m.Seed(testJobs, [][]string{
		jobsHeader,
		{"ev-1", "remind", "42", "7", due, "a", "no"},
		{"ev-2", "remind", "42", "8", "колись потім", "b", "no"}, // bad when
		{"ev-3", "arrival", "43", "9", due, "", "no"},
		{"ev-4", "remind", "44", "10", due, "d", "yes"}, // already done
	})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	armed, err := s.LoadAndRearm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, armed, "one malformed row must not block the valid ones")
	assert.Equal(t, 2, s.Armed())
}

func TestFailedDeliveryStillMarksDone(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.Seed(testJobs, [][]string{jobsHeader})
	n := newFakeNotifier()
	n.err = errors.New("bot was blocked by the user")
	s := newTestScheduler(m, n)
	defer s.Stop()

	_, err := s.Enqueue(ctx, models.KindRemind, 42, 7, time.Now().Add(-time.Minute), "текст")
	require.NoError(t, err)

	waitFired(t, n)
	require.Eventually(t, func() bool {
		return doneFlags(m)[0] == models.DoneYes
	}, 2*time.Second, 10*time.Millisecond, "delivery failure is swallowed and the event still completes")
}

func TestStopLeavesPendingEvents(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.Seed(testJobs, [][]string{jobsHeader})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)

	_, err := s.Enqueue(ctx, models.KindRemind, 42, 7, time.Now().Add(time.Hour), "текст")
	require.NoError(t, err)
	s.Stop()

	assert.Equal(t, 0, s.Armed())
	assert.Equal(t, []string{models.DoneNo}, doneFlags(m), "an unfired event stays pending for the next restart")
}

func TestDeriveShiftEvents(t *testing.T) {
	loc := time.UTC
	shift := models.ShiftRequest{
		Store:    "101",
		Date:     "15.09.2030",
		TimeFrom: "10:00",
		TimeTo:   "18:00",
	}

	t.Run("ThreeDaysAhead", func(t *testing.T) {
		now := time.Date(2030, 9, 12, 10, 0, 0, 0, loc)
		derived := DeriveShiftEvents(shift, "Київ", "вул. Хрещатик, 1", 18, now, loc)
		require.Len(t, derived, 2)
		assert.Equal(t, models.KindRemind, derived[0].Kind)
		assert.Equal(t, time.Date(2030, 9, 14, 18, 0, 0, 0, loc), derived[0].DueAt)
		assert.Contains(t, derived[0].Payload, "ТТ 101")
		assert.Contains(t, derived[0].Payload, "вул. Хрещатик, 1")
		assert.Equal(t, models.KindArrival, derived[1].Kind)
		assert.Equal(t, time.Date(2030, 9, 15, 10, 0, 0, 0, loc), derived[1].DueAt)
	})

	t.Run("TwoHoursBeforeStart", func(t *testing.T) {
		now := time.Date(2030, 9, 15, 8, 0, 0, 0, loc)
		derived := DeriveShiftEvents(shift, "Київ", "", 18, now, loc)
		require.Len(t, derived, 1, "the reminder instant is already past")
		assert.Equal(t, models.KindArrival, derived[0].Kind)
	})

	t.Run("AfterShiftStart", func(t *testing.T) {
		now := time.Date(2030, 9, 15, 12, 0, 0, 0, loc)
		derived := DeriveShiftEvents(shift, "Київ", "", 18, now, loc)
		assert.Empty(t, derived)
	})

	t.Run("BadDate", func(t *testing.T) {
		bad := shift
		bad.Date = "завтра"
		assert.Empty(t, DeriveShiftEvents(bad, "Київ", "", 18, time.Now(), loc))
	})
}

func TestEndToEndReservationScenario(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	m := store.NewMemory()
	m.Seed("Requests", [][]string{
		{"ID", "№_магазину", "Місто", "Дата", "Час_початку", "Час_закінчення", "Потрібно", "Заброньовано", "Статус", "Примітка", "Створив_TG", "Створив_тел", "Тел_працівників", "ПІБ_працівників", "Прибуття"},
		{"1", "101", "Київ", "15.09.2030", "09:00", "18:00", "2", "", "Pending", "", "111", "+380991112233", "", "", ""},
	})
	m.Seed(testJobs, [][]string{jobsHeader})

	engine := booking.NewEngine(m, "Requests", "Attendance", events.NewBus(), &logger)
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	resA, err := engine.Reserve(ctx, 2, "1001", "380930000001", "Перший Працівник")
	require.NoError(t, err)
	assert.Equal(t, "Очікує підтвердження (1/2)", resA.Status)

	resB, err := engine.Reserve(ctx, 2, "1002", "380930000002", "Другий Працівник")
	require.NoError(t, err)
	assert.Equal(t, "Очікує підтвердження (2/2)", resB.Status)

	resC, err := engine.Reserve(ctx, 2, "1003", "380930000003", "Третій Працівник")
	require.NoError(t, err)
	assert.Equal(t, booking.OutcomeFull, resC.Outcome)

	conf, err := engine.Confirm(ctx, 2, 111, "")
	require.NoError(t, err)
	require.True(t, conf.Authorized)
	assert.Equal(t, "Підтверджено (2/2)", conf.Status)

	// Confirmation time is far ahead of the shift, so each booked worker
	// gets both events.
	now := time.Date(2030, 9, 1, 12, 0, 0, 0, time.Local)
	ids := make(map[string]struct{})
	for _, chatID := range []int64{1001, 1002} {
		derived := DeriveShiftEvents(conf.Shift, "Київ", "вул. Хрещатик, 1", 18, now, time.Local)
		require.Len(t, derived, 2)
		for _, d := range derived {
			id, err := s.Enqueue(ctx, d.Kind, chatID, 2, d.DueAt, d.Payload)
			require.NoError(t, err)
			ids[id] = struct{}{}
		}
	}

	assert.Len(t, ids, 4, "four distinct scheduled events for two workers")
	assert.Len(t, m.Rows(testJobs), 5, "header plus four persisted rows")
}

func TestMarkDoneMissingRow(t *testing.T) {
	m := store.NewMemory()
	m.Seed(testJobs, [][]string{jobsHeader})
	n := newFakeNotifier()
	s := newTestScheduler(m, n)
	defer s.Stop()

	err := s.markDone(context.Background(), "no-such-id")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("not found in %s", testJobs))
}
