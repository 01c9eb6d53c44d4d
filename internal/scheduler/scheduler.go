// Package scheduler makes "send this message at this future time" survive a
// process restart. Events are persisted to the JobQueue table at enqueue time
// and re-armed from a full table scan at startup; an in-memory timer per
// event replaces a crash-safe timer wheel, which is sufficient at the job
// volumes this bot sees (tens to low hundreds).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iyaskobsp-spec/helpme.bot/internal/events"
	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

// Notifier delivers a due notification. Implementations own transport
// details; the scheduler only cares that a call returns.
type Notifier interface {
	// Notify sends plain text to a chat.
	Notify(ctx context.Context, chatID int64, text string) error

	// NotifyArrivalPrompt sends the interactive "confirm arrival" prompt
	// referencing a Requests row.
	NotifyArrivalPrompt(ctx context.Context, chatID int64, rowIdx int) error
}

// Config tunes the scheduler.
type Config struct {
	// Table is the JobQueue table name.
	Table string
	// CatchupDelay postpones events already overdue at arm time, so a
	// restart doesn't fire a burst at once. Default 2s.
	CatchupDelay time.Duration
	// SendRate / SendBurst bound outbound deliveries.
	SendRate  rate.Limit
	SendBurst int
	// FireTimeout bounds one delivery attempt. Default 1m.
	FireTimeout time.Duration
}

// Scheduler persists and re-arms timed notification jobs.
type Scheduler struct {
	store    store.Tabular
	table    string
	notifier Notifier
	bus      *events.Bus
	logger   *zerolog.Logger
	limiter  *rate.Limiter

	catchup     time.Duration
	fireTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// New creates a scheduler. Call LoadAndRearm once at startup and Stop on
// shutdown.
func New(st store.Tabular, notifier Notifier, cfg Config, bus *events.Bus, logger *zerolog.Logger) *Scheduler {
	if cfg.Table == "" {
		cfg.Table = "JobQueue"
	}
	if cfg.CatchupDelay <= 0 {
		cfg.CatchupDelay = 2 * time.Second
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = 20
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = 30
	}
	if cfg.FireTimeout <= 0 {
		cfg.FireTimeout = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:       st,
		table:       cfg.Table,
		notifier:    notifier,
		bus:         bus,
		logger:      logger,
		limiter:     rate.NewLimiter(cfg.SendRate, cfg.SendBurst),
		catchup:     cfg.CatchupDelay,
		fireTimeout: cfg.FireTimeout,
		ctx:         ctx,
		cancel:      cancel,
		timers:      make(map[string]*time.Timer),
	}
}

// Enqueue persists a new event and arms its timer. Returns the event ID.
func (s *Scheduler) Enqueue(ctx context.Context, kind models.EventKind, chatID int64, rowIdx int, dueAt time.Time, payload string) (string, error) {
	ev := models.ScheduledEvent{
		ID:      uuid.NewString(),
		Kind:    kind,
		ChatID:  chatID,
		RowIdx:  rowIdx,
		DueAt:   dueAt,
		Payload: payload,
	}

	if _, err := s.store.AppendRow(ctx, s.table, ev.EventRow()); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", kind, err)
	}

	s.arm(ev)
	s.logger.Info().
		Str("event_id", ev.ID).
		Str("kind", string(kind)).
		Time("due_at", dueAt).
		Msg("scheduled event enqueued")
	return ev.ID, nil
}

// LoadAndRearm scans the whole JobQueue table once, skips completed and
// malformed rows, and re-arms a timer for everything else. One corrupt row
// must never block the rest of the recovery, so parse failures only log.
func (s *Scheduler) LoadAndRearm(ctx context.Context) (int, error) {
	rows, err := s.store.GetAllRows(ctx, s.table)
	if err != nil {
		return 0, fmt.Errorf("load jobqueue: %w", err)
	}

	armed := 0
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		ev, err := models.ParseEventRow(cells)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+1).Msg("skipping malformed jobqueue row")
			continue
		}
		if ev.Done {
			continue
		}
		s.arm(ev)
		armed++
	}

	s.logger.Info().Int("armed", armed).Int("scanned", len(rows)).Msg("jobqueue re-armed")
	return armed, nil
}

// Armed returns the number of pending timers.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels in-flight deliveries and stops pending timers. Events not yet
// fired stay done="no" and are re-armed on the next start.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	for id, t := range s.timers {
		if t.Stop() {
			s.wg.Done() // timer never fired
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) arm(ev models.ScheduledEvent) {
	delay := time.Until(ev.DueAt)
	if delay <= 0 {
		delay = s.catchup
	}

	s.mu.Lock()
	if _, exists := s.timers[ev.ID]; exists {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.timers[ev.ID] = time.AfterFunc(delay, func() { s.fire(ev) })
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.TypeEventArmed, Fields: map[string]string{
			"event_id": ev.ID,
			"kind":     string(ev.Kind),
		}})
	}
}

// fire runs on the timer goroutine. Delivery failures are logged and
// discarded: retrying against a blocked or unreachable recipient has no
// useful endpoint here, and the event is marked done either way.
func (s *Scheduler) fire(ev models.ScheduledEvent) {
	defer s.wg.Done()

	s.mu.Lock()
	delete(s.timers, ev.ID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.fireTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("scheduler stopping, event left pending")
		return
	}

	delivered := true
	if ev.Payload != "" {
		if err := s.notifier.Notify(ctx, ev.ChatID, ev.Payload); err != nil {
			delivered = false
			s.logger.Warn().Err(err).Str("event_id", ev.ID).Int64("chat_id", ev.ChatID).Msg("notification delivery failed")
		}
	}
	if ev.Kind == models.KindArrival {
		if err := s.notifier.NotifyArrivalPrompt(ctx, ev.ChatID, ev.RowIdx); err != nil {
			delivered = false
			s.logger.Warn().Err(err).Str("event_id", ev.ID).Int64("chat_id", ev.ChatID).Msg("arrival prompt delivery failed")
		}
	}

	if err := s.markDone(ctx, ev.ID); err != nil {
		s.logger.Error().Err(err).Str("event_id", ev.ID).Msg("failed to mark event done")
	}

	s.logger.Info().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Bool("delivered", delivered).
		Msg("scheduled event fired")

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.TypeEventFired, Fields: map[string]string{
			"event_id":  ev.ID,
			"kind":      string(ev.Kind),
			"delivered": fmt.Sprint(delivered),
		}})
	}
}

// markDone locates the event's row by ID and flips the done flag. The scan
// mirrors enqueue-time appends from any process, so the row position is
// never assumed.
func (s *Scheduler) markDone(ctx context.Context, id string) error {
	rows, err := s.store.GetAllRows(ctx, s.table)
	if err != nil {
		return err
	}
	for i, cells := range rows {
		if len(cells) > 0 && cells[models.EvColID-1] == id {
			return s.store.UpdateCell(ctx, s.table, i+1, models.EvColDone, models.DoneYes)
		}
	}
	return fmt.Errorf("event %s not found in %s", id, s.table)
}
