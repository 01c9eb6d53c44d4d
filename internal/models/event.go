package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventKind is the JobQueue "type" column.
type EventKind string

const (
	KindRemind  EventKind = "remind"
	KindArrival EventKind = "arrival"
)

// JobQueue sheet columns, 1-based. This literal row shape is what restart
// re-hydration reads back, so it must not change.
const (
	EvColID     = 1
	EvColType   = 2
	EvColChatID = 3
	EvColRowIdx = 4
	EvColWhen   = 5
	EvColText   = 6
	EvColDone   = 7
)

const (
	DoneYes = "yes"
	DoneNo  = "no"
)

// ScheduledEvent is one row of the JobQueue sheet: a durably persisted future
// notification with at-most-one delivery attempt.
type ScheduledEvent struct {
	ID      string // UUID
	Kind    EventKind
	ChatID  int64
	RowIdx  int // Requests sheet row the event refers to
	DueAt   time.Time
	Payload string
	Done    bool
}

// EventRow encodes the event into its JobQueue row.
func (e *ScheduledEvent) EventRow() []string {
	done := DoneNo
	if e.Done {
		done = DoneYes
	}
	return []string{
		e.ID,
		string(e.Kind),
		strconv.FormatInt(e.ChatID, 10),
		strconv.Itoa(e.RowIdx),
		e.DueAt.Format(time.RFC3339),
		e.Payload,
		done,
	}
}

var whenLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// ParseEventRow decodes a JobQueue row. Any malformed field yields an error
// so the loader can skip the single bad row without aborting the scan.
func ParseEventRow(cells []string) (ScheduledEvent, error) {
	c := PadRow(cells, EvColDone)

	id := strings.TrimSpace(c[EvColID-1])
	if id == "" {
		return ScheduledEvent{}, fmt.Errorf("event row: empty id")
	}

	kind := EventKind(strings.TrimSpace(c[EvColType-1]))
	switch kind {
	case KindRemind, KindArrival:
	default:
		return ScheduledEvent{}, fmt.Errorf("event %s: unknown type %q", id, kind)
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(c[EvColChatID-1]), 10, 64)
	if err != nil {
		return ScheduledEvent{}, fmt.Errorf("event %s: chat_id: %w", id, err)
	}

	rowIdx, err := strconv.Atoi(strings.TrimSpace(c[EvColRowIdx-1]))
	if err != nil {
		return ScheduledEvent{}, fmt.Errorf("event %s: row_idx: %w", id, err)
	}

	var due time.Time
	rawWhen := strings.TrimSpace(c[EvColWhen-1])
	for _, layout := range whenLayouts {
		if t, perr := time.ParseInLocation(layout, rawWhen, time.Local); perr == nil {
			due = t
			break
		}
	}
	if due.IsZero() {
		return ScheduledEvent{}, fmt.Errorf("event %s: bad when %q", id, rawWhen)
	}

	return ScheduledEvent{
		ID:      id,
		Kind:    kind,
		ChatID:  chatID,
		RowIdx:  rowIdx,
		DueAt:   due,
		Payload: c[EvColText-1],
		Done:    strings.TrimSpace(c[EvColDone-1]) == DoneYes,
	}, nil
}
