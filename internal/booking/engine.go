package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iyaskobsp-spec/helpme.bot/internal/events"
	"github.com/iyaskobsp-spec/helpme.bot/internal/models"
	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

// Outcome of a reservation attempt. Full and AlreadyBooked are ordinary
// results of the capacity check, not errors.
type Outcome string

const (
	OutcomeReserved      Outcome = "reserved"
	OutcomeAlreadyBooked Outcome = "already_booked"
	OutcomeFull          Outcome = "full"
)

// ReserveResult reports a reservation attempt. Shift is the row as it looked
// after the attempt (for Reserved) or at check time (for the other outcomes).
type ReserveResult struct {
	Outcome Outcome
	Shift   models.ShiftRequest
	Status  string
}

// ConfirmResult reports a manager confirmation attempt.
type ConfirmResult struct {
	Authorized bool
	Shift      models.ShiftRequest
	Status     string
}

// ShiftDraft carries a new shift posting from the creation dialog.
type ShiftDraft struct {
	Store        string
	City         string
	Date         string // DD.MM.YYYY, the sheet's display format
	TimeStart    string
	TimeEnd      string
	Needed       int
	CreatorID    string
	CreatorPhone string
}

// Engine is the capacity-checked commit path against the Requests table.
//
// The commit algorithm is optimistic: re-read the row live, validate against
// what was just read, then write. The backing store has no compare-and-swap,
// so two *processes* can still race between check and write; within this
// process the engine mutex serializes commits, which is all the single-writer
// deployment needs. The mutex must not be mistaken for a cross-process lock.
type Engine struct {
	mu              sync.Mutex
	store           store.Tabular
	requestsTable   string
	attendanceTable string
	bus             *events.Bus
	logger          *zerolog.Logger
}

// NewEngine creates a reservation engine over the given tables.
func NewEngine(st store.Tabular, requestsTable, attendanceTable string, bus *events.Bus, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:           st,
		requestsTable:   requestsTable,
		attendanceTable: attendanceTable,
		bus:             bus,
		logger:          logger,
	}
}

// AttendanceTable returns the configured attendance table name.
func (e *Engine) AttendanceTable() string {
	return e.attendanceTable
}

// Reserve attempts to book one slot of the shift at rowIdx for the worker.
// Phone and name are required up front: the booked IDs, phones and names
// columns are parallel lists, and admitting a blank entry would leave them
// misaligned after the codec drops it. The row is always re-read directly
// from the store; the read cache would make a stale count look current and
// admit an overbooking.
func (e *Engine) Reserve(ctx context.Context, rowIdx int, workerID, workerPhone, workerName string) (ReserveResult, error) {
	digits := models.DigitsOnly(workerPhone)
	if digits == "" || strings.TrimSpace(workerName) == "" {
		return ReserveResult{}, fmt.Errorf("reserve row %d: worker identity incomplete", rowIdx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cells, err := e.store.GetRow(ctx, e.requestsTable, rowIdx)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("reserve row %d: %w", rowIdx, err)
	}
	shift := models.ParseShiftRow(rowIdx, cells)

	if shift.HasWorker(workerID) {
		e.publishReservation(OutcomeAlreadyBooked, workerID, rowIdx)
		return ReserveResult{Outcome: OutcomeAlreadyBooked, Shift: shift, Status: shift.Status}, nil
	}

	if len(shift.BookedIDs) >= shift.Needed {
		e.publishReservation(OutcomeFull, workerID, rowIdx)
		return ReserveResult{Outcome: OutcomeFull, Shift: shift, Status: shift.Status}, nil
	}

	// Commit. The four cell writes are issued in a fixed order but are not
	// atomic as a group: once the booked-IDs write lands the slot is taken,
	// and a failure on a later write leaves advisory columns stale. The
	// capacity check never trusts those columns, only booked IDs.
	shift.BookedIDs = append(shift.BookedIDs, workerID)
	if err := e.store.UpdateCell(ctx, e.requestsTable, rowIdx, models.ColBooked, models.JoinList(shift.BookedIDs)); err != nil {
		return ReserveResult{}, fmt.Errorf("reserve row %d: write booked: %w", rowIdx, err)
	}

	status := models.AwaitingStatus(len(shift.BookedIDs), shift.Needed)
	if err := e.store.UpdateCell(ctx, e.requestsTable, rowIdx, models.ColStatus, status); err != nil {
		e.logger.Warn().Err(err).Int("row", rowIdx).Msg("reservation committed, status write failed")
	}
	shift.Status = status

	shift.BookedPhones = append(shift.BookedPhones, digits)
	if err := e.store.UpdateCell(ctx, e.requestsTable, rowIdx, models.ColBookedPhones, models.JoinList(shift.BookedPhones)); err != nil {
		e.logger.Warn().Err(err).Int("row", rowIdx).Msg("reservation committed, phones write failed")
	}

	shift.BookedNames = append(shift.BookedNames, workerName)
	if err := e.store.UpdateCell(ctx, e.requestsTable, rowIdx, models.ColBookedNames, models.JoinList(shift.BookedNames)); err != nil {
		e.logger.Warn().Err(err).Int("row", rowIdx).Msg("reservation committed, names write failed")
	}

	e.logger.Info().
		Int("row", rowIdx).
		Str("worker", workerID).
		Str("status", status).
		Msg("reservation committed")
	e.publishReservation(OutcomeReserved, workerID, rowIdx)

	return ReserveResult{Outcome: OutcomeReserved, Shift: shift, Status: status}, nil
}

// Confirm applies the manager's confirmation to the shift at rowIdx. The
// actor must be the shift's creator: matching Telegram ID, or matching phone
// digits as the fallback for rows where the creator ID cell is blank.
func (e *Engine) Confirm(ctx context.Context, rowIdx int, actorID int64, actorPhone string) (ConfirmResult, error) {
	cells, err := e.store.GetRow(ctx, e.requestsTable, rowIdx)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm row %d: %w", rowIdx, err)
	}
	shift := models.ParseShiftRow(rowIdx, cells)

	if !e.authorized(&shift, actorID, actorPhone) {
		e.publishDecision("rejected", rowIdx)
		return ConfirmResult{Authorized: false, Shift: shift, Status: shift.Status}, nil
	}

	status := models.ConfirmedStatus(len(shift.BookedIDs), shift.Needed)
	if err := e.store.UpdateCell(ctx, e.requestsTable, rowIdx, models.ColStatus, status); err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm row %d: write status: %w", rowIdx, err)
	}
	shift.Status = status

	e.logger.Info().Int("row", rowIdx).Int64("manager", actorID).Msg("shift confirmed")
	e.publishDecision("confirmed", rowIdx)

	return ConfirmResult{Authorized: true, Shift: shift, Status: status}, nil
}

func (e *Engine) authorized(shift *models.ShiftRequest, actorID int64, actorPhone string) bool {
	creatorID := models.DigitsOnly(shift.CreatorID)
	if creatorID != "" && creatorID == strconv.FormatInt(actorID, 10) {
		return true
	}
	creatorDigits := models.DigitsOnly(shift.CreatorPhone)
	actorDigits := models.DigitsOnly(actorPhone)
	return creatorDigits != "" && creatorDigits == actorDigits
}

// CreateShift appends a new posting to the Requests table and returns its
// row index. Column A is left to the sheet's own formula.
func (e *Engine) CreateShift(ctx context.Context, draft ShiftDraft) (int, error) {
	rows, err := e.store.GetAllRows(ctx, e.requestsTable)
	if err != nil {
		return 0, fmt.Errorf("create shift: %w", err)
	}
	next := len(rows) + 1

	updates := []store.RangeUpdate{
		{Range: cellRange("B", next), Values: [][]string{{draft.Store}}},
		{Range: fmt.Sprintf("D%d:G%d", next, next), Values: [][]string{{draft.Date, draft.TimeStart, draft.TimeEnd, strconv.Itoa(draft.Needed)}}},
		{Range: cellRange("I", next), Values: [][]string{{models.StatusPending}}},
		{Range: fmt.Sprintf("K%d:L%d", next, next), Values: [][]string{{draft.CreatorID, draft.CreatorPhone}}},
	}
	if draft.City != "" {
		updates = append(updates, store.RangeUpdate{Range: cellRange("C", next), Values: [][]string{{draft.City}}})
	}

	if err := e.store.BatchUpdate(ctx, e.requestsTable, updates); err != nil {
		return 0, fmt.Errorf("create shift: %w", err)
	}

	e.logger.Info().Int("row", next).Str("store", draft.Store).Str("date", draft.Date).Msg("shift created")
	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.TypeShiftCreated, Fields: map[string]string{
			"row":   strconv.Itoa(next),
			"store": draft.Store,
		}})
	}
	return next, nil
}

// ConfirmArrival records the worker's arrival: an Attendance row plus the
// one-shot arrival flag on the Requests row. The flag write is best-effort;
// the attendance record is the authoritative log.
func (e *Engine) ConfirmArrival(ctx context.Context, rowIdx int, city, workerName, workerPhone string) error {
	cells, err := e.store.GetRow(ctx, e.requestsTable, rowIdx)
	if err != nil {
		return fmt.Errorf("arrival row %d: %w", rowIdx, err)
	}
	shift := models.ParseShiftRow(rowIdx, cells)
	if city == "" {
		city = shift.City
	}

	attRow := []string{city, shift.Store, "", shift.Date, workerName, models.DigitsOnly(workerPhone), models.ArrivedYes}
	if _, err := e.store.AppendRow(ctx, e.attendanceTable, attRow); err != nil {
		return fmt.Errorf("arrival row %d: append attendance: %w", rowIdx, err)
	}

	if err := e.store.UpdateCell(ctx, e.requestsTable, rowIdx, models.ColArrived, models.ArrivedYes); err != nil {
		e.logger.Warn().Err(err).Int("row", rowIdx).Msg("arrival logged, flag write failed")
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.TypeArrivalConfirmed, Fields: map[string]string{
			"row":   strconv.Itoa(rowIdx),
			"store": shift.Store,
		}})
	}
	return nil
}

func (e *Engine) publishReservation(outcome Outcome, workerID string, rowIdx int) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{Type: events.TypeReservation, Fields: map[string]string{
		"outcome": string(outcome),
		"worker":  workerID,
		"row":     strconv.Itoa(rowIdx),
	}})
}

func (e *Engine) publishDecision(decision string, rowIdx int) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.Event{Type: events.TypeShiftConfirmed, Fields: map[string]string{
		"decision": decision,
		"row":      strconv.Itoa(rowIdx),
	}})
}

func cellRange(col string, row int) string {
	return fmt.Sprintf("%s%d:%s%d", col, row, col, row)
}
