// Package booking holds the conversation state machine and the reservation
// engine for shift postings.
package booking

import (
	"sync"
	"time"
)

// State is the current step of a user's booking or shift-creation dialog.
type State string

const (
	StateIdle             State = "idle"
	StateRegionChosen     State = "region_chosen"
	StateCityChosen       State = "city_chosen"
	StateStoreChosen      State = "store_chosen" // create path only
	StateDateChosen       State = "date_chosen"
	StateTimeStartChosen  State = "time_start_chosen"
	StateTimeEndChosen    State = "time_end_chosen"
	StateCapacityEntered  State = "capacity_entered" // create path only
	StateAwaitingIdentity State = "awaiting_identity"
	StateCommitting       State = "committing"
)

// Mode distinguishes the two dialog flows sharing the region/city steps.
type Mode string

const (
	ModeBook   Mode = "book"
	ModeCreate Mode = "create"
)

// AwaitKind marks which out-of-band input the dialog is waiting for.
type AwaitKind string

const (
	AwaitNone        AwaitKind = ""
	AwaitName        AwaitKind = "emp_name"
	AwaitNeeded      AwaitKind = "needed"
	AwaitCreatePhone AwaitKind = "create_phone"
	AwaitWorkedPhone AwaitKind = "worked_phone"
)

// Conversation accumulates the selections of one dialog. It lives only in
// memory; a restart drops it and the user starts over.
type Conversation struct {
	Mode      Mode
	Region    string
	City      string
	Store     string
	Date      string // YYYY-MM-DD
	TimeStart string // HH:MM
	TimeEnd   string // HH:MM
	Needed    int

	// Identity survives dialog resets so returning users are not asked twice.
	Phone   string
	EmpName string

	Await      AwaitKind
	PendingRow int // Requests row awaiting identity before commit
}

// Session is one user's dialog session.
type Session struct {
	mu        sync.Mutex
	state     State
	Data      Conversation
	StartedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates an idle session.
func NewSession() *Session {
	now := time.Now()
	return &Session{state: StateIdle, StartedAt: now, UpdatedAt: now}
}

// SetState updates the session state unconditionally; prefer FSM.Transition.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.UpdatedAt = time.Now()
}

// GetState returns the current state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsExpired checks if the session went stale.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

// SessionStore keys sessions by Telegram user ID.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	timeout  time.Duration
}

// NewSessionStore creates a session store; timeout bounds session lifetime.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
	}
}

// GetOrCreate returns the user's live session, creating one when absent or
// expired. An expired session keeps its identity fields.
func (ss *SessionStore) GetOrCreate(userID int64) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, ok := ss.sessions[userID]
	if ok && !session.IsExpired(ss.timeout) {
		return session
	}

	fresh := NewSession()
	if ok {
		fresh.Data.Phone = session.Data.Phone
		fresh.Data.EmpName = session.Data.EmpName
	}
	ss.sessions[userID] = fresh
	return fresh
}

// Reset returns the user's session to idle, keeping identity fields.
func (ss *SessionStore) Reset(userID int64) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	fresh := NewSession()
	if old, ok := ss.sessions[userID]; ok {
		fresh.Data.Phone = old.Data.Phone
		fresh.Data.EmpName = old.Data.EmpName
	}
	ss.sessions[userID] = fresh
	return fresh
}

// Delete removes a session entirely.
func (ss *SessionStore) Delete(userID int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, userID)
}

// Cleanup removes expired sessions and reports how many.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for userID, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, userID)
			removed++
		}
	}
	return removed
}

// FSM guards dialog state transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM builds the transition table. Every state may fall back to idle (the
// user re-opens the menu at any point); identity interrupts loop on
// awaiting-identity until both phone and name are resolved.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateIdle:             {StateRegionChosen, StateAwaitingIdentity},
			StateRegionChosen:     {StateCityChosen, StateRegionChosen, StateIdle},
			StateCityChosen:       {StateDateChosen, StateStoreChosen, StateCityChosen, StateRegionChosen, StateIdle},
			StateStoreChosen:      {StateDateChosen, StateIdle},
			StateDateChosen:       {StateTimeStartChosen, StateAwaitingIdentity, StateCommitting, StateCityChosen, StateDateChosen, StateIdle},
			StateTimeStartChosen:  {StateTimeEndChosen, StateIdle},
			StateTimeEndChosen:    {StateCapacityEntered, StateIdle},
			StateCapacityEntered:  {StateIdle},
			StateAwaitingIdentity: {StateAwaitingIdentity, StateCommitting, StateIdle},
			StateCommitting:       {StateIdle},
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the session to the target state when allowed.
func (f *FSM) Transition(session *Session, to State) bool {
	if f.CanTransition(session.GetState(), to) {
		session.SetState(to)
		return true
	}
	return false
}

// ReadyToCommit reports the identity-gating invariant: a reservation may only
// be handed to the engine once both phone and name are resolved.
func (c *Conversation) ReadyToCommit() bool {
	return c.Phone != "" && c.EmpName != ""
}
