package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"idle to region", StateIdle, StateRegionChosen, true},
		{"region to city", StateRegionChosen, StateCityChosen, true},
		{"city to date (book)", StateCityChosen, StateDateChosen, true},
		{"city to store (create)", StateCityChosen, StateStoreChosen, true},
		{"store to date", StateStoreChosen, StateDateChosen, true},
		{"date to time start (create)", StateDateChosen, StateTimeStartChosen, true},
		{"time start to time end", StateTimeStartChosen, StateTimeEndChosen, true},
		{"time end to capacity", StateTimeEndChosen, StateCapacityEntered, true},
		{"date to identity (book)", StateDateChosen, StateAwaitingIdentity, true},
		{"date straight to commit", StateDateChosen, StateCommitting, true},
		{"identity loops on itself", StateAwaitingIdentity, StateAwaitingIdentity, true},
		{"identity to commit", StateAwaitingIdentity, StateCommitting, true},
		{"commit to idle", StateCommitting, StateIdle, true},
		{"no-shifts date redisplays calendar", StateDateChosen, StateDateChosen, true},
		// Invalid shortcuts.
		{"idle to commit", StateIdle, StateCommitting, false},
		{"region to commit", StateRegionChosen, StateCommitting, false},
		{"capacity to time start", StateCapacityEntered, StateTimeStartChosen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := fsm.CanTransition(tt.from, tt.to)
			if allowed != tt.shouldAllow {
				t.Errorf("transition %s -> %s: expected allowed=%v, got %v",
					tt.from, tt.to, tt.shouldAllow, allowed)
			}
		})
	}
}

func TestFSMTransitionUpdatesSession(t *testing.T) {
	fsm := NewFSM()
	s := NewSession()

	assert.True(t, fsm.Transition(s, StateRegionChosen))
	assert.Equal(t, StateRegionChosen, s.GetState())

	assert.False(t, fsm.Transition(s, StateCommitting))
	assert.Equal(t, StateRegionChosen, s.GetState())
}

func TestSessionStoreKeepsIdentityAcrossReset(t *testing.T) {
	ss := NewSessionStore(30 * time.Minute)

	s := ss.GetOrCreate(42)
	s.Data.Phone = "380931112233"
	s.Data.EmpName = "Шевченко Тарас"
	s.SetState(StateDateChosen)

	fresh := ss.Reset(42)
	assert.Equal(t, StateIdle, fresh.GetState())
	assert.Equal(t, "380931112233", fresh.Data.Phone)
	assert.Equal(t, "Шевченко Тарас", fresh.Data.EmpName)
	assert.Zero(t, fresh.Data.PendingRow)
}

func TestSessionStoreExpiry(t *testing.T) {
	ss := NewSessionStore(10 * time.Millisecond)

	s := ss.GetOrCreate(42)
	s.Data.Phone = "380931112233"
	s.SetState(StateCityChosen)

	time.Sleep(20 * time.Millisecond)

	again := ss.GetOrCreate(42)
	require.NotSame(t, s, again, "expired session must be replaced")
	assert.Equal(t, StateIdle, again.GetState())
	assert.Equal(t, "380931112233", again.Data.Phone, "identity survives expiry")

	assert.Equal(t, 0, ss.Cleanup())
}

func TestSessionStoreCleanup(t *testing.T) {
	ss := NewSessionStore(10 * time.Millisecond)
	ss.GetOrCreate(1)
	ss.GetOrCreate(2)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, ss.Cleanup())
}

func TestReadyToCommit(t *testing.T) {
	c := Conversation{}
	assert.False(t, c.ReadyToCommit())
	c.Phone = "380931112233"
	assert.False(t, c.ReadyToCommit())
	c.EmpName = "Шевченко Тарас"
	assert.True(t, c.ReadyToCommit())
}
