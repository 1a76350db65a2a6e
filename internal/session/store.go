// ABOUTME: In-memory per-user conversation session store with lazy expiry.
// ABOUTME: Serializes access per user so webhook deliveries apply in arrival order.

package session

import (
	"errors"
	"sync"
	"time"
)

// ErrExpired is returned by Get when a session existed but sat idle past the
// expiry window. The state has already been deleted when this is returned;
// callers surface it as a distinct "session expired" outcome instead of
// falling through to flow logic.
var ErrExpired = errors.New("session expired")

// State is the live conversation state for one user. A State exists only
// while a multi-step flow is in progress; absence means the user is idle.
type State struct {
	// Flow names the active flow (e.g. "email-compose")
	Flow string

	// Step is the current position within the flow's step sequence
	Step string

	// Data holds the field values collected so far, keyed by field name
	Data map[string]string

	// LastActivity is refreshed on every mutation and drives expiry
	LastActivity time.Time
}

// Store is an in-memory map of user ID to conversation state.
// Expiry is checked lazily on read; there is no background sweep.
type Store struct {
	mu     sync.Mutex
	states map[string]*State

	// userLocks serializes message processing per user. Locks are never
	// reclaimed; the key space is bounded by the active user population.
	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex

	ttl time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewStore creates a session store with the given inactivity expiry window.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		states:    make(map[string]*State),
		userLocks: make(map[string]*sync.Mutex),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Get returns the active state for a user, or (nil, nil) if the user is idle.
// If the state has been inactive longer than the expiry window it is deleted
// and ErrExpired is returned. Get never refreshes LastActivity: the expiry
// check must run before any mutation on a re-entered session.
func (s *Store) Get(userID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, nil
	}

	if s.now().Sub(st.LastActivity) > s.ttl {
		delete(s.states, userID)
		return nil, ErrExpired
	}

	return st, nil
}

// Put stores the state for a user, refreshing LastActivity. Any previous
// state for the user is replaced; at most one state exists per user.
func (s *Store) Put(userID string, st *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.LastActivity = s.now()
	s.states[userID] = st
}

// Delete removes the state for a user. Deleting an absent user is a no-op.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
}

// Len reports the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.states)
}

// LockUser acquires the per-user processing lock and returns the unlock
// func. Messages from the same user must be applied in arrival order even
// when the host delivers webhook events concurrently; distinct users never
// contend with each other.
func (s *Store) LockUser(userID string) func() {
	s.lockMu.Lock()
	mu, ok := s.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userLocks[userID] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
