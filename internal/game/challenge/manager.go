// Package challenge holds the short-lived battle-challenge sessions that
// bridge a challenge proposal and the eventual battle. Each challenge is
// keyed by a generated id and walks a small state machine:
//
//	Proposed -> AwaitingSelection -> Resolved
//	Proposed -> Declined
//	Proposed | AwaitingSelection -> Expired (timeout)
//
// Challenges live only in memory; an abandoned process simply forgets
// them, which is acceptable for an interactive flow measured in minutes.
package challenge

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle phase of a challenge.
type State string

const (
	// StateProposed means the challenge is waiting for the opponent's answer.
	StateProposed State = "proposed"
	// StateAwaitingSelection means the opponent accepted and must now
	// choose a servant.
	StateAwaitingSelection State = "awaiting_selection"
	// StateResolved means a battle was fought for this challenge.
	StateResolved State = "resolved"
	// StateDeclined means a participant turned the challenge down.
	StateDeclined State = "declined"
	// StateExpired means the challenge timed out before resolution.
	StateExpired State = "expired"
)

var (
	ErrNotFound       = errors.New("challenge: not found")
	ErrExpired        = errors.New("challenge: expired")
	ErrNotParticipant = errors.New("challenge: member is not a participant")
	ErrNotOpponent    = errors.New("challenge: only the challenged member may do this")
	ErrWrongState     = errors.New("challenge: not valid in current state")
)

// Challenge is a snapshot of one pending battle challenge.
type Challenge struct {
	ID                  uuid.UUID
	GuildID             int64
	ChallengerID        int64
	OpponentID          int64
	ChallengerServantID int64
	// OpponentServantID is zero until the opponent picks a servant.
	OpponentServantID int64
	State             State
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

func (c *Challenge) terminal() bool {
	switch c.State {
	case StateResolved, StateDeclined, StateExpired:
		return true
	}
	return false
}

// Manager tracks all live challenges. All methods are safe for
// concurrent use.
type Manager struct {
	mu         sync.Mutex
	ttl        time.Duration
	challenges map[uuid.UUID]*Challenge

	now func() time.Time // overridable in tests
}

// NewManager creates an empty Manager whose challenges expire after ttl.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:        ttl,
		challenges: make(map[uuid.UUID]*Challenge),
		now:        time.Now,
	}
}

// Propose records a new challenge from challengerID to opponentID with
// the challenger's chosen servant.
//
// Precondition: the caller has already validated registration, ownership,
// and cooldowns; the manager only tracks lifecycle.
func (m *Manager) Propose(guildID, challengerID, opponentID, servantID int64) Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c := &Challenge{
		ID:                  uuid.New(),
		GuildID:             guildID,
		ChallengerID:        challengerID,
		OpponentID:          opponentID,
		ChallengerServantID: servantID,
		State:               StateProposed,
		CreatedAt:           now,
		ExpiresAt:           now.Add(m.ttl),
	}
	m.challenges[c.ID] = c
	return *c
}

// Get returns a snapshot of the challenge, expiring it lazily if its
// deadline has passed.
func (m *Manager) Get(id uuid.UUID) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.live(id)
	if err != nil {
		return Challenge{}, err
	}
	return *c, nil
}

// Accept moves a proposed challenge to AwaitingSelection. Only the
// challenged member may accept.
func (m *Manager) Accept(id uuid.UUID, memberID int64) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.live(id)
	if err != nil {
		return Challenge{}, err
	}
	if memberID != c.OpponentID {
		return Challenge{}, ErrNotOpponent
	}
	if c.State != StateProposed {
		return Challenge{}, ErrWrongState
	}
	c.State = StateAwaitingSelection
	return *c, nil
}

// ChooseServant records the opponent's servant pick and resolves the
// challenge, returning the final snapshot the battle workflow runs on.
func (m *Manager) ChooseServant(id uuid.UUID, memberID, servantID int64) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.live(id)
	if err != nil {
		return Challenge{}, err
	}
	if memberID != c.OpponentID {
		return Challenge{}, ErrNotOpponent
	}
	if c.State != StateAwaitingSelection {
		return Challenge{}, ErrWrongState
	}
	c.OpponentServantID = servantID
	c.State = StateResolved
	return *c, nil
}

// Decline turns the challenge down. Either participant may decline: the
// opponent to refuse, the challenger to withdraw.
func (m *Manager) Decline(id uuid.UUID, memberID int64) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.live(id)
	if err != nil {
		return Challenge{}, err
	}
	if memberID != c.ChallengerID && memberID != c.OpponentID {
		return Challenge{}, ErrNotParticipant
	}
	if c.terminal() {
		return Challenge{}, ErrWrongState
	}
	c.State = StateDeclined
	return *c, nil
}

// Sweep drops every terminal challenge and expires any live one past its
// deadline, returning the number of entries removed. Expiry is already
// enforced lazily on access; the sweep only bounds memory growth.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, c := range m.challenges {
		if !c.terminal() && now.After(c.ExpiresAt) {
			c.State = StateExpired
		}
		if c.terminal() {
			delete(m.challenges, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked challenges, terminal ones included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.challenges)
}

// live fetches a challenge, applying the lazy timeout transition.
// Callers must hold m.mu.
func (m *Manager) live(id uuid.UUID) (*Challenge, error) {
	c, ok := m.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !c.terminal() && m.now().After(c.ExpiresAt) {
		c.State = StateExpired
	}
	if c.State == StateExpired {
		return nil, ErrExpired
	}
	return c, nil
}
