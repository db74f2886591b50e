// Package lockout tracks failed authentication attempts per account and
// applies a progressive lockout once the threshold is crossed.
package lockout

import (
	"time"
)

// State is the persisted shape, one row per account identifier.
// LockedUntil non-nil implies FailedAttempts >= the configured maximum.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Status is the answer given to authentication paths.
type Status struct {
	IsLocked          bool
	RemainingAttempts int
	LockedUntil       *time.Time
}

// Store abstracts persistence for lockout state. GetState returns the zero
// State for unknown identifiers.
type Store interface {
	GetState(identifier string) (State, error)
	SaveState(identifier string, state State) error
}

// Config controls the lockout policy.
type Config struct {
	MaxAttempts       int
	BaseDuration      time.Duration
	IncrementDuration time.Duration
	Clock             func() time.Time
}

const (
	defaultMaxAttempts  = 5
	defaultBaseDuration = 30 * time.Minute
	defaultIncrement    = 15 * time.Minute
)

// Tracker implements the per-account state machine: normal while attempts
// stay under the maximum, locked once they reach it. Failures recorded
// while locked keep extending the lockout; there is no upper bound, which
// is the intended policy for accounts under sustained attack.
type Tracker struct {
	store  Store
	config Config
}

// NewTracker builds a tracker over the given store.
func NewTracker(store Store, config Config) *Tracker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.BaseDuration <= 0 {
		config.BaseDuration = defaultBaseDuration
	}
	if config.IncrementDuration <= 0 {
		config.IncrementDuration = defaultIncrement
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Tracker{store: store, config: config}
}

// CheckStatus answers whether the account may attempt a login. Observing an
// elapsed lockout resets the state before answering.
func (t *Tracker) CheckStatus(identifier string) (Status, error) {
	state, err := t.store.GetState(identifier)
	if err != nil {
		return Status{}, err
	}

	state, err = t.lazyReset(identifier, state)
	if err != nil {
		return Status{}, err
	}

	return t.statusOf(state), nil
}

// RecordFailure counts one failed attempt and locks or extends the lockout
// when the threshold is reached. Callers invoke this for non-existent
// accounts too, so response shape never reveals whether an account exists.
func (t *Tracker) RecordFailure(identifier string) (Status, error) {
	state, err := t.store.GetState(identifier)
	if err != nil {
		return Status{}, err
	}

	state, err = t.lazyReset(identifier, state)
	if err != nil {
		return Status{}, err
	}

	state.FailedAttempts++
	if state.FailedAttempts >= t.config.MaxAttempts {
		until := t.config.Clock().Add(t.lockDuration(state.FailedAttempts))
		state.LockedUntil = &until
	}

	if err := t.store.SaveState(identifier, state); err != nil {
		return Status{}, err
	}

	return t.statusOf(state), nil
}

// RecordSuccess clears the account's failure history.
func (t *Tracker) RecordSuccess(identifier string) error {
	return t.store.SaveState(identifier, State{})
}

// lockDuration escalates beyond the base for every attempt past the
// threshold.
func (t *Tracker) lockDuration(attempts int) time.Duration {
	extra := attempts - t.config.MaxAttempts
	if extra < 0 {
		extra = 0
	}
	return t.config.BaseDuration + time.Duration(extra)*t.config.IncrementDuration
}

func (t *Tracker) lazyReset(identifier string, state State) (State, error) {
	if state.LockedUntil == nil || t.config.Clock().Before(*state.LockedUntil) {
		return state, nil
	}

	reset := State{}
	if err := t.store.SaveState(identifier, reset); err != nil {
		return State{}, err
	}
	return reset, nil
}

func (t *Tracker) statusOf(state State) Status {
	remaining := t.config.MaxAttempts - state.FailedAttempts
	if remaining < 0 {
		remaining = 0
	}

	locked := state.LockedUntil != nil && t.config.Clock().Before(*state.LockedUntil)
	return Status{
		IsLocked:          locked,
		RemainingAttempts: remaining,
		LockedUntil:       state.LockedUntil,
	}
}
