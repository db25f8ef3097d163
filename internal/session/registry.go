package session

import (
	"context"
	"errors"
	"sync"

	"keyclue/internal/metrics"
)

// ErrNotRunning is returned for operations against a game that has no
// active session process.
var ErrNotRunning = errors.New("no session running for game")

// Registry maps game codes to their session processes. Sessions are created
// on first StartRoundTimer and reclaimed on Terminate; there is no pooling
// or reuse across games.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	rounds   RoundSource
	pub      Publisher
	schedule scheduleFunc
}

func NewRegistry(rounds RoundSource, pub Publisher) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rounds:   rounds,
		pub:      pub,
		schedule: defaultSchedule,
	}
}

// obtain returns the game's session, creating it on demand
func (r *Registry) obtain(gameCode string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[gameCode]
	if !ok {
		s = newSession(gameCode, r.rounds, r.pub, r.schedule)
		r.sessions[gameCode] = s
		metrics.ActiveSessions.Inc()
	}
	return s
}

// lookup returns the game's session without creating one
func (r *Registry) lookup(gameCode string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[gameCode]
}

// StartRoundTimer starts (or resumes) the timer for a round, creating the
// game's session process if needed. The round's keyword count is read from
// the store before the first tick is scheduled.
func (r *Registry) StartRoundTimer(ctx context.Context, gameCode, roundID string, intervalSec int) error {
	s := r.obtain(gameCode)
	reply := make(chan error, 1)
	if !s.post(startMsg{ctx: ctx, roundID: roundID, interval: intervalSec, reply: reply}) {
		return ErrNotRunning
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopRoundTimer abandons the current round and resets the session to idle
func (r *Registry) StopRoundTimer(gameCode string) error {
	s := r.lookup(gameCode)
	if s == nil {
		return ErrNotRunning
	}
	reply := make(chan struct{}, 1)
	if !s.post(stopMsg{reply: reply}) {
		return ErrNotRunning
	}
	select {
	case <-reply:
		return nil
	case <-s.done:
		// terminated after the message was accepted but before it ran
		return ErrNotRunning
	}
}

// PauseTimer freezes visible progress without ending the round. Elapsed and
// reveal counters are preserved; pausing twice is a no-op.
func (r *Registry) PauseTimer(gameCode string) error {
	s := r.lookup(gameCode)
	if s == nil {
		return ErrNotRunning
	}
	reply := make(chan struct{}, 1)
	if !s.post(pauseMsg{reply: reply}) {
		return ErrNotRunning
	}
	select {
	case <-reply:
		return nil
	case <-s.done:
		return ErrNotRunning
	}
}

// State returns a snapshot of the session's counters for diagnostics
func (r *Registry) State(gameCode string) (Snapshot, error) {
	s := r.lookup(gameCode)
	if s == nil {
		return Snapshot{}, ErrNotRunning
	}
	reply := make(chan Snapshot, 1)
	if !s.post(stateMsg{reply: reply}) {
		return Snapshot{}, ErrNotRunning
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, ErrNotRunning
	}
}

// Terminate stops a game's session process and removes it from the
// registry. Safe to call for games with no session.
func (r *Registry) Terminate(gameCode string) {
	r.mu.Lock()
	s, ok := r.sessions[gameCode]
	if ok {
		delete(r.sessions, gameCode)
		metrics.ActiveSessions.Dec()
	}
	r.mu.Unlock()

	if ok {
		s.terminate()
	}
}

// Active reports how many session processes currently exist
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
