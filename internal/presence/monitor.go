package presence

import (
	"context"
	"sort"
	"time"

	"keyclue/internal/bus"
	"keyclue/internal/logger"
	"keyclue/internal/metrics"
	"keyclue/internal/model"
)

// Querier exposes the live host connection set for a game. Implemented by
// the websocket hub; presence is never persisted, only rebuilt from live
// connections.
type Querier interface {
	HostPresence(gameCode string) []string
}

// GameSource reads persisted game state to decide cleanup eligibility
type GameSource interface {
	GetGame(ctx context.Context, code string) (*model.Game, error)
}

// Cleaner tears a game down after a genuine host disconnect. Must be safe
// to call on an already-terminated game.
type Cleaner interface {
	CleanupGameOnHostDisconnect(ctx context.Context, gameCode string) error
}

const storeTimeout = 5 * time.Second

// Monitor watches host presence for every monitored game and distinguishes
// a genuine host disconnect from a transient flicker (a page navigation
// produces a leave/join pair within moments). A leave only schedules a
// delayed re-check; the game is cleaned up only if presence is still empty
// when the re-check fires and the game is still cleanup-eligible.
//
// One Monitor serves the whole process; all state lives in its run loop.
type Monitor struct {
	bus      *bus.Bus
	presence Querier
	games    GameSource
	cleaner  Cleaner
	debounce time.Duration
	schedule func(d time.Duration, fn func())

	mailbox chan any
	done    chan struct{}

	// run-loop-owned
	monitored map[string]*bus.Subscription
}

type monitorMsg struct {
	gameCode string
	reply    chan struct{}
}

type leavesMsg struct{ gameCode string }

type recheckMsg struct{ gameCode string }

type listMsg struct{ reply chan []string }

func NewMonitor(b *bus.Bus, presence Querier, games GameSource, cleaner Cleaner, debounce time.Duration) *Monitor {
	m := &Monitor{
		bus:       b,
		presence:  presence,
		games:     games,
		cleaner:   cleaner,
		debounce:  debounce,
		schedule:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		mailbox:   make(chan any, 64),
		done:      make(chan struct{}),
		monitored: make(map[string]*bus.Subscription),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	for {
		select {
		case msg := <-m.mailbox:
			m.handle(msg)
		case <-m.done:
			for code, sub := range m.monitored {
				m.bus.Unsubscribe(sub)
				delete(m.monitored, code)
			}
			return
		}
	}
}

func (m *Monitor) post(msg any) {
	select {
	case m.mailbox <- msg:
	case <-m.done:
	}
}

// Stop shuts the monitor down and releases all subscriptions
func (m *Monitor) Stop() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// MonitorGameHost begins observing a game's host presence. Idempotent.
func (m *Monitor) MonitorGameHost(gameCode string) {
	reply := make(chan struct{}, 1)
	m.post(monitorMsg{gameCode: gameCode, reply: reply})
	select {
	case <-reply:
	case <-m.done:
	}
}

// MonitoredGames lists games currently under watch, sorted
func (m *Monitor) MonitoredGames() []string {
	reply := make(chan []string, 1)
	m.post(listMsg{reply: reply})
	select {
	case games := <-reply:
		return games
	case <-m.done:
		return nil
	}
}

func (m *Monitor) handle(msg any) {
	switch v := msg.(type) {
	case monitorMsg:
		m.handleMonitor(v.gameCode)
		v.reply <- struct{}{}
	case leavesMsg:
		m.handleLeaves(v.gameCode)
	case recheckMsg:
		m.handleRecheck(v.gameCode)
	case listMsg:
		games := make([]string, 0, len(m.monitored))
		for code := range m.monitored {
			games = append(games, code)
		}
		sort.Strings(games)
		v.reply <- games
	}
}

func (m *Monitor) handleMonitor(gameCode string) {
	if _, ok := m.monitored[gameCode]; ok {
		return
	}
	sub := m.bus.Subscribe(bus.HostTopic(gameCode))
	m.monitored[gameCode] = sub

	// Forward presence diffs with departures into the run loop. Ends when
	// the subscription channel is closed by Unsubscribe.
	go func() {
		for evt := range sub.C {
			if evt.Type != model.EventPresenceDiff {
				continue
			}
			diff, ok := evt.Payload.(model.PresenceDiffPayload)
			if !ok || len(diff.Leaves) == 0 {
				continue
			}
			m.post(leavesMsg{gameCode: gameCode})
		}
	}()

	logger.Debug("monitoring host presence", "game", gameCode)
}

// handleLeaves schedules the debounced re-check instead of acting on the
// leave directly.
func (m *Monitor) handleLeaves(gameCode string) {
	if _, ok := m.monitored[gameCode]; !ok {
		return
	}
	logger.Debug("host left, scheduling presence re-check", "game", gameCode, "debounce", m.debounce)
	m.schedule(m.debounce, func() { m.post(recheckMsg{gameCode: gameCode}) })
}

func (m *Monitor) handleRecheck(gameCode string) {
	if _, ok := m.monitored[gameCode]; !ok {
		return
	}

	if len(m.presence.HostPresence(gameCode)) > 0 {
		// The host came back within the window; the flicker is absorbed.
		metrics.PresenceFlickers.Inc()
		logger.Debug("host presence recovered", "game", gameCode)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	game, err := m.games.GetGame(ctx, gameCode)
	if err != nil {
		logger.Error("presence re-check: failed to read game", "game", gameCode, "error", err)
		m.forget(gameCode)
		return
	}
	if game == nil || !game.State.CleanupEligible() {
		logger.Debug("presence re-check: game not cleanup-eligible", "game", gameCode)
		m.forget(gameCode)
		return
	}

	logger.Info("host disconnected, cleaning up game", "game", gameCode)
	if err := m.cleaner.CleanupGameOnHostDisconnect(ctx, gameCode); err != nil {
		// Cleanup is not retried; a failed cleanup is a visible
		// operational event. The game is still removed from the
		// monitored set so it is never cleaned twice.
		logger.Error("host disconnect cleanup failed", "game", gameCode, "error", err)
	} else {
		metrics.HostCleanups.Inc()
	}
	m.forget(gameCode)
}

func (m *Monitor) forget(gameCode string) {
	sub, ok := m.monitored[gameCode]
	if !ok {
		return
	}
	delete(m.monitored, gameCode)
	m.bus.Unsubscribe(sub)
}
