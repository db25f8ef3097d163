package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"keyclue/internal/bus"
	"keyclue/internal/logger"
	"keyclue/internal/metrics"
	"keyclue/internal/model"
)

// RoundSource is the one store read the session performs, at round start,
// to learn the round's keyword count. Satisfied by repository.RoundRepo.
type RoundSource interface {
	GetByID(ctx context.Context, roundID string) (*model.Round, error)
}

// Publisher is the event bus surface the session emits on
type Publisher interface {
	Publish(topic string, evt bus.Event)
}

// scheduleFunc defers fn by d. Replaced in tests so ticks can be driven
// manually instead of waiting on the wall clock.
type scheduleFunc func(d time.Duration, fn func())

func defaultSchedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Snapshot exposes the session's internal counters for diagnostics
type Snapshot struct {
	GameCode          string `json:"gameCode"`
	RoundID           string `json:"roundId"`
	RevealIntervalSec int    `json:"revealIntervalSec"`
	ElapsedSeconds    int    `json:"elapsedSeconds"`
	KeywordsRevealed  int    `json:"keywordsRevealed"`
	KeywordsTotal     int    `json:"keywordsTotal"`
	TimeoutScheduled  bool   `json:"timeoutScheduled"`
	Paused            bool   `json:"paused"`
}

// Session owns the authoritative timing for one active game. All state is
// confined to the run loop goroutine; callers interact only through the
// mailbox. Every scheduled tick and timeout message is tagged with the round
// id and timer epoch it was created under and compared on arrival: messages
// from a superseded round (or an earlier start of the same round) are
// discarded instead of cancelled. That keeps the timer correct across fast
// round transitions without tracking outstanding timers.
type Session struct {
	gameCode string
	rounds   RoundSource
	pub      Publisher
	schedule scheduleFunc
	log      *slog.Logger

	mailbox chan any
	done    chan struct{}

	// run-loop-owned state
	roundID          string
	epoch            uint64
	interval         int
	elapsed          int
	revealed         int
	keywordsTotal    int
	timeoutScheduled bool
	paused           bool
}

type startMsg struct {
	ctx      context.Context
	roundID  string
	interval int
	reply    chan error
}

type stopMsg struct{ reply chan struct{} }

type pauseMsg struct{ reply chan struct{} }

type stateMsg struct{ reply chan Snapshot }

// tag identifies the timer run a deferred message belongs to
type tag struct {
	roundID string
	epoch   uint64
}

type tickMsg struct{ tag tag }

type timeoutMsg struct{ tag tag }

const tickPeriod = time.Second

func newSession(gameCode string, rounds RoundSource, pub Publisher, schedule scheduleFunc) *Session {
	if schedule == nil {
		schedule = defaultSchedule
	}
	s := &Session{
		gameCode: gameCode,
		rounds:   rounds,
		pub:      pub,
		schedule: schedule,
		log:      logger.With("game", gameCode),
		mailbox:  make(chan any, 64),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Session) run() {
	for {
		select {
		case msg := <-s.mailbox:
			s.handle(msg)
		case <-s.done:
			return
		}
	}
}

// post delivers a message and reports whether the session accepted it. A
// terminated session drops messages; callers waiting on a reply must treat a
// false return as not-running rather than block.
func (s *Session) post(msg any) bool {
	select {
	case s.mailbox <- msg:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) terminate() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case startMsg:
		m.reply <- s.handleStart(m)
	case stopMsg:
		s.handleStop()
		m.reply <- struct{}{}
	case pauseMsg:
		s.paused = true
		m.reply <- struct{}{}
	case stateMsg:
		m.reply <- s.snapshot()
	case tickMsg:
		s.handleTick(m)
	case timeoutMsg:
		s.handleTimeout(m)
	}
}

// stale reports whether a deferred message belongs to a superseded timer run
func (s *Session) stale(t tag) bool {
	return t.roundID != s.roundID || t.epoch != s.epoch
}

// handleStart begins (or resumes) the round timer. Starting the round that
// is currently paused resumes its counters; anything else is a full reset.
// Bumping the epoch is what invalidates timers still in flight from the
// previous run.
func (s *Session) handleStart(m startMsg) error {
	if m.roundID == s.roundID && s.roundID != "" && s.paused {
		s.epoch++
		s.paused = false
		s.scheduleTick()
		s.log.Debug("round timer resumed", "round", m.roundID, "elapsed", s.elapsed)
		return nil
	}

	if m.interval <= 0 {
		return fmt.Errorf("reveal interval must be positive, got %d", m.interval)
	}

	round, err := s.rounds.GetByID(m.ctx, m.roundID)
	if err != nil {
		return fmt.Errorf("get round %s: %w", m.roundID, err)
	}
	total := len(round.KeywordIDs)
	if total == 0 {
		return fmt.Errorf("round %s has no keywords", m.roundID)
	}

	s.roundID = m.roundID
	s.epoch++
	s.interval = m.interval
	s.elapsed = 0
	s.revealed = 1
	s.keywordsTotal = total
	s.timeoutScheduled = false
	s.paused = false

	s.publishReveal()
	s.scheduleTick()
	s.log.Info("round timer started", "round", m.roundID, "keywords", total, "interval", m.interval)
	return nil
}

func (s *Session) handleStop() {
	s.roundID = ""
	s.epoch++
	s.interval = 0
	s.elapsed = 0
	s.revealed = 0
	s.keywordsTotal = 0
	s.timeoutScheduled = false
	s.paused = false
}

func (s *Session) handleTick(m tickMsg) {
	if s.stale(m.tag) {
		s.log.Debug("discarding stale tick", "tickRound", m.tag.roundID, "currentRound", s.roundID)
		return
	}
	if s.paused {
		s.log.Debug("discarding tick while paused", "round", m.tag.roundID)
		return
	}

	s.elapsed++
	metrics.SessionTicks.Inc()

	if s.elapsed%s.interval == 0 && s.revealed < s.keywordsTotal {
		s.revealed++
		metrics.KeywordReveals.Inc()
	}

	// Broadcast progress every tick, not just on reveals, so clients can
	// render countdowns between clues.
	s.publishReveal()

	if s.revealed >= s.keywordsTotal && s.elapsed >= s.keywordsTotal*s.interval && !s.timeoutScheduled {
		s.timeoutScheduled = true
		t := s.currentTag()
		s.schedule(0, func() { s.post(timeoutMsg{tag: t}) })
	}

	s.scheduleTick()
}

func (s *Session) handleTimeout(m timeoutMsg) {
	if s.stale(m.tag) {
		s.log.Debug("discarding stale timeout", "timeoutRound", m.tag.roundID, "currentRound", s.roundID)
		return
	}
	metrics.RoundTimeouts.Inc()
	s.log.Info("round timed out", "round", m.tag.roundID, "elapsed", s.elapsed)
	s.pub.Publish(bus.GameTopic(s.gameCode), bus.Event{
		Type:    model.EventRoundTimeout,
		Payload: model.RoundTimeoutPayload{RoundID: m.tag.roundID},
	})
}

func (s *Session) currentTag() tag {
	return tag{roundID: s.roundID, epoch: s.epoch}
}

func (s *Session) scheduleTick() {
	t := s.currentTag()
	s.schedule(tickPeriod, func() { s.post(tickMsg{tag: t}) })
}

func (s *Session) publishReveal() {
	s.pub.Publish(bus.GameTopic(s.gameCode), bus.Event{
		Type: model.EventKeywordRevealed,
		Payload: model.KeywordRevealedPayload{
			RevealCount:    s.revealed,
			ElapsedSeconds: s.elapsed,
		},
	})
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		GameCode:          s.gameCode,
		RoundID:           s.roundID,
		RevealIntervalSec: s.interval,
		ElapsedSeconds:    s.elapsed,
		KeywordsRevealed:  s.revealed,
		KeywordsTotal:     s.keywordsTotal,
		TimeoutScheduled:  s.timeoutScheduled,
		Paused:            s.paused,
	}
}
