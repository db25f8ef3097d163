package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"keyclue/internal/bus"
	"keyclue/internal/cache"
	"keyclue/internal/logger"
	"keyclue/internal/model"
	"keyclue/internal/repository"
	"keyclue/internal/session"
)

// Sessions is the session registry surface the game lifecycle drives
type Sessions interface {
	StartRoundTimer(ctx context.Context, gameCode, roundID string, intervalSec int) error
	StopRoundTimer(gameCode string) error
	PauseTimer(gameCode string) error
	State(gameCode string) (session.Snapshot, error)
	Terminate(gameCode string)
}

// GameService owns the game and round lifecycle: creating games, starting
// them, advancing rounds on all-picked or timeout, and tearing games down
// when the host disconnects or the lobby goes stale.
type GameService struct {
	gameRepo   repository.GameRepo
	roundRepo  repository.RoundRepo
	playerRepo repository.PlayerRepo
	wordSvc    *WordService
	gameCache  cache.GameCache
	lb         cache.LeaderboardCache
	sessions   Sessions
	bus        *bus.Bus

	lobbyTimeout time.Duration
	schedule     func(d time.Duration, fn func())

	mu sync.Mutex
	// advanceLocks serializes round advancement per game: an all-picked
	// finish and a timeout can race for the same round.
	advanceLocks map[string]*sync.Mutex
	// consumers holds each running game's round_timeout subscription
	consumers map[string]*bus.Subscription
}

// NewGameService creates a new game service
func NewGameService(
	gameRepo repository.GameRepo,
	roundRepo repository.RoundRepo,
	playerRepo repository.PlayerRepo,
	wordSvc *WordService,
	gameCache cache.GameCache,
	lb cache.LeaderboardCache,
	sessions Sessions,
	b *bus.Bus,
	lobbyTimeout time.Duration,
) *GameService {
	return &GameService{
		gameRepo:     gameRepo,
		roundRepo:    roundRepo,
		playerRepo:   playerRepo,
		wordSvc:      wordSvc,
		gameCache:    gameCache,
		lb:           lb,
		sessions:     sessions,
		bus:          b,
		lobbyTimeout: lobbyTimeout,
		schedule:     func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		advanceLocks: make(map[string]*sync.Mutex),
		consumers:    make(map[string]*bus.Subscription),
	}
}

// CreateGame opens a new lobby for a host
func (s *GameService) CreateGame(ctx context.Context, hostID string, settings model.GameSettings) (*model.Game, error) {
	if settings.Rounds < 1 {
		return nil, fmt.Errorf("round count must be at least 1")
	}
	if settings.RevealIntervalSec < 1 {
		return nil, fmt.Errorf("reveal interval must be at least 1 second")
	}
	if settings.GridSize < 2 {
		return nil, fmt.Errorf("grid size must be at least 2")
	}

	code, err := s.generateGameCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate game code: %w", err)
	}

	game := &model.Game{
		Code:     code,
		State:    model.GameWaitingForPlayers,
		HostID:   hostID,
		Settings: settings,
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	meta := &model.GameMeta{
		HostID:            hostID,
		State:             model.GameWaitingForPlayers,
		RevealIntervalSec: settings.RevealIntervalSec,
		Rounds:            settings.Rounds,
		CreatedAt:         game.CreatedAt,
	}
	if err := s.gameCache.SetMeta(ctx, code, meta); err != nil {
		return nil, fmt.Errorf("failed to cache game: %w", err)
	}

	s.schedule(s.lobbyTimeout, func() { s.expireLobby(code) })

	logger.Info("game created", "game", code, "host", hostID)
	return game, nil
}

// GetGame retrieves a game by code
func (s *GameService) GetGame(ctx context.Context, code string) (*model.Game, error) {
	return s.gameRepo.GetByCode(ctx, code)
}

// SessionStateReport combines the live timer counters with the game's
// round progress for diagnostics.
type SessionStateReport struct {
	session.Snapshot
	RoundsPlayed int64 `json:"roundsPlayed"`
}

// SessionState returns the live timer counters and round progress
func (s *GameService) SessionState(ctx context.Context, code string) (*SessionStateReport, error) {
	snap, err := s.sessions.State(code)
	if err != nil {
		return nil, err
	}
	rounds, err := s.roundRepo.CountByGame(ctx, code)
	if err != nil {
		return nil, err
	}
	return &SessionStateReport{Snapshot: snap, RoundsPlayed: rounds}, nil
}

// StartGame transitions a lobby to game_running and starts round 1
func (s *GameService) StartGame(ctx context.Context, code, hostID string) error {
	game, err := s.gameRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if game.HostID != hostID {
		return ErrNotHost
	}
	if game.State != model.GameWaitingForPlayers {
		return ErrGameNotStartable
	}

	players, err := s.playerRepo.CountByGame(ctx, code)
	if err != nil {
		return err
	}
	if players == 0 {
		return ErrNoPlayers
	}

	now := time.Now()
	game.State = model.GameRunning
	game.StartedAt = &now
	if err := s.gameRepo.Update(ctx, game); err != nil {
		return err
	}
	if err := s.gameCache.SetState(ctx, code, model.GameRunning); err != nil {
		return err
	}

	s.startTimeoutConsumer(code)

	s.bus.Publish(bus.GameTopic(code), bus.Event{
		Type:    model.EventGameStarted,
		Payload: game,
	})

	if err := s.startNextRound(ctx, game, 1); err != nil {
		return err
	}

	logger.Info("game started", "game", code, "players", players)
	return nil
}

// startNextRound draws a word, creates the round on hold, starts its timer,
// and only then marks it playing.
func (s *GameService) startNextRound(ctx context.Context, game *model.Game, position int) error {
	previous, err := s.roundRepo.ListByGame(ctx, game.Code)
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}
	used := make([]string, 0, len(previous))
	for _, r := range previous {
		used = append(used, r.WordID)
	}

	word, err := s.wordSvc.Draw(ctx, game.Settings.GridSize, used)
	if err != nil {
		return err
	}

	round := &model.Round{
		GameCode:   game.Code,
		WordID:     word.ID,
		KeywordIDs: word.KeywordIDs(),
		Position:   position,
		State:      model.RoundOnHold,
	}
	if err := s.roundRepo.Create(ctx, round); err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}

	if err := s.sessions.StartRoundTimer(ctx, game.Code, round.ID, game.Settings.RevealIntervalSec); err != nil {
		return fmt.Errorf("failed to start round timer: %w", err)
	}

	now := time.Now()
	round.State = model.RoundPlaying
	round.StartedAt = &now
	if err := s.roundRepo.Update(ctx, round); err != nil {
		return fmt.Errorf("failed to mark round playing: %w", err)
	}

	s.bus.Publish(bus.GameTopic(game.Code), bus.Event{
		Type: model.EventRoundStarted,
		Payload: model.RoundStartedPayload{
			RoundID:           round.ID,
			Position:          round.Position,
			KeywordsTotal:     len(round.KeywordIDs),
			RevealIntervalSec: game.Settings.RevealIntervalSec,
			GridSize:          game.Settings.GridSize,
		},
	})

	logger.Info("round started", "game", game.Code, "round", round.ID, "position", position)
	return nil
}

// AdvanceRound finishes a playing round, triggered either by every player
// having picked or by a round timeout. Safe to call twice for the same
// round: the loser of the race sees a round that is no longer playing.
func (s *GameService) AdvanceRound(ctx context.Context, code, roundID string, timedOut bool) error {
	lock := s.advanceLock(code)
	lock.Lock()
	defer lock.Unlock()

	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return err
	}
	if round == nil || round.State != model.RoundPlaying {
		logger.Debug("advance skipped, round no longer playing", "game", code, "round", roundID)
		return nil
	}

	game, err := s.gameRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if game.State != model.GameRunning {
		return ErrGameNotRunning
	}

	now := time.Now()
	round.State = model.RoundFinished
	round.EndedAt = &now
	if err := s.roundRepo.Update(ctx, round); err != nil {
		return err
	}

	answer := ""
	if word, err := s.wordSvc.Get(ctx, round.WordID); err == nil && word != nil {
		answer = word.Text
	}

	s.bus.Publish(bus.GameTopic(code), bus.Event{
		Type: model.EventRoundFinished,
		Payload: model.RoundFinishedPayload{
			RoundID:  round.ID,
			Position: round.Position,
			Answer:   answer,
			TimedOut: timedOut,
		},
	})

	if round.Position >= game.Settings.Rounds {
		return s.finishGame(ctx, game)
	}
	return s.startNextRound(ctx, game, round.Position+1)
}

// finishGame ends a completed game and publishes the final standings
func (s *GameService) finishGame(ctx context.Context, game *model.Game) error {
	if err := s.gameRepo.SetState(ctx, game.Code, model.GameOver); err != nil {
		return err
	}
	if err := s.gameCache.SetState(ctx, game.Code, model.GameOver); err != nil {
		logger.Warn("failed to cache game_over state", "game", game.Code, "error", err)
	}

	standings, err := s.Leaderboard(ctx, game.Code, 50)
	if err != nil {
		logger.Warn("failed to load final standings", "game", game.Code, "error", err)
	}

	s.bus.Publish(bus.GameTopic(game.Code), bus.Event{
		Type:    model.EventGameOver,
		Payload: standings,
	})

	s.teardown(game.Code)
	logger.Info("game over", "game", game.Code)
	return nil
}

// EndGame lets the host abort a running game early
func (s *GameService) EndGame(ctx context.Context, code, hostID string) error {
	game, err := s.gameRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if game.HostID != hostID {
		return ErrNotHost
	}
	if game.State.Terminal() {
		return nil
	}
	return s.finishGame(ctx, game)
}

// CleanupGameOnHostDisconnect tears a game down after the presence monitor
// confirms a genuine host disconnect. Calling it for an already-terminated
// game is a no-op.
func (s *GameService) CleanupGameOnHostDisconnect(ctx context.Context, code string) error {
	game, err := s.gameRepo.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil || game.State.Terminal() {
		return nil
	}

	if err := s.gameRepo.SetState(ctx, code, model.GameHostDisconnected); err != nil {
		return fmt.Errorf("failed to mark game host_disconnected: %w", err)
	}
	if err := s.gameCache.SetState(ctx, code, model.GameHostDisconnected); err != nil {
		logger.Warn("failed to cache host_disconnected state", "game", code, "error", err)
	}

	s.bus.Publish(bus.GameTopic(code), bus.Event{
		Type:    model.EventGameEnded,
		Payload: model.GameEndedPayload{Reason: model.GameHostDisconnected},
	})

	s.teardown(code)
	logger.Info("game cleaned up after host disconnect", "game", code)
	return nil
}

// Leaderboard returns the top standings with nicknames resolved
func (s *GameService) Leaderboard(ctx context.Context, code string, limit int) ([]cache.LeaderboardEntry, error) {
	entries, err := s.lb.GetTop(ctx, code, limit)
	if err != nil {
		return nil, err
	}

	players, err := s.playerRepo.ListByGame(ctx, code)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Nickname
	}
	for i := range entries {
		entries[i].Nickname = names[entries[i].PlayerID]
	}
	return entries, nil
}

// expireLobby closes games that never left the lobby
func (s *GameService) expireLobby(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	game, err := s.gameRepo.GetByCode(ctx, code)
	if err != nil {
		logger.Error("lobby expiry check failed", "game", code, "error", err)
		return
	}
	if game == nil || game.State != model.GameWaitingForPlayers {
		return
	}

	if err := s.gameRepo.SetState(ctx, code, model.GameLobbyTimeout); err != nil {
		logger.Error("failed to expire lobby", "game", code, "error", err)
		return
	}
	if err := s.gameCache.SetState(ctx, code, model.GameLobbyTimeout); err != nil {
		logger.Warn("failed to cache lobby_timeout state", "game", code, "error", err)
	}

	s.bus.Publish(bus.GameTopic(code), bus.Event{
		Type:    model.EventGameEnded,
		Payload: model.GameEndedPayload{Reason: model.GameLobbyTimeout},
	})

	s.teardown(code)
	logger.Info("lobby expired", "game", code)
}

// startTimeoutConsumer subscribes to the game's topic and force-advances on
// round_timeout events from the session process.
func (s *GameService) startTimeoutConsumer(code string) {
	s.mu.Lock()
	if _, ok := s.consumers[code]; ok {
		s.mu.Unlock()
		return
	}
	sub := s.bus.Subscribe(bus.GameTopic(code))
	s.consumers[code] = sub
	s.mu.Unlock()

	go func() {
		for evt := range sub.C {
			if evt.Type != model.EventRoundTimeout {
				continue
			}
			payload, ok := evt.Payload.(model.RoundTimeoutPayload)
			if !ok {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.AdvanceRound(ctx, code, payload.RoundID, true); err != nil {
				logger.Error("failed to advance round on timeout", "game", code, "round", payload.RoundID, "error", err)
			}
			cancel()
		}
	}()
}

// teardown terminates the session process and the timeout consumer
func (s *GameService) teardown(code string) {
	s.sessions.Terminate(code)

	s.mu.Lock()
	sub, ok := s.consumers[code]
	if ok {
		delete(s.consumers, code)
	}
	delete(s.advanceLocks, code)
	s.mu.Unlock()

	if ok {
		s.bus.Unsubscribe(sub)
	}
}

func (s *GameService) advanceLock(code string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.advanceLocks[code]
	if !ok {
		lock = &sync.Mutex{}
		s.advanceLocks[code] = lock
	}
	return lock
}

// generateGameCode creates a 6-char alphanumeric code
func (s *GameService) generateGameCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		exists, err := s.gameCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique game code")
}
