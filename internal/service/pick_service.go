package service

import (
	"context"
	"fmt"
	"strings"

	"keyclue/internal/bus"
	"keyclue/internal/cache"
	"keyclue/internal/logger"
	"keyclue/internal/model"
	"keyclue/internal/repository"
)

// SubmitPickResponse is returned to the guessing player. Rank is the
// player's 1-based leaderboard position after a correct guess, 0 otherwise.
type SubmitPickResponse struct {
	PickID           string `json:"pickId"`
	Correct          bool   `json:"correct"`
	Points           int    `json:"points"`
	Rank             int64  `json:"rank,omitempty"`
	ElapsedSec       int    `json:"elapsedSec"`
	KeywordsRevealed int    `json:"keywordsRevealed"`
}

// PickService handles guess submission and the all-picked round finish
type PickService struct {
	pickRepo   repository.PickRepo
	roundRepo  repository.RoundRepo
	playerRepo repository.PlayerRepo
	wordSvc    *WordService
	gameCache  cache.GameCache
	lb         cache.LeaderboardCache
	sessions   Sessions
	gameSvc    *GameService
	bus        *bus.Bus
}

// NewPickService creates a new pick service
func NewPickService(
	pickRepo repository.PickRepo,
	roundRepo repository.RoundRepo,
	playerRepo repository.PlayerRepo,
	wordSvc *WordService,
	gameCache cache.GameCache,
	lb cache.LeaderboardCache,
	sessions Sessions,
	gameSvc *GameService,
	b *bus.Bus,
) *PickService {
	return &PickService{
		pickRepo:   pickRepo,
		roundRepo:  roundRepo,
		playerRepo: playerRepo,
		wordSvc:    wordSvc,
		gameCache:  gameCache,
		lb:         lb,
		sessions:   sessions,
		gameSvc:    gameSvc,
		bus:        b,
	}
}

// SubmitPick records a player's one guess for the current round.
// Correctness is decided here, at write time, against the round's target
// word; the elapsed/reveal context comes from the live session counters.
func (s *PickService) SubmitPick(ctx context.Context, gameCode, playerID, guess string) (*SubmitPickResponse, error) {
	guess = strings.TrimSpace(guess)
	if guess == "" {
		return nil, fmt.Errorf("guess is required")
	}

	meta, err := s.gameCache.GetMeta(ctx, gameCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get game meta: %w", err)
	}
	if meta == nil {
		return nil, ErrGameNotFound
	}
	if meta.State != model.GameRunning {
		return nil, ErrGameNotRunning
	}

	round, err := s.roundRepo.GetPlaying(ctx, gameCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get playing round: %w", err)
	}
	if round == nil {
		return nil, ErrNoActiveRound
	}

	snap, err := s.sessions.State(gameCode)
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	word, err := s.wordSvc.Get(ctx, round.WordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target word: %w", err)
	}
	if word == nil {
		return nil, fmt.Errorf("target word %s missing", round.WordID)
	}

	correct := strings.EqualFold(guess, word.Text)
	points := model.PickPoints(correct, snap.KeywordsTotal, snap.KeywordsRevealed, snap.ElapsedSeconds)

	pick := &model.Pick{
		RoundID:          round.ID,
		PlayerID:         playerID,
		Guess:            guess,
		Correct:          correct,
		ElapsedSec:       snap.ElapsedSeconds,
		KeywordsRevealed: snap.KeywordsRevealed,
		Points:           points,
	}
	if err := s.pickRepo.Create(ctx, pick); err != nil {
		// ErrDuplicatePick surfaces as-is; a second guess is rejected,
		// never merged.
		return nil, err
	}

	var rank int64
	if correct {
		if err := s.playerRepo.AddScore(ctx, playerID, points); err != nil {
			logger.Warn("failed to persist score", "game", gameCode, "player", playerID, "error", err)
		}
		if err := s.lb.AddScore(ctx, gameCode, playerID, points); err != nil {
			logger.Warn("failed to update leaderboard", "game", gameCode, "player", playerID, "error", err)
		}
		if r, err := s.lb.GetRank(ctx, gameCode, playerID); err != nil {
			logger.Warn("failed to read leaderboard rank", "game", gameCode, "player", playerID, "error", err)
		} else if r > 0 {
			rank = r
		}
	}

	s.bus.Publish(bus.HostTopic(gameCode), bus.Event{
		Type: model.EventPickSubmitted,
		Payload: model.PickSubmittedPayload{
			PlayerID:         playerID,
			Correct:          correct,
			ElapsedSec:       snap.ElapsedSeconds,
			KeywordsRevealed: snap.KeywordsRevealed,
		},
	})

	allPicked, err := s.allPlayersPicked(ctx, gameCode, round.ID)
	if err != nil {
		logger.Warn("failed to check all-picked", "game", gameCode, "round", round.ID, "error", err)
	} else if allPicked {
		// Freeze visible progress first so late reveal ticks don't leak,
		// then let the lifecycle finish the round.
		if err := s.sessions.PauseTimer(gameCode); err != nil {
			logger.Warn("failed to pause timer", "game", gameCode, "error", err)
		}
		if err := s.gameSvc.AdvanceRound(ctx, gameCode, round.ID, false); err != nil {
			return nil, fmt.Errorf("failed to advance round: %w", err)
		}
	}

	return &SubmitPickResponse{
		PickID:           pick.ID,
		Correct:          correct,
		Points:           points,
		Rank:             rank,
		ElapsedSec:       snap.ElapsedSeconds,
		KeywordsRevealed: snap.KeywordsRevealed,
	}, nil
}

// allPlayersPicked reports whether every player of the game has a pick for
// the round.
func (s *PickService) allPlayersPicked(ctx context.Context, gameCode, roundID string) (bool, error) {
	players, err := s.playerRepo.CountByGame(ctx, gameCode)
	if err != nil {
		return false, err
	}
	picks, err := s.pickRepo.CountByRound(ctx, roundID)
	if err != nil {
		return false, err
	}
	return players > 0 && picks >= players, nil
}

// ListPicks returns the picks recorded for a round
func (s *PickService) ListPicks(ctx context.Context, roundID string) ([]*model.Pick, error) {
	return s.pickRepo.ListByRound(ctx, roundID)
}
