package service

import (
	"context"
	"fmt"

	"keyclue/internal/bus"
	"keyclue/internal/cache"
	"keyclue/internal/model"
	"keyclue/internal/repository"
)

// PlayerService handles players joining and leaving games
type PlayerService struct {
	playerRepo repository.PlayerRepo
	gameCache  cache.GameCache
	authSvc    *AuthService
	bus        *bus.Bus
}

// NewPlayerService creates a new player service
func NewPlayerService(
	playerRepo repository.PlayerRepo,
	gameCache cache.GameCache,
	authSvc *AuthService,
	b *bus.Bus,
) *PlayerService {
	return &PlayerService{
		playerRepo: playerRepo,
		gameCache:  gameCache,
		authSvc:    authSvc,
		bus:        b,
	}
}

// Join adds a player to a game lobby and issues a game-scoped token
func (s *PlayerService) Join(ctx context.Context, gameCode, nickname string) (*model.PlayerJoinResponse, error) {
	if nickname == "" {
		return nil, fmt.Errorf("nickname is required")
	}

	meta, err := s.gameCache.GetMeta(ctx, gameCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get game meta: %w", err)
	}
	if meta == nil {
		return nil, ErrGameNotFound
	}
	if meta.State != model.GameWaitingForPlayers {
		return nil, ErrGameNotJoinable
	}

	player := &model.Player{
		GameCode: gameCode,
		Nickname: nickname,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	token, err := s.authSvc.GeneratePlayerToken(gameCode, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate player token: %w", err)
	}

	s.bus.Publish(bus.HostTopic(gameCode), bus.Event{
		Type:    model.EventPlayerJoined,
		Payload: player,
	})

	return &model.PlayerJoinResponse{
		PlayerID: player.ID,
		Token:    token,
		GameMeta: meta,
	}, nil
}

// List returns all players of a game
func (s *PlayerService) List(ctx context.Context, gameCode string) ([]*model.Player, error) {
	return s.playerRepo.ListByGame(ctx, gameCode)
}
