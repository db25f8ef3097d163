package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrGameNotFound       = errors.New("game not found")
	ErrNotHost            = errors.New("not the game host")
	ErrGameNotJoinable    = errors.New("game is not accepting players")
	ErrGameNotRunning     = errors.New("game is not running")
	ErrGameNotStartable   = errors.New("game cannot be started")
	ErrNoPlayers          = errors.New("game has no players")
	ErrNoActiveRound      = errors.New("no round is currently playing")
	ErrNoWordsAvailable   = errors.New("no words available for grid size")
)
