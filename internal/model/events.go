package model

// Event types published on a game's topic
const (
	EventGameStarted     = "game_started"
	EventRoundStarted    = "round_started"
	EventKeywordRevealed = "keyword_revealed"
	EventRoundTimeout    = "round_timeout"
	EventRoundFinished   = "round_finished"
	EventGameOver        = "game_over"
	EventGameEnded       = "game_ended"
)

// Event types published on a game's host topic
const (
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventPickSubmitted = "pick_submitted"
	EventPresenceDiff  = "presence_diff"
)

// KeywordRevealedPayload is broadcast every second while a round timer runs
// unpaused; it drives client progress bars even between reveals.
type KeywordRevealedPayload struct {
	RevealCount    int `json:"revealCount"`
	ElapsedSeconds int `json:"elapsedSeconds"`
}

// RoundTimeoutPayload fires at most once per round, when the full reveal
// timeline has elapsed without an early finish.
type RoundTimeoutPayload struct {
	RoundID string `json:"roundId"`
}

// RoundStartedPayload announces a new playing round
type RoundStartedPayload struct {
	RoundID           string `json:"roundId"`
	Position          int    `json:"position"`
	KeywordsTotal     int    `json:"keywordsTotal"`
	RevealIntervalSec int    `json:"revealIntervalSec"`
	GridSize          int    `json:"gridSize"`
}

// RoundFinishedPayload reveals the answer once a round ends
type RoundFinishedPayload struct {
	RoundID  string `json:"roundId"`
	Position int    `json:"position"`
	Answer   string `json:"answer"`
	TimedOut bool   `json:"timedOut"`
}

// GameEndedPayload carries the reason a game was torn down early
type GameEndedPayload struct {
	Reason GameState `json:"reason"`
}

// PickSubmittedPayload notifies the host of a player's guess
type PickSubmittedPayload struct {
	PlayerID         string `json:"playerId"`
	Correct          bool   `json:"correct"`
	ElapsedSec       int    `json:"elapsedSec"`
	KeywordsRevealed int    `json:"keywordsRevealed"`
}

// PresenceDiffPayload lists host connection identities that joined or left
type PresenceDiffPayload struct {
	Joins  []string `json:"joins"`
	Leaves []string `json:"leaves"`
}
