package model

import "time"

type RoundState string

const (
	RoundOnHold   RoundState = "on_hold"
	RoundPlaying  RoundState = "playing"
	RoundFinished RoundState = "finished"
)

// Round is one word to guess within a game. Position is 1-based and unique
// per game; at most one round per game is ever in the playing state.
type Round struct {
	ID         string     `json:"id" bson:"_id,omitempty"`
	GameCode   string     `json:"gameCode" bson:"gameCode"`
	WordID     string     `json:"wordId" bson:"wordId"`
	KeywordIDs []string   `json:"keywordIds" bson:"keywordIds"` // ordered clue sequence
	Position   int        `json:"position" bson:"position"`
	State      RoundState `json:"state" bson:"state"`
	StartedAt  *time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	EndedAt    *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}
