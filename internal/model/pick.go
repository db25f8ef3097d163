package model

import "time"

// Pick is a player's single guess for a round. Immutable once written;
// the store rejects a second pick for the same (round, player) pair.
type Pick struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	RoundID          string    `json:"roundId" bson:"roundId"`
	PlayerID         string    `json:"playerId" bson:"playerId"`
	Guess            string    `json:"guess" bson:"guess"`
	Correct          bool      `json:"correct" bson:"correct"`
	ElapsedSec       int       `json:"elapsedSec" bson:"elapsedSec"`
	KeywordsRevealed int       `json:"keywordsRevealed" bson:"keywordsRevealed"`
	Points           int       `json:"points" bson:"points"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}

// PickPoints scores a correct guess: fewer revealed clues and a faster
// answer are worth more. Wrong guesses score zero.
func PickPoints(correct bool, keywordsTotal, keywordsRevealed, elapsedSec int) int {
	if !correct {
		return 0
	}
	unused := keywordsTotal - keywordsRevealed + 1
	if unused < 1 {
		unused = 1
	}
	points := unused*100 - elapsedSec
	if points < 1 {
		points = 1
	}
	return points
}
