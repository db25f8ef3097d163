package model

// Keyword is a single clue for a target word
type Keyword struct {
	ID   string `json:"id" bson:"id"`
	Text string `json:"text" bson:"text"`
}

// Word is a guessable catalog entry with its ordered clue list
type Word struct {
	ID       string    `json:"id" bson:"_id,omitempty"`
	Text     string    `json:"text" bson:"text"`
	Length   int       `json:"length" bson:"length"`
	Keywords []Keyword `json:"keywords" bson:"keywords"`
}

// KeywordIDs returns the clue identifiers in catalog order
func (w *Word) KeywordIDs() []string {
	ids := make([]string, len(w.Keywords))
	for i, k := range w.Keywords {
		ids[i] = k.ID
	}
	return ids
}
