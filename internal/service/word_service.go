package service

import (
	"context"
	"fmt"

	"keyclue/internal/model"
	"keyclue/internal/repository"
)

// WordService handles word catalog lookups
type WordService struct {
	wordRepo repository.WordRepo
}

// NewWordService creates a new word service
func NewWordService(wordRepo repository.WordRepo) *WordService {
	return &WordService{wordRepo: wordRepo}
}

// Draw picks a random target word of the given length, skipping words a
// game has already used.
func (s *WordService) Draw(ctx context.Context, length int, usedIDs []string) (*model.Word, error) {
	word, err := s.wordRepo.Random(ctx, length, usedIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to draw word: %w", err)
	}
	if word == nil {
		return nil, ErrNoWordsAvailable
	}
	return word, nil
}

// Get returns a word by id
func (s *WordService) Get(ctx context.Context, id string) (*model.Word, error) {
	return s.wordRepo.GetByID(ctx, id)
}

// Import adds a catalog entry, validating the clue list
func (s *WordService) Import(ctx context.Context, word *model.Word) error {
	if word.Text == "" {
		return fmt.Errorf("word text is required")
	}
	if len(word.Keywords) == 0 {
		return fmt.Errorf("word %q has no keywords", word.Text)
	}
	return s.wordRepo.Create(ctx, word)
}
