package words

import (
	"context"

	"github.com/robalobadob/notwordle/internal/store"
)

// Validator accepts guesses that are in the seeded dictionary.
type Validator struct {
	store store.Store
}

func NewValidator(st store.Store) *Validator {
	return &Validator{store: st}
}

// IsAcceptedGuess reports whether word, normalized, is a dictionary word.
// Both target and guess-only words are accepted.
func (v *Validator) IsAcceptedGuess(ctx context.Context, word string) (bool, error) {
	w := Normalize(word)
	if w == "" {
		return false, nil
	}
	return v.store.IsWord(ctx, w)
}
