// internal/game/engine.go
//
// Game state machine for notwordle.
// Responsibilities:
//   - Create games against a random target-eligible word.
//   - Validate, score and record guesses (Active → Won | Exhausted).
//   - Serialize mutations per game and report persistence failures.
//
// Notes:
//   - Dictionary checks go through Validator and run before the store
//     transaction is opened, so the SQLite store never needs a second
//     connection while a game row is locked.
//   - Completion is re-checked on the locked snapshot inside UpdateGame.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/notwordle/internal/store"
)

var (
	// ErrNotFound aliases store.ErrNotFound so callers can match either.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidInput is returned for ids that can never resolve.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence wraps store failures while creating a game.
	ErrPersistence = errors.New("persistence failure")
	// ErrGameOperationFailed wraps store failures while submitting a guess.
	ErrGameOperationFailed = errors.New("game operation failed")
)

// Validator decides whether a guess is a dictionary word.
type Validator interface {
	IsAcceptedGuess(ctx context.Context, word string) (bool, error)
}

// Service runs games on top of a store.Store.
type Service struct {
	store     store.Store
	validator Validator
	locks     *keyedMutex
}

// NewService wires the state machine to its collaborators.
func NewService(st store.Store, v Validator) *Service {
	return &Service{store: st, validator: v, locks: newKeyedMutex()}
}

// CreateGame starts a game for userID with a random target word.
func (s *Service) CreateGame(ctx context.Context, userID int64) (*store.Game, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidInput, userID)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: load user: %v", ErrPersistence, err)
	}

	word, err := s.store.PickRandomTargetWord(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: pick target word: %v", ErrPersistence, err)
	}

	g, err := s.store.CreateGame(ctx, userID, word)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: create game: %v", ErrPersistence, err)
	}
	log.Debug().Int64("gameId", g.ID).Int64("userId", userID).Msg("game created")
	return g, nil
}

// SubmitGuess applies one guess to gameID.
//
// Rejected and already-completed submissions are reported through the
// returned outcome, not as errors, and leave the game untouched.
func (s *Service) SubmitGuess(ctx context.Context, gameID int64, guess string) (*GuessOutcome, error) {
	if gameID <= 0 {
		return nil, fmt.Errorf("%w: game id %d", ErrInvalidInput, gameID)
	}
	unlock := s.locks.Lock(gameID)
	defer unlock()

	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, s.guessErr(gameID, err)
	}
	if g.Completed {
		return alreadyCompleted(g), nil
	}

	guess = strings.ToLower(strings.TrimSpace(guess))
	if !IsWordShaped(guess) {
		return rejected(g), nil
	}
	hint := ComputeHint(guess, g.Word)

	if hint.Outcome != OutcomeWin {
		ok, err := s.validator.IsAcceptedGuess(ctx, guess)
		if err != nil {
			return nil, s.guessErr(gameID, err)
		}
		if !ok || hint.Outcome == OutcomeInvalid {
			return rejected(g), nil
		}
	}

	var out *GuessOutcome
	err = s.store.UpdateGame(ctx, gameID, func(cur *store.Game, tx store.GameTx) error {
		if cur.Completed {
			out = alreadyCompleted(cur)
			return nil
		}

		moves := cur.MovesCompleted + 1
		won := hint.Outcome == OutcomeWin
		completed := won || moves >= MaxMoves

		rec, err := tx.AppendGuess(ctx, moves, guess, hint.Text)
		if err != nil {
			return err
		}
		if err := tx.UpdateGameProgress(ctx, moves, completed); err != nil {
			return err
		}

		cur.MovesCompleted, cur.Completed = moves, completed
		out = &GuessOutcome{
			Status:         StatusAccepted,
			Message:        hint.Text,
			MovesRemaining: MaxMoves - moves,
			Hint:           hint,
			Game:           *cur,
			Guess:          rec,
		}
		switch {
		case won:
			out.Status = StatusWon
		case completed:
			out.Status = StatusExhausted
		}
		return nil
	})
	if err != nil {
		return nil, s.guessErr(gameID, err)
	}

	log.Debug().
		Int64("gameId", gameID).
		Str("status", string(out.Status)).
		Int("moves", out.Game.MovesCompleted).
		Msg("guess submitted")
	return out, nil
}

// GetGame returns the game and its guesses ordered by guess number.
func (s *Service) GetGame(ctx context.Context, gameID int64) (*GameView, error) {
	if gameID <= 0 {
		return nil, fmt.Errorf("%w: game id %d", ErrInvalidInput, gameID)
	}
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", gameID, err)
	}
	guesses, err := s.store.ListGuessesForGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("list guesses for game %d: %w", gameID, err)
	}
	if guesses == nil {
		guesses = []store.Guess{}
	}
	return &GameView{Game: *g, Guesses: guesses}, nil
}

// ListActiveGames returns the user's games that are still in progress.
func (s *Service) ListActiveGames(ctx context.Context, userID int64) ([]store.Game, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidInput, userID)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	games, err := s.store.ListActiveGamesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list games for user %d: %w", userID, err)
	}
	if games == nil {
		games = []store.Game{}
	}
	return games, nil
}

// guessErr keeps not-found distinct and folds everything else into
// ErrGameOperationFailed.
func (s *Service) guessErr(gameID int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}
	log.Error().Err(err).Int64("gameId", gameID).Msg("submit guess failed")
	return fmt.Errorf("%w: game %d: %v", ErrGameOperationFailed, gameID, err)
}

func rejected(g *store.Game) *GuessOutcome {
	return &GuessOutcome{
		Status:         StatusRejected,
		Message:        MsgTryAgain,
		MovesRemaining: MaxMoves - g.MovesCompleted,
		Game:           *g,
	}
}

func alreadyCompleted(g *store.Game) *GuessOutcome {
	return &GuessOutcome{
		Status:  StatusAlreadyCompleted,
		Message: MsgAlreadyCompleted,
		Game:    *g,
	}
}
