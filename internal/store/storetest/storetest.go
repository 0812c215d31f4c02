// Package storetest holds the behavioural suite every store.Store
// implementation must pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/notwordle/internal/store"
)

// Factory returns a fresh, empty, migrated store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

var errBoom = errors.New("boom")

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("games", func(t *testing.T) { testGames(t, newStore(t)) })
	t.Run("update game", func(t *testing.T) { testUpdateGame(t, newStore(t)) })
	t.Run("update game rollback", func(t *testing.T) { testUpdateGameRollback(t, newStore(t)) })
	t.Run("update game serializes", func(t *testing.T) { testUpdateGameSerializes(t, newStore(t)) })
	t.Run("words", func(t *testing.T) { testWords(t, newStore(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash-a")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)

	_, err = s.CreateUser(ctx, "alice", "hash-b")
	assert.ErrorIs(t, err, store.ErrConflict)

	found, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash-a", found.PasswordHash)

	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUser(ctx, u.ID+1000)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testGames(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "carol", "hash")
	require.NoError(t, err)

	_, err = s.CreateGame(ctx, u.ID+1000, "crane")
	assert.ErrorIs(t, err, store.ErrNotFound)

	g1, err := s.CreateGame(ctx, u.ID, "crane")
	require.NoError(t, err)
	g2, err := s.CreateGame(ctx, u.ID, "slate")
	require.NoError(t, err)
	assert.NotEqual(t, g1.ID, g2.ID)

	got, err := s.GetGame(ctx, g1.ID)
	require.NoError(t, err)
	assert.Equal(t, "crane", got.Word)
	assert.Equal(t, u.ID, got.UserID)
	assert.Zero(t, got.MovesCompleted)
	assert.False(t, got.Completed)

	_, err = s.GetGame(ctx, g2.ID+1000)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.UpdateGame(ctx, g2.ID, func(g *store.Game, tx store.GameTx) error {
		return tx.UpdateGameProgress(ctx, 1, true)
	}))

	active, err := s.ListActiveGamesForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, g1.ID, active[0].ID)

	none, err := s.ListActiveGamesForUser(ctx, u.ID+1000)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUpdateGame(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "dave", "hash")
	require.NoError(t, err)
	g, err := s.CreateGame(ctx, u.ID, "crane")
	require.NoError(t, err)

	err = s.UpdateGame(ctx, g.ID, func(locked *store.Game, tx store.GameTx) error {
		assert.Equal(t, "crane", locked.Word)
		if _, err := tx.AppendGuess(ctx, 1, "slate", "A in 3, E in 5, S L T not in word"); err != nil {
			return err
		}
		return tx.UpdateGameProgress(ctx, 1, false)
	})
	require.NoError(t, err)

	err = s.UpdateGame(ctx, g.ID, func(locked *store.Game, tx store.GameTx) error {
		assert.Equal(t, 1, locked.MovesCompleted)
		if _, err := tx.AppendGuess(ctx, 2, "crane", "You win!"); err != nil {
			return err
		}
		return tx.UpdateGameProgress(ctx, 2, true)
	})
	require.NoError(t, err)

	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MovesCompleted)
	assert.True(t, got.Completed)

	guesses, err := s.ListGuessesForGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, guesses, 2)
	assert.Equal(t, "slate", guesses[0].Guess)
	assert.Equal(t, 1, guesses[0].GuessNo)
	assert.Equal(t, "crane", guesses[1].Guess)
	assert.Equal(t, "You win!", guesses[1].Hint)
	assert.Equal(t, g.ID, guesses[1].GameID)

	err = s.UpdateGame(ctx, g.ID+1000, func(*store.Game, store.GameTx) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ListGuessesForGame(ctx, g.ID+1000)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdateGameRollback(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "erin", "hash")
	require.NoError(t, err)
	g, err := s.CreateGame(ctx, u.ID, "crane")
	require.NoError(t, err)

	err = s.UpdateGame(ctx, g.ID, func(locked *store.Game, tx store.GameTx) error {
		if _, err := tx.AppendGuess(ctx, 1, "slate", "hint"); err != nil {
			return err
		}
		if err := tx.UpdateGameProgress(ctx, 1, false); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, got.MovesCompleted)

	guesses, err := s.ListGuessesForGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, guesses)
}

// testUpdateGameSerializes checks that read-modify-write through UpdateGame
// never loses an update under contention.
func testUpdateGameSerializes(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "frank", "hash")
	require.NoError(t, err)
	g, err := s.CreateGame(ctx, u.ID, "crane")
	require.NoError(t, err)

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.UpdateGame(ctx, g.ID, func(locked *store.Game, tx store.GameTx) error {
				next := locked.MovesCompleted + 1
				if _, err := tx.AppendGuess(ctx, next, "slate", "hint"); err != nil {
					return err
				}
				return tx.UpdateGameProgress(ctx, next, next >= workers)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.MovesCompleted)
	assert.True(t, got.Completed)

	guesses, err := s.ListGuessesForGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, guesses, workers)
	for i, guess := range guesses {
		assert.Equal(t, i+1, guess.GuessNo)
	}
}

func testWords(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.PickRandomTargetWord(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SeedWords(ctx, []store.Word{
		{Text: "crane", Correct: true},
		{Text: "slate", Correct: true},
		{Text: "xylyl", Correct: false},
	}))
	// Re-seeding as a plain guess must not demote a target word.
	require.NoError(t, s.SeedWords(ctx, []store.Word{
		{Text: "crane", Correct: false},
		{Text: "xylyl", Correct: false},
	}))

	total, correct, err := s.CountWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, correct)

	ok, err := s.IsWord(ctx, "xylyl")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsWord(ctx, "zzzzz")
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 20; i++ {
		w, err := s.PickRandomTargetWord(ctx)
		require.NoError(t, err)
		assert.Contains(t, []string{"crane", "slate"}, w)
	}

	require.NoError(t, s.Ping(ctx))
}
