package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/notwordle/internal/store"
)

// storeValidator accepts whatever the store knows as a word.
type storeValidator struct{ st store.Store }

func (v storeValidator) IsAcceptedGuess(ctx context.Context, word string) (bool, error) {
	return v.st.IsWord(ctx, word)
}

// newTestService returns a service over a memory store whose only target
// word is "crane".
func newTestService(t *testing.T) (*Service, store.Store, int64) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	words := []store.Word{{Text: "crane", Correct: true}}
	for _, w := range []string{"spoil", "trace", "react", "crate", "slate", "fuzzy", "nacre", "pious"} {
		words = append(words, store.Word{Text: w})
	}
	require.NoError(t, st.SeedWords(ctx, words))

	u, err := st.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	return NewService(st, storeValidator{st}), st, u.ID
}

func TestCraneScenario(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "crane", g.Word)
	assert.Zero(t, g.MovesCompleted)
	assert.False(t, g.Completed)

	out, err := svc.SubmitGuess(ctx, g.ID, "spoil")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, out.Status)
	assert.Equal(t, "S P O I L not in word", out.Message)
	assert.Equal(t, 5, out.MovesRemaining)
	require.NotNil(t, out.Guess)
	assert.Equal(t, 1, out.Guess.GuessNo)

	out, err = svc.SubmitGuess(ctx, g.ID, "trace")
	require.NoError(t, err)
	assert.Equal(t, "R in 2, A in 3, C not in 4, E in 5, T not in word", out.Message)
	assert.Equal(t, 4, out.MovesRemaining)

	out, err = svc.SubmitGuess(ctx, g.ID, "CRANE")
	require.NoError(t, err)
	assert.Equal(t, StatusWon, out.Status)
	assert.Equal(t, MsgWin, out.Message)
	assert.True(t, out.Game.Completed)
	assert.Equal(t, 3, out.Game.MovesCompleted)

	view, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, view.Game.Completed)
	require.Len(t, view.Guesses, 3)
	assert.Equal(t, []string{"spoil", "trace", "crane"},
		[]string{view.Guesses[0].Guess, view.Guesses[1].Guess, view.Guesses[2].Guess})
	assert.Equal(t, MsgWin, view.Guesses[2].Hint)

	out, err = svc.SubmitGuess(ctx, g.ID, "slate")
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyCompleted, out.Status)
	assert.Equal(t, MsgAlreadyCompleted, out.Message)
}

func TestExhaustionOnSixthGuess(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)

	for i := 1; i <= MaxMoves; i++ {
		out, err := svc.SubmitGuess(ctx, g.ID, "slate")
		require.NoError(t, err)
		assert.Equal(t, MaxMoves-i, out.MovesRemaining)
		if i < MaxMoves {
			assert.Equal(t, StatusAccepted, out.Status, "guess %d", i)
			assert.False(t, out.Game.Completed)
		} else {
			assert.Equal(t, StatusExhausted, out.Status)
			assert.True(t, out.Game.Completed)
		}
	}

	out, err := svc.SubmitGuess(ctx, g.ID, "crane")
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyCompleted, out.Status)

	view, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxMoves, view.Game.MovesCompleted)
	assert.Len(t, view.Guesses, MaxMoves)

	active, err := svc.ListActiveGames(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRejectedGuessDoesNotMutate(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)

	for _, guess := range []string{"zzzzz", "cranes", "", "cra", "ıabc", "\xffabcd", "cr4ne"} {
		out, err := svc.SubmitGuess(ctx, g.ID, guess)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, out.Status, guess)
		assert.Equal(t, MsgTryAgain, out.Message)
		assert.Nil(t, out.Guess)
		assert.Equal(t, MaxMoves, out.MovesRemaining)
	}

	view, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Game.MovesCompleted)
	assert.Empty(t, view.Guesses)
}

func TestFoldingLookalikeDoesNotWin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SeedWords(ctx, []store.Word{{Text: "slate", Correct: true}, {Text: "koala"}}))
	u, err := st.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	svc := NewService(st, storeValidator{st})

	g, err := svc.CreateGame(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "slate", g.Word)

	// U+017F and U+212A fold to S and K under Unicode case folding.
	for _, guess := range []string{"\u017Flate", "SLAT\u212A"} {
		out, err := svc.SubmitGuess(ctx, g.ID, guess)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, out.Status, guess)
		assert.Nil(t, out.Guess)
	}

	view, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, view.Game.Completed)
	assert.Empty(t, view.Guesses)

	out, err := svc.SubmitGuess(ctx, g.ID, "SLATE")
	require.NoError(t, err)
	assert.Equal(t, StatusWon, out.Status)
}

func TestGuessIsNormalized(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)

	out, err := svc.SubmitGuess(ctx, g.ID, "  TrAcE ")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, out.Status)
	assert.Equal(t, "trace", out.Guess.Guess)
}

func TestConcurrentGuessesAtLastMove(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)
	for i := 0; i < MaxMoves-1; i++ {
		_, err := svc.SubmitGuess(ctx, g.ID, "slate")
		require.NoError(t, err)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]*GuessOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.SubmitGuess(ctx, g.ID, "react")
		}(i)
	}
	wg.Wait()

	var accepted, completed int
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		switch results[i].Status {
		case StatusExhausted:
			accepted++
		case StatusAlreadyCompleted:
			completed++
		default:
			t.Fatalf("unexpected status %q", results[i].Status)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, completed)

	view, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxMoves, view.Game.MovesCompleted)
	assert.Len(t, view.Guesses, MaxMoves)
	assert.Zero(t, svc.locks.size())
}

func TestNotFoundAndInvalidInput(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGame(ctx, userID+100)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.SubmitGuess(ctx, 999, "crane")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetGame(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ListActiveGames(ctx, userID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SubmitGuess(ctx, 0, "crane")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateGame(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListActiveGames(t *testing.T) {
	svc, _, userID := newTestService(t)
	ctx := context.Background()

	g1, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)
	g2, err := svc.CreateGame(ctx, userID)
	require.NoError(t, err)

	_, err = svc.SubmitGuess(ctx, g1.ID, "crane")
	require.NoError(t, err)

	active, err := svc.ListActiveGames(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, g2.ID, active[0].ID)
}

// failingStore breaks the write path of an otherwise working store.
type failingStore struct {
	store.Store
	err error
}

func (f failingStore) UpdateGame(context.Context, int64, func(*store.Game, store.GameTx) error) error {
	return f.err
}

func (f failingStore) PickRandomTargetWord(context.Context) (string, error) {
	return "", f.err
}

func TestPersistenceFailures(t *testing.T) {
	_, st, userID := newTestService(t)
	ctx := context.Background()

	g, err := st.CreateGame(ctx, userID, "crane")
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	broken := failingStore{Store: st, err: diskFull}
	svc := NewService(broken, storeValidator{broken})

	_, err = svc.SubmitGuess(ctx, g.ID, "trace")
	assert.ErrorIs(t, err, ErrGameOperationFailed)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateGame(ctx, userID)
	assert.ErrorIs(t, err, ErrPersistence)
}

type brokenValidator struct{}

func (brokenValidator) IsAcceptedGuess(context.Context, string) (bool, error) {
	return false, errors.New("dictionary offline")
}

func TestValidatorFailure(t *testing.T) {
	_, st, userID := newTestService(t)
	ctx := context.Background()

	g, err := st.CreateGame(ctx, userID, "crane")
	require.NoError(t, err)
	svc := NewService(st, brokenValidator{})

	_, err = svc.SubmitGuess(ctx, g.ID, "trace")
	assert.ErrorIs(t, err, ErrGameOperationFailed)

	// A win never consults the dictionary.
	out, err := svc.SubmitGuess(ctx, g.ID, "crane")
	require.NoError(t, err)
	assert.Equal(t, StatusWon, out.Status)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size())

	a := k.Lock(1)
	b := k.Lock(2)
	assert.Equal(t, 2, k.size())
	a()
	b()
	assert.Zero(t, k.size())
}
