// internal/store/store.go
//
// Persistence contract for the notwordle server.
// Defines:
//   - Record types for users, games, guesses and dictionary words.
//   - Store: the operations the game engine and account service need.
//   - GameTx: the locked view handed to UpdateGame callbacks.
//
// Implementations live in this package (memory) and in the sqlite and
// postgres subpackages.

package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a user, game or word does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations (duplicate username).
	ErrConflict = errors.New("conflict")
)

// User is a registered player.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Game is one round of guessing towards Word.
type Game struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Word           string    `json:"-"`
	MovesCompleted int       `json:"moves"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Guess is an accepted guess and the hint it produced.
type Guess struct {
	ID      int64  `json:"id"`
	GameID  int64  `json:"gameId"`
	GuessNo int    `json:"guessNo"`
	Guess   string `json:"guess"`
	Hint    string `json:"hint"`
}

// Word is a dictionary entry. Correct marks words that may be picked as a target.
type Word struct {
	Text    string
	Correct bool
}

// GameTx is valid only inside an UpdateGame callback. Writes made through it
// commit together or not at all.
type GameTx interface {
	AppendGuess(ctx context.Context, guessNo int, guess, hint string) (*Guess, error)
	UpdateGameProgress(ctx context.Context, moves int, completed bool) error
}

// Store is the persistence collaborator.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)

	CreateGame(ctx context.Context, userID int64, word string) (*Game, error)
	GetGame(ctx context.Context, id int64) (*Game, error)
	ListActiveGamesForUser(ctx context.Context, userID int64) ([]Game, error)
	ListGuessesForGame(ctx context.Context, gameID int64) ([]Guess, error)

	// UpdateGame locks the game row, loads it and runs fn. The game passed to
	// fn is the locked snapshot; returning an error rolls everything back.
	UpdateGame(ctx context.Context, gameID int64, fn func(g *Game, tx GameTx) error) error

	IsWord(ctx context.Context, word string) (bool, error)
	PickRandomTargetWord(ctx context.Context) (string, error)
	SeedWords(ctx context.Context, words []Word) error
	CountWords(ctx context.Context) (total int, correct int, err error)

	Ping(ctx context.Context) error
	Close() error
}
