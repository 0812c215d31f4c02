// internal/game/types.go
//
// Core type definitions for the notwordle game engine.
// Defines:
//   - LetterState: per-letter verdict of a guess (correct/present/absent).
//   - HintResult: the output of ComputeHint.
//   - Status and GuessOutcome: the result of submitting a guess to a game.

package game

import "github.com/robalobadob/notwordle/internal/store"

const (
	// WordLength is the only accepted guess length.
	WordLength = 5
	// MaxMoves is the number of accepted guesses a game allows.
	MaxMoves = 6
)

// Fixed messages surfaced to players.
const (
	MsgWin              = "You win!"
	MsgInvalidGuess     = "Invalid guess!"
	MsgTryAgain         = "Invalid guess, please try again"
	MsgAlreadyCompleted = "Game already completed!"
)

// LetterState represents the evaluation result for a single letter in a guess.
//   - "correct": letter is in the target at this position.
//   - "present": letter is in the target at another position.
//   - "absent":  letter does not occur in the target.
type LetterState string

const (
	StateCorrect LetterState = "correct"
	StatePresent LetterState = "present"
	StateAbsent  LetterState = "absent"
)

// LetterVerdict is the provisional classification of one guess position.
type LetterVerdict struct {
	Letter   string      `json:"letter"`
	Position int         `json:"position"` // 1-based
	State    LetterState `json:"state"`
}

// Outcome tells a hint apart from the two sentinel results.
type Outcome int

const (
	OutcomeHint Outcome = iota
	OutcomeWin
	OutcomeInvalid
)

// HintResult is the output of ComputeHint. Letters is nil for wins and
// invalid guesses.
type HintResult struct {
	Outcome Outcome
	Letters []LetterVerdict
	Text    string
}

func (r HintResult) String() string { return r.Text }

// Status is the coarse result of SubmitGuess.
type Status string

const (
	StatusAccepted         Status = "accepted"
	StatusWon              Status = "won"
	StatusExhausted        Status = "exhausted"
	StatusRejected         Status = "rejected"
	StatusAlreadyCompleted Status = "already_completed"
)

// GuessOutcome is returned by SubmitGuess. Guess is nil unless a guess was
// recorded; Hint is zero for rejected and already-completed submissions.
type GuessOutcome struct {
	Status         Status
	Message        string
	MovesRemaining int
	Hint           HintResult
	Game           store.Game
	Guess          *store.Guess
}

// GameView is a game with its guesses in order.
type GameView struct {
	Game    store.Game
	Guesses []store.Guess
}
