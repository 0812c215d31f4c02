// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for tests and for DATABASE_URL=memory; state is lost on restart.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - UpdateGame holds the write lock for the whole callback, so guesses are
//     serialized per store (and therefore per game).
//   - Records are copied in and out; callers never alias internal state.

package store

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"
)

type memory struct {
	mu      sync.RWMutex
	users   map[int64]*User
	byName  map[string]int64
	games   map[int64]*Game
	guesses map[int64][]Guess // keyed by game ID, in guessNo order
	words   map[string]bool   // word -> correct
	nextID  struct{ user, game, guess int64 }
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		users:   make(map[int64]*User),
		byName:  make(map[string]int64),
		games:   make(map[int64]*Game),
		guesses: make(map[int64][]Guess),
		words:   make(map[string]bool),
	}
}

func (m *memory) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[username]; ok {
		return nil, ErrConflict
	}
	m.nextID.user++
	u := &User{ID: m.nextID.user, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	m.users[u.ID] = u
	m.byName[username] = u.ID
	cp := *u
	return &cp, nil
}

func (m *memory) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *memory) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memory) CreateGame(ctx context.Context, userID int64, word string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return nil, ErrNotFound
	}
	m.nextID.game++
	g := &Game{ID: m.nextID.game, UserID: userID, Word: word, CreatedAt: time.Now().UTC()}
	m.games[g.ID] = g
	cp := *g
	return &cp, nil
}

func (m *memory) GetGame(ctx context.Context, id int64) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memory) ListActiveGamesForUser(ctx context.Context, userID int64) ([]Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Game{}
	for _, g := range m.games {
		if g.UserID == userID && !g.Completed {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memory) ListGuessesForGame(ctx context.Context, gameID int64) ([]Guess, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.games[gameID]; !ok {
		return nil, ErrNotFound
	}
	return append([]Guess{}, m.guesses[gameID]...), nil
}

// memoryTx buffers writes so a failing callback leaves the store untouched.
type memoryTx struct {
	m        *memory
	game     Game
	appended []Guess
	dirty    bool
}

func (tx *memoryTx) AppendGuess(ctx context.Context, guessNo int, guess, hint string) (*Guess, error) {
	tx.m.nextID.guess++
	g := Guess{ID: tx.m.nextID.guess, GameID: tx.game.ID, GuessNo: guessNo, Guess: guess, Hint: hint}
	tx.appended = append(tx.appended, g)
	return &g, nil
}

func (tx *memoryTx) UpdateGameProgress(ctx context.Context, moves int, completed bool) error {
	tx.game.MovesCompleted = moves
	tx.game.Completed = completed
	tx.dirty = true
	return nil
}

func (m *memory) UpdateGame(ctx context.Context, gameID int64, fn func(g *Game, tx GameTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return ErrNotFound
	}
	snapshot := *g
	tx := &memoryTx{m: m, game: snapshot}
	if err := fn(&snapshot, tx); err != nil {
		return err
	}
	if tx.dirty {
		g.MovesCompleted = tx.game.MovesCompleted
		g.Completed = tx.game.Completed
	}
	m.guesses[gameID] = append(m.guesses[gameID], tx.appended...)
	return nil
}

func (m *memory) IsWord(ctx context.Context, word string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.words[word]
	return ok, nil
}

// PickRandomTargetWord returns a uniformly random correct word.
func (m *memory) PickRandomTargetWord(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var candidates []string
	for w, correct := range m.words {
		if correct {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNotFound
	}
	sort.Strings(candidates)
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(candidates))))
	if err != nil {
		return "", err
	}
	return candidates[n.Int64()], nil
}

// SeedWords upserts words; a word already marked correct stays correct.
func (m *memory) SeedWords(ctx context.Context, words []Word) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		m.words[text] = m.words[text] || w.Correct
	}
	return nil
}

func (m *memory) CountWords(ctx context.Context) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	correct := 0
	for _, c := range m.words {
		if c {
			correct++
		}
	}
	return len(m.words), correct, nil
}

func (m *memory) Ping(ctx context.Context) error { return nil }

func (m *memory) Close() error { return nil }
