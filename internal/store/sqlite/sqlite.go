// internal/store/sqlite/sqlite.go
//
// SQLite implementation of store.Store.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (golang-migrate, recorded in schema_migrations).
//   - Serializing guess submission: UpdateGame runs in a BEGIN IMMEDIATE
//     transaction on a single-connection pool.

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/notwordle/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a store.Store backed by a SQLite file.
type Store struct {
	db *sql.DB
}

/**
 * Open opens (and creates if missing) a SQLite database file, migrates it
 * and returns a ready Store.
 *
 * - Ensures parent directory exists for relative paths (e.g. ./data/app.db).
 * - Configures busy timeout, WAL journaling, foreign keys and IMMEDIATE
 *   transactions so a game row is write-locked from the first read.
 */
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if err := migrateUp(dsn(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	// One writer at a time; readers queue behind it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate"
}

// migrateUp applies embedded migrations on a dedicated handle; the migrate
// driver closes the handle it is given.
func migrateUp(dsn string) error {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open for migrate: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("sqlite schema ready")
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user last insert id: %w", err)
	}
	return &store.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now.Truncate(time.Second)}, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) CreateGame(ctx context.Context, userID int64, word string) (*store.Game, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (user_id, word, moves_completed, completed, created_at) VALUES (?, ?, 0, 0, ?)`,
		userID, word, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("game last insert id: %w", err)
	}
	return &store.Game{ID: id, UserID: userID, Word: word, CreatedAt: now.Truncate(time.Second)}, nil
}

const selectGame = `SELECT id, user_id, word, moves_completed, completed, created_at FROM games`

func (s *Store) GetGame(ctx context.Context, id int64) (*store.Game, error) {
	return scanGame(s.db.QueryRowContext(ctx, selectGame+` WHERE id = ?`, id))
}

func (s *Store) ListActiveGamesForUser(ctx context.Context, userID int64) ([]store.Game, error) {
	rows, err := s.db.QueryContext(ctx, selectGame+` WHERE user_id = ? AND completed = 0 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	out := []store.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *Store) ListGuessesForGame(ctx context.Context, gameID int64) ([]store.Guess, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, guess_no, guess, hint FROM guesses WHERE game_id = ? ORDER BY guess_no`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query guesses: %w", err)
	}
	defer rows.Close()

	out := []store.Guess{}
	for rows.Next() {
		var g store.Guess
		if err := rows.Scan(&g.ID, &g.GameID, &g.GuessNo, &g.Guess, &g.Hint); err != nil {
			return nil, fmt.Errorf("scan guess: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type gameTx struct {
	tx     *sql.Tx
	gameID int64
}

func (t *gameTx) AppendGuess(ctx context.Context, guessNo int, guess, hint string) (*store.Guess, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO guesses (game_id, guess_no, guess, hint) VALUES (?, ?, ?, ?)`,
		t.gameID, guessNo, guess, hint)
	if err != nil {
		return nil, fmt.Errorf("insert guess: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("guess last insert id: %w", err)
	}
	return &store.Guess{ID: id, GameID: t.gameID, GuessNo: guessNo, Guess: guess, Hint: hint}, nil
}

func (t *gameTx) UpdateGameProgress(ctx context.Context, moves int, completed bool) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE games SET moves_completed = ?, completed = ? WHERE id = ?`,
		moves, completed, t.gameID); err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

// UpdateGame runs fn inside an IMMEDIATE transaction; the write lock is taken
// before the game row is read.
func (s *Store) UpdateGame(ctx context.Context, gameID int64, fn func(g *store.Game, tx store.GameTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	g, err := scanGame(tx.QueryRowContext(ctx, selectGame+` WHERE id = ?`, gameID))
	if err != nil {
		return err
	}
	if err := fn(g, &gameTx{tx: tx, gameID: gameID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game update: %w", err)
	}
	return nil
}

func (s *Store) IsWord(ctx context.Context, word string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM words WHERE word = ?`, word).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup word: %w", err)
	}
	return n > 0, nil
}

func (s *Store) PickRandomTargetWord(ctx context.Context) (string, error) {
	var w string
	err := s.db.QueryRowContext(ctx, `SELECT word FROM words WHERE correct = 1 ORDER BY RANDOM() LIMIT 1`).Scan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pick target word: %w", err)
	}
	return w, nil
}

// SeedWords upserts the dictionary in one transaction. A word seeded as
// correct stays correct when re-seeded as a plain guess.
func (s *Store) SeedWords(ctx context.Context, words []store.Word) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO words (word, correct) VALUES (?, ?)
ON CONFLICT(word) DO UPDATE SET correct = MAX(correct, excluded.correct)`)
	if err != nil {
		return fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()

	for _, w := range words {
		if _, err := stmt.ExecContext(ctx, w.Text, w.Correct); err != nil {
			return fmt.Errorf("seed %q: %w", w.Text, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (s *Store) CountWords(ctx context.Context) (int, int, error) {
	var total, correct int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(correct), 0) FROM words`).Scan(&total, &correct)
	if err != nil {
		return 0, 0, fmt.Errorf("count words: %w", err)
	}
	return total, correct, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func scanUser(row interface{ Scan(dest ...any) error }) (*store.User, error) {
	var u store.User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = mustParse(created)
	return &u, nil
}

func scanGame(row interface{ Scan(dest ...any) error }) (*store.Game, error) {
	var g store.Game
	var created string
	if err := row.Scan(&g.ID, &g.UserID, &g.Word, &g.MovesCompleted, &g.Completed, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.CreatedAt = mustParse(created)
	return &g, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// mapErr translates constraint violations into store sentinels.
func mapErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		}
	}
	return err
}

var _ store.Store = (*Store)(nil)
