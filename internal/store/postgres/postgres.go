// Package postgres implements store.Store on PostgreSQL through a pgx pool.
// Guess submission locks the game row with SELECT ... FOR UPDATE so
// concurrent guesses against one game queue behind each other.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/notwordle/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open migrates the database at databaseURL and connects a pool to it.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate applies all pending embedded migrations.
func Migrate(databaseURL string) error {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	db := stdlib.OpenDB(*config.ConnConfig)

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("postgres migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("postgres schema ready")
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	u := store.User{Username: username, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		username, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", mapErr(err))
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username))
}

func (s *Store) GetUser(ctx context.Context, id int64) (*store.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (s *Store) CreateGame(ctx context.Context, userID int64, word string) (*store.Game, error) {
	g := store.Game{UserID: userID, Word: word}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO games (user_id, word) VALUES ($1, $2) RETURNING id, created_at`,
		userID, word).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", mapErr(err))
	}
	return &g, nil
}

const selectGame = `SELECT id, user_id, word, moves_completed, completed, created_at FROM games`

func (s *Store) GetGame(ctx context.Context, id int64) (*store.Game, error) {
	return scanGame(s.pool.QueryRow(ctx, selectGame+` WHERE id = $1`, id))
}

func (s *Store) ListActiveGamesForUser(ctx context.Context, userID int64) ([]store.Game, error) {
	rows, err := s.pool.Query(ctx, selectGame+` WHERE user_id = $1 AND NOT completed ORDER BY id`, userID)
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
	rows, err := s.pool.Query(ctx,
		`SELECT id, game_id, guess_no, guess, hint FROM guesses WHERE game_id = $1 ORDER BY guess_no`, gameID)
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
	tx     pgx.Tx
	gameID int64
}

func (t *gameTx) AppendGuess(ctx context.Context, guessNo int, guess, hint string) (*store.Guess, error) {
	g := store.Guess{GameID: t.gameID, GuessNo: guessNo, Guess: guess, Hint: hint}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO guesses (game_id, guess_no, guess, hint) VALUES ($1, $2, $3, $4) RETURNING id`,
		t.gameID, guessNo, guess, hint).Scan(&g.ID)
	if err != nil {
		return nil, fmt.Errorf("insert guess: %w", mapErr(err))
	}
	return &g, nil
}

func (t *gameTx) UpdateGameProgress(ctx context.Context, moves int, completed bool) error {
	if _, err := t.tx.Exec(ctx,
		`UPDATE games SET moves_completed = $1, completed = $2 WHERE id = $3`,
		moves, completed, t.gameID); err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

// UpdateGame holds a row lock on the game for the duration of fn.
func (s *Store) UpdateGame(ctx context.Context, gameID int64, fn func(g *store.Game, tx store.GameTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Warn().Err(err).Int64("gameId", gameID).Msg("rollback game update")
		}
	}()

	g, err := scanGame(tx.QueryRow(ctx, selectGame+` WHERE id = $1 FOR UPDATE`, gameID))
	if err != nil {
		return err
	}
	if err := fn(g, &gameTx{tx: tx, gameID: gameID}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit game update: %w", err)
	}
	return nil
}

func (s *Store) IsWord(ctx context.Context, word string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM words WHERE word = $1)`, word).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup word: %w", err)
	}
	return exists, nil
}

func (s *Store) PickRandomTargetWord(ctx context.Context) (string, error) {
	var w string
	err := s.pool.QueryRow(ctx, `SELECT word FROM words WHERE correct ORDER BY random() LIMIT 1`).Scan(&w)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pick target word: %w", err)
	}
	return w, nil
}

// SeedWords upserts the dictionary in a single batch.
func (s *Store) SeedWords(ctx context.Context, words []store.Word) error {
	if len(words) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range words {
		batch.Queue(`
INSERT INTO words (word, correct) VALUES ($1, $2)
ON CONFLICT (word) DO UPDATE SET correct = words.correct OR EXCLUDED.correct`, w.Text, w.Correct)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed words: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (s *Store) CountWords(ctx context.Context) (int, int, error) {
	var total, correct int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE correct) FROM words`).Scan(&total, &correct)
	if err != nil {
		return 0, 0, fmt.Errorf("count words: %w", err)
	}
	return total, correct, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func scanGame(row pgx.Row) (*store.Game, error) {
	var g store.Game
	if err := row.Scan(&g.ID, &g.UserID, &g.Word, &g.MovesCompleted, &g.Completed, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	return &g, nil
}

// mapErr translates constraint violations into store sentinels.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %v", store.ErrNotFound, err)
		}
	}
	return err
}

var _ store.Store = (*Store)(nil)
