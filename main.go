// main.go
//
// Entry point for the notwordle server.
//   1. Load configuration (.env, environment, optional config file).
//   2. Configure zerolog from LOG_LEVEL.
//   3. Open the store selected by DATABASE_URL and seed the dictionary.
//   4. Serve HTTP until SIGINT/SIGTERM, then shut down gracefully.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/notwordle/internal/auth"
	"github.com/robalobadob/notwordle/internal/config"
	"github.com/robalobadob/notwordle/internal/game"
	"github.com/robalobadob/notwordle/internal/httpserver"
	"github.com/robalobadob/notwordle/internal/store"
	"github.com/robalobadob/notwordle/internal/store/postgres"
	"github.com/robalobadob/notwordle/internal/store/sqlite"
	"github.com/robalobadob/notwordle/internal/words"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("notwordle exited")
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn().Msg("JWT_SECRET not set; using development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend(), err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	if cfg.SeedWords {
		lists, err := words.Load(cfg.WordsAnswersFile, cfg.WordsAllowedFile)
		if err != nil {
			return fmt.Errorf("load word lists: %w", err)
		}
		if err := words.Seed(ctx, st, lists); err != nil {
			return err
		}
	}

	srv := httpserver.New(httpserver.Options{
		Games:        game.NewService(st, words.NewValidator(st)),
		Accounts:     auth.NewService(st, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL()), cfg.PasswordIterations),
		Store:        st,
		ClientOrigin: cfg.ClientOrigin,
		CookieSecure: cfg.SecureCookies(),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", httpSrv.Addr).Str("backend", string(cfg.Backend())).Msg("starting notwordle server")
	return serve(ctx, httpSrv)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
// A listener failure is returned instead of exiting the process.
func serve(ctx context.Context, srv *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}

// openStore opens the backend named by cfg.DatabaseURL.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Backend() {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	default:
		return sqlite.Open(ctx, cfg.DatabaseURL)
	}
}
