// internal/httpserver/routes_game.go
//
// Game routes.
//   - POST /game {userId}          → 201 {id, msg}
//   - GET  /game/{id}              → 200 {game, guesses}
//   - GET  /game/user/{userId}     → 200 [game...] (active games only)
//   - GET  /guess/{gameId}/{guess} → 200 {msg, moves_remaining?}
//
// Game payloads never include the target word.

package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/notwordle/internal/game"
	"github.com/robalobadob/notwordle/internal/store"
)

const msgGameCreated = "Successfully created game"

// flexID accepts an id sent as a JSON number or a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer: %w", err)
	}
	*f = flexID(n)
	return nil
}

type newGameReq struct {
	UserID flexID `json:"userId"`
}

type newGameRes struct {
	ID  int64  `json:"id"`
	Msg string `json:"msg"`
}

type gameRes struct {
	Game    store.Game    `json:"game"`
	Guesses []store.Guess `json:"guesses"`
}

type guessRes struct {
	Msg            string `json:"msg"`
	MovesRemaining *int   `json:"moves_remaining,omitempty"`
}

func (s *Server) mountGameRoutes() {
	s.r.Post("/game", s.handleNewGame)
	s.r.Get("/game/{id:[0-9]+}", s.handleGetGame)
	s.r.Get("/game/user/{userId:[0-9]+}", s.handleUserGames)
	s.r.Get("/guess/{gameId:[0-9]+}/{guess}", s.handleGuess)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid_json")
		return
	}
	g, err := s.games.CreateGame(r.Context(), int64(req.UserID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newGameRes{ID: g.ID, Msg: msgGameCreated})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := s.games.GetGame(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameRes{Game: view.Game, Guesses: view.Guesses})
}

func (s *Server) handleUserGames(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	games, err := s.games.ListActiveGames(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameId")
	if !ok {
		return
	}
	out, err := s.games.SubmitGuess(r.Context(), gameID, chi.URLParam(r, "guess"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := guessRes{Msg: out.Message}
	switch out.Status {
	case game.StatusAccepted, game.StatusExhausted:
		remaining := out.MovesRemaining
		res.MovesRemaining = &remaining
	}
	writeJSON(w, http.StatusOK, res)
}

// pathID parses a numeric URL parameter, answering 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}
