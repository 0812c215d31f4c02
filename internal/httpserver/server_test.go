package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/notwordle/internal/auth"
	"github.com/robalobadob/notwordle/internal/game"
	"github.com/robalobadob/notwordle/internal/store"
	"github.com/robalobadob/notwordle/internal/words"
)

type testEnv struct {
	h  http.Handler
	st store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	lists := &words.Lists{
		Answers: []string{"crane"},
		Allowed: []string{"spoil", "trace", "slate", "react"},
	}
	require.NoError(t, words.Seed(context.Background(), st, lists))

	nop := zerolog.Nop()
	srv := New(Options{
		Games:    game.NewService(st, words.NewValidator(st)),
		Accounts: auth.NewService(st, auth.NewTokens("test-secret", time.Hour), 1000),
		Store:    st,
		Logger:   &nop,
	})
	return &testEnv{h: srv.Handler(), st: st}
}

func (e *testEnv) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) signup(t *testing.T, username, password string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/user", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[signupRes](t, rec).ID
}

func (e *testEnv) newGame(t *testing.T, userID int64) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/game", `{"userId":`+strconv.FormatInt(userID, 10)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[newGameRes](t, rec)
	assert.Equal(t, msgGameCreated, res.Msg)
	return res.ID
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestSignup(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/user", `{"username":"alice","password":"hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[signupRes](t, rec)
	assert.Equal(t, "alice", res.Username)
	assert.NotZero(t, res.ID)
	assert.NotContains(t, rec.Body.String(), "pbkdf2")

	rec = e.do(t, http.MethodPost, "/user", `{"username":"alice","password":"x"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/user", `{"username":"","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/user", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckPasswordAndMe(t *testing.T) {
	e := newTestEnv(t)
	e.signup(t, "alice", "hunter2")

	rec := e.do(t, http.MethodGet, "/user", "", func(r *http.Request) { r.SetBasicAuth("alice", "wrong") })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[checkRes](t, rec).Authenticated)

	rec = e.do(t, http.MethodGet, "/user", "", func(r *http.Request) { r.SetBasicAuth("nobody", "hunter2") })
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/user", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/user", "", func(r *http.Request) { r.SetBasicAuth("alice", "hunter2") })
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[checkRes](t, rec)
	assert.True(t, res.Authenticated)
	require.NotEmpty(t, res.Token)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	rec = e.do(t, http.MethodGet, "/me", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+res.Token) })
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, me, "PasswordHash")

	rec = e.do(t, http.MethodGet, "/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/me", "", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGameFlow(t *testing.T) {
	e := newTestEnv(t)
	userID := e.signup(t, "alice", "hunter2")
	gameID := e.newGame(t, userID)
	base := "/guess/" + strconv.FormatInt(gameID, 10) + "/"

	rec := e.do(t, http.MethodGet, base+"spoil", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"S P O I L not in word","moves_remaining":5}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, base+"zzzzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"Invalid guess, please try again"}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, base+"trace", "")
	assert.JSONEq(t, `{"msg":"R in 2, A in 3, C not in 4, E in 5, T not in word","moves_remaining":4}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/game/user/"+strconv.FormatInt(userID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[[]map[string]any](t, rec)
	require.Len(t, active, 1)
	assert.NotContains(t, active[0], "word")

	rec = e.do(t, http.MethodGet, base+"CRANE", "")
	assert.JSONEq(t, `{"msg":"You win!"}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, base+"slate", "")
	assert.JSONEq(t, `{"msg":"Game already completed!"}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/game/"+strconv.FormatInt(gameID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	raw := decode[struct {
		Game map[string]any `json:"game"`
	}](t, rec)
	assert.NotContains(t, raw.Game, "word")
	view := decode[struct {
		Game struct {
			ID        int64 `json:"id"`
			UserID    int64 `json:"userId"`
			Moves     int   `json:"moves"`
			Completed bool  `json:"completed"`
		} `json:"game"`
		Guesses []store.Guess `json:"guesses"`
	}](t, rec)
	assert.Equal(t, gameID, view.Game.ID)
	assert.Equal(t, userID, view.Game.UserID)
	assert.Equal(t, 3, view.Game.Moves)
	assert.True(t, view.Game.Completed)
	require.Len(t, view.Guesses, 3)
	assert.Equal(t, "crane", view.Guesses[2].Guess)
	assert.Equal(t, 3, view.Guesses[2].GuessNo)

	rec = e.do(t, http.MethodGet, "/game/user/"+strconv.FormatInt(userID, 10), "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExhaustedGuessReportsZeroRemaining(t *testing.T) {
	e := newTestEnv(t)
	gameID := e.newGame(t, e.signup(t, "alice", "pw"))
	base := "/guess/" + strconv.FormatInt(gameID, 10) + "/"

	for i := 0; i < game.MaxMoves-1; i++ {
		e.do(t, http.MethodGet, base+"slate", "")
	}
	rec := e.do(t, http.MethodGet, base+"slate", "")
	res := decode[guessRes](t, rec)
	require.NotNil(t, res.MovesRemaining)
	assert.Zero(t, *res.MovesRemaining)

	rec = e.do(t, http.MethodGet, base+"crane", "")
	assert.JSONEq(t, `{"msg":"Game already completed!"}`, rec.Body.String())
}

func TestNonASCIIGuessIsRejected(t *testing.T) {
	e := newTestEnv(t)
	gameID := e.newGame(t, e.signup(t, "alice", "pw"))
	base := "/guess/" + strconv.FormatInt(gameID, 10) + "/"

	for _, guess := range []string{"%C4%B1abc", "%C4%B1abcd", "%FFabcd", "%C5%BFlate"} {
		rec := e.do(t, http.MethodGet, base+guess, "")
		require.Equal(t, http.StatusOK, rec.Code, guess)
		assert.JSONEq(t, `{"msg":"Invalid guess, please try again"}`, rec.Body.String(), guess)
	}

	rec := e.do(t, http.MethodGet, "/game/"+strconv.FormatInt(gameID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[gameRes](t, rec)
	assert.Zero(t, view.Game.MovesCompleted)
	assert.False(t, view.Game.Completed)
	assert.Empty(t, view.Guesses)
}

func TestGameErrors(t *testing.T) {
	e := newTestEnv(t)
	userID := e.signup(t, "alice", "pw")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown user on create", http.MethodPost, "/game", `{"userId":999}`, http.StatusNotFound},
		{"string user id", http.MethodPost, "/game", `{"userId":"` + strconv.FormatInt(userID, 10) + `"}`, http.StatusCreated},
		{"non numeric user id", http.MethodPost, "/game", `{"userId":"abc"}`, http.StatusBadRequest},
		{"zero user id", http.MethodPost, "/game", `{"userId":0}`, http.StatusBadRequest},
		{"unknown game", http.MethodGet, "/game/999", "", http.StatusNotFound},
		{"unknown user games", http.MethodGet, "/game/user/999", "", http.StatusNotFound},
		{"guess unknown game", http.MethodGet, "/guess/999/crane", "", http.StatusNotFound},
		{"non numeric game id", http.MethodGet, "/game/abc", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodOptions, "/game", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
