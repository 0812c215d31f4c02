// internal/httpserver/routes_user.go
//
// Account routes.
//   - POST /user  {username, password} → 201 {id, username, msg}
//   - GET  /user  (HTTP Basic)         → 200 {authenticated, token?}
//   - GET  /me    (Bearer or cookie)   → 200 {id, username, createdAt}
//
// A successful credential check issues a session token, returned in the
// body and set as an HttpOnly cookie.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/notwordle/internal/auth"
	"github.com/robalobadob/notwordle/internal/store"
)

type signupReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupRes struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Msg      string `json:"msg"`
}

type checkRes struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token,omitempty"`
}

// ctxUserKey is the context key type for the authenticated user.
type ctxUserKey struct{}

func (s *Server) mountUserRoutes() {
	s.r.Post("/user", s.handleSignup)
	s.r.Get("/user", s.handleCheckPassword)
	s.r.With(s.requireAuth()).Get("/me", s.handleMe)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid_json")
		return
	}
	u, err := s.accounts.Register(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, signupRes{ID: u.ID, Username: u.Username, Msg: "Successfully created account"})
}

// handleCheckPassword answers whether the Basic credentials are valid.
// Missing credentials or an unknown user is a 400.
func (s *Server) handleCheckPassword(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		badRequest(w, "basic auth required")
		return
	}
	u, err := s.accounts.CheckCredentials(r.Context(), username, password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusOK, checkRes{Authenticated: false})
		return
	case errors.Is(err, store.ErrNotFound), errors.Is(err, auth.ErrInvalidInput):
		badRequest(w, "unknown user")
		return
	case err != nil:
		writeError(w, r, err)
		return
	}

	tok, exp, err := s.accounts.Tokens().Sign(u.ID, u.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.setAuthCookie(w, tok, exp)
	hlog.FromRequest(r).Debug().Int64("userId", u.ID).Msg("credentials accepted")
	writeJSON(w, http.StatusOK, checkRes{Authenticated: true, Token: tok})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*store.User)
	if me == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// requireAuth enforces a valid session token and injects the user into the
// request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			u, err := s.accounts.Authenticate(r.Context(), tokenStr)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setAuthCookie writes the session cookie.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or the cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
