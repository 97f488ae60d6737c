package http

import (
	"context"
	"net/http"

	"pocketbook/internal/cache"
	"pocketbook/internal/core"
	"pocketbook/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Email = sanitizeInput(in.Email)

	res, err := s.svc.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Email = sanitizeInput(in.Email)

	res, err := s.svc.Auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	user, err := cache.Fetch(r.Context(), s.cache, cache.UserKey(userID.String()), cache.UserTTL,
		func(ctx context.Context) (*core.User, error) {
			return s.svc.Users.Me(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, user)
}

func (s *Server) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	user, err := s.svc.Users.UpdateName(r.Context(), userID, sanitizeInput(body.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(r.Context(), userID)
	ok(w, user)
}

func (s *Server) handleUpdateHideBalance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HideBalance *bool `json:"hide_balance"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.HideBalance == nil {
		writeError(w, r, core.ValidationError("hide_balance: is required"))
		return
	}

	userID := principal(r).UserID
	user, err := s.svc.Users.UpdateHideBalance(r.Context(), userID, *body.HideBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(r.Context(), userID)
	ok(w, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, users)
}
