package services

import (
	"context"
	"errors"
	"log/slog"

	"pocketbook/internal/auth"
	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by both register and login.
type AuthResult struct {
	Token string     `json:"token"`
	User  *core.User `json:"user"`
}

type AuthService struct {
	users  storage.UserRepository
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewAuthService(users storage.UserRepository, tokens *auth.Tokens, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger.With(applog.FieldComponent, applog.ComponentAuth),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var v core.Validator
	v.Length(in.Name, "name", 1, 100, "Name must be between 1 and 100 characters")
	v.Email(in.Email, "email")
	v.Length(in.Password, "password", 6, 0, "Password must be at least 6 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, core.InternalError("hash password", err)
	}

	user := &core.User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, core.Conflict("Email already exists")
		}
		return nil, core.DatabaseError("create user", err)
	}

	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, user.ID.String())
	return s.issue(user)
}

// Login answers every mismatch with the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	var v core.Validator
	v.Email(in.Email, "email")
	v.Length(in.Password, "password", 6, 0, "Password must be at least 6 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, core.DatabaseError("find user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		s.logger.WarnContext(ctx, "Login rejected", applog.FieldUserID, user.ID.String())
		return nil, core.Unauthorized("Invalid credentials")
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *core.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, core.InternalError("issue token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
