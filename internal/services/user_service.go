package services

import (
	"context"

	"github.com/google/uuid"

	"pocketbook/internal/core"
	"pocketbook/internal/storage"
)

type UserService struct {
	users storage.UserRepository
}

func NewUserService(users storage.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*core.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr("get user", err, "User not found")
	}
	return u, nil
}

func (s *UserService) UpdateName(ctx context.Context, userID uuid.UUID, name string) (*core.User, error) {
	var v core.Validator
	v.Length(name, "name", 1, 100, "Name must be between 1 and 100 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}
	u, err := s.users.UpdateName(ctx, userID, name)
	if err != nil {
		return nil, lookupErr("update user name", err, "User not found")
	}
	return u, nil
}

func (s *UserService) UpdateHideBalance(ctx context.Context, userID uuid.UUID, hide bool) (*core.User, error) {
	u, err := s.users.UpdateHideBalance(ctx, userID, hide)
	if err != nil {
		return nil, lookupErr("update hide balance", err, "User not found")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, core.DatabaseError("list users", err)
	}
	return users, nil
}
