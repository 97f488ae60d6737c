package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pocketbook/internal/core"
)

const userColumns = "id, name, email, password, hide_balance, created_at, updated_at"

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.HideBalance, ts(&u.CreatedAt), ts(&u.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) findOne(ctx context.Context, op, where string, arg any) (*core.User, error) {
	row := s.db.queryRow(ctx, s.db, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*core.User, error) {
	return s.findOne(ctx, "get user", "id = ?", id)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.findOne(ctx, "get user by email", "email = ?", email)
}

func (s *UserStore) Create(ctx context.Context, u *core.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	_, err := s.db.exec(ctx, s.db,
		`INSERT INTO users (id, name, email, password, hide_balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.HideBalance, u.CreatedAt, u.UpdatedAt)
	if s.db.dialect.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger().InfoContext(ctx, "User created", "id", u.ID)
	return nil
}

func (s *UserStore) update(ctx context.Context, id uuid.UUID, op, set string, arg any) (*core.User, error) {
	n, err := s.db.exec(ctx, s.db, "UPDATE users SET "+set+" = ?, updated_at = ? WHERE id = ?", arg, now(), id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *UserStore) UpdateName(ctx context.Context, id uuid.UUID, name string) (*core.User, error) {
	return s.update(ctx, id, "update user name", "name", name)
}

func (s *UserStore) UpdateHideBalance(ctx context.Context, id uuid.UUID, hide bool) (*core.User, error) {
	return s.update(ctx, id, "update hide balance", "hide_balance", hide)
}

func (s *UserStore) List(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.query(ctx, s.db, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
