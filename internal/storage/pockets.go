package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

const pocketColumns = "id, user_id, name, emoji, balance, created_at, updated_at"

type PocketStore struct {
	db *DB
}

func NewPocketStore(db *DB) *PocketStore {
	return &PocketStore{db: db}
}

func scanPocket(row interface{ Scan(...any) error }) (*core.Pocket, error) {
	var p core.Pocket
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Emoji, &p.Balance, ts(&p.CreatedAt), ts(&p.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PocketStore) FindByID(ctx context.Context, id uuid.UUID) (*core.Pocket, error) {
	row := s.db.queryRow(ctx, s.db, "SELECT "+pocketColumns+" FROM pockets WHERE id = ?", id)
	p, err := scanPocket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pocket: %w", err)
	}
	return p, nil
}

func (s *PocketStore) FindByOwner(ctx context.Context, userID uuid.UUID) ([]core.Pocket, error) {
	rows, err := s.db.query(ctx, s.db,
		"SELECT "+pocketColumns+" FROM pockets WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	defer rows.Close()

	pockets := []core.Pocket{}
	for rows.Next() {
		p, err := scanPocket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pocket: %w", err)
		}
		pockets = append(pockets, *p)
	}
	return pockets, rows.Err()
}

func (s *PocketStore) Create(ctx context.Context, p *core.Pocket) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.exec(ctx, s.db,
		`INSERT INTO pockets (id, user_id, name, emoji, balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Emoji, p.Balance, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create pocket: %w", err)
	}

	logger().InfoContext(ctx, "Pocket created", "id", p.ID, "user_id", p.UserID)
	return nil
}

func (s *PocketStore) Update(ctx context.Context, p *core.Pocket) error {
	p.UpdatedAt = now()
	n, err := s.db.exec(ctx, s.db,
		"UPDATE pockets SET name = ?, emoji = ?, updated_at = ? WHERE id = ?",
		p.Name, p.Emoji, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update pocket: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustBalance adds delta to the pocket balance. The read-modify-write runs
// in one transaction so concurrent adjustments do not lose updates.
func (s *PocketStore) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		lock := ""
		if s.db.dialect == Postgres {
			lock = " FOR UPDATE"
		}
		var balance decimal.Decimal
		err := s.db.queryRow(ctx, tx, "SELECT balance FROM pockets WHERE id = ?"+lock, id).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read pocket balance: %w", err)
		}

		if _, err := s.db.exec(ctx, tx,
			"UPDATE pockets SET balance = ?, updated_at = ? WHERE id = ?",
			balance.Add(delta), now(), id); err != nil {
			return fmt.Errorf("adjust pocket balance: %w", err)
		}
		return nil
	})
}

func (s *PocketStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.db.exec(ctx, s.db, "DELETE FROM pockets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pocket: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
