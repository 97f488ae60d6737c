package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pocketbook/internal/core"
)

const budgetColumns = "id, user_id, category, target_amount, period_type, period_start, period_end, is_active, created_at, updated_at"

type BudgetStore struct {
	db *DB
}

func NewBudgetStore(db *DB) *BudgetStore {
	return &BudgetStore{db: db}
}

func scanBudget(row interface{ Scan(...any) error }) (*core.Budget, error) {
	var (
		b      core.Budget
		period string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.TargetAmount, &period,
		&b.PeriodStart, &b.PeriodEnd, &b.IsActive, ts(&b.CreatedAt), ts(&b.UpdatedAt))
	if err != nil {
		return nil, err
	}
	b.PeriodType = core.PeriodType(period)
	return &b, nil
}

func budgetFilter(userID uuid.UUID, q BudgetQuery) *Filter {
	f := Where().Eq("user_id", userID)
	if q.Category != nil {
		f.Contains("category", *q.Category)
	}
	if q.PeriodType != nil {
		f.Eq("period_type", string(*q.PeriodType))
	}
	if q.IsActive != nil {
		f.Eq("is_active", *q.IsActive)
	}
	return f
}

func (s *BudgetStore) FindByID(ctx context.Context, id int64) (*core.Budget, error) {
	row := s.db.queryRow(ctx, s.db, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *BudgetStore) FindByOwner(ctx context.Context, userID uuid.UUID, q BudgetQuery) ([]core.Budget, error) {
	where, args := budgetFilter(userID, q).Build(s.db.dialect)
	query, pageArgs := paginate("SELECT "+budgetColumns+" FROM budgets "+where+" ORDER BY created_at DESC, id DESC", q.Page)

	rows, err := s.db.query(ctx, s.db, query, append(args, pageArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (s *BudgetStore) CountByOwner(ctx context.Context, userID uuid.UUID, q BudgetQuery) (int64, error) {
	where, args := budgetFilter(userID, q).Build(s.db.dialect)
	var n int64
	if err := s.db.queryRow(ctx, s.db, "SELECT COUNT(*) FROM budgets "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count budgets: %w", err)
	}
	return n, nil
}

func (s *BudgetStore) Categories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.query(ctx, s.db,
		"SELECT DISTINCT category FROM budgets WHERE user_id = ? ORDER BY category", userID)
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Create checks for an overlapping active budget and inserts in the same
// transaction. On Postgres an advisory lock keyed on (user, category)
// serializes concurrent creators.
func (s *BudgetStore) Create(ctx context.Context, b *core.Budget) error {
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt

	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		if s.db.dialect == Postgres {
			if _, err := s.db.exec(ctx, tx, "SELECT pg_advisory_xact_lock(hashtext(?))",
				b.UserID.String()+"|"+b.Category); err != nil {
				return fmt.Errorf("lock budget category: %w", err)
			}
		}

		if b.IsActive {
			var n int64
			err := s.db.queryRow(ctx, tx,
				`SELECT COUNT(*) FROM budgets
				 WHERE user_id = ? AND category = ? AND is_active = ?
				   AND period_start <= ? AND period_end >= ?`,
				b.UserID, b.Category, true, b.PeriodEnd.String(), b.PeriodStart.String()).Scan(&n)
			if err != nil {
				return fmt.Errorf("check budget overlap: %w", err)
			}
			if n > 0 {
				return ErrOverlap
			}
		}

		err := s.db.queryRow(ctx, tx,
			`INSERT INTO budgets (user_id, category, target_amount, period_type, period_start, period_end, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			b.UserID, b.Category, b.TargetAmount, string(b.PeriodType),
			b.PeriodStart.String(), b.PeriodEnd.String(), b.IsActive, b.CreatedAt, b.UpdatedAt,
		).Scan(&b.ID)
		if err != nil {
			return fmt.Errorf("create budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger().InfoContext(ctx, "Budget created",
		"id", b.ID,
		"user_id", b.UserID,
		"category", b.Category,
		"period_start", b.PeriodStart.String(),
		"period_end", b.PeriodEnd.String())
	return nil
}

func (s *BudgetStore) Update(ctx context.Context, b *core.Budget) error {
	b.UpdatedAt = now()
	n, err := s.db.exec(ctx, s.db,
		`UPDATE budgets
		 SET category = ?, target_amount = ?, period_type = ?, period_start = ?, period_end = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		b.Category, b.TargetAmount, string(b.PeriodType), b.PeriodStart.String(), b.PeriodEnd.String(),
		b.IsActive, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BudgetStore) Delete(ctx context.Context, id int64) error {
	n, err := s.db.exec(ctx, s.db, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
