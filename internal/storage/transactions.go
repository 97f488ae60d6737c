package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pocketbook/internal/core"
)

const transactionColumns = "id, user_id, account_id, description, amount, category, transaction_type, transaction_date, created_at, updated_at"

type TransactionStore struct {
	db *DB
}

func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(row interface{ Scan(...any) error }) (*core.Transaction, error) {
	var (
		t        core.Transaction
		account  uuid.NullUUID
		category sql.NullString
		kind     string
	)
	err := row.Scan(&t.ID, &t.UserID, &account, &t.Description, &t.Amount, &category,
		&kind, &t.TransactionDate, ts(&t.CreatedAt), ts(&t.UpdatedAt))
	if err != nil {
		return nil, err
	}
	if account.Valid {
		id := account.UUID
		t.AccountID = &id
	}
	if category.Valid {
		c := category.String
		t.Category = &c
	}
	t.Type = core.TransactionType(kind)
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func nullableAccount(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// transactionFilter builds the WHERE clause shared by listing and counting.
func transactionFilter(userID uuid.UUID, q TransactionQuery) *Filter {
	f := Where().Eq("user_id", userID)
	if q.Category != nil {
		f.Eq("category", *q.Category)
	}
	if q.From != nil {
		f.Gte("transaction_date", q.From.String())
	}
	if q.To != nil {
		f.Lte("transaction_date", q.To.String())
	}
	if q.Type != nil {
		f.Eq("transaction_type", string(*q.Type))
	}
	return f
}

func (s *TransactionStore) FindByID(ctx context.Context, id int64) (*core.Transaction, error) {
	row := s.db.queryRow(ctx, s.db, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionStore) FindByOwner(ctx context.Context, userID uuid.UUID, q TransactionQuery) ([]core.Transaction, error) {
	where, args := transactionFilter(userID, q).Build(s.db.dialect)
	query, pageArgs := paginate(
		"SELECT "+transactionColumns+" FROM transactions "+where+
			" ORDER BY transaction_date DESC, created_at DESC, id DESC", q.Page)

	rows, err := s.db.query(ctx, s.db, query, append(args, pageArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return scanTransactions(rows)
}

func (s *TransactionStore) CountByOwner(ctx context.Context, userID uuid.UUID, q TransactionQuery) (int64, error) {
	where, args := transactionFilter(userID, q).Build(s.db.dialect)
	var n int64
	if err := s.db.queryRow(ctx, s.db, "SELECT COUNT(*) FROM transactions "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *TransactionStore) FindByDateRange(ctx context.Context, userID uuid.UUID, from, to core.Date) ([]core.Transaction, error) {
	return s.FindByOwner(ctx, userID, TransactionQuery{From: &from, To: &to})
}

func (s *TransactionStore) Create(ctx context.Context, t *core.Transaction) error {
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt

	err := s.db.queryRow(ctx, s.db,
		`INSERT INTO transactions (user_id, account_id, description, amount, category, transaction_type, transaction_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		t.UserID, nullableAccount(t.AccountID), t.Description, t.Amount, nullableString(t.Category),
		string(t.Type), t.TransactionDate.String(), t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	logger().InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"date", t.TransactionDate.String())
	return nil
}

func (s *TransactionStore) Update(ctx context.Context, t *core.Transaction) error {
	t.UpdatedAt = now()
	n, err := s.db.exec(ctx, s.db,
		`UPDATE transactions
		 SET account_id = ?, description = ?, amount = ?, category = ?, transaction_type = ?, transaction_date = ?, updated_at = ?
		 WHERE id = ?`,
		nullableAccount(t.AccountID), t.Description, t.Amount, nullableString(t.Category),
		string(t.Type), t.TransactionDate.String(), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TransactionStore) Delete(ctx context.Context, id int64) error {
	n, err := s.db.exec(ctx, s.db, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
