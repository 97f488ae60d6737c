package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"pocketbook/internal/amqp"
	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
)

// TransactionInput is the body of both create and update; updates replace
// every field.
type TransactionInput struct {
	AccountID       *uuid.UUID `json:"account_id"`
	Description     string     `json:"description"`
	Amount          string     `json:"amount"`
	Category        string     `json:"category"`
	TransactionType string     `json:"transaction_type"`
	TransactionDate string     `json:"transaction_date"`
}

// TransactionFilter carries the raw query parameters of a listing.
type TransactionFilter struct {
	Page            *int
	Limit           *int
	Category        *string
	FromDate        *string
	ToDate          *string
	TransactionType *string
}

type TransactionService struct {
	transactions storage.TransactionRepository
	pockets      storage.PocketRepository
	events       *eventSink
	logger       *slog.Logger
	audit        *applog.StructuredLogger
}

func NewTransactionService(transactions storage.TransactionRepository, pockets storage.PocketRepository, events *eventSink, logger *slog.Logger) *TransactionService {
	audit := applog.New(applog.Config{Component: applog.ComponentTransaction, Handler: logger.Handler()})
	return &TransactionService{
		transactions: transactions,
		pockets:      pockets,
		events:       events,
		logger:       logger.With(applog.FieldComponent, applog.ComponentTransaction),
		audit:        applog.NewStructuredLogger(audit),
	}
}

func (in TransactionInput) build(userID uuid.UUID) (*core.Transaction, error) {
	var v core.Validator
	v.Length(in.Description, "description", 1, 500, "Description must be between 1 and 500 characters")
	v.Length(in.Amount, "amount", 1, 0, "Amount is required")
	v.Length(in.Category, "category", 1, 100, "Category must be between 1 and 100 characters")
	if err := v.Err(); err != nil {
		return nil, err
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return nil, core.ValidationError("Invalid amount format")
	}
	kind := core.TransactionType(in.TransactionType)
	if err := core.ValidateTransactionType(kind); err != nil {
		return nil, err
	}
	date, err := core.ParseDate(in.TransactionDate)
	if err != nil {
		return nil, core.ValidationError("Invalid date format. Use YYYY-MM-DD")
	}

	category := in.Category
	return &core.Transaction{
		UserID:          userID,
		AccountID:       in.AccountID,
		Description:     in.Description,
		Amount:          amount,
		Category:        &category,
		Type:            kind,
		TransactionDate: date,
	}, nil
}

func (f TransactionFilter) query() (storage.TransactionQuery, error) {
	page, err := pageOf(f.Page, f.Limit, DefaultTransactionLimit)
	if err != nil {
		return storage.TransactionQuery{}, err
	}
	q := storage.TransactionQuery{Page: page, Category: f.Category}

	if f.TransactionType != nil {
		kind := core.TransactionType(*f.TransactionType)
		if err := core.ValidateTransactionType(kind); err != nil {
			return storage.TransactionQuery{}, err
		}
		q.Type = &kind
	}
	if f.FromDate != nil {
		d, err := core.ParseDateField("from_date", *f.FromDate)
		if err != nil {
			return storage.TransactionQuery{}, err
		}
		q.From = &d
	}
	if f.ToDate != nil {
		d, err := core.ParseDateField("to_date", *f.ToDate)
		if err != nil {
			return storage.TransactionQuery{}, err
		}
		q.To = &d
	}
	return q, nil
}

func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, f TransactionFilter) (*ListResult[core.Transaction], error) {
	q, err := f.query()
	if err != nil {
		return nil, err
	}

	items, err := s.transactions.FindByOwner(ctx, userID, q)
	if err != nil {
		return nil, core.DatabaseError("list transactions", err)
	}
	total, err := s.transactions.CountByOwner(ctx, userID, q)
	if err != nil {
		return nil, core.DatabaseError("count transactions", err)
	}

	return &ListResult[core.Transaction]{Data: items, Page: q.Page.Page, Limit: q.Page.Limit, TotalItems: total}, nil
}

func (s *TransactionService) Get(ctx context.Context, userID uuid.UUID, id int64) (*core.Transaction, error) {
	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get transaction", err, "Transaction not found")
	}
	if err := checkOwner(t.UserID, userID); err != nil {
		return nil, err
	}
	return t, nil
}

// ownPocket checks that a referenced pocket exists and belongs to userID.
func (s *TransactionService) ownPocket(ctx context.Context, userID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	p, err := s.pockets.FindByID(ctx, *id)
	if err != nil {
		return lookupErr("get pocket", err, "Pocket not found")
	}
	return checkOwner(p.UserID, userID)
}

// applyBalance moves the pocket balance by the transaction's signed effect,
// negated when reverse is set. A pocket deleted in the meantime is skipped.
func (s *TransactionService) applyBalance(ctx context.Context, t *core.Transaction, reverse bool) error {
	if t.AccountID == nil {
		return nil
	}
	delta := t.BalanceEffect()
	if reverse {
		delta = delta.Neg()
	}
	err := s.pockets.AdjustBalance(ctx, *t.AccountID, delta)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.WarnContext(ctx, "Pocket gone, balance not adjusted",
			applog.FieldTransactionID, t.ID, applog.FieldEntityID, t.AccountID.String())
		return nil
	}
	if err != nil {
		return core.DatabaseError("adjust pocket balance", err)
	}
	return nil
}

func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, in TransactionInput) (*core.Transaction, error) {
	t, err := in.build(userID)
	if err != nil {
		return nil, err
	}
	if err := s.ownPocket(ctx, userID, t.AccountID); err != nil {
		return nil, err
	}

	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, core.DatabaseError("create transaction", err)
	}
	if err := s.applyBalance(ctx, t, false); err != nil {
		return nil, err
	}

	s.audit.LogTransactionCreated(ctx, userID.String(), t.ID, string(t.Type), t.Amount.String(), t.CategoryLabel())
	s.events.emitInt(ctx, amqp.EntityTransaction, amqp.ActionCreated, t.ID, userID)
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID uuid.UUID, id int64, in TransactionInput) (*core.Transaction, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t, err := in.build(userID)
	if err != nil {
		return nil, err
	}
	if err := s.ownPocket(ctx, userID, t.AccountID); err != nil {
		return nil, err
	}

	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	if err := s.transactions.Update(ctx, t); err != nil {
		return nil, lookupErr("update transaction", err, "Transaction not found")
	}
	if err := s.applyBalance(ctx, existing, true); err != nil {
		return nil, err
	}
	if err := s.applyBalance(ctx, t, false); err != nil {
		return nil, err
	}

	s.events.emitInt(ctx, amqp.EntityTransaction, amqp.ActionUpdated, t.ID, userID)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.transactions.Delete(ctx, id); err != nil {
		return lookupErr("delete transaction", err, "Transaction not found")
	}
	if err := s.applyBalance(ctx, existing, true); err != nil {
		return err
	}

	s.events.emitInt(ctx, amqp.EntityTransaction, amqp.ActionDeleted, id, userID)
	return nil
}
