package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"pocketbook/internal/amqp"
	"pocketbook/internal/auth"
	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
)

// Default page sizes of the list endpoints.
const (
	DefaultTransactionLimit = 20
	DefaultBudgetLimit      = 10
)

// EventPublisher announces committed mutations. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, entity, action, id string, userID uuid.UUID) error
}

// ListResult is one page of a listing plus the unpaged total.
type ListResult[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
}

// Services bundles every entity service over one set of repositories.
type Services struct {
	Auth         *AuthService
	Users        *UserService
	Pockets      *PocketService
	Transactions *TransactionService
	Budgets      *BudgetService
}

// New wires the services. publisher may be nil, in which case events are skipped.
func New(repos *storage.Repositories, tokens *auth.Tokens, publisher EventPublisher, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	events := &eventSink{publisher: publisher, logger: logger.With(applog.FieldComponent, applog.ComponentAMQP)}
	return &Services{
		Auth:         NewAuthService(repos.Users, tokens, logger),
		Users:        NewUserService(repos.Users),
		Pockets:      NewPocketService(repos.Pockets, events, logger),
		Transactions: NewTransactionService(repos.Transactions, repos.Pockets, events, logger),
		Budgets:      NewBudgetService(repos.Budgets, events, logger),
	}
}

// eventSink publishes best-effort; a failed publish never fails the request.
type eventSink struct {
	publisher EventPublisher
	logger    *slog.Logger
}

func (s *eventSink) emit(ctx context.Context, entity, action, id string, userID uuid.UUID) {
	if s == nil || s.publisher == nil {
		if s != nil {
			s.logger.DebugContext(ctx, "AMQP client not available, skipping ledger event",
				applog.FieldEntity, entity, applog.FieldEntityID, id)
		}
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, entity, action, id, userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEntity, entity,
			applog.FieldEntityID, id,
			"action", action,
			applog.FieldError, err)
	}
}

func (s *eventSink) emitInt(ctx context.Context, entity, action string, id int64, userID uuid.UUID) {
	s.emit(ctx, entity, action, strconv.FormatInt(id, 10), userID)
}

var _ EventPublisher = (*amqp.Client)(nil)

// lookupErr maps a repository failure, turning ErrNotFound into a NotFound
// error with msg.
func lookupErr(op string, err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return core.NotFound(msg)
	}
	return core.DatabaseError(op, err)
}

func checkOwner(owner, caller uuid.UUID) error {
	if owner != caller {
		return core.Forbidden("Access denied")
	}
	return nil
}

func pageOf(page, limit *int, defaultLimit int) (storage.Page, error) {
	p := storage.Page{Page: 1, Limit: defaultLimit}
	if page != nil {
		p.Page = *page
	}
	if limit != nil {
		p.Limit = *limit
	}
	if err := core.ValidatePage(p.Page, p.Limit); err != nil {
		return storage.Page{}, err
	}
	return p, nil
}
