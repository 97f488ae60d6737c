package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
	// ErrOverlap is returned when an active budget already covers the period.
	ErrOverlap = errors.New("overlapping active budget")
)

// Page selects a window of results. A zero Limit means no paging.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TransactionQuery holds the optional filters of a transaction listing.
type TransactionQuery struct {
	Page
	Category *string
	From     *core.Date
	To       *core.Date
	Type     *core.TransactionType
}

// BudgetQuery holds the optional filters of a budget listing.
type BudgetQuery struct {
	Page
	Category   *string
	PeriodType *core.PeriodType
	IsActive   *bool
}

type (
	UserRepository interface {
		FindByID(ctx context.Context, id uuid.UUID) (*core.User, error)
		FindByEmail(ctx context.Context, email string) (*core.User, error)
		Create(ctx context.Context, u *core.User) error
		UpdateName(ctx context.Context, id uuid.UUID, name string) (*core.User, error)
		UpdateHideBalance(ctx context.Context, id uuid.UUID, hide bool) (*core.User, error)
		List(ctx context.Context) ([]core.User, error)
	}

	PocketRepository interface {
		FindByID(ctx context.Context, id uuid.UUID) (*core.Pocket, error)
		FindByOwner(ctx context.Context, userID uuid.UUID) ([]core.Pocket, error)
		Create(ctx context.Context, p *core.Pocket) error
		Update(ctx context.Context, p *core.Pocket) error
		AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	TransactionRepository interface {
		FindByID(ctx context.Context, id int64) (*core.Transaction, error)
		// FindByOwner lists by transaction_date DESC, created_at DESC.
		FindByOwner(ctx context.Context, userID uuid.UUID, q TransactionQuery) ([]core.Transaction, error)
		CountByOwner(ctx context.Context, userID uuid.UUID, q TransactionQuery) (int64, error)
		// FindByDateRange returns transactions dated within [from, to], inclusive.
		FindByDateRange(ctx context.Context, userID uuid.UUID, from, to core.Date) ([]core.Transaction, error)
		Create(ctx context.Context, t *core.Transaction) error
		Update(ctx context.Context, t *core.Transaction) error
		Delete(ctx context.Context, id int64) error
	}

	BudgetRepository interface {
		FindByID(ctx context.Context, id int64) (*core.Budget, error)
		// FindByOwner lists by created_at DESC.
		FindByOwner(ctx context.Context, userID uuid.UUID, q BudgetQuery) ([]core.Budget, error)
		CountByOwner(ctx context.Context, userID uuid.UUID, q BudgetQuery) (int64, error)
		// Categories returns the distinct budget categories, sorted.
		Categories(ctx context.Context, userID uuid.UUID) ([]string, error)
		// Create inserts b unless an active budget for the same user and
		// category overlaps its period, in which case it returns ErrOverlap.
		Create(ctx context.Context, b *core.Budget) error
		Update(ctx context.Context, b *core.Budget) error
		Delete(ctx context.Context, id int64) error
	}

	// Pinger reports store health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Repositories bundles one repository per entity.
type Repositories struct {
	Users        UserRepository
	Pockets      PocketRepository
	Transactions TransactionRepository
	Budgets      BudgetRepository
	Health       Pinger
}

// NewRepositories wires the SQL repositories over db.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Users:        NewUserStore(db),
		Pockets:      NewPocketStore(db),
		Transactions: NewTransactionStore(db),
		Budgets:      NewBudgetStore(db),
		Health:       db,
	}
}
