package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly    PeriodType = "weekly"
	Monthly   PeriodType = "monthly"
	Quarterly PeriodType = "quarterly"
	Yearly    PeriodType = "yearly"
)

// UncategorizedLabel replaces a missing category in analytics groupings.
const UncategorizedLabel = "Uncategorized"

type (
	TransactionType string

	PeriodType string

	User struct {
		ID           uuid.UUID `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		HideBalance  bool      `json:"hide_balance"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Pocket struct {
		ID        uuid.UUID       `json:"id"`
		UserID    uuid.UUID       `json:"-"`
		Name      string          `json:"name"`
		Emoji     string          `json:"emoji"`
		Balance   decimal.Decimal `json:"balance"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}

	Transaction struct {
		ID              int64           `json:"id"`
		UserID          uuid.UUID       `json:"user_id"`
		AccountID       *uuid.UUID      `json:"account_id"`
		Description     string          `json:"description"`
		Amount          decimal.Decimal `json:"amount"`
		Category        *string         `json:"category"`
		Type            TransactionType `json:"transaction_type"`
		TransactionDate Date            `json:"transaction_date"`
		CreatedAt       time.Time       `json:"created_at"`
		UpdatedAt       time.Time       `json:"updated_at"`
	}

	Budget struct {
		ID           int64           `json:"id"`
		UserID       uuid.UUID       `json:"-"`
		Category     string          `json:"category"`
		TargetAmount decimal.Decimal `json:"target_amount"`
		PeriodType   PeriodType      `json:"period_type"`
		PeriodStart  Date            `json:"period_start"`
		PeriodEnd    Date            `json:"period_end"`
		IsActive     bool            `json:"is_active"`
		CreatedAt    time.Time       `json:"created_at"`
		UpdatedAt    time.Time       `json:"updated_at"`
	}
)

// IsValid reports whether t is income or expense.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (p PeriodType) IsValid() bool {
	switch p {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	default:
		return false
	}
}

// CategoryLabel returns the transaction category or the placeholder label.
func (t Transaction) CategoryLabel() string {
	if t.Category == nil || *t.Category == "" {
		return UncategorizedLabel
	}
	return *t.Category
}

// BalanceEffect is the signed change the transaction applies to its pocket:
// income adds the absolute amount, expense subtracts it.
func (t Transaction) BalanceEffect() decimal.Decimal {
	abs := t.Amount.Abs()
	if t.Type == Expense {
		return abs.Neg()
	}
	return abs
}

// Overlaps reports whether the budget period intersects [start, end], both inclusive.
func (b Budget) Overlaps(start, end Date) bool {
	return !b.PeriodStart.After(end) && !start.After(b.PeriodEnd)
}

// Covers reports whether d falls within the budget period, inclusive.
func (b Budget) Covers(d Date) bool {
	return !d.Before(b.PeriodStart) && !d.After(b.PeriodEnd)
}
