package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/amqp"
	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
)

// BudgetInput creates a budget; a missing is_active means active.
type BudgetInput struct {
	Category     string          `json:"category"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	PeriodType   string          `json:"period_type"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    string          `json:"period_end"`
	IsActive     *bool           `json:"is_active"`
}

type BudgetPatch struct {
	Category     *string          `json:"category"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	PeriodType   *string          `json:"period_type"`
	PeriodStart  *string          `json:"period_start"`
	PeriodEnd    *string          `json:"period_end"`
	IsActive     *bool            `json:"is_active"`
}

type BudgetFilter struct {
	Page       *int
	Limit      *int
	Category   *string
	PeriodType *string
	IsActive   *bool
}

type BudgetSummary struct {
	TotalBudgets      int64           `json:"total_budgets"`
	ActiveBudgets     int64           `json:"active_budgets"`
	TotalTargetAmount decimal.Decimal `json:"total_target_amount"`
	Categories        []string        `json:"categories"`
}

const overlapMessage = "An active budget already exists for this category in the specified period"

type BudgetService struct {
	budgets storage.BudgetRepository
	events  *eventSink
	logger  *slog.Logger
}

func NewBudgetService(budgets storage.BudgetRepository, events *eventSink, logger *slog.Logger) *BudgetService {
	return &BudgetService{
		budgets: budgets,
		events:  events,
		logger:  logger.With(applog.FieldComponent, applog.ComponentBudget),
	}
}

func validatePeriod(start, end core.Date) error {
	if !end.After(start) {
		return core.ValidationError("Period end must be after period start")
	}
	return nil
}

func validateTarget(v *core.Validator, target decimal.Decimal) {
	v.Check(target.IsPositive(), "target_amount", "Target amount must be greater than 0")
}

func (s *BudgetService) List(ctx context.Context, userID uuid.UUID, f BudgetFilter) (*ListResult[core.Budget], error) {
	page, err := pageOf(f.Page, f.Limit, DefaultBudgetLimit)
	if err != nil {
		return nil, err
	}
	q := storage.BudgetQuery{Page: page, Category: f.Category, IsActive: f.IsActive}
	if f.PeriodType != nil {
		pt := core.PeriodType(*f.PeriodType)
		if err := core.ValidatePeriodType(pt); err != nil {
			return nil, err
		}
		q.PeriodType = &pt
	}

	items, err := s.budgets.FindByOwner(ctx, userID, q)
	if err != nil {
		return nil, core.DatabaseError("list budgets", err)
	}
	total, err := s.budgets.CountByOwner(ctx, userID, q)
	if err != nil {
		return nil, core.DatabaseError("count budgets", err)
	}
	return &ListResult[core.Budget]{Data: items, Page: page.Page, Limit: page.Limit, TotalItems: total}, nil
}

func (s *BudgetService) Get(ctx context.Context, userID uuid.UUID, id int64) (*core.Budget, error) {
	b, err := s.budgets.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("get budget", err, "Budget not found")
	}
	if err := checkOwner(b.UserID, userID); err != nil {
		return nil, err
	}
	return b, nil
}

// Create rejects a new active budget whose period overlaps an existing active
// budget of the same category.
func (s *BudgetService) Create(ctx context.Context, userID uuid.UUID, in BudgetInput) (*core.Budget, error) {
	var v core.Validator
	v.Length(in.Category, "category", 1, 100, "Category must be between 1 and 100 characters")
	validateTarget(&v, in.TargetAmount)
	if err := v.Err(); err != nil {
		return nil, err
	}
	pt := core.PeriodType(in.PeriodType)
	if err := core.ValidatePeriodType(pt); err != nil {
		return nil, err
	}
	start, err := core.ParseDateField("period_start", in.PeriodStart)
	if err != nil {
		return nil, err
	}
	end, err := core.ParseDateField("period_end", in.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}

	b := &core.Budget{
		UserID:       userID,
		Category:     in.Category,
		TargetAmount: in.TargetAmount,
		PeriodType:   pt,
		PeriodStart:  start,
		PeriodEnd:    end,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.budgets.Create(ctx, b); err != nil {
		if errors.Is(err, storage.ErrOverlap) {
			return nil, core.Conflict(overlapMessage)
		}
		return nil, core.DatabaseError("create budget", err)
	}

	s.events.emitInt(ctx, amqp.EntityBudget, amqp.ActionCreated, b.ID, userID)
	return b, nil
}

func (s *BudgetService) Update(ctx context.Context, userID uuid.UUID, id int64, patch BudgetPatch) (*core.Budget, error) {
	var v core.Validator
	if patch.Category != nil {
		v.Length(*patch.Category, "category", 1, 100, "Category must be between 1 and 100 characters")
	}
	if patch.TargetAmount != nil {
		validateTarget(&v, *patch.TargetAmount)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Category != nil {
		b.Category = *patch.Category
	}
	if patch.TargetAmount != nil {
		b.TargetAmount = *patch.TargetAmount
	}
	if patch.PeriodType != nil {
		pt := core.PeriodType(*patch.PeriodType)
		if err := core.ValidatePeriodType(pt); err != nil {
			return nil, err
		}
		b.PeriodType = pt
	}
	if patch.PeriodStart != nil {
		if b.PeriodStart, err = core.ParseDateField("period_start", *patch.PeriodStart); err != nil {
			return nil, err
		}
	}
	if patch.PeriodEnd != nil {
		if b.PeriodEnd, err = core.ParseDateField("period_end", *patch.PeriodEnd); err != nil {
			return nil, err
		}
	}
	if patch.IsActive != nil {
		b.IsActive = *patch.IsActive
	}
	if err := validatePeriod(b.PeriodStart, b.PeriodEnd); err != nil {
		return nil, err
	}

	if err := s.budgets.Update(ctx, b); err != nil {
		return nil, lookupErr("update budget", err, "Budget not found")
	}

	s.events.emitInt(ctx, amqp.EntityBudget, amqp.ActionUpdated, b.ID, userID)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.budgets.Delete(ctx, id); err != nil {
		return lookupErr("delete budget", err, "Budget not found")
	}

	s.logger.InfoContext(ctx, "Budget deleted", applog.FieldEntityID, id, applog.FieldUserID, userID.String())
	s.events.emitInt(ctx, amqp.EntityBudget, amqp.ActionDeleted, id, userID)
	return nil
}

// Summary counts all and active budgets and totals the active targets.
func (s *BudgetService) Summary(ctx context.Context, userID uuid.UUID) (*BudgetSummary, error) {
	active := true
	total, err := s.budgets.CountByOwner(ctx, userID, storage.BudgetQuery{})
	if err != nil {
		return nil, core.DatabaseError("count budgets", err)
	}
	activeCount, err := s.budgets.CountByOwner(ctx, userID, storage.BudgetQuery{IsActive: &active})
	if err != nil {
		return nil, core.DatabaseError("count active budgets", err)
	}
	budgets, err := s.budgets.FindByOwner(ctx, userID, storage.BudgetQuery{IsActive: &active})
	if err != nil {
		return nil, core.DatabaseError("list active budgets", err)
	}
	categories, err := s.Categories(ctx, userID)
	if err != nil {
		return nil, err
	}

	target := decimal.Zero
	for _, b := range budgets {
		target = target.Add(b.TargetAmount)
	}
	return &BudgetSummary{
		TotalBudgets:      total,
		ActiveBudgets:     activeCount,
		TotalTargetAmount: target,
		Categories:        categories,
	}, nil
}

func (s *BudgetService) Categories(ctx context.Context, userID uuid.UUID) ([]string, error) {
	categories, err := s.budgets.Categories(ctx, userID)
	if err != nil {
		return nil, core.DatabaseError("list budget categories", err)
	}
	return categories, nil
}
