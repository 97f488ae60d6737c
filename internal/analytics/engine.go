package analytics

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/storage"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 50
)

// TransactionSource is the slice of the transaction repository analytics reads.
type TransactionSource interface {
	FindByOwner(ctx context.Context, userID uuid.UUID, q storage.TransactionQuery) ([]core.Transaction, error)
	FindByDateRange(ctx context.Context, userID uuid.UUID, from, to core.Date) ([]core.Transaction, error)
}

type BudgetSource interface {
	FindByOwner(ctx context.Context, userID uuid.UUID, q storage.BudgetQuery) ([]core.Budget, error)
}

type PocketSource interface {
	FindByOwner(ctx context.Context, userID uuid.UUID) ([]core.Pocket, error)
}

// Engine fetches raw rows and aggregates them per request. It holds no state
// beyond its sources.
type Engine struct {
	transactions TransactionSource
	budgets      BudgetSource
	pockets      PocketSource
	logger       *slog.Logger
}

func NewEngine(transactions TransactionSource, budgets BudgetSource, pockets PocketSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transactions: transactions,
		budgets:      budgets,
		pockets:      pockets,
		logger:       logger.With(applog.FieldComponent, applog.ComponentAnalytics),
	}
}

// DateRange is a validated inclusive range that remembers the caller's strings.
type DateRange struct {
	From, To       core.Date
	FromRaw, ToRaw string
}

// ParseRange validates from_date and to_date before any store access.
func ParseRange(from, to string) (DateRange, error) {
	f, err := core.ParseDateField("from_date", from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := core.ParseDateField("to_date", to)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{From: f, To: t, FromRaw: from, ToRaw: to}, nil
}

func (e *Engine) fetchRange(ctx context.Context, userID uuid.UUID, r DateRange) ([]core.Transaction, error) {
	txs, err := e.transactions.FindByDateRange(ctx, userID, r.From, r.To)
	if err != nil {
		return nil, core.DatabaseError("list transactions by date range", err)
	}
	return txs, nil
}

func (e *Engine) Summary(ctx context.Context, userID uuid.UUID, d Direction, from, to string) (*Summary, error) {
	r, err := ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "Computing summary", "user_id", userID, "direction", d, "from", from, "to", to)

	txs, err := e.fetchRange(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	total, count, avg := Summarize(txs, d, r.From, r.To)
	return &Summary{
		Direction:         d,
		Total:             total,
		TotalTransactions: count,
		AveragePerDay:     avg,
		FromDate:          r.FromRaw,
		ToDate:            r.ToRaw,
	}, nil
}

func (e *Engine) CategorySummary(ctx context.Context, userID uuid.UUID, d Direction, from, to string) (*CategorySummary, error) {
	r, err := ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	txs, err := e.fetchRange(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return &CategorySummary{
		Categories: ByCategory(txs, d),
		FromDate:   r.FromRaw,
		ToDate:     r.ToRaw,
	}, nil
}

func (e *Engine) Trend(ctx context.Context, userID uuid.UUID, d Direction, g Granularity, from, to string) (*Trend, error) {
	r, err := ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	txs, err := e.fetchRange(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return &Trend{
		Trends:   ByPeriod(txs, d, g),
		FromDate: r.FromRaw,
		ToDate:   r.ToRaw,
	}, nil
}

// Recent returns the newest transactions of the direction. A nil limit means
// the default of 10.
func (e *Engine) Recent(ctx context.Context, userID uuid.UUID, d Direction, limit *int) (*Recent, error) {
	n := DefaultRecentLimit
	if limit != nil {
		n = *limit
	}
	if n < 1 || n > MaxRecentLimit {
		return nil, core.ValidationError("Limit must be between 1 and 50")
	}

	kind := d.Type()
	txs, err := e.transactions.FindByOwner(ctx, userID, storage.TransactionQuery{
		Page: storage.Page{Page: 1, Limit: n},
		Type: &kind,
	})
	if err != nil {
		return nil, core.DatabaseError("list recent transactions", err)
	}

	items := make([]RecentItem, 0, len(txs))
	for _, t := range filter(txs, d) {
		if len(items) == n {
			break
		}
		amount := t.Amount
		if d == Expenses {
			amount = amount.Abs()
		}
		items = append(items, RecentItem{
			ID:              t.ID,
			UserID:          t.UserID,
			AccountID:       t.AccountID,
			Description:     t.Description,
			Amount:          amount,
			Category:        t.Category,
			TransactionDate: t.TransactionDate,
			CreatedAt:       t.CreatedAt,
			UpdatedAt:       t.UpdatedAt,
		})
	}
	return &Recent{Data: items, Limit: n, Count: int64(len(items))}, nil
}

// activeBudgetsWithSpending loads active budgets and the expense transactions
// spanning all of their periods.
func (e *Engine) activeBudgetsWithSpending(ctx context.Context, userID uuid.UUID) ([]core.Budget, []core.Transaction, error) {
	active := true
	budgets, err := e.budgets.FindByOwner(ctx, userID, storage.BudgetQuery{IsActive: &active})
	if err != nil {
		return nil, nil, core.DatabaseError("list active budgets", err)
	}
	if len(budgets) == 0 {
		return budgets, nil, nil
	}

	from, to := budgets[0].PeriodStart, budgets[0].PeriodEnd
	for _, b := range budgets[1:] {
		if b.PeriodStart.Before(from) {
			from = b.PeriodStart
		}
		if b.PeriodEnd.After(to) {
			to = b.PeriodEnd
		}
	}
	expense := core.Expense
	txs, err := e.transactions.FindByOwner(ctx, userID, storage.TransactionQuery{
		From: &from,
		To:   &to,
		Type: &expense,
	})
	if err != nil {
		return nil, nil, core.DatabaseError("list budget transactions", err)
	}
	return budgets, txs, nil
}

func (e *Engine) BudgetPerformance(ctx context.Context, userID uuid.UUID) (*BudgetPerformance, error) {
	budgets, txs, err := e.activeBudgetsWithSpending(ctx, userID)
	if err != nil {
		return nil, err
	}
	perf := Performance(budgets, txs)
	return &perf, nil
}

func (e *Engine) BudgetSuggestions(ctx context.Context, userID uuid.UUID) (*Suggestions, error) {
	budgets, txs, err := e.activeBudgetsWithSpending(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Suggestions{Suggestions: Suggest(Performance(budgets, txs).Budgets)}, nil
}

// AccountSummary loads pockets and transactions concurrently.
func (e *Engine) AccountSummary(ctx context.Context, userID uuid.UUID) (*AccountSummary, error) {
	var (
		pockets []core.Pocket
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pockets, err = e.pockets.FindByOwner(gctx, userID)
		if err != nil {
			return core.DatabaseError("list pockets", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = e.transactions.FindByOwner(gctx, userID, storage.TransactionQuery{})
		if err != nil {
			return core.DatabaseError("list transactions", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &AccountSummary{Accounts: make([]AccountInfo, 0, len(pockets))}
	for _, p := range pockets {
		summary.TotalBalance = summary.TotalBalance.Add(p.Balance)
		summary.Accounts = append(summary.Accounts, AccountInfo{
			ID:          p.ID,
			Name:        p.Name,
			Balance:     p.Balance,
			AccountType: "pocket",
		})
	}
	summary.TotalIncome, summary.TotalExpenses = Totals(txs)
	summary.NetWorth = summary.TotalBalance
	return summary, nil
}
