package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

const (
	exceedingThreshold  = 90.0
	underusedThreshold  = 50.0
	exceedingConfidence = 0.85
	underusedConfidence = 0.75
	exceedingReason     = "You're consistently exceeding this budget. Consider increasing it by 20%."
	underusedReason     = "You're using less than 50% of this budget. Consider reducing it by 20%."
)

var (
	increaseFactor = decimal.RequireFromString("1.20")
	decreaseFactor = decimal.RequireFromString("0.80")
)

// Granularity is the bucket width of a trend.
type Granularity int

const (
	Monthly Granularity = iota
	Daily
)

func (g Granularity) key(d core.Date) string {
	if g == Daily {
		return d.String()
	}
	return d.MonthKey()
}

// Summarize totals the direction's transactions. days is the inclusive span
// of the range and is at least 1.
func Summarize(txs []core.Transaction, d Direction, from, to core.Date) (decimal.Decimal, int64, decimal.Decimal) {
	total := decimal.Zero
	var count int64
	for _, t := range filter(txs, d) {
		total = total.Add(t.Amount.Abs())
		count++
	}
	days := int64(from.DaysUntil(to)) + 1
	if days < 1 {
		days = 1
	}
	return total, count, total.Div(decimal.NewFromInt(days))
}

type bucket struct {
	total decimal.Decimal
	count int64
}

func group(txs []core.Transaction, key func(core.Transaction) string) (map[string]*bucket, decimal.Decimal) {
	groups := make(map[string]*bucket)
	total := decimal.Zero
	for _, t := range txs {
		k := key(t)
		b, ok := groups[k]
		if !ok {
			b = &bucket{total: decimal.Zero}
			groups[k] = b
		}
		amount := t.Amount.Abs()
		b.total = b.total.Add(amount)
		b.count++
		total = total.Add(amount)
	}
	return groups, total
}

// ByCategory groups the direction's transactions by category, largest first.
// Equal totals are ordered by category label.
func ByCategory(txs []core.Transaction, d Direction) []CategoryItem {
	groups, total := group(filter(txs, d), core.Transaction.CategoryLabel)

	items := make([]CategoryItem, 0, len(groups))
	for label, b := range groups {
		items = append(items, CategoryItem{
			Category:         label,
			TotalAmount:      b.total,
			TransactionCount: b.count,
			Percentage:       core.Percentage(b.total, total),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if c := items[i].TotalAmount.Cmp(items[j].TotalAmount); c != 0 {
			return c > 0
		}
		return items[i].Category < items[j].Category
	})
	return items
}

// ByPeriod buckets the direction's transactions by month or day, oldest first.
func ByPeriod(txs []core.Transaction, d Direction, g Granularity) []TrendItem {
	groups, _ := group(filter(txs, d), func(t core.Transaction) string {
		return g.key(t.TransactionDate)
	})

	items := make([]TrendItem, 0, len(groups))
	for period, b := range groups {
		items = append(items, TrendItem{Period: period, TotalAmount: b.total, TransactionCount: b.count})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Period < items[j].Period })
	return items
}

// Spent sums expense transactions matching the budget category within its
// period, inclusive on both ends.
func Spent(b core.Budget, txs []core.Transaction) decimal.Decimal {
	spent := decimal.Zero
	for _, t := range txs {
		if t.Type != core.Expense || t.Category == nil || *t.Category != b.Category {
			continue
		}
		if b.Covers(t.TransactionDate) {
			spent = spent.Add(t.Amount.Abs())
		}
	}
	return spent
}

// Performance reports spending against each budget, in the budgets' order.
func Performance(budgets []core.Budget, txs []core.Transaction) BudgetPerformance {
	perf := BudgetPerformance{
		Budgets:     make([]BudgetPerformanceItem, 0, len(budgets)),
		TotalTarget: decimal.Zero,
		TotalSpent:  decimal.Zero,
	}
	for _, b := range budgets {
		spent := Spent(b, txs)
		perf.TotalTarget = perf.TotalTarget.Add(b.TargetAmount)
		perf.TotalSpent = perf.TotalSpent.Add(spent)
		perf.Budgets = append(perf.Budgets, BudgetPerformanceItem{
			Category:        b.Category,
			TargetAmount:    b.TargetAmount,
			SpentAmount:     spent,
			RemainingAmount: b.TargetAmount.Sub(spent),
			PercentageUsed:  core.PercentageFloat(spent, b.TargetAmount),
			PeriodStart:     b.PeriodStart,
			PeriodEnd:       b.PeriodEnd,
		})
	}
	perf.TotalRemaining = perf.TotalTarget.Sub(perf.TotalSpent)
	perf.OverallPercentage = core.PercentageFloat(perf.TotalSpent, perf.TotalTarget)
	return perf
}

// Suggest applies the two-threshold rule: above 90% used suggests a 20%
// increase, below 50% a 20% cut, anything between nothing.
func Suggest(items []BudgetPerformanceItem) []Suggestion {
	suggestions := []Suggestion{}
	for _, it := range items {
		switch {
		case it.PercentageUsed > exceedingThreshold:
			suggestions = append(suggestions, Suggestion{
				Category:        it.Category,
				SuggestedAmount: it.TargetAmount.Mul(increaseFactor),
				Reason:          exceedingReason,
				Confidence:      exceedingConfidence,
			})
		case it.PercentageUsed < underusedThreshold:
			suggestions = append(suggestions, Suggestion{
				Category:        it.Category,
				SuggestedAmount: it.TargetAmount.Mul(decreaseFactor),
				Reason:          underusedReason,
				Confidence:      underusedConfidence,
			})
		}
	}
	return suggestions
}

// Totals sums absolute income and expense amounts by type.
func Totals(txs []core.Transaction) (income, expenses decimal.Decimal) {
	income, expenses = decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount.Abs())
		case core.Expense:
			expenses = expenses.Add(t.Amount.Abs())
		}
	}
	return income, expenses
}
