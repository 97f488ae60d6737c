package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

// Summary totals one direction over a date range. It serializes its total as
// total_expenses or total_income depending on Direction.
type Summary struct {
	Direction         Direction
	Total             decimal.Decimal
	TotalTransactions int64
	AveragePerDay     decimal.Decimal
	FromDate          string
	ToDate            string
}

type summaryJSON struct {
	TotalExpenses     *decimal.Decimal `json:"total_expenses,omitempty"`
	TotalIncome       *decimal.Decimal `json:"total_income,omitempty"`
	TotalTransactions int64            `json:"total_transactions"`
	AveragePerDay     decimal.Decimal  `json:"average_per_day"`
	FromDate          string           `json:"from_date"`
	ToDate            string           `json:"to_date"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{
		TotalTransactions: s.TotalTransactions,
		AveragePerDay:     s.AveragePerDay,
		FromDate:          s.FromDate,
		ToDate:            s.ToDate,
	}
	total := s.Total
	if s.Direction == Income {
		out.TotalIncome = &total
	} else {
		out.TotalExpenses = &total
	}
	return json.Marshal(out)
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var in summaryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = Summary{
		Direction:         Expenses,
		TotalTransactions: in.TotalTransactions,
		AveragePerDay:     in.AveragePerDay,
		FromDate:          in.FromDate,
		ToDate:            in.ToDate,
	}
	switch {
	case in.TotalIncome != nil:
		s.Direction = Income
		s.Total = *in.TotalIncome
	case in.TotalExpenses != nil:
		s.Total = *in.TotalExpenses
	}
	return nil
}

type CategoryItem struct {
	Category         string          `json:"category"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int64           `json:"transaction_count"`
	Percentage       decimal.Decimal `json:"percentage"`
}

type CategorySummary struct {
	Categories []CategoryItem `json:"categories"`
	FromDate   string         `json:"from_date"`
	ToDate     string         `json:"to_date"`
}

type TrendItem struct {
	Period           string          `json:"period"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int64           `json:"transaction_count"`
}

type Trend struct {
	Trends   []TrendItem `json:"trends"`
	FromDate string      `json:"from_date"`
	ToDate   string      `json:"to_date"`
}

type RecentItem struct {
	ID              int64           `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	AccountID       *uuid.UUID      `json:"account_id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Category        *string         `json:"category"`
	TransactionDate core.Date       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Recent struct {
	Data  []RecentItem `json:"data"`
	Limit int          `json:"limit"`
	Count int64        `json:"count"`
}

type BudgetPerformanceItem struct {
	Category        string          `json:"category"`
	TargetAmount    decimal.Decimal `json:"target_amount"`
	SpentAmount     decimal.Decimal `json:"spent_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PercentageUsed  float64         `json:"percentage_used"`
	PeriodStart     core.Date       `json:"period_start"`
	PeriodEnd       core.Date       `json:"period_end"`
}

type BudgetPerformance struct {
	Budgets           []BudgetPerformanceItem `json:"budgets"`
	TotalTarget       decimal.Decimal         `json:"total_target"`
	TotalSpent        decimal.Decimal         `json:"total_spent"`
	TotalRemaining    decimal.Decimal         `json:"total_remaining"`
	OverallPercentage float64                 `json:"overall_percentage"`
}

type Suggestion struct {
	Category        string          `json:"category"`
	SuggestedAmount decimal.Decimal `json:"suggested_amount"`
	Reason          string          `json:"reason"`
	Confidence      float64         `json:"confidence"`
}

type Suggestions struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type AccountInfo struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	AccountType string          `json:"account_type"`
}

type AccountSummary struct {
	TotalBalance  decimal.Decimal `json:"total_balance"`
	Accounts      []AccountInfo   `json:"accounts"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetWorth      decimal.Decimal `json:"net_worth"`
}
