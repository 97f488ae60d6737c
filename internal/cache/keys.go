package cache

import (
	"fmt"
	"time"
)

const (
	AnalyticsTTL         = 900 * time.Second
	RecentTTL            = 300 * time.Second
	BudgetSummaryTTL     = 600 * time.Second
	BudgetPerformanceTTL = 300 * time.Second
	BudgetSuggestionsTTL = 1800 * time.Second
	BudgetCategoriesTTL  = 900 * time.Second
	PocketsTTL           = 180 * time.Second
	UserTTL              = 300 * time.Second
	ListTTL              = 300 * time.Second
	AccountSummaryTTL    = 300 * time.Second
)

// Analytics report names used in keys.
const (
	ReportSummary         = "summary"
	ReportCategorySummary = "category_summary"
	ReportMonthlyTrend    = "monthly_trend"
	ReportDailyTrend      = "daily_trend"
)

var reports = []string{ReportSummary, ReportCategorySummary, ReportMonthlyTrend, ReportDailyTrend}

// AnalyticsKey is e.g. expense_summary:{user}:{from}:{to}.
func AnalyticsKey(direction, report, userID, from, to string) string {
	return fmt.Sprintf("%s_%s:%s:%s:%s", direction, report, userID, from, to)
}

func RecentKey(direction, userID string, limit int) string {
	return fmt.Sprintf("recent_%s_transactions:%s:%d", direction, userID, limit)
}

func BudgetSummaryKey(userID string) string     { return "budget_summary:" + userID }
func BudgetPerformanceKey(userID string) string { return "budget_performance:" + userID }
func BudgetSuggestionsKey(userID string) string { return "budget_suggestions:" + userID }
func BudgetCategoriesKey(userID string) string  { return "budget_categories:" + userID }
func UserKey(userID string) string              { return "user:" + userID }
func UserPocketsKey(userID string) string       { return "user:" + userID + ":pockets" }
func AccountSummaryKey(userID string) string    { return "account_summary:" + userID }

// BudgetListKey renders absent filters as empty segments.
func BudgetListKey(userID string, page, limit int, category, periodType, active string) string {
	return fmt.Sprintf("budgets:%s:page:%d:limit:%d:category:%s:period_type:%s:active:%s",
		userID, page, limit, category, periodType, active)
}

func TransactionListKey(userID string, page, limit int, category, from, to, txType string) string {
	return fmt.Sprintf("transactions:%s:page:%d:limit:%d:category:%s:from:%s:to:%s:type:%s",
		userID, page, limit, category, from, to, txType)
}

func BudgetListPrefix(userID string) string      { return "budgets:" + userID + ":" }
func TransactionListPrefix(userID string) string { return "transactions:" + userID + ":" }

// AnalyticsPrefixes lists every analytics key prefix of a user, for both
// directions, including the recent-transaction lists.
func AnalyticsPrefixes(userID string) []string {
	prefixes := make([]string, 0, 2*(len(reports)+1))
	for _, dir := range []string{"expense", "income"} {
		for _, r := range reports {
			prefixes = append(prefixes, fmt.Sprintf("%s_%s:%s:", dir, r, userID))
		}
		prefixes = append(prefixes, fmt.Sprintf("recent_%s_transactions:%s:", dir, userID))
	}
	return prefixes
}
