package http

import (
	"context"

	"github.com/google/uuid"

	"pocketbook/internal/cache"
)

// A transaction moves balances, lists, analytics and budget spending.
func (s *Server) invalidateTransactions(ctx context.Context, userID uuid.UUID) {
	id := userID.String()
	s.cache.Delete(ctx,
		cache.UserKey(id),
		cache.UserPocketsKey(id),
		cache.AccountSummaryKey(id),
		cache.BudgetPerformanceKey(id),
		cache.BudgetSuggestionsKey(id),
	)
	s.cache.DeletePrefix(ctx, append(cache.AnalyticsPrefixes(id), cache.TransactionListPrefix(id))...)
}

func (s *Server) invalidatePockets(ctx context.Context, userID uuid.UUID) {
	id := userID.String()
	s.cache.Delete(ctx, cache.UserPocketsKey(id), cache.AccountSummaryKey(id))
}

func (s *Server) invalidateBudgets(ctx context.Context, userID uuid.UUID) {
	id := userID.String()
	s.cache.Delete(ctx,
		cache.BudgetSummaryKey(id),
		cache.BudgetPerformanceKey(id),
		cache.BudgetSuggestionsKey(id),
		cache.BudgetCategoriesKey(id),
	)
	s.cache.DeletePrefix(ctx, cache.BudgetListPrefix(id))
}

func (s *Server) invalidateUser(ctx context.Context, userID uuid.UUID) {
	s.cache.Delete(ctx, cache.UserKey(userID.String()))
}
