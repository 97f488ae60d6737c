package http

import (
	"context"
	"net/http"
	"strconv"

	"pocketbook/internal/analytics"
	"pocketbook/internal/cache"
	"pocketbook/internal/core"
	"pocketbook/internal/services"
)

func budgetFilter(r *http.Request) (services.BudgetFilter, error) {
	q := r.URL.Query()
	page, err := queryInt(q, "page")
	if err != nil {
		return services.BudgetFilter{}, err
	}
	limit, err := queryInt(q, "limit")
	if err != nil {
		return services.BudgetFilter{}, err
	}
	active, err := queryBool(q, "is_active")
	if err != nil {
		return services.BudgetFilter{}, err
	}
	return services.BudgetFilter{
		Page:       page,
		Limit:      limit,
		Category:   queryString(q, "category"),
		PeriodType: queryString(q, "period_type"),
		IsActive:   active,
	}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	f, err := budgetFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	key := cache.BudgetListKey(userID.String(),
		orDefault(f.Page, 1), orDefault(f.Limit, services.DefaultBudgetLimit),
		deref(f.Category, identity), deref(f.PeriodType, identity),
		deref(f.IsActive, strconv.FormatBool))

	res, err := cache.Fetch(r.Context(), s.cache, key, cache.ListTTL,
		func(ctx context.Context) (*services.ListResult[core.Budget], error) {
			return s.svc.Budgets.List(ctx, userID, f)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), principal(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, b)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Category = sanitizeInput(in.Category)

	userID := principal(r).UserID
	b, err := s.svc.Budgets.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateBudgets(r.Context(), userID)
	created(w, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.BudgetPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	b, err := s.svc.Budgets.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateBudgets(r.Context(), userID)
	ok(w, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := principal(r).UserID
	if err := s.svc.Budgets.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateBudgets(r.Context(), userID)
	noContent(w)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	res, err := cache.Fetch(r.Context(), s.cache, cache.BudgetSummaryKey(userID.String()), cache.BudgetSummaryTTL,
		func(ctx context.Context) (*services.BudgetSummary, error) {
			return s.svc.Budgets.Summary(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleBudgetCategories(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	res, err := cache.Fetch(r.Context(), s.cache, cache.BudgetCategoriesKey(userID.String()), cache.BudgetCategoriesTTL,
		func(ctx context.Context) ([]string, error) {
			return s.svc.Budgets.Categories(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleBudgetPerformance(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	res, err := cache.Fetch(r.Context(), s.cache, cache.BudgetPerformanceKey(userID.String()), cache.BudgetPerformanceTTL,
		func(ctx context.Context) (*analytics.BudgetPerformance, error) {
			return s.analytics.BudgetPerformance(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleBudgetSuggestions(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	res, err := cache.Fetch(r.Context(), s.cache, cache.BudgetSuggestionsKey(userID.String()), cache.BudgetSuggestionsTTL,
		func(ctx context.Context) (*analytics.Suggestions, error) {
			return s.analytics.BudgetSuggestions(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}
