package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketbook/internal/analytics"
	"pocketbook/internal/auth"
	"pocketbook/internal/cache"
	"pocketbook/internal/services"
	"pocketbook/internal/storage/memory"
)

type testAPI struct {
	t   *testing.T
	srv *Server
}

func newTestAPI(t *testing.T, rateLimit int) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := memory.New().Repositories()
	tokens := auth.NewTokens("test-secret", time.Hour)

	srv := NewServer(":0", Deps{
		Services:           services.New(repos, tokens, nil, logger),
		Analytics:          analytics.NewEngine(repos.Transactions, repos.Budgets, repos.Pockets, logger),
		Tokens:             tokens,
		Cache:              cache.NewGateway(cache.NewMemoryStore(1000), logger),
		Health:             repos.Health,
		Logger:             logger,
		RateLimitPerMinute: rateLimit,
	})
	t.Cleanup(srv.limiter.Stop)
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.10:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// data decodes the envelope of a successful response into dst.
func data(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Test User", "email": email, "password": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	data(a.t, rec, &res)
	require.NotEmpty(a.t, res.Token)
	return res.Token
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, 1000)

	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_"))
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t, 1000)
	rec := api.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorMessage(t, rec))
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, 1000)
	token := api.register("ada@example.com")

	rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Other", "email": "ada@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already exists", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Email       string `json:"email"`
		HideBalance bool   `json:"hide_balance"`
	}
	data(t, rec, &me)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	// A cached profile is refreshed after an update.
	rec = api.do(http.MethodPatch, "/users/hide-balance", token, map[string]bool{"hide_balance": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/users/me", token, nil)
	data(t, rec, &me)
	assert.True(t, me.HideBalance)

	rec = api.do(http.MethodPatch, "/users/name", token, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/users/", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	api := newTestAPI(t, 1000)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "missing", header: "", want: "Missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", want: "Invalid authorization header format"},
		{name: "bad token", header: "Bearer not-a-jwt", want: "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/pockets", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			api.srv.Handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}
}

type pocketJSON struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

func TestTransactionsMovePocketBalanceThroughCache(t *testing.T) {
	api := newTestAPI(t, 1000)
	token := api.register("bob@example.com")

	rec := api.do(http.MethodPost, "/pockets", token, map[string]string{"name": "Wallet", "emoji": "👛"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pocket pocketJSON
	data(t, rec, &pocket)

	// Prime the pockets cache.
	rec = api.do(http.MethodGet, "/pockets", token, nil)
	var pockets []pocketJSON
	data(t, rec, &pockets)
	require.Len(t, pockets, 1)
	assert.True(t, pockets[0].Balance.IsZero())

	rec = api.do(http.MethodPost, "/transactions", token, map[string]any{
		"account_id":       pocket.ID,
		"description":      "Salary",
		"amount":           "100.00",
		"category":         "Work",
		"transaction_type": "income",
		"transaction_date": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx struct {
		ID int64 `json:"id"`
	}
	data(t, rec, &tx)

	rec = api.do(http.MethodGet, "/pockets", token, nil)
	data(t, rec, &pockets)
	assert.True(t, pockets[0].Balance.Equal(decimal.NewFromInt(100)), "balance = %s", pockets[0].Balance)

	rec = api.do(http.MethodGet, "/account-summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalBalance decimal.Decimal `json:"total_balance"`
		TotalIncome  decimal.Decimal `json:"total_income"`
	}
	data(t, rec, &summary)
	assert.True(t, summary.TotalBalance.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(100)))

	rec = api.do(http.MethodDelete, "/transactions/"+itoa(tx.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = api.do(http.MethodGet, "/pockets", token, nil)
	data(t, rec, &pockets)
	assert.True(t, pockets[0].Balance.IsZero(), "balance = %s", pockets[0].Balance)

	rec = api.do(http.MethodGet, "/account-summary", token, nil)
	data(t, rec, &summary)
	assert.True(t, summary.TotalBalance.IsZero())
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestTransactionValidationAndListing(t *testing.T) {
	api := newTestAPI(t, 1000)
	token := api.register("cy@example.com")

	rec := api.do(http.MethodPost, "/transactions", token, map[string]any{
		"description":      "Lunch",
		"amount":           "abc",
		"category":         "Food",
		"transaction_type": "expense",
		"transaction_date": "2024-03-02",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid amount format", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/transactions", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is required", errorMessage(t, rec))

	for i, day := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		rec = api.do(http.MethodPost, "/transactions", token, map[string]any{
			"description":      "Coffee",
			"amount":           "3.50",
			"category":         "Food",
			"transaction_type": "expense",
			"transaction_date": day,
		})
		require.Equal(t, http.StatusCreated, rec.Code, "transaction %d: %s", i, rec.Body.String())
	}

	rec = api.do(http.MethodGet, "/transactions?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []struct {
			TransactionDate string `json:"transaction_date"`
		} `json:"data"`
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalItems int64 `json:"total_items"`
	}
	data(t, rec, &list)
	assert.Len(t, list.Data, 2)
	assert.Equal(t, int64(3), list.TotalItems)
	assert.Equal(t, "2024-03-03", list.Data[0].TransactionDate)

	rec = api.do(http.MethodGet, "/transactions?page=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/transactions?from_date=03-01-2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid from_date format. Use YYYY-MM-DD", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/transactions/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/transactions/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Analytics over the same data.
	rec = api.do(http.MethodGet, "/expense-analytics/summary?from_date=2024-03-01&to_date=2024-03-31", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum struct {
		TotalExpenses     decimal.Decimal `json:"total_expenses"`
		TotalTransactions int64           `json:"total_transactions"`
	}
	data(t, rec, &sum)
	assert.True(t, sum.TotalExpenses.Equal(decimal.RequireFromString("10.5")), "total = %s", sum.TotalExpenses)
	assert.Equal(t, int64(3), sum.TotalTransactions)

	rec = api.do(http.MethodGet, "/expense-analytics/summary?from_date=bad&to_date=2024-03-31", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/income-analytics/recent", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recent struct {
		Count int64 `json:"count"`
		Limit int   `json:"limit"`
	}
	data(t, rec, &recent)
	assert.Equal(t, int64(0), recent.Count)
	assert.Equal(t, 10, recent.Limit)

	rec = api.do(http.MethodGet, "/expense-analytics/recent?limit=51", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Limit must be between 1 and 50", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/expense-analytics/daily-trend?from_date=2024-03-01&to_date=2024-03-31", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trend struct {
		Trends []struct {
			Period string `json:"period"`
		} `json:"trends"`
	}
	data(t, rec, &trend)
	assert.Len(t, trend.Trends, 3)
}

func TestAnalyticsDateParameters(t *testing.T) {
	api := newTestAPI(t, 1000)
	token := api.register("dates@example.com")

	rec := api.do(http.MethodGet, "/expense-analytics/summary?from_date=%202024-01-01&to_date=2024-01-31", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid from_date format. Use YYYY-MM-DD", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/expense-analytics/category-summary?from_date=2024-01-01&to_date=2024-01-31%0A", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid to_date format. Use YYYY-MM-DD", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/expense-analytics/summary?from_date=2024-02-01&to_date=2024-01-01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum struct {
		TotalExpenses     decimal.Decimal `json:"total_expenses"`
		TotalTransactions int64           `json:"total_transactions"`
		AveragePerDay     decimal.Decimal `json:"average_per_day"`
		FromDate          string          `json:"from_date"`
		ToDate            string          `json:"to_date"`
	}
	data(t, rec, &sum)
	assert.True(t, sum.TotalExpenses.IsZero())
	assert.Equal(t, int64(0), sum.TotalTransactions)
	assert.True(t, sum.AveragePerDay.IsZero())
	assert.Equal(t, "2024-02-01", sum.FromDate)
	assert.Equal(t, "2024-01-01", sum.ToDate)
}

func TestPocketOwnership(t *testing.T) {
	api := newTestAPI(t, 1000)
	owner := api.register("owner@example.com")
	other := api.register("other@example.com")

	rec := api.do(http.MethodPost, "/pockets", owner, map[string]string{"name": "Savings", "emoji": "💰"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var pocket pocketJSON
	data(t, rec, &pocket)

	rec = api.do(http.MethodGet, "/pockets/"+pocket.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", errorMessage(t, rec))

	rec = api.do(http.MethodDelete, "/pockets/"+pocket.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/pockets/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/pockets/"+pocket.ID, owner, map[string]string{"name": "Rainy day"})
	require.Equal(t, http.StatusOK, rec.Code)
	data(t, rec, &pocket)
	assert.Equal(t, "Rainy day", pocket.Name)

	rec = api.do(http.MethodDelete, "/pockets/"+pocket.ID, owner, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBudgets(t *testing.T) {
	api := newTestAPI(t, 1000)
	token := api.register("dee@example.com")

	budget := map[string]any{
		"category":      "Food",
		"target_amount": "300",
		"period_type":   "monthly",
		"period_start":  "2024-03-01",
		"period_end":    "2024-03-31",
	}
	rec := api.do(http.MethodPost, "/budgets", token, budget)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	data(t, rec, &created)

	// Prime the summary cache before the conflicting insert.
	rec = api.do(http.MethodGet, "/budgets/summary", token, nil)
	var summary struct {
		TotalBudgets int64    `json:"total_budgets"`
		Categories   []string `json:"categories"`
	}
	data(t, rec, &summary)
	assert.Equal(t, int64(1), summary.TotalBudgets)

	rec = api.do(http.MethodPost, "/budgets", token, budget)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "An active budget already exists for this category in the specified period", errorMessage(t, rec))

	budget["category"] = "Rent"
	budget["period_end"] = "2024-02-01"
	rec = api.do(http.MethodPost, "/budgets", token, budget)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	budget["period_end"] = "2024-03-31"
	rec = api.do(http.MethodPost, "/budgets", token, budget)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/budgets/summary", token, nil)
	data(t, rec, &summary)
	assert.Equal(t, int64(2), summary.TotalBudgets)
	assert.Equal(t, []string{"Food", "Rent"}, summary.Categories)

	rec = api.do(http.MethodGet, "/budgets?is_active=true&limit=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data       []map[string]any `json:"data"`
		TotalItems int64            `json:"total_items"`
	}
	data(t, rec, &list)
	assert.Len(t, list.Data, 1)
	assert.Equal(t, int64(2), list.TotalItems)

	rec = api.do(http.MethodGet, "/budgets?is_active=maybe", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/budgets/performance", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/budgets/suggestions", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/budgets/categories", token, nil)
	var categories []string
	data(t, rec, &categories)
	assert.Equal(t, []string{"Food", "Rent"}, categories)

	rec = api.do(http.MethodDelete, "/budgets/"+itoa(created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/budgets/categories", token, nil)
	data(t, rec, &categories)
	assert.Equal(t, []string{"Rent"}, categories)
}

func TestRateLimitReturnsJSON(t *testing.T) {
	api := newTestAPI(t, 2)

	for i := 0; i < 2; i++ {
		rec := api.do(http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", errorMessage(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, 1000)

	req := httptest.NewRequest(http.MethodOptions, "/transactions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	api.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
