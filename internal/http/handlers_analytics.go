package http

import (
	"context"
	"net/http"

	"pocketbook/internal/analytics"
	"pocketbook/internal/cache"
)

// dateRange returns the query dates untouched; they are validated strictly
// and echoed back verbatim.
func dateRange(r *http.Request) (from, to string) {
	q := r.URL.Query()
	return q.Get("from_date"), q.Get("to_date")
}

func (s *Server) handleAnalyticsSummary(d analytics.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := principal(r).UserID
		from, to := dateRange(r)
		key := cache.AnalyticsKey(d.String(), cache.ReportSummary, userID.String(), from, to)

		res, err := cache.Fetch(r.Context(), s.cache, key, cache.AnalyticsTTL,
			func(ctx context.Context) (*analytics.Summary, error) {
				return s.analytics.Summary(ctx, userID, d, from, to)
			})
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, res)
	}
}

func (s *Server) handleCategorySummary(d analytics.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := principal(r).UserID
		from, to := dateRange(r)
		key := cache.AnalyticsKey(d.String(), cache.ReportCategorySummary, userID.String(), from, to)

		res, err := cache.Fetch(r.Context(), s.cache, key, cache.AnalyticsTTL,
			func(ctx context.Context) (*analytics.CategorySummary, error) {
				return s.analytics.CategorySummary(ctx, userID, d, from, to)
			})
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, res)
	}
}

func (s *Server) handleTrend(d analytics.Direction, g analytics.Granularity) http.HandlerFunc {
	report := cache.ReportMonthlyTrend
	if g == analytics.Daily {
		report = cache.ReportDailyTrend
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID := principal(r).UserID
		from, to := dateRange(r)
		key := cache.AnalyticsKey(d.String(), report, userID.String(), from, to)

		res, err := cache.Fetch(r.Context(), s.cache, key, cache.AnalyticsTTL,
			func(ctx context.Context) (*analytics.Trend, error) {
				return s.analytics.Trend(ctx, userID, d, g, from, to)
			})
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, res)
	}
}

func (s *Server) handleRecent(d analytics.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r.URL.Query(), "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}

		userID := principal(r).UserID
		key := cache.RecentKey(d.String(), userID.String(), orDefault(limit, analytics.DefaultRecentLimit))
		res, err := cache.Fetch(r.Context(), s.cache, key, cache.RecentTTL,
			func(ctx context.Context) (*analytics.Recent, error) {
				return s.analytics.Recent(ctx, userID, d, limit)
			})
		if err != nil {
			writeError(w, r, err)
			return
		}
		ok(w, res)
	}
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	res, err := cache.Fetch(r.Context(), s.cache, cache.AccountSummaryKey(userID.String()), cache.AccountSummaryTTL,
		func(ctx context.Context) (*analytics.AccountSummary, error) {
			return s.analytics.AccountSummary(ctx, userID)
		})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}
