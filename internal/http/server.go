// Package http exposes the services as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"pocketbook/internal/analytics"
	"pocketbook/internal/auth"
	"pocketbook/internal/cache"
	applog "pocketbook/internal/log"
	"pocketbook/internal/middleware/ratelimit"
	"pocketbook/internal/middleware/security"
	"pocketbook/internal/middleware/trace"
	"pocketbook/internal/services"
	"pocketbook/internal/storage"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Services  *services.Services
	Analytics *analytics.Engine
	Tokens    *auth.Tokens
	// Cache may be nil, which disables response caching.
	Cache  *cache.Gateway
	Health storage.Pinger
	Logger *slog.Logger

	CORSAllowedOrigins []string
	RateLimitPerMinute int
}

// Server wraps http.Server with the API routes and middleware chain.
type Server struct {
	http.Server

	svc       *services.Services
	analytics *analytics.Engine
	tokens    *auth.Tokens
	cache     *cache.Gateway
	health    storage.Pinger
	logger    *applog.Logger

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		svc:       deps.Services,
		analytics: deps.Analytics,
		tokens:    deps.Tokens,
		cache:     deps.Cache,
		health:    deps.Health,
		logger: applog.New(applog.Config{
			Component: applog.ComponentHTTP,
			Handler:   deps.Logger.Handler(),
		}),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			Logger:            deps.Logger,
		}),
		detector: security.NewDetector(deps.Logger),
	}
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = newCORS(deps.CORSAllowedOrigins).Handler(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			trace.HeaderRequestID,
		},
		ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After"},
		MaxAge:         600,
	})
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("GET /users/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("PATCH /users/name", s.requireAuth(s.handleUpdateName))
	mux.HandleFunc("PATCH /users/hide-balance", s.requireAuth(s.handleUpdateHideBalance))
	mux.HandleFunc("GET /users/{$}", s.requireAuth(s.handleListUsers))

	mux.HandleFunc("GET /pockets", s.requireAuth(s.handleListPockets))
	mux.HandleFunc("POST /pockets", s.requireAuth(s.handleCreatePocket))
	mux.HandleFunc("GET /pockets/{id}", s.requireAuth(s.handleGetPocket))
	mux.HandleFunc("PUT /pockets/{id}", s.requireAuth(s.handleUpdatePocket))
	mux.HandleFunc("DELETE /pockets/{id}", s.requireAuth(s.handleDeletePocket))

	mux.HandleFunc("GET /transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets/summary", s.requireAuth(s.handleBudgetSummary))
	mux.HandleFunc("GET /budgets/performance", s.requireAuth(s.handleBudgetPerformance))
	mux.HandleFunc("GET /budgets/categories", s.requireAuth(s.handleBudgetCategories))
	mux.HandleFunc("GET /budgets/suggestions", s.requireAuth(s.handleBudgetSuggestions))
	mux.HandleFunc("GET /budgets/{id}", s.requireAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /budgets/{id}", s.requireAuth(s.handleDeleteBudget))

	for _, d := range []analytics.Direction{analytics.Expenses, analytics.Income} {
		prefix := "GET /" + string(d) + "-analytics/"
		mux.HandleFunc(prefix+"summary", s.requireAuth(s.handleAnalyticsSummary(d)))
		mux.HandleFunc(prefix+"category-summary", s.requireAuth(s.handleCategorySummary(d)))
		mux.HandleFunc(prefix+"monthly-trend", s.requireAuth(s.handleTrend(d, analytics.Monthly)))
		mux.HandleFunc(prefix+"daily-trend", s.requireAuth(s.handleTrend(d, analytics.Daily)))
		mux.HandleFunc(prefix+"recent", s.requireAuth(s.handleRecent(d)))
	}

	mux.HandleFunc("GET /account-summary", s.requireAuth(s.handleAccountSummary))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
