// Package ratelimit limits requests per client IP in fixed windows.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	applog "pocketbook/internal/log"
)

const (
	window     = time.Minute
	staleAfter = 10 * time.Minute
)

// Limiter counts requests per client in fixed one-minute windows. A window
// starts with the client's first request and resets a minute later.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	now     func() time.Time
	logger  *slog.Logger

	limit     int
	rejected  atomic.Int64
	stop      chan struct{}
	stopOnce  sync.Once
	sweepEach time.Duration
}

type clientWindow struct {
	start    time.Time
	last     time.Time
	requests int
}

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often idle clients are forgotten.
	CleanupInterval time.Duration
	Logger          *slog.Logger
}

// DefaultRequestsPerMinute applies when Config leaves the limit unset.
const DefaultRequestsPerMinute = 120

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	rl := &Limiter{
		clients:   make(map[string]*clientWindow),
		now:       time.Now,
		logger:    config.Logger.With(applog.FieldComponent, applog.ComponentRateLimit),
		limit:     config.RequestsPerMinute,
		stop:      make(chan struct{}),
		sweepEach: config.CleanupInterval,
	}
	go rl.sweepLoop()
	return rl
}

// Allow records a request from clientIP and reports whether it is within the limit.
func (rl *Limiter) Allow(clientIP string) bool {
	allowed, _ := rl.allow(clientIP)
	return allowed
}

// allow also reports how long until the client's window resets.
func (rl *Limiter) allow(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[clientIP]
	if !ok || now.Sub(w.start) >= window {
		rl.clients[clientIP] = &clientWindow{start: now, last: now, requests: 1}
		return true, window
	}

	w.requests++
	w.last = now
	retryAfter := window - now.Sub(w.start)
	if w.requests > rl.limit {
		rl.rejected.Add(1)
		return false, retryAfter
	}
	return true, retryAfter
}

func (rl *Limiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweepEach)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stop:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than ten minutes.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleAfter)
	for ip, w := range rl.clients {
		if w.last.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.rejected.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects clients over the limit. onLimit writes the rejection;
// Retry-After is already set when it runs.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r)
			allowed, retryAfter := rl.allow(ip)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldPath, r.URL.Path)

			if onLimit == nil {
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
