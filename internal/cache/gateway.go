package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	applog "pocketbook/internal/log"
)

// Gateway layers JSON encoding and failure isolation over a Store. Store
// errors are logged and treated as a miss or a no-op. A nil *Gateway is a
// disabled cache.
type Gateway struct {
	store  Store
	logger *slog.Logger
	group  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports lookups since start.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

func NewGateway(store Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{store: store, logger: logger.With(applog.FieldComponent, applog.ComponentCache)}
}

// GetJSON decodes the cached value for key into dst and reports a hit.
func (g *Gateway) GetJSON(ctx context.Context, key string, dst any) bool {
	if g == nil {
		return false
	}
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.logger.WarnContext(ctx, "Cache read failed", applog.FieldCacheKey, key, applog.FieldError, err)
		g.misses.Add(1)
		return false
	}
	if !ok {
		g.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		g.logger.WarnContext(ctx, "Dropping undecodable cache entry", applog.FieldCacheKey, key, applog.FieldError, err)
		_ = g.store.Delete(ctx, key)
		g.misses.Add(1)
		return false
	}
	g.hits.Add(1)
	return true
}

// SetJSON stores v under key for ttl.
func (g *Gateway) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if g == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		g.logger.WarnContext(ctx, "Cache encode failed", applog.FieldCacheKey, key, applog.FieldError, err)
		return
	}
	if err := g.store.Set(ctx, key, raw, ttl); err != nil {
		g.logger.WarnContext(ctx, "Cache write failed", applog.FieldCacheKey, key, applog.FieldError, err)
	}
}

// Delete removes exact keys.
func (g *Gateway) Delete(ctx context.Context, keys ...string) {
	if g == nil || len(keys) == 0 {
		return
	}
	if err := g.store.Delete(ctx, keys...); err != nil {
		g.logger.WarnContext(ctx, "Cache delete failed", "keys", keys, applog.FieldError, err)
	}
}

// DeletePrefix removes every key under each prefix.
func (g *Gateway) DeletePrefix(ctx context.Context, prefixes ...string) {
	if g == nil {
		return
	}
	for _, p := range prefixes {
		n, err := g.store.DeletePrefix(ctx, p)
		if err != nil {
			g.logger.WarnContext(ctx, "Cache prefix delete failed", "prefix", p, applog.FieldError, err)
			continue
		}
		g.logger.DebugContext(ctx, "Cache prefix invalidated", "prefix", p, "removed", n)
	}
}

func (g *Gateway) Stats() Stats {
	if g == nil {
		return Stats{}
	}
	return Stats{Hits: g.hits.Load(), Misses: g.misses.Load()}
}

// Fetch returns the cached value for key or computes it with load, caching
// the result for ttl. Concurrent misses on one key share a single load.
func Fetch[T any](ctx context.Context, g *Gateway, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if g.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	if g == nil {
		return load(ctx)
	}

	// The load is shared by every waiter on key, so it must outlive the
	// request that happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := g.group.Do(key, func() (any, error) {
		res, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		g.SetJSON(loadCtx, key, res, ttl)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
