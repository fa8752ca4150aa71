package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// CachedResponse is the serialized form of one gateway response. Replaying it
// must be byte-identical to the original, so the body is stored verbatim
// alongside the headers that shaped it.
type CachedResponse struct {
	Status       int    `json:"status"`
	ContentType  string `json:"content_type"`
	CacheControl string `json:"cache_control"`
	Body         []byte `json:"body"`
}

// Gateway wraps a Store with the response-cache semantics the dispatcher
// needs: typed lookup, and writes that run off the reply path but are still
// tracked so shutdown can drain them.
type Gateway struct {
	store        Store
	writeTimeout time.Duration
	wg           sync.WaitGroup
}

// NewGateway wraps store. writeTimeout bounds each background write.
func NewGateway(store Store, writeTimeout time.Duration) *Gateway {
	return &Gateway{store: store, writeTimeout: writeTimeout}
}

// Lookup returns the cached response for key, if a fresh one exists. Store
// errors are logged and treated as misses; a broken cache degrades the
// gateway to a plain proxy rather than breaking it.
func (g *Gateway) Lookup(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, ok := g.GetBytes(ctx, key)
	if !ok {
		return nil, false
	}

	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

// StoreAsync schedules a background write of resp under key. It returns
// immediately; the write is tracked and drained by Wait.
func (g *Gateway) StoreAsync(key string, resp *CachedResponse, ttl time.Duration) {
	raw, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to encode response for cache", "key", key, "error", err)
		return
	}
	g.SetBytesAsync(key, raw, ttl)
}

// GetBytes reads a raw value, treating store errors as misses.
func (g *Gateway) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}
	return raw, ok
}

// SetBytes writes a raw value synchronously.
func (g *Gateway) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := g.store.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

// SetBytesAsync writes a raw value in a tracked background goroutine.
func (g *Gateway) SetBytesAsync(key string, value []byte, ttl time.Duration) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.writeTimeout)
		defer cancel()
		g.SetBytes(ctx, key, value, ttl)
	}()
}

// Wait blocks until all in-flight background writes have settled, or the
// context expires. Called during shutdown so the process is not torn down
// with writes still pending.
func (g *Gateway) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping reports backing-store health.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}
