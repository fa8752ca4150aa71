// Package gateway is the HTTP face of the proxy: it resolves each request to
// one population path, serves fresh cache entries, and assembles responses.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/fixturelab/fixture-gateway/internal/aggregate"
	"github.com/fixturelab/fixture-gateway/internal/cache"
	"github.com/fixturelab/fixture-gateway/internal/httperr"
	"github.com/fixturelab/fixture-gateway/internal/upstream"
)

const (
	// ModeDateRange serves GET / from the concurrent date-range aggregator.
	ModeDateRange = "daterange"
	// ModeLeagues is the deployment variant that always runs the
	// league-filtered aggregator.
	ModeLeagues = "leagues"

	contentTypeJSON = "application/json; charset=utf-8"
	isoDate         = "2006-01-02"
)

// Options carries the dispatcher's tunables, resolved once at construction.
// No process-wide mutable state.
type Options struct {
	Mode           string
	DefaultDays    int
	MaxVarietyDays int
	Sports         []string
	RateLimitDelay time.Duration

	DirectoryTTL time.Duration
	SingleDayTTL time.Duration
	DateRangeTTL time.Duration
	LeagueTTL    time.Duration
}

// Dispatcher routes each incoming request through cache check, strategy
// selection, aggregation, assembly, and background caching.
type Dispatcher struct {
	client   *upstream.Client
	cache    *cache.Gateway
	opts     Options
	populate singleflight.Group
}

// NewDispatcher builds the dispatcher from its collaborators.
func NewDispatcher(client *upstream.Client, cacheGW *cache.Gateway, opts Options) *Dispatcher {
	return &Dispatcher{client: client, cache: cacheGW, opts: opts}
}

// RegisterRoutes mounts the single proxied route.
func (d *Dispatcher) RegisterRoutes(r *gin.Engine) {
	r.GET("/", d.Handle)
	r.HEAD("/", d.Handle)
	r.OPTIONS("/", d.Preflight)
}

// Handle serves GET and HEAD: cache check first, then a singleflight-deduped
// population pass on miss.
func (d *Dispatcher) Handle(c *gin.Context) {
	key := cache.NormalizeKey(c.Request.URL)

	if cached, ok := d.cache.Lookup(c.Request.Context(), key); ok {
		slog.Debug("Cache hit", "key", key)
		d.respond(c, cached)
		return
	}

	slog.Debug("Cache miss", "key", key)

	// Concurrent misses for the same normalized identity share one
	// aggregation pass and therefore one upstream fan-out.
	result, err, _ := d.populate.Do(key, func() (interface{}, error) {
		// The pass runs to completion even if the requester goes away;
		// its output is cached for everyone who asks next.
		resp, ttl, err := d.build(context.Background(), c.Request.URL)
		if err != nil {
			return nil, err
		}
		d.cache.StoreAsync(key, resp, ttl)
		return resp, nil
	})
	if err != nil {
		d.fail(c, err)
		return
	}

	d.respond(c, result.(*cache.CachedResponse))
}

// Preflight implements the OPTIONS contract: a real CORS preflight (all three
// request headers present) gets CORS headers only, anything else gets Allow.
func (d *Dispatcher) Preflight(c *gin.Context) {
	h := c.Request.Header
	if h.Get("Origin") != "" &&
		h.Get("Access-Control-Request-Method") != "" &&
		h.Get("Access-Control-Request-Headers") != "" {
		setCORS(c)
		c.Status(http.StatusOK)
		return
	}

	c.Header("Allow", "GET, HEAD, OPTIONS")
	c.Status(http.StatusOK)
}

// build resolves which population path a request takes and runs it. Exactly
// one path executes per request.
func (d *Dispatcher) build(ctx context.Context, reqURL *url.URL) (*cache.CachedResponse, time.Duration, error) {
	if d.opts.Mode == ModeLeagues {
		return d.buildLeagues(ctx)
	}

	query := reqURL.Query()
	if day := query.Get("day"); day != "" {
		if _, err := time.Parse(isoDate, day); err == nil {
			return d.buildSingleDay(ctx, day)
		}
		// Invalid day values fall back to the no-day path rather than
		// erroring.
		slog.Warn("Ignoring malformed day parameter", "day", day)
	}

	days := d.opts.DefaultDays
	if query.Get("variety") == "max" {
		days = d.opts.MaxVarietyDays
	}
	return d.buildDateRange(ctx, days)
}

// buildSingleDay proxies one upstream call, passing the payload through
// verbatim.
func (d *Dispatcher) buildSingleDay(ctx context.Context, day string) (*cache.CachedResponse, time.Duration, error) {
	body, err := d.client.FetchJSON(ctx, d.client.DayEventsURL(day))
	if err != nil {
		return nil, 0, fmt.Errorf("single-day fetch failed: %w", err)
	}
	return &cache.CachedResponse{
		Status:       http.StatusOK,
		ContentType:  contentTypeJSON,
		CacheControl: fmt.Sprintf("public, max-age=%d", int(d.opts.SingleDayTTL.Seconds())),
		Body:         body,
	}, d.opts.SingleDayTTL, nil
}

func (d *Dispatcher) buildDateRange(ctx context.Context, days int) (*cache.CachedResponse, time.Duration, error) {
	strategy := aggregate.NewDateRange(d.client, days)
	return d.runStrategy(ctx, strategy,
		fmt.Sprintf("public, max-age=%d", int(d.opts.DateRangeTTL.Seconds())),
		d.opts.DateRangeTTL)
}

func (d *Dispatcher) buildLeagues(ctx context.Context) (*cache.CachedResponse, time.Duration, error) {
	strategy := aggregate.NewLeagueFiltered(
		d.client, d.cache, d.opts.Sports, d.opts.RateLimitDelay, d.opts.DirectoryTTL)
	return d.runStrategy(ctx, strategy,
		fmt.Sprintf("public, s-maxage=%d", int(d.opts.LeagueTTL.Seconds())),
		d.opts.LeagueTTL)
}

func (d *Dispatcher) runStrategy(ctx context.Context, strategy aggregate.Strategy, cacheControl string, ttl time.Duration) (*cache.CachedResponse, time.Duration, error) {
	started := time.Now()
	result, err := strategy.Run(ctx)
	if err != nil {
		return nil, 0, err
	}

	slog.Info("Aggregation pass complete",
		"strategy", strategy.Name(),
		"events", len(result.Events),
		"sources_attempted", result.Meta.SourcesAttempted,
		"sources_succeeded", result.Meta.SourcesSucceeded,
		"duration", time.Since(started))

	body, err := json.Marshal(result)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode aggregation result: %w", err)
	}

	return &cache.CachedResponse{
		Status:       http.StatusOK,
		ContentType:  contentTypeJSON,
		CacheControl: cacheControl,
		Body:         body,
	}, ttl, nil
}

// respond replays a response, cached or fresh. HEAD gets headers only.
func (d *Dispatcher) respond(c *gin.Context, resp *cache.CachedResponse) {
	setCORS(c)
	if resp.CacheControl != "" {
		c.Header("Cache-Control", resp.CacheControl)
	}

	if c.Request.Method == http.MethodHead {
		c.Header("Content-Type", resp.ContentType)
		c.Status(resp.Status)
		return
	}
	c.Data(resp.Status, resp.ContentType, resp.Body)
}

// fail terminates the request with the JSON error shape. Failures are never
// cached.
func (d *Dispatcher) fail(c *gin.Context, err error) {
	slog.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	setCORS(c)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{Error: err.Error()})
}

func setCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}
