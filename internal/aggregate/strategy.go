// Package aggregate holds the cache-population strategies: each one turns a
// request into a combined, deduplicated event list plus metadata describing
// how complete the fan-out was.
package aggregate

import (
	"context"
	"time"

	"github.com/fixturelab/fixture-gateway/internal/upstream"
)

// Strategy is one algorithm for producing an aggregated event list.
type Strategy interface {
	Name() string
	Run(ctx context.Context) (*Result, error)
}

// Result is the outcome of one aggregation pass. Immutable once returned.
type Result struct {
	Events []upstream.Event `json:"events"`
	Meta   Meta             `json:"meta"`
}

// Meta records how the fan-out went, so partial data is never silently
// degraded: callers can see the shortfall in the counters.
type Meta struct {
	TotalFetched     int       `json:"totalFetched"`
	UniqueCount      int       `json:"uniqueCount"`
	SourcesAttempted int       `json:"sourcesAttempted"`
	SourcesSucceeded int       `json:"sourcesSucceeded"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// dedupe removes events whose identity was already seen, keeping the first
// occurrence in input order. Events without an identity are kept as-is; there
// is nothing to collide on. Single pass, map-backed.
func dedupe(events []upstream.Event) []upstream.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]upstream.Event, 0, len(events))
	for _, e := range events {
		if e.ID != "" {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}

// sleepCtx pauses for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
