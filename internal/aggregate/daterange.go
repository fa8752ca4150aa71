package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fixturelab/fixture-gateway/internal/upstream"
)

const isoDate = "2006-01-02"

// DateRange fetches events for today plus the following days concurrently and
// merges them. One date failing never fails or blocks another; the strategy
// waits for every call to settle before combining results.
type DateRange struct {
	client *upstream.Client
	days   int
	now    func() time.Time
}

// NewDateRange builds the date-range strategy covering days calendar days
// starting today.
func NewDateRange(client *upstream.Client, days int) *DateRange {
	return &DateRange{client: client, days: days, now: time.Now}
}

func (s *DateRange) Name() string { return "date-range" }

// Run fans out one call per date, then concatenates the successful slots in
// date order and dedupes by event identity, first occurrence wins. An
// all-dates-failed pass is an empty success, visible in the meta counters.
func (s *DateRange) Run(ctx context.Context) (*Result, error) {
	if s.days < 1 {
		return nil, fmt.Errorf("date range must cover at least one day, got %d", s.days)
	}

	start := s.now()
	dates := make([]string, s.days)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format(isoDate)
	}

	perDate := make([][]upstream.Event, s.days)
	succeeded := make([]bool, s.days)

	var wg sync.WaitGroup
	for i, date := range dates {
		wg.Add(1)
		go func(slot int, date string) {
			defer wg.Done()
			body, err := s.client.FetchJSON(ctx, s.client.DayEventsURL(date))
			if err != nil {
				slog.Warn("Skipping date after fetch failure", "date", date, "error", err)
				return
			}
			events, err := upstream.ParseEvents(body)
			if err != nil {
				slog.Warn("Skipping date with undecodable body", "date", date, "error", err)
				return
			}
			perDate[slot] = events
			succeeded[slot] = true
		}(i, date)
	}
	wg.Wait()

	total := 0
	merged := make([]upstream.Event, 0)
	succeededCount := 0
	for i := range perDate {
		if succeeded[i] {
			succeededCount++
			total += len(perDate[i])
			merged = append(merged, perDate[i]...)
		}
	}
	unique := dedupe(merged)

	return &Result{
		Events: unique,
		Meta: Meta{
			TotalFetched:     total,
			UniqueCount:      len(unique),
			SourcesAttempted: s.days,
			SourcesSucceeded: succeededCount,
			GeneratedAt:      time.Now().UTC(),
		},
	}, nil
}
