package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fixturelab/fixture-gateway/internal/cache"
	"github.com/fixturelab/fixture-gateway/internal/upstream"
)

// ErrDirectoryUnavailable means the league directory could not be obtained at
// all. Unlike individual league failures this aborts the whole strategy.
var ErrDirectoryUnavailable = errors.New("league directory unavailable")

// LeagueFiltered fetches the full league directory, keeps only leagues whose
// sport is on the allow-list, then fetches each league's upcoming fixtures
// sequentially with a fixed pause between calls. The pause is a rate-limit
// contract with the upstream, so the per-league calls are never concurrent.
type LeagueFiltered struct {
	client       *upstream.Client
	gateway      *cache.Gateway
	sports       map[string]struct{}
	delay        time.Duration
	directoryTTL time.Duration
}

// NewLeagueFiltered builds the league-filtered strategy. Sport matching is
// exact and case-sensitive against the given allow-list.
func NewLeagueFiltered(
	client *upstream.Client,
	gateway *cache.Gateway,
	sports []string,
	delay time.Duration,
	directoryTTL time.Duration,
) *LeagueFiltered {
	allowed := make(map[string]struct{}, len(sports))
	for _, s := range sports {
		allowed[s] = struct{}{}
	}
	return &LeagueFiltered{
		client:       client,
		gateway:      gateway,
		sports:       allowed,
		delay:        delay,
		directoryTTL: directoryTTL,
	}
}

func (s *LeagueFiltered) Name() string { return "league-filtered" }

// Run executes one aggregation pass. League-scoped event sets are assumed
// disjoint, so the output is concatenated in directory order without a
// dedup pass.
func (s *LeagueFiltered) Run(ctx context.Context) (*Result, error) {
	leagues, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]upstream.League, 0, len(leagues))
	for _, l := range leagues {
		if _, ok := s.sports[l.StrSport]; ok {
			filtered = append(filtered, l)
		}
	}

	events := make([]upstream.Event, 0)
	succeeded := 0
	for _, league := range filtered {
		leagueEvents, err := s.fetchLeague(ctx, league)
		if err != nil {
			slog.Warn("Skipping league after fetch failure",
				"league_id", league.IDLeague,
				"league", league.StrLeague,
				"error", err)
		} else {
			events = append(events, leagueEvents...)
			succeeded++
		}

		// Mandatory pause after every call, success or failure.
		if err := sleepCtx(ctx, s.delay); err != nil {
			return nil, err
		}
	}

	return &Result{
		Events: events,
		Meta: Meta{
			TotalFetched:     len(events),
			UniqueCount:      len(events),
			SourcesAttempted: len(filtered),
			SourcesSucceeded: succeeded,
			GeneratedAt:      time.Now().UTC(),
		},
	}, nil
}

// directory resolves the league directory through the cache: a hit is parsed
// directly, a miss goes upstream and the raw body is cached for the long
// directory TTL. An unobtainable or empty directory is fatal.
func (s *LeagueFiltered) directory(ctx context.Context) ([]upstream.League, error) {
	dirURL := s.client.AllLeaguesURL()
	key := cache.UpstreamKey(dirURL)

	body, ok := s.gateway.GetBytes(ctx, key)
	if !ok {
		var err error
		body, err = s.client.FetchJSON(ctx, dirURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		}
		s.gateway.SetBytesAsync(key, body, s.directoryTTL)
	}

	leagues, err := upstream.ParseLeagues(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if len(leagues) == 0 {
		return nil, fmt.Errorf("%w: directory is empty", ErrDirectoryUnavailable)
	}
	return leagues, nil
}

func (s *LeagueFiltered) fetchLeague(ctx context.Context, league upstream.League) ([]upstream.Event, error) {
	body, err := s.client.FetchJSON(ctx, s.client.LeagueEventsURL(league.IDLeague))
	if err != nil {
		return nil, err
	}
	return upstream.ParseEvents(body)
}
