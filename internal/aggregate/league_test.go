package aggregate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fixturelab/fixture-gateway/internal/cache"
	"github.com/fixturelab/fixture-gateway/internal/upstream"
)

var testSports = []string{"American Football", "Rugby Union", "Rugby League", "Australian Football"}

const testDirectory = `{"leagues":[
	{"idLeague":"1","strLeague":"NFL","strSport":"American Football"},
	{"idLeague":"2","strLeague":"EPL","strSport":"Soccer"},
	{"idLeague":"3","strLeague":"Six Nations","strSport":"Rugby Union"},
	{"idLeague":"4","strLeague":"NBA","strSport":"Basketball"},
	{"idLeague":"5","strLeague":"NHL","strSport":"Ice Hockey"}
]}`

// sportsDBStub records every request with its arrival time and serves
// canned directory and per-league bodies.
type sportsDBStub struct {
	mu       sync.Mutex
	requests []stubRequest

	directoryStatus int
	directoryBody   string
	leagueBodies    map[string]string // league id -> body
	leagueStatus    map[string]int    // league id -> status override
}

type stubRequest struct {
	path     string
	leagueID string
	at       time.Time
}

func newSportsDBStub() *sportsDBStub {
	return &sportsDBStub{
		directoryStatus: http.StatusOK,
		directoryBody:   testDirectory,
		leagueBodies:    map[string]string{},
		leagueStatus:    map[string]int{},
	}
}

func (s *sportsDBStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	leagueID := r.URL.Query().Get("id")
	s.mu.Lock()
	s.requests = append(s.requests, stubRequest{path: r.URL.Path, leagueID: leagueID, at: time.Now()})
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/k/all_leagues.php":
		if s.directoryStatus != http.StatusOK {
			http.Error(w, "upstream down", s.directoryStatus)
			return
		}
		w.Write([]byte(s.directoryBody))
	case r.URL.Path == "/k/eventsnextleague.php":
		if status, ok := s.leagueStatus[leagueID]; ok {
			http.Error(w, "upstream down", status)
			return
		}
		if body, ok := s.leagueBodies[leagueID]; ok {
			w.Write([]byte(body))
			return
		}
		w.Write([]byte(`{"events":null}`))
	default:
		http.NotFound(w, r)
	}
}

func (s *sportsDBStub) leagueCalls() []stubRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stubRequest
	for _, req := range s.requests {
		if req.path == "/k/eventsnextleague.php" {
			out = append(out, req)
		}
	}
	return out
}

func (s *sportsDBStub) directoryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if req.path == "/k/all_leagues.php" {
			n++
		}
	}
	return n
}

func newLeagueFixture(t *testing.T, stub *sportsDBStub, delay time.Duration) (*LeagueFiltered, *cache.Gateway) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := upstream.NewClient(srv.URL, "k", 2*time.Second)
	gw := cache.NewGateway(cache.NewMemoryStore(), time.Second)
	return NewLeagueFiltered(client, gw, testSports, delay, 24*time.Hour), gw
}

func TestLeagueFiltered_FetchesOnlyAllowedSports(t *testing.T) {
	stub := newSportsDBStub()
	stub.leagueBodies["1"] = `{"events":[{"idEvent":"e1"},{"idEvent":"e2"}]}`
	stub.leagueBodies["3"] = `{"events":[{"idEvent":"e3"}]}`

	strategy, _ := newLeagueFixture(t, stub, time.Millisecond)

	res, err := strategy.Run(context.Background())
	require.NoError(t, err)

	calls := stub.leagueCalls()
	require.Len(t, calls, 2, "only the 2 allow-listed leagues should be fetched")
	require.Equal(t, "1", calls[0].leagueID, "directory order must be preserved")
	require.Equal(t, "3", calls[1].leagueID)

	require.Len(t, res.Events, 3)
	require.Equal(t, "e1", res.Events[0].ID)
	require.Equal(t, "e3", res.Events[2].ID)
	require.Equal(t, 2, res.Meta.SourcesAttempted)
	require.Equal(t, 2, res.Meta.SourcesSucceeded)
	require.Equal(t, 3, res.Meta.TotalFetched)
}

func TestLeagueFiltered_EnforcesInterCallDelay(t *testing.T) {
	stub := newSportsDBStub()
	delay := 30 * time.Millisecond
	strategy, _ := newLeagueFixture(t, stub, delay)

	_, err := strategy.Run(context.Background())
	require.NoError(t, err)

	calls := stub.leagueCalls()
	require.Len(t, calls, 2)
	separation := calls[1].at.Sub(calls[0].at)
	require.GreaterOrEqual(t, separation, delay,
		"league calls must be separated by at least the configured delay")
}

func TestLeagueFiltered_SkipsFailedLeague(t *testing.T) {
	stub := newSportsDBStub()
	stub.leagueStatus["1"] = http.StatusInternalServerError
	stub.leagueBodies["3"] = `{"events":[{"idEvent":"e3"}]}`

	strategy, _ := newLeagueFixture(t, stub, time.Millisecond)

	res, err := strategy.Run(context.Background())
	require.NoError(t, err, "a single league failure must not abort the strategy")
	require.Len(t, res.Events, 1)
	require.Equal(t, 2, res.Meta.SourcesAttempted)
	require.Equal(t, 1, res.Meta.SourcesSucceeded)
}

func TestLeagueFiltered_DirectoryFailureIsFatal(t *testing.T) {
	stub := newSportsDBStub()
	stub.directoryStatus = http.StatusInternalServerError

	strategy, _ := newLeagueFixture(t, stub, time.Millisecond)

	_, err := strategy.Run(context.Background())
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	require.Empty(t, stub.leagueCalls(), "no league calls after a directory failure")
}

func TestLeagueFiltered_EmptyDirectoryIsFatal(t *testing.T) {
	stub := newSportsDBStub()
	stub.directoryBody = `{"leagues":[]}`

	strategy, _ := newLeagueFixture(t, stub, time.Millisecond)

	_, err := strategy.Run(context.Background())
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestLeagueFiltered_DirectoryServedFromCacheOnSecondRun(t *testing.T) {
	stub := newSportsDBStub()
	strategy, gw := newLeagueFixture(t, stub, time.Millisecond)

	ctx := context.Background()
	_, err := strategy.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, gw.Wait(ctx), "directory write should settle before second run")

	_, err = strategy.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stub.directoryCalls(), "second run must use the cached directory")
}

func TestLeagueFiltered_SportMatchIsCaseSensitive(t *testing.T) {
	stub := newSportsDBStub()
	stub.directoryBody = `{"leagues":[
		{"idLeague":"1","strLeague":"NFL","strSport":"american football"},
		{"idLeague":"2","strLeague":"AFL","strSport":"Australian Football"}
	]}`

	strategy, _ := newLeagueFixture(t, stub, time.Millisecond)

	_, err := strategy.Run(context.Background())
	require.NoError(t, err)

	calls := stub.leagueCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "2", calls[0].leagueID)
}
