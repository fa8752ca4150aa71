package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_FetchJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"events":[{"idEvent":"123"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2*time.Second)
	body, err := c.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	require.JSONEq(t, `{"events":[{"idEvent":"123"}]}`, string(body))
}

func TestClient_FetchJSON_Non2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2*time.Second)
	_, err := c.FetchJSON(context.Background(), srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	require.Equal(t, srv.URL, fe.URL)
}

func TestClient_FetchJSON_TransportErrorIsFetchError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "k", 200*time.Millisecond)
	_, err := c.FetchJSON(context.Background(), "http://127.0.0.1:1/nope")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Zero(t, fe.StatusCode)
	require.Error(t, fe.Err)
}

func TestClient_FetchJSON_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "k", 5*time.Second)
	_, err := c.FetchJSON(ctx, srv.URL)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Error(t, fe.Err)
}

func TestClient_EndpointURLs(t *testing.T) {
	c := NewClient("https://www.thesportsdb.com/api/v1/json", "3", time.Second)

	require.Equal(t,
		"https://www.thesportsdb.com/api/v1/json/3/all_leagues.php",
		c.AllLeaguesURL())
	require.Equal(t,
		"https://www.thesportsdb.com/api/v1/json/3/eventsnextleague.php?id=4391",
		c.LeagueEventsURL("4391"))
	require.Equal(t,
		"https://www.thesportsdb.com/api/v1/json/3/eventsday.php?d=2024-05-01",
		c.DayEventsURL("2024-05-01"))
}

func TestParseEvents_PreservesRawBytes(t *testing.T) {
	body := []byte(`{"events":[{"idEvent":"42","strEvent":"A vs B","intRound":"3"}]}`)

	events, err := ParseEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "42", events[0].ID)

	out, err := json.Marshal(events[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"idEvent":"42","strEvent":"A vs B","intRound":"3"}`, string(out))
}

func TestParseEvents_NullEventsIsEmpty(t *testing.T) {
	events, err := ParseEvents([]byte(`{"events":null}`))
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestParseLeagues(t *testing.T) {
	body := []byte(`{"leagues":[
		{"idLeague":"4391","strLeague":"NFL","strSport":"American Football"},
		{"idLeague":"4328","strLeague":"English Premier League","strSport":"Soccer"}
	]}`)

	leagues, err := ParseLeagues(body)
	require.NoError(t, err)
	require.Len(t, leagues, 2)
	require.Equal(t, "4391", leagues[0].IDLeague)
	require.Equal(t, "American Football", leagues[0].StrSport)
}
