package upstream

import "encoding/json"

// League is one entry from the TheSportsDB league directory.
// Only the fields the gateway routes on are decoded.
type League struct {
	IDLeague  string `json:"idLeague"`
	StrLeague string `json:"strLeague"`
	StrSport  string `json:"strSport"`
}

// Event is one upstream event. The payload is opaque to the gateway and is
// passed through to clients byte-for-byte; only the idEvent identity is
// extracted, for deduplication.
type Event struct {
	ID  string
	raw json.RawMessage
}

// MarshalJSON emits the original upstream bytes unchanged.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e.raw) == 0 {
		return []byte("null"), nil
	}
	return e.raw, nil
}

// UnmarshalJSON retains the raw bytes and probes for the idEvent identity.
func (e *Event) UnmarshalJSON(data []byte) error {
	var probe struct {
		IDEvent string `json:"idEvent"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	e.ID = probe.IDEvent
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// RawEvent builds an Event from raw JSON, primarily for tests.
func RawEvent(id string, raw []byte) Event {
	return Event{ID: id, raw: append(json.RawMessage(nil), raw...)}
}

type leaguesResponse struct {
	Leagues []League `json:"leagues"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

// ParseLeagues decodes an all_leagues.php response body.
func ParseLeagues(data []byte) ([]League, error) {
	var resp leaguesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Leagues, nil
}

// ParseEvents decodes an eventsnextleague.php or eventsday.php response body.
// TheSportsDB returns {"events": null} for days with no fixtures; that decodes
// to an empty slice here, not an error.
func ParseEvents(data []byte) ([]Event, error) {
	var resp eventsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}
