package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
	"github.com/gaplehq/gaple-server/game/session"
	"github.com/gaplehq/gaple-server/stats"
)

// fixedVariants is a service.VariantManager with built-in rules only.
type fixedVariants struct{}

func (fixedVariants) LoadRules(name string) (*engine.Rules, error) {
	switch name {
	case "classic":
		return engine.DefaultRules(), nil
	case "cangkulan":
		r := engine.DefaultRules()
		r.Name = "cangkulan"
		r.DrawPolicy = engine.DrawSingle
		return r, nil
	}
	return nil, service.ErrVariantNotFound
}

func (fixedVariants) ListRules() ([]*service.VariantInfo, error) {
	return []*service.VariantInfo{
		{VariantID: "classic", Name: "classic"},
		{VariantID: "cangkulan", Name: "cangkulan"},
	}, nil
}

func (fixedVariants) GetDefault() *engine.Rules { return engine.DefaultRules() }

func (fixedVariants) SaveRules(name string, rules *engine.Rules) error { return nil }

func newTestServer() *Server {
	svc := service.NewGameServiceWithRand(
		session.NewManager(),
		fixedVariants{},
		stats.NoopRecorder{},
		zerolog.Nop(),
		rand.New(rand.NewSource(42)),
	)
	return NewServer(svc, nil, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, w.Body.String())
	}
}

// createTable creates a table and seats the given players.
func createTable(t *testing.T, s *Server, players ...string) string {
	t.Helper()
	w := doJSON(t, s, "POST", "/api/sessions", map[string]string{"creator_id": players[0]})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create session returned %d: %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	decodeBody(t, w, &info)

	for _, p := range players {
		w := doJSON(t, s, "POST", "/api/sessions/"+info.ID+"/join",
			map[string]string{"player_id": p, "name": "Player " + p})
		if w.Code != http.StatusOK {
			t.Fatalf("Join %s returned %d: %s", p, w.Code, w.Body.String())
		}
	}
	return info.ID
}

func TestCreateSessionEndpoint(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, "POST", "/api/sessions", map[string]string{"creator_id": "alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var info service.SessionInfo
	decodeBody(t, w, &info)
	if info.ID == "" {
		t.Error("Expected a session ID")
	}
	if info.Snapshot.Status != engine.StatusLobby {
		t.Errorf("Status = %s, want lobby", info.Snapshot.Status)
	}
}

func TestCreateSessionRequiresCreator(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, "POST", "/api/sessions", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestCreateSessionUnknownVariant(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, "POST", "/api/sessions",
		map[string]string{"creator_id": "alice", "variant": "nope"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJoinConflicts(t *testing.T) {
	s := newTestServer()
	id := createTable(t, s, "alice", "bob")

	// Duplicate join
	w := doJSON(t, s, "POST", "/api/sessions/"+id+"/join",
		map[string]string{"player_id": "alice", "name": "Alice"})
	if w.Code != http.StatusConflict {
		t.Errorf("Duplicate join: expected 409, got %d", w.Code)
	}

	// Lobby full after 4 seats
	for _, p := range []string{"carol", "dave"} {
		doJSON(t, s, "POST", "/api/sessions/"+id+"/join",
			map[string]string{"player_id": p, "name": p})
	}
	w = doJSON(t, s, "POST", "/api/sessions/"+id+"/join",
		map[string]string{"player_id": "eve", "name": "Eve"})
	if w.Code != http.StatusConflict {
		t.Errorf("Full lobby: expected 409, got %d", w.Code)
	}
}

func TestStartPermissions(t *testing.T) {
	s := newTestServer()
	id := createTable(t, s, "alice", "bob")

	w := doJSON(t, s, "POST", "/api/sessions/"+id+"/start",
		map[string]string{"requester_id": "bob"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("Non-creator start: expected 403, got %d", w.Code)
	}

	w = doJSON(t, s, "POST", "/api/sessions/"+id+"/start",
		map[string]string{"requester_id": "alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("Creator start: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result service.StartResult
	decodeBody(t, w, &result)
	if len(result.Hand) != engine.DefaultHandSize {
		t.Errorf("Hand size = %d, want %d", len(result.Hand), engine.DefaultHandSize)
	}
	if result.RoundID == "" {
		t.Error("Expected a round ID")
	}

	// Starting twice is a phase conflict.
	w = doJSON(t, s, "POST", "/api/sessions/"+id+"/start",
		map[string]string{"requester_id": "alice"})
	if w.Code != http.StatusConflict {
		t.Errorf("Second start: expected 409, got %d", w.Code)
	}
}

func TestPlayErrors(t *testing.T) {
	s := newTestServer()
	id := createTable(t, s, "alice", "bob")
	doJSON(t, s, "POST", "/api/sessions/"+id+"/start", map[string]string{"requester_id": "alice"})

	// Out of turn
	w := doJSON(t, s, "POST", "/api/sessions/"+id+"/play",
		map[string]string{"player_id": "bob", "tile_id": "6-6"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Out of turn: expected 403, got %d", w.Code)
	}

	// Tile not in hand (no tile has this ID)
	w = doJSON(t, s, "POST", "/api/sessions/"+id+"/play",
		map[string]string{"player_id": "alice", "tile_id": "9-9"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Not in hand: expected 422, got %d", w.Code)
	}

	// Unknown player
	w = doJSON(t, s, "POST", "/api/sessions/"+id+"/play",
		map[string]string{"player_id": "ghost", "tile_id": "6-6"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Unknown player: expected 404, got %d", w.Code)
	}
}

func TestPlayFlowEndpoint(t *testing.T) {
	s := newTestServer()
	id := createTable(t, s, "alice", "bob")
	doJSON(t, s, "POST", "/api/sessions/"+id+"/start", map[string]string{"requester_id": "alice"})

	// Ask the server which tiles alice can play.
	w := doJSON(t, s, "GET", "/api/sessions/"+id+"/playable?player_id=alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Playable: expected 200, got %d", w.Code)
	}
	var state service.PlayerState
	decodeBody(t, w, &state)
	if !state.YourTurn || len(state.Playable) == 0 {
		t.Fatalf("Expected alice to have playable tiles: %+v", state)
	}

	w = doJSON(t, s, "POST", "/api/sessions/"+id+"/play",
		map[string]string{"player_id": "alice", "tile_id": state.Playable[0].ID})
	if w.Code != http.StatusOK {
		t.Fatalf("Play: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result service.PlayResult
	decodeBody(t, w, &result)
	if !result.Ends.Open {
		t.Error("Ends should be open after the first play")
	}
	if result.NextPlayerID != "bob" {
		t.Errorf("Next player = %s, want bob", result.NextPlayerID)
	}
}

func TestTableStateHidesHands(t *testing.T) {
	s := newTestServer()
	id := createTable(t, s, "alice", "bob")
	doJSON(t, s, "POST", "/api/sessions/"+id+"/start", map[string]string{"requester_id": "alice"})

	w := doJSON(t, s, "GET", "/api/sessions/"+id+"/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("State: expected 200, got %d", w.Code)
	}

	// The raw body must never contain a hand array, only hand sizes.
	var raw map[string]interface{}
	decodeBody(t, w, &raw)
	players, ok := raw["players"].([]interface{})
	if !ok || len(players) != 2 {
		t.Fatalf("Unexpected players payload: %v", raw["players"])
	}
	for _, p := range players {
		pm := p.(map[string]interface{})
		if _, leaked := pm["hand"]; leaked {
			t.Error("Snapshot leaked a hand")
		}
		if pm["hand_size"].(float64) != float64(engine.DefaultHandSize) {
			t.Errorf("hand_size = %v, want %d", pm["hand_size"], engine.DefaultHandSize)
		}
	}
	if _, leaked := raw["stock"]; leaked {
		t.Error("Snapshot leaked the stock")
	}
}

func TestPlayableRequiresPlayerID(t *testing.T) {
	s := newTestServer()
	id := createTable(t, s, "alice", "bob")

	w := doJSON(t, s, "GET", "/api/sessions/"+id+"/playable", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	w = doJSON(t, s, "GET", "/api/sessions/"+id+"/playable?player_id=ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Ghost player: expected 404, got %d", w.Code)
	}
}

func TestSessionNotFoundEndpoints(t *testing.T) {
	s := newTestServer()

	paths := []struct {
		method, path string
		body         interface{}
	}{
		{"GET", "/api/sessions/zzzz", nil},
		{"GET", "/api/sessions/zzzz/state", nil},
		{"DELETE", "/api/sessions/zzzz", nil},
		{"POST", "/api/sessions/zzzz/play", map[string]string{"player_id": "a", "tile_id": "6-6"}},
		{"POST", "/api/sessions/zzzz/draw", map[string]string{"player_id": "a"}},
	}
	for _, tc := range paths {
		w := doJSON(t, s, tc.method, tc.path, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	s := newTestServer()
	createTable(t, s, "alice", "bob")
	createTable(t, s, "carol", "dave")

	w := doJSON(t, s, "GET", "/api/sessions?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	decodeBody(t, w, &resp)
	if resp.Count != 1 || len(resp.Sessions) != 1 {
		t.Errorf("Expected 1 session with limit=1, got %d", resp.Count)
	}
}

func TestListVariantsEndpoint(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, "GET", "/api/variants", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var variants []*service.VariantInfo
	decodeBody(t, w, &variants)
	if len(variants) != 2 {
		t.Errorf("Expected 2 variants, got %d", len(variants))
	}

	w = doJSON(t, s, "GET", "/api/variants/cangkulan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var rules engine.Rules
	decodeBody(t, w, &rules)
	if rules.DrawPolicy != engine.DrawSingle {
		t.Errorf("DrawPolicy = %s, want single", rules.DrawPolicy)
	}

	w = doJSON(t, s, "GET", "/api/variants/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, "GET", "/api/leaderboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Count   int                 `json:"count"`
		Players []stats.PlayerStats `json:"players"`
	}
	decodeBody(t, w, &resp)
	if resp.Count != 0 {
		t.Errorf("Expected empty leaderboard, got %d entries", resp.Count)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
}

func TestDrawEndpoint(t *testing.T) {
	s := newTestServer()

	// A cangkulan table so draws pull from the stock.
	w := doJSON(t, s, "POST", "/api/sessions",
		map[string]string{"creator_id": "alice", "variant": "cangkulan"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create returned %d", w.Code)
	}
	var info service.SessionInfo
	decodeBody(t, w, &info)
	for _, p := range []string{"alice", "bob"} {
		doJSON(t, s, "POST", fmt.Sprintf("/api/sessions/%s/join", info.ID),
			map[string]string{"player_id": p, "name": p})
	}
	doJSON(t, s, "POST", fmt.Sprintf("/api/sessions/%s/start", info.ID),
		map[string]string{"requester_id": "alice"})

	w = doJSON(t, s, "POST", fmt.Sprintf("/api/sessions/%s/draw", info.ID),
		map[string]string{"player_id": "alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("Draw: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result service.DrawResult
	decodeBody(t, w, &result)
	if len(result.Drawn) != 1 {
		t.Errorf("Drawn = %v, want one tile", result.Drawn)
	}
	if result.TurnAdvanced {
		t.Error("Single draw must not advance the turn")
	}
	if len(result.Hand) != engine.DefaultHandSize+1 {
		t.Errorf("Hand size = %d, want %d", len(result.Hand), engine.DefaultHandSize+1)
	}
}

// ctxCapturingService records the context passed to GetSession.
type ctxCapturingService struct {
	service.GameService
	got context.Context
}

func (c *ctxCapturingService) GetSession(ctx context.Context, id string) (*service.SessionInfo, error) {
	c.got = ctx
	return c.GameService.GetSession(ctx, id)
}

func TestWebSocketUsesRequestContext(t *testing.T) {
	svc := &ctxCapturingService{GameService: newTestServer().service}
	s := NewServer(svc, nil, zerolog.Nop())

	type key struct{}
	req := httptest.NewRequest("GET", "/ws?session=nope", nil)
	req = req.WithContext(context.WithValue(req.Context(), key{}, "marker"))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown session, got %d", w.Code)
	}
	if svc.got == nil {
		t.Fatal("GetSession was not called")
	}
	if svc.got.Value(key{}) != "marker" {
		t.Error("Session lookup did not use the request's context")
	}
}
