package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
	"github.com/gaplehq/gaple-server/stats"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, creatorID string, rules *engine.Rules) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("test%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, service.ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(id, creatorID, rules)
	if err != nil {
		return nil, err
	}

	sess := &service.Session{
		ID:             id,
		Engine:         eng,
		Rules:          rules,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
	}
	return nil
}

func (m *MockSessionManager) Save(id string) error {
	m.saves++
	return nil
}

// MockVariantManager implements service.VariantManager for testing
type MockVariantManager struct {
	variants map[string]*engine.Rules
}

func NewMockVariantManager() *MockVariantManager {
	classic := engine.DefaultRules()
	cangkulan := engine.DefaultRules()
	cangkulan.Name = "cangkulan"
	cangkulan.DrawPolicy = engine.DrawSingle
	return &MockVariantManager{
		variants: map[string]*engine.Rules{
			"classic":   classic,
			"cangkulan": cangkulan,
		},
	}
}

func (m *MockVariantManager) LoadRules(name string) (*engine.Rules, error) {
	rules, exists := m.variants[name]
	if !exists {
		return nil, service.ErrVariantNotFound
	}
	return rules, nil
}

func (m *MockVariantManager) ListRules() ([]*service.VariantInfo, error) {
	result := make([]*service.VariantInfo, 0, len(m.variants))
	for id, rules := range m.variants {
		result = append(result, &service.VariantInfo{
			VariantID:  id,
			Name:       rules.Name,
			HandSize:   rules.HandSize,
			DrawPolicy: string(rules.DrawPolicy),
		})
	}
	return result, nil
}

func (m *MockVariantManager) GetDefault() *engine.Rules {
	return m.variants["classic"]
}

func (m *MockVariantManager) SaveRules(name string, rules *engine.Rules) error {
	m.variants[name] = rules
	return nil
}

// RecordingRecorder captures RecordWin calls for assertions
type RecordingRecorder struct {
	stats.NoopRecorder
	wins  []string
	coins int
	fail  bool
}

func (r *RecordingRecorder) RecordWin(ctx context.Context, playerID, name string, coins int) error {
	if r.fail {
		return errors.New("database unavailable")
	}
	r.wins = append(r.wins, playerID)
	r.coins += coins
	return nil
}

func newTestService(recorder stats.Recorder) (service.GameService, *MockSessionManager) {
	if recorder == nil {
		recorder = stats.NoopRecorder{}
	}
	sessions := NewMockSessionManager()
	svc := service.NewGameServiceWithRand(sessions, NewMockVariantManager(), recorder,
		zerolog.Nop(), rand.New(rand.NewSource(42)))
	return svc, sessions
}

func seatedTable(t *testing.T, svc service.GameService, players ...string) string {
	t.Helper()
	ctx := context.Background()
	info, err := svc.CreateSession(ctx, "", players[0], "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	for _, p := range players {
		if _, err := svc.Join(ctx, info.ID, p, "Player "+p); err != nil {
			t.Fatalf("Join(%s) failed: %v", p, err)
		}
	}
	return info.ID
}

func TestCreateSession(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "", "alice", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ID == "" {
		t.Error("Expected a generated session ID")
	}
	if info.Snapshot.Status != engine.StatusLobby {
		t.Errorf("New table status = %s, want lobby", info.Snapshot.Status)
	}

	info2, err := svc.CreateSession(ctx, "", "bob", "cangkulan")
	if err != nil {
		t.Fatalf("CreateSession with variant failed: %v", err)
	}
	if info2.Variant != "cangkulan" {
		t.Errorf("Variant = %s, want cangkulan", info2.Variant)
	}
}

func TestCreateSessionUnknownVariant(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.CreateSession(context.Background(), "", "alice", "nonexistent")
	if !errors.Is(err, service.ErrVariantNotFound) {
		t.Fatalf("Expected ErrVariantNotFound, got %v", err)
	}
}

func TestSessionNotFound(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("GetSession: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Play(ctx, "nope", "alice", "6-6"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Play: expected ErrSessionNotFound, got %v", err)
	}
}

func TestJoinAndStart(t *testing.T) {
	svc, sessions := newTestService(nil)
	ctx := context.Background()
	id := seatedTable(t, svc, "alice", "bob")

	// Only the creator can deal.
	if _, err := svc.Start(ctx, id, "bob"); !errors.Is(err, engine.ErrNotCreator) {
		t.Fatalf("Expected ErrNotCreator, got %v", err)
	}

	result, err := svc.Start(ctx, id, "alice")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if result.RoundID == "" {
		t.Error("Start should return a round ID")
	}
	if len(result.Hand) != engine.DefaultHandSize {
		t.Errorf("Creator hand size = %d, want %d", len(result.Hand), engine.DefaultHandSize)
	}
	if result.Snapshot.Status != engine.StatusPlaying {
		t.Errorf("Status = %s, want playing", result.Snapshot.Status)
	}
	if sessions.saves == 0 {
		t.Error("Mutations should persist the session")
	}
}

func TestPlayFlow(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	id := seatedTable(t, svc, "alice", "bob")

	if _, err := svc.Start(ctx, id, "alice"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	state, err := svc.GetPlayerState(ctx, id, "alice")
	if err != nil {
		t.Fatalf("GetPlayerState failed: %v", err)
	}
	if !state.YourTurn {
		t.Fatal("Creator should hold the first turn")
	}
	if len(state.Playable) == 0 {
		t.Fatal("First move: whole hand should be playable")
	}

	result, err := svc.Play(ctx, id, "alice", state.Playable[0].ID)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if len(result.Hand) != engine.DefaultHandSize-1 {
		t.Errorf("Hand size after play = %d, want %d", len(result.Hand), engine.DefaultHandSize-1)
	}
	if !result.Ends.Open {
		t.Error("Table ends should be open after the first tile")
	}
	if result.NextPlayerID != "bob" {
		t.Errorf("Next player = %s, want bob", result.NextPlayerID)
	}

	// The public view never exposes tiles.
	snap, err := svc.GetTableState(ctx, id)
	if err != nil {
		t.Fatalf("GetTableState failed: %v", err)
	}
	for _, p := range snap.Players {
		if p.ID == "alice" && p.HandSize != engine.DefaultHandSize-1 {
			t.Errorf("Snapshot hand size = %d, want %d", p.HandSize, engine.DefaultHandSize-1)
		}
	}
}

func TestPlayOutOfTurn(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	id := seatedTable(t, svc, "alice", "bob")
	if _, err := svc.Start(ctx, id, "alice"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	state, _ := svc.GetPlayerState(ctx, id, "bob")
	if len(state.Hand) == 0 {
		t.Fatal("bob should have a hand")
	}
	if _, err := svc.Play(ctx, id, "bob", state.Hand[0].ID); !errors.Is(err, engine.ErrNotYourTurn) {
		t.Fatalf("Expected ErrNotYourTurn, got %v", err)
	}
}

func TestWinRecordsStats(t *testing.T) {
	recorder := &RecordingRecorder{}
	svc, sessions := newTestService(recorder)
	ctx := context.Background()
	id := seatedTable(t, svc, "alice", "bob")
	if _, err := svc.Start(ctx, id, "alice"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Collapse the deal to a one-tile hand so the next play wins.
	sess, _ := sessions.Get(id)
	st := sess.Engine.State()
	st.Players[0].Hand = st.Players[0].Hand[:1]

	result, err := svc.Play(ctx, id, "alice", st.Players[0].Hand[0].ID)
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !result.Ended || result.WinnerID != "alice" {
		t.Fatalf("Expected alice to win, got %+v", result)
	}
	if len(recorder.wins) != 1 || recorder.wins[0] != "alice" {
		t.Errorf("Recorded wins = %v, want [alice]", recorder.wins)
	}
	if recorder.coins != engine.DefaultRules().WinCoins {
		t.Errorf("Recorded coins = %d, want %d", recorder.coins, engine.DefaultRules().WinCoins)
	}
}

func TestWinSurvivesRecorderFailure(t *testing.T) {
	recorder := &RecordingRecorder{fail: true}
	svc, sessions := newTestService(recorder)
	ctx := context.Background()
	id := seatedTable(t, svc, "alice", "bob")
	if _, err := svc.Start(ctx, id, "alice"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sess, _ := sessions.Get(id)
	st := sess.Engine.State()
	st.Players[0].Hand = st.Players[0].Hand[:1]

	result, err := svc.Play(ctx, id, "alice", st.Players[0].Hand[0].ID)
	if err != nil {
		t.Fatalf("Play must succeed even when stats fail: %v", err)
	}
	if !result.Ended {
		t.Error("Expected the game to end")
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	id1 := seatedTable(t, svc, "alice", "bob")
	seatedTable(t, svc, "carol", "dave")

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListSessions returned %d, want 2", len(list))
	}

	if err := svc.DeleteSession(ctx, id1); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	list, _ = svc.ListSessions(ctx)
	if len(list) != 1 {
		t.Errorf("After delete: %d sessions, want 1", len(list))
	}
}

func TestGetPlayerStateUnknownPlayer(t *testing.T) {
	svc, _ := newTestService(nil)
	id := seatedTable(t, svc, "alice", "bob")

	_, err := svc.GetPlayerState(context.Background(), id, "ghost")
	if !errors.Is(err, engine.ErrUnknownPlayer) {
		t.Fatalf("Expected ErrUnknownPlayer, got %v", err)
	}
}

func TestDeterministicDeals(t *testing.T) {
	run := func() []engine.Tile {
		svc, _ := newTestService(nil)
		ctx := context.Background()
		id := seatedTable(t, svc, "alice", "bob")
		result, err := svc.Start(ctx, id, "alice")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		return result.Hand
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatal("Seeded services dealt different hand sizes")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Seeded services dealt different hands: %v vs %v", first, second)
		}
	}
}
