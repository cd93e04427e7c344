package session

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
	"github.com/rs/zerolog"
)

// stubVariants is a minimal service.VariantManager backed by a fixed map.
type stubVariants struct {
	rules map[string]*engine.Rules
}

func newStubVariants() *stubVariants {
	return &stubVariants{rules: map[string]*engine.Rules{
		"classic": engine.DefaultRules(),
	}}
}

func (s *stubVariants) LoadRules(name string) (*engine.Rules, error) {
	rules, ok := s.rules[name]
	if !ok {
		return nil, service.ErrVariantNotFound
	}
	return rules, nil
}

func (s *stubVariants) ListRules() ([]*service.VariantInfo, error) {
	var result []*service.VariantInfo
	for id, r := range s.rules {
		result = append(result, &service.VariantInfo{VariantID: id, Name: r.Name})
	}
	return result, nil
}

func (s *stubVariants) GetDefault() *engine.Rules { return s.rules["classic"] }

func (s *stubVariants) SaveRules(name string, rules *engine.Rules) error {
	s.rules[name] = rules
	return nil
}

func newTestPersistence(t *testing.T) *FilePersistence {
	t.Helper()
	fp, err := NewFilePersistence(t.TempDir(), newStubVariants())
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}
	return fp
}

func startedSession(t *testing.T, id string) *service.Session {
	t.Helper()
	eng, err := engine.NewEngine(id, "alice", engine.DefaultRules())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	for _, p := range []string{"alice", "bob"} {
		if err := eng.Join(p, "Player "+p); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	if err := eng.Start("alice", rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return &service.Session{
		ID:     id,
		Engine: eng,
		Rules:  engine.DefaultRules(),
	}
}

func TestFileRoundTrip(t *testing.T) {
	fp := newTestPersistence(t)
	sess := startedSession(t, "ab12")

	if err := fp.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !fp.Exists("ab12") {
		t.Fatal("Exists should be true after save")
	}

	loaded, err := fp.Load("ab12")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	orig := sess.Engine.State()
	got := loaded.Engine.State()
	if got.ID != orig.ID || got.Status != orig.Status || got.RoundID != orig.RoundID {
		t.Errorf("Restored state header differs: %+v vs %+v", got, orig)
	}
	if len(got.Players) != len(orig.Players) {
		t.Fatalf("Restored %d players, want %d", len(got.Players), len(orig.Players))
	}
	for i := range orig.Players {
		if len(got.Players[i].Hand) != len(orig.Players[i].Hand) {
			t.Errorf("Player %d hand size %d, want %d",
				i, len(got.Players[i].Hand), len(orig.Players[i].Hand))
		}
	}
	if len(got.Stock) != len(orig.Stock) {
		t.Errorf("Restored stock %d, want %d", len(got.Stock), len(orig.Stock))
	}

	// The restored table keeps playing.
	loaded.Lock()
	cur := got.Players[got.TurnIndex]
	playable := loaded.Engine.PlayableFor(cur.ID)
	if len(playable) > 0 {
		if _, err := loaded.Engine.Play(cur.ID, playable[0].ID); err != nil {
			t.Errorf("Play on restored engine failed: %v", err)
		}
	}
	loaded.Unlock()
}

func TestLoadMissing(t *testing.T) {
	fp := newTestPersistence(t)
	if _, err := fp.Load("zzzz"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeletePersisted(t *testing.T) {
	fp := newTestPersistence(t)
	sess := startedSession(t, "ab12")
	if err := fp.Save(sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := fp.Delete("ab12"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if fp.Exists("ab12") {
		t.Error("Exists should be false after delete")
	}
	if err := fp.Delete("ab12"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on double delete, got %v", err)
	}
}

func TestListAll(t *testing.T) {
	fp := newTestPersistence(t)
	for _, id := range []string{"a001", "a002"} {
		if err := fp.Save(startedSession(t, id)); err != nil {
			t.Fatalf("Save(%s) failed: %v", id, err)
		}
	}

	ids, err := fp.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ListAll returned %d IDs, want 2", len(ids))
	}
}

func TestConcurrentSaveAndTouch(t *testing.T) {
	dir := t.TempDir()
	variants := newStubVariants()
	fp, err := NewFilePersistence(dir, variants)
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}

	m := NewManagerWithPersistence(fp, zerolog.Nop())
	if _, err := m.Create("ab12", "alice", variants.GetDefault()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Snapshot-to-disk and access-time updates run from different
	// goroutines in the server; the timestamp must stay race-free.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := m.UpdateLastAccessed("ab12"); err != nil {
					t.Errorf("UpdateLastAccessed failed: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := m.Save("ab12"); err != nil {
					t.Errorf("Save failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if m.CleanupExpiredSessions(time.Hour) != 0 {
		t.Error("Freshly touched session should not be reaped")
	}
}

func TestManagerPersistenceFlow(t *testing.T) {
	dir := t.TempDir()
	variants := newStubVariants()
	fp, err := NewFilePersistence(dir, variants)
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}

	m := NewManagerWithPersistence(fp, zerolog.Nop())
	if _, err := m.Create("ab12", "alice", variants.GetDefault()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := m.Save("ab12"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A fresh manager sees the persisted table.
	m2 := NewManagerWithPersistence(fp, zerolog.Nop())
	if err := m2.LoadPersistedSessions(); err != nil {
		t.Fatalf("LoadPersistedSessions failed: %v", err)
	}
	if m2.Count() != 1 {
		t.Fatalf("Count = %d, want 1", m2.Count())
	}
	sess, err := m2.Get("ab12")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Engine.State().CreatorID != "alice" {
		t.Errorf("CreatorID = %s, want alice", sess.Engine.State().CreatorID)
	}

	// Deleting removes both memory and the file.
	if err := m2.Delete("ab12"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if fp.Exists("ab12") {
		t.Error("Session file should be removed")
	}
}
