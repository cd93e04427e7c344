package service

import (
	"context"
	"sync"
	"time"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/stats"
)

// GameService defines all table-related operations
type GameService interface {
	// Table Management
	CreateSession(ctx context.Context, sessionID, creatorID, variant string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Join(ctx context.Context, sessionID, playerID, name string) (*JoinResult, error)
	Start(ctx context.Context, sessionID, requesterID string) (*StartResult, error)
	Play(ctx context.Context, sessionID, playerID, tileID string) (*PlayResult, error)
	DrawOrPass(ctx context.Context, sessionID, playerID string) (*DrawResult, error)

	// Game State
	GetTableState(ctx context.Context, sessionID string) (*engine.TableSnapshot, error)
	GetPlayerState(ctx context.Context, sessionID, playerID string) (*PlayerState, error)

	// Variants
	ListVariants(ctx context.Context) ([]*VariantInfo, error)
	LoadVariant(ctx context.Context, name string) (*engine.Rules, error)

	// Stats
	Leaderboard(ctx context.Context, limit int) ([]stats.PlayerStats, error)
}

// SessionManager defines table storage operations
type SessionManager interface {
	Create(id, creatorID string, rules *engine.Rules) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// VariantManager handles rule-variant loading
type VariantManager interface {
	LoadRules(name string) (*engine.Rules, error)
	ListRules() ([]*VariantInfo, error)
	GetDefault() *engine.Rules
	SaveRules(name string, rules *engine.Rules) error
}

// Session represents an active table. Its mutex serializes all engine access
// for that table; tables never share a lock, so slow games do not block each
// other.
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Rules          *engine.Rules
	CreatedAt      time.Time
	LastAccessedAt time.Time // guarded by mu, like the engine

	mu sync.Mutex
}

// Lock acquires the table's mutex. Callers hold it for the duration of one
// operation against the engine.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the table's mutex.
func (s *Session) Unlock() { s.mu.Unlock() }
