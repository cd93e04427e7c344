package session

import (
	"time"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
)

// SessionPersistence defines the interface for persisting tables
type SessionPersistence interface {
	// Save persists a table to storage
	Save(sess *service.Session) error

	// Load retrieves a table from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a table from storage
	Delete(id string) error

	// ListAll returns all persisted table IDs
	ListAll() ([]string, error)

	// Exists checks if a table exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted tables.
// The full GameState goes to disk, hands and stock included; snapshot
// privacy applies to transports, not storage.
type PersistedSessionData struct {
	ID             string            `json:"id"`
	Variant        string            `json:"variant"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}
