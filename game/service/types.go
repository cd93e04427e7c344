package service

import (
	"time"

	"github.com/gaplehq/gaple-server/game/engine"
)

// SessionInfo provides information about a table
type SessionInfo struct {
	ID             string                `json:"id"`
	Variant        string                `json:"variant"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	Snapshot       *engine.TableSnapshot `json:"snapshot"`
}

// JoinResult contains the result of joining a table
type JoinResult struct {
	SessionID   string                `json:"session_id"`
	PlayerID    string                `json:"player_id"`
	PlayerCount int                   `json:"player_count"`
	Snapshot    *engine.TableSnapshot `json:"snapshot"`
}

// StartResult contains the result of starting a round
type StartResult struct {
	SessionID string                `json:"session_id"`
	RoundID   string                `json:"round_id"`
	Hand      []engine.Tile         `json:"hand"`
	Snapshot  *engine.TableSnapshot `json:"snapshot"`
}

// PlayResult contains the result of placing a tile
type PlayResult struct {
	SessionID    string                `json:"session_id"`
	Placed       engine.Tile           `json:"placed"`
	Ends         engine.TableEnds      `json:"ends"`
	Hand         []engine.Tile         `json:"hand"`
	NextPlayerID string                `json:"next_player_id,omitempty"`
	Ended        bool                  `json:"ended"`
	WinnerID     string                `json:"winner_id,omitempty"`
	EndReason    string                `json:"end_reason,omitempty"`
	Snapshot     *engine.TableSnapshot `json:"snapshot"`
}

// DrawResult contains the result of a draw-or-pass action
type DrawResult struct {
	SessionID    string                `json:"session_id"`
	Drawn        []engine.Tile         `json:"drawn,omitempty"`
	TurnAdvanced bool                  `json:"turn_advanced"`
	NextPlayerID string                `json:"next_player_id,omitempty"`
	Hand         []engine.Tile         `json:"hand"`
	Ended        bool                  `json:"ended"`
	WinnerID     string                `json:"winner_id,omitempty"`
	EndReason    string                `json:"end_reason,omitempty"`
	Snapshot     *engine.TableSnapshot `json:"snapshot"`
}

// PlayerState is one player's private view of a table: their hand, which of
// those tiles are currently playable, and whether it is their turn.
type PlayerState struct {
	SessionID string        `json:"session_id"`
	PlayerID  string        `json:"player_id"`
	Hand      []engine.Tile `json:"hand"`
	Playable  []engine.Tile `json:"playable"`
	YourTurn  bool          `json:"your_turn"`
}

// VariantInfo provides information about a rule variant
type VariantInfo struct {
	Filename      string `json:"filename"`
	VariantID     string `json:"variant_id"` // The identifier to use for session creation
	Name          string `json:"name"`       // Display name
	Description   string `json:"description"`
	HandSize      int    `json:"hand_size"`
	MinPlayers    int    `json:"min_players"`
	MaxPlayers    int    `json:"max_players"`
	DrawPolicy    string `json:"draw_policy"`
	StalemateRule string `json:"stalemate_rule"`
	WinCoins      int    `json:"win_coins"`
}
