// Package stats records match outcomes and serves the leaderboard.
//
// The server works without a database: when no DATABASE_URL is configured it
// runs with NoopRecorder and simply skips stat tracking. With PostgreSQL
// configured, wins and coin awards accumulate in the player_stats table.
package stats

import (
	"context"
	"time"
)

// PlayerStats is one row of the leaderboard.
type PlayerStats struct {
	PlayerID  string    `json:"player_id"`
	Name      string    `json:"name"`
	Wins      int       `json:"wins"`
	Coins     int       `json:"coins"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recorder persists match outcomes. Implementations must be safe for
// concurrent use; game flow never depends on a Recorder succeeding.
type Recorder interface {
	// RecordWin credits one win and the variant's coin award to a player.
	RecordWin(ctx context.Context, playerID, name string, coins int) error

	// Leaderboard returns the top players ordered by wins, then coins.
	Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error)

	Close() error
}

// NoopRecorder discards everything. Used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordWin(ctx context.Context, playerID, name string, coins int) error {
	return nil
}

func (NoopRecorder) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	return []PlayerStats{}, nil
}

func (NoopRecorder) Close() error { return nil }
