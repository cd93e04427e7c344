package stats

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresRecorder stores player stats in a PostgreSQL table.
type PostgresRecorder struct {
	db *sql.DB
}

// OpenPostgres connects to PostgreSQL using a standard connection URL.
func OpenPostgres(databaseURL string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}
	return &PostgresRecorder{db: db}, nil
}

// EnsureSchema creates the player_stats table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS player_stats (
			player_id  TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			wins       INTEGER NOT NULL DEFAULT 0,
			coins      INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("error creating player_stats table: %w", err)
	}
	return nil
}

// RecordWin upserts one win and the coin award for a player.
func (r *PostgresRecorder) RecordWin(ctx context.Context, playerID, name string, coins int) error {
	query := `
		INSERT INTO player_stats (player_id, name, wins, coins, updated_at)
		VALUES ($1, $2, 1, $3, now())
		ON CONFLICT (player_id) DO UPDATE SET
			name       = EXCLUDED.name,
			wins       = player_stats.wins + 1,
			coins      = player_stats.coins + EXCLUDED.coins,
			updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, playerID, name, coins); err != nil {
		return fmt.Errorf("error recording win for %s: %w", playerID, err)
	}
	return nil
}

// Leaderboard returns the top players ordered by wins, then coins.
func (r *PostgresRecorder) Leaderboard(ctx context.Context, limit int) ([]PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT player_id, name, wins, coins, updated_at
		FROM player_stats
		ORDER BY wins DESC, coins DESC, player_id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying leaderboard: %w", err)
	}
	defer rows.Close()

	return scanStats(rows)
}

// ExportAll returns every row of player_stats, for backups.
func (r *PostgresRecorder) ExportAll(ctx context.Context) ([]PlayerStats, error) {
	query := `
		SELECT player_id, name, wins, coins, updated_at
		FROM player_stats
		ORDER BY player_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error exporting player_stats: %w", err)
	}
	defer rows.Close()

	return scanStats(rows)
}

// Import writes a batch of rows, replacing existing entries per player. The
// whole batch runs in one transaction.
func (r *PostgresRecorder) Import(ctx context.Context, entries []PlayerStats) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO player_stats (player_id, name, wins, coins, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (player_id) DO UPDATE SET
			name       = EXCLUDED.name,
			wins       = EXCLUDED.wins,
			coins      = EXCLUDED.coins,
			updated_at = now()
	`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query, e.PlayerID, e.Name, e.Wins, e.Coins); err != nil {
			return fmt.Errorf("error importing stats for %s: %w", e.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing import: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}

func scanStats(rows *sql.Rows) ([]PlayerStats, error) {
	result := []PlayerStats{}
	for rows.Next() {
		var s PlayerStats
		if err := rows.Scan(&s.PlayerID, &s.Name, &s.Wins, &s.Coins, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning player_stats row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player_stats rows: %w", err)
	}
	return result, nil
}
