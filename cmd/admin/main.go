// Command admin manages the player stats database: schema setup and
// JSON export/import of the leaderboard.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/gaplehq/gaple-server/stats"
)

func main() {
	godotenv.Load()

	cmd := &cli.Command{
		Name:  "admin",
		Usage: "manage the gaple player stats database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init-schema",
				Usage:  "create the player_stats table if it does not exist",
				Action: runInitSchema,
			},
			{
				Name:  "export",
				Usage: "write all player stats as JSON to stdout or a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "output file (stdout when omitted)",
					},
				},
				Action: runExport,
			},
			{
				Name:  "import",
				Usage: "replace all player stats with entries from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "in",
						Usage:    "input file produced by export",
						Required: true,
					},
				},
				Action: runImport,
			},
			{
				Name:  "leaderboard",
				Usage: "print the top players",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum entries to show",
						Value: 10,
					},
				},
				Action: runLeaderboard,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openRecorder(cmd *cli.Command) (*stats.PostgresRecorder, error) {
	databaseURL := cmd.String("database-url")
	if databaseURL == "" {
		return nil, fmt.Errorf("database-url is required (flag or DATABASE_URL)")
	}
	return stats.OpenPostgres(databaseURL)
}

func runInitSchema(ctx context.Context, cmd *cli.Command) error {
	recorder, err := openRecorder(cmd)
	if err != nil {
		return err
	}
	defer recorder.Close()

	if err := recorder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	fmt.Println("Schema ready.")
	return nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	recorder, err := openRecorder(cmd)
	if err != nil {
		return err
	}
	defer recorder.Close()

	entries, err := recorder.ExportAll(ctx)
	if err != nil {
		return fmt.Errorf("exporting stats: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Exported %d player(s) to %s\n", len(entries), out)
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("in"))
	if err != nil {
		return err
	}

	var entries []stats.PlayerStats
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}

	recorder, err := openRecorder(cmd)
	if err != nil {
		return err
	}
	defer recorder.Close()

	if err := recorder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := recorder.Import(ctx, entries); err != nil {
		return fmt.Errorf("importing stats: %w", err)
	}
	fmt.Printf("Imported %d player(s).\n", len(entries))
	return nil
}

func runLeaderboard(ctx context.Context, cmd *cli.Command) error {
	recorder, err := openRecorder(cmd)
	if err != nil {
		return err
	}
	defer recorder.Close()

	entries, err := recorder.Leaderboard(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("loading leaderboard: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No recorded wins yet.")
		return nil
	}
	for i, p := range entries {
		name := p.Name
		if name == "" {
			name = p.PlayerID
		}
		fmt.Printf("%d. %s - %d win(s), %d coins\n", i+1, name, p.Wins, p.Coins)
	}
	return nil
}
