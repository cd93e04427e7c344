// Command analyze prints quick, human-readable heuristics about rule variant
// files in the project's variants directory. It summarizes deal shapes, then
// runs seeded random playouts per player count to estimate how often each
// variant ends in a win versus a blocked game, and how long rounds run.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gaplehq/gaple-server/game/engine"
)

const (
	simulationRounds = 500
	simulationSeed   = 1
	// moveLimit guards against a playout that never terminates; a round of
	// gaple is bounded well below this.
	moveLimit = 500
)

// SimulationStats aggregates the outcomes of repeated random playouts.
type SimulationStats struct {
	Rounds     int
	Wins       int
	Stalemates int
	NoWinner   int
	TotalMoves int
	MaxMoves   int
}

func main() {
	variantsDir := "variants"
	if len(os.Args) > 1 {
		variantsDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(variantsDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No variant files found in %s\n", variantsDir)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeVariant(file)
	}
}

func analyzeVariant(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		return
	}

	var rules engine.Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		fmt.Printf("Error parsing JSON: %v\n", err)
		return
	}
	if err := engine.ValidateRules(&rules); err != nil {
		fmt.Printf("Invalid variant: %v\n", err)
		return
	}

	fmt.Printf("Name: %s\n", rules.Name)
	if rules.Description != "" {
		fmt.Printf("Description: %s\n", rules.Description)
	}
	fmt.Printf("Hand Size: %d\n", rules.HandSize)
	fmt.Printf("Players: %d-%d\n", rules.MinPlayers, rules.MaxPlayers)
	fmt.Printf("Draw Policy: %s\n", rules.DrawPolicy)
	fmt.Printf("Stalemate Rule: %s\n", rules.StalemateRule)

	for players := rules.MinPlayers; players <= rules.MaxPlayers; players++ {
		stock := engine.FullSetSize - players*rules.HandSize
		fmt.Printf("\n%d players (stock %d):\n", players, stock)

		stats, err := simulate(&rules, players, simulationRounds, simulationSeed)
		if err != nil {
			fmt.Printf("  Simulation failed: %v\n", err)
			continue
		}

		winPct := 100 * float64(stats.Wins) / float64(stats.Rounds)
		stalePct := 100 * float64(stats.Stalemates) / float64(stats.Rounds)
		avgMoves := float64(stats.TotalMoves) / float64(stats.Rounds)

		fmt.Printf("  Rounds: %d\n", stats.Rounds)
		fmt.Printf("  Won outright: %d (%.1f%%)\n", stats.Wins, winPct)
		fmt.Printf("  Blocked: %d (%.1f%%), of which %d had no winner\n",
			stats.Stalemates, stalePct, stats.NoWinner)
		fmt.Printf("  Moves per round: avg %.1f, max %d\n", avgMoves, stats.MaxMoves)
	}
}

// simulate runs random playouts of a variant: every turn plays a uniformly
// chosen playable tile, or draws/passes when none is playable. The same seed
// always yields the same report.
func simulate(rules *engine.Rules, players, rounds int, seed int64) (*SimulationStats, error) {
	rng := rand.New(rand.NewSource(seed))
	stats := &SimulationStats{Rounds: rounds}

	for round := 0; round < rounds; round++ {
		eng, err := engine.NewEngine(fmt.Sprintf("sim-%d", round), "p0", rules)
		if err != nil {
			return nil, err
		}
		for i := 0; i < players; i++ {
			if err := eng.Join(fmt.Sprintf("p%d", i), ""); err != nil {
				return nil, err
			}
		}
		if err := eng.Start("p0", rng); err != nil {
			return nil, err
		}

		moves, err := playOut(eng, rng)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		state := eng.State()
		held := len(state.Stock)
		for _, p := range state.Players {
			held += len(p.Hand)
		}
		if held+state.PlayedCount != engine.FullSetSize {
			return nil, fmt.Errorf("round %d lost tiles: %d held + %d played != %d",
				round, held, state.PlayedCount, engine.FullSetSize)
		}

		stats.TotalMoves += moves
		if moves > stats.MaxMoves {
			stats.MaxMoves = moves
		}
		switch state.EndReason {
		case engine.EndReasonWin:
			stats.Wins++
		case engine.EndReasonStalemate:
			stats.Stalemates++
			if state.WinnerID == "" {
				stats.NoWinner++
			}
		default:
			return nil, fmt.Errorf("round %d ended with reason %q", round, state.EndReason)
		}
	}

	return stats, nil
}

func playOut(eng *engine.GameEngine, rng *rand.Rand) (int, error) {
	moves := 0
	for moves < moveLimit {
		state := eng.State()
		if state.Status == engine.StatusEnded {
			return moves, nil
		}

		current := state.Players[state.TurnIndex]
		playable := eng.PlayableFor(current.ID)
		if len(playable) > 0 {
			tile := playable[rng.Intn(len(playable))]
			if _, err := eng.Play(current.ID, tile.ID); err != nil {
				return moves, err
			}
		} else {
			if _, err := eng.DrawOrPass(current.ID); err != nil {
				return moves, err
			}
		}
		moves++
	}
	return moves, fmt.Errorf("no termination within %d moves", moveLimit)
}
