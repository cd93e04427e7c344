// Package engine provides the core game logic for gaple, the Indonesian
// double-six domino game.
//
// The engine package implements the game mechanics including:
//   - The canonical 28-tile set, shuffling and dealing
//   - End-matching move validation
//   - Lobby membership, seating order and turn rotation
//   - Stock draws and pass handling for the cangkulan variants
//   - Win and stalemate detection
//
// Core Types:
//
// GameEngine is the per-table state machine. GameState is the full
// JSON-serializable state used for persistence, while TableSnapshot is the
// public view handed to transports (hand sizes only, never tile identities).
// Rules describes a game variant and is loaded from JSON files by the
// config package.
//
// Usage:
//
//	eng, err := engine.NewEngine("table-1", "alice", engine.DefaultRules())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_ = eng.Join("alice", "Alice")
//	_ = eng.Join("bob", "Bob")
//	if err := eng.Start("alice", rng); err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := eng.Play("alice", "6-4")
//
// Game Rules:
//
// Each player is dealt a hand off a shuffled deck; the remainder forms the
// stock. A tile is playable when one of its pip values matches an exposed
// table end (any tile opens an empty table). A player whose hand empties
// wins. When every seated player passes in a row with nothing left to draw,
// the table is blocked and the variant's stalemate rule decides the result.
package engine
