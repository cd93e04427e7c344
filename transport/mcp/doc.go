// Package mcp provides Model Context Protocol server integration for the
// gaple domino server.
//
// The package is a thin client: every tool call is proxied to the REST API
// over HTTP, so the MCP surface and the HTTP surface always agree on
// behavior, validation, and error messages.
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_table: Create a new table with optional variant selection
//   - join_table: Take a seat at a table before the round starts
//   - start_round: Shuffle and deal (table creator only)
//   - table_state: Public view of a table (hand sizes, ends, turn)
//   - my_hand: The caller's own hand plus currently playable tiles
//   - play_tile: Place a tile on a matching open end
//   - draw_or_pass: Draw from the stock or pass, per the variant's policy
//   - get_table: Table metadata (variant, timestamps)
//   - list_tables: List all active tables
//   - list_variants: List available rule variants
//   - leaderboard: Players ranked by recorded wins
//   - game_instructions: Full rules and strategy notes
//
// Privacy:
//
// Tool output mirrors the REST API's privacy model: table_state never shows
// another player's tiles, only hand sizes. Agents must call my_hand to see
// their own hand.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
