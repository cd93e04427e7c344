// Package service provides the business logic layer for the gaple server.
//
// The service package implements:
//   - Multi-table session management
//   - Rule-variant loading
//   - Turn-based game operations (join, start, play, draw-or-pass)
//   - Win recording and leaderboard access
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level table operations.
// SessionManager handles table creation, retrieval, and lifecycle.
// VariantManager manages rule-variant loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing table isolation, variant management, and
// business logic orchestration. Each table maintains its own game engine
// instance with independent state, guarded by a per-table mutex: operations
// on different tables never contend with each other.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	variantMgr := config.NewManager("variants")
//	gameService := service.NewGameService(sessionMgr, variantMgr, stats.NoopRecorder{}, logger)
//
//	// Create a new table and seat two players
//	info, err := gameService.CreateSession(ctx, "", "alice", "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//	gameService.Join(ctx, info.ID, "alice", "Alice")
//	gameService.Join(ctx, info.ID, "bob", "Bob")
//
//	// The creator deals and play begins
//	result, err := gameService.Start(ctx, info.ID, "alice")
//
// Session Management:
//
// Tables are identified by unique 4-character IDs and maintain independent
// game state. Multiple tables can run concurrently with different rule
// variants. Tables track creation time and last access time for cleanup.
package service
