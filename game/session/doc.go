// Package session provides table management for the gaple server.
//
// The session package implements:
//   - Thread-safe table storage and retrieval
//   - Unique table ID generation
//   - Table lifecycle management
//   - File-based persistence with restore on demand
//   - Table cleanup and expiration
//
// Core Types:
//
// Manager is the registry that handles all table operations. Each table is a
// service.Session with its own engine instance and metadata like creation
// time and last access time.
//
// Table Identifiers:
//
// Tables use 4-character hexadecimal IDs for easy reference in chat and URL
// paths. The manager ensures IDs are unique and generates them with
// cryptographic randomness. Lookups are case-insensitive.
//
// Concurrency:
//
// The registry lock guards only the table map. Game state access is
// serialized by each table's own lock, so two tables never block each other
// no matter how long a turn takes.
//
// Usage:
//
//	manager := session.NewManager()
//
//	// Create a new table
//	sess, err := manager.Create("", "alice", rules)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve an existing table
//	sess, err = manager.Get(sessionID)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List all active tables
//	sessions := manager.List()
//
// Cleanup:
//
// Tables can be explicitly deleted or expire based on inactivity.
// CleanupExpiredSessions removes stale tables from memory; persisted files
// let them be restored if a player returns.
package session
