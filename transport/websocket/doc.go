// Package websocket provides real-time table updates for the gaple server.
//
// The package implements a hub-and-spoke model: one Hub goroutine owns the
// client registry, and every connected client runs a read pump and a write
// pump. Clients subscribe to a single table by ID; after every mutation the
// API layer pushes the new public snapshot to the hub, which fans it out to
// all watchers of that table.
//
// Clients never send gameplay commands over the socket. Moves go through
// the REST API; the socket is a one-way notification channel kept alive
// with ping/pong.
//
// Message Format:
//
//	{
//	  "session_id": "ab12",
//	  "event": "state_update",
//	  "snapshot": { ... public table view ... }
//	}
//
// Snapshots expose hand sizes and the stock size, never actual tiles, so a
// spectator socket can be shared freely.
package websocket
