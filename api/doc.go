// Package api provides the REST API server for the gaple server.
//
// The API exposes table management and gameplay over HTTP:
//
// Table Management:
//
//	POST   /api/sessions              Create a new table (creator_id, optional session_id and variant)
//	GET    /api/sessions              List tables (sort, order, limit query params)
//	GET    /api/sessions/{id}         Get table info
//	DELETE /api/sessions/{id}         Delete a table
//
// Gameplay:
//
//	POST /api/sessions/{id}/join      Seat a player (player_id, name)
//	POST /api/sessions/{id}/start     Deal and begin play (requester_id, creator only)
//	POST /api/sessions/{id}/play      Place a tile (player_id, tile_id)
//	POST /api/sessions/{id}/draw      Draw or pass (player_id)
//	GET  /api/sessions/{id}/state     Public table snapshot
//	GET  /api/sessions/{id}/playable  Private view (player_id query param)
//
// Variants and Stats:
//
//	GET /api/variants                 List rule variants
//	GET /api/variants/{name}          Get one variant's rules
//	GET /api/leaderboard              Top players by wins
//
// Error Mapping:
//
// Domain errors map to HTTP status codes: unknown sessions, players, and
// variants are 404; phase and membership conflicts are 409; permission
// problems (not the creator, not your turn) are 403; a tile that is in the
// wrong hand or does not match the table ends is 422.
//
// After every successful mutation the server pushes the new public snapshot
// to WebSocket watchers of that table (GET /ws?session={id}).
package api
