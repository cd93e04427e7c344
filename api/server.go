package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/game/service"
	"github.com/gaplehq/gaple-server/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Table management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/join", s.handleJoin).Methods("POST")
	api.HandleFunc("/sessions/{id}/start", s.handleStart).Methods("POST")
	api.HandleFunc("/sessions/{id}/play", s.handlePlay).Methods("POST")
	api.HandleFunc("/sessions/{id}/draw", s.handleDrawOrPass).Methods("POST")
	api.HandleFunc("/sessions/{id}/state", s.handleGetTableState).Methods("GET")
	api.HandleFunc("/sessions/{id}/playable", s.handleGetPlayerState).Methods("GET")

	// Variants
	api.HandleFunc("/variants", s.handleListVariants).Methods("GET")
	api.HandleFunc("/variants/{name}", s.handleGetVariant).Methods("GET")

	// Leaderboard
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrVariantNotFound),
		errors.Is(err, engine.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotCreator),
		errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, engine.ErrAlreadyJoined),
		errors.Is(err, engine.ErrLobbyFull),
		errors.Is(err, engine.ErrNotEnoughPlayers),
		errors.Is(err, service.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrTileNotInHand),
		errors.Is(err, engine.ErrTileNotPlayable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidVariant):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusForError(err), err.Error())
}

// Table Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id,omitempty"`
		CreatorID string `json:"creator_id"`
		Variant   string `json:"variant,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if req.CreatorID == "" {
		respondError(w, http.StatusBadRequest, "creator_id is required")
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.SessionID, req.CreatorID, req.Variant)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else { // "accessed"
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj) // desc
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" {
		respondError(w, http.StatusBadRequest, "player_id is required")
		return
	}

	result, err := s.service.Join(r.Context(), sessionID, req.PlayerID, req.Name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.Snapshot)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("player_id", req.PlayerID).
		Int("players", result.PlayerCount).
		Msg("Player joined")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		RequesterID string `json:"requester_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Start(r.Context(), sessionID, req.RequesterID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.Snapshot)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
		TileID   string `json:"tile_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Play(r.Context(), sessionID, req.PlayerID, req.TileID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.Snapshot)

	log := s.logger.Info().
		Str("session_id", sessionID).
		Str("player_id", req.PlayerID).
		Str("tile", result.Placed.ID).
		Int("left", result.Ends.Left).
		Int("right", result.Ends.Right)
	if result.Ended {
		log = log.Str("winner_id", result.WinnerID)
	}
	log.Msg("Tile played")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDrawOrPass(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.DrawOrPass(r.Context(), sessionID, req.PlayerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcast(sessionID, result.Snapshot)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("player_id", req.PlayerID).
		Int("drawn", len(result.Drawn)).
		Bool("turn_advanced", result.TurnAdvanced).
		Msg("Draw or pass")

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetTableState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.GetTableState(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		respondError(w, http.StatusBadRequest, "player_id parameter required")
		return
	}

	state, err := s.service.GetPlayerState(r.Context(), sessionID, playerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Variant Handlers

func (s *Server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := s.service.ListVariants(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, variants)
}

func (s *Server) handleGetVariant(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	name = strings.TrimSuffix(name, ".json")

	rules, err := s.service.LoadVariant(r.Context(), name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

// Leaderboard Handler

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := s.service.Leaderboard(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"players": entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// broadcast pushes a snapshot to WebSocket watchers after a mutation.
func (s *Server) broadcast(sessionID string, snap *engine.TableSnapshot) {
	if s.hub != nil && snap != nil {
		s.hub.BroadcastToSession(sessionID, snap)
	}
}
