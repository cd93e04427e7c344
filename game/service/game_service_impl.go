package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaplehq/gaple-server/game/engine"
	"github.com/gaplehq/gaple-server/stats"
)

// Sentinel errors for table lookup. The session manager returns these so
// transports can map them without string matching.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Sentinel errors for variant loading, returned by the variant manager.
var (
	ErrVariantNotFound = errors.New("variant not found")
	ErrInvalidVariant  = errors.New("invalid variant")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	variants VariantManager
	recorder stats.Recorder
	logger   zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, variants VariantManager, recorder stats.Recorder, logger zerolog.Logger) GameService {
	return NewGameServiceWithRand(sessions, variants, recorder, logger,
		rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGameServiceWithRand is NewGameService with a caller-supplied source of
// randomness, so deals can be made deterministic in tests.
func NewGameServiceWithRand(sessions SessionManager, variants VariantManager, recorder stats.Recorder, logger zerolog.Logger, rng *rand.Rand) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		variants: variants,
		recorder: recorder,
		logger:   logger,
		rng:      rng,
	}
}

// CreateSession creates a new table in the lobby phase
func (s *gameServiceImpl) CreateSession(ctx context.Context, sessionID, creatorID, variant string) (*SessionInfo, error) {
	var rules *engine.Rules
	var err error
	if variant != "" {
		rules, err = s.variants.LoadRules(variant)
		if err != nil {
			if errors.Is(err, ErrVariantNotFound) {
				available, listErr := s.variants.ListRules()
				if listErr == nil && len(available) > 0 {
					var ids []string
					for _, v := range available {
						ids = append(ids, v.VariantID)
					}
					return nil, fmt.Errorf("%w: '%s' (available: %v)", ErrVariantNotFound, variant, ids)
				}
			}
			return nil, fmt.Errorf("failed to load variant %s: %w", variant, err)
		}
	} else {
		rules = s.variants.GetDefault()
	}

	// An empty sessionID lets the session manager generate one.
	sess, err := s.sessions.Create(sessionID, creatorID, rules)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("creator_id", creatorID).
		Str("variant", rules.Name).
		Msg("Table created")

	return s.sessionInfo(sess), nil
}

// GetSession retrieves table information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active tables
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a table
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// Join seats a player at a table in the lobby phase
func (s *gameServiceImpl) Join(ctx context.Context, sessionID, playerID, name string) (*JoinResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	joinErr := sess.Engine.Join(playerID, name)
	snap := sess.Engine.Snapshot()
	sess.Unlock()
	if joinErr != nil {
		return nil, joinErr
	}

	s.afterMutation(sessionID)

	return &JoinResult{
		SessionID:   sessionID,
		PlayerID:    playerID,
		PlayerCount: len(snap.Players),
		Snapshot:    snap,
	}, nil
}

// Start deals the tiles and begins play. Only the table's creator may start.
func (s *gameServiceImpl) Start(ctx context.Context, sessionID, requesterID string) (*StartResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.rngMu.Lock()
	rng := rand.New(rand.NewSource(s.rng.Int63()))
	s.rngMu.Unlock()

	sess.Lock()
	startErr := sess.Engine.Start(requesterID, rng)
	var hand []engine.Tile
	var snap *engine.TableSnapshot
	if startErr == nil {
		hand = s.handOf(sess, requesterID)
		snap = sess.Engine.Snapshot()
	}
	sess.Unlock()
	if startErr != nil {
		return nil, startErr
	}

	s.afterMutation(sessionID)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("round_id", snap.RoundID).
		Int("players", len(snap.Players)).
		Msg("Round started")

	return &StartResult{
		SessionID: sessionID,
		RoundID:   snap.RoundID,
		Hand:      hand,
		Snapshot:  snap,
	}, nil
}

// Play places a tile on the table for the turn holder
func (s *gameServiceImpl) Play(ctx context.Context, sessionID, playerID, tileID string) (*PlayResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	out, playErr := sess.Engine.Play(playerID, tileID)
	var hand []engine.Tile
	var snap *engine.TableSnapshot
	var winnerName string
	if playErr == nil {
		hand = s.handOf(sess, playerID)
		snap = sess.Engine.Snapshot()
		if out.Ended {
			winnerName = sess.Engine.PlayerName(out.WinnerID)
		}
	}
	sess.Unlock()
	if playErr != nil {
		return nil, playErr
	}

	s.afterMutation(sessionID)

	result := &PlayResult{
		SessionID:    sessionID,
		Placed:       out.Placed,
		Ends:         out.Ends,
		Hand:         hand,
		NextPlayerID: out.NextPlayerID,
		Ended:        out.Ended,
		WinnerID:     out.WinnerID,
		Snapshot:     snap,
	}
	if out.Ended {
		result.EndReason = snap.EndReason
		s.recordOutcome(ctx, sessionID, out.WinnerID, winnerName, sess.Rules.WinCoins)
	}
	return result, nil
}

// DrawOrPass performs the turn holder's draw-or-pass action
func (s *gameServiceImpl) DrawOrPass(ctx context.Context, sessionID, playerID string) (*DrawResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	out, drawErr := sess.Engine.DrawOrPass(playerID)
	var hand []engine.Tile
	var snap *engine.TableSnapshot
	var winnerName string
	if drawErr == nil {
		hand = s.handOf(sess, playerID)
		snap = sess.Engine.Snapshot()
		if out.Ended && out.WinnerID != "" {
			winnerName = sess.Engine.PlayerName(out.WinnerID)
		}
	}
	sess.Unlock()
	if drawErr != nil {
		return nil, drawErr
	}

	s.afterMutation(sessionID)

	result := &DrawResult{
		SessionID:    sessionID,
		Drawn:        out.Drawn,
		TurnAdvanced: out.TurnAdvanced,
		NextPlayerID: out.NextPlayerID,
		Hand:         hand,
		Ended:        out.Ended,
		WinnerID:     out.WinnerID,
		EndReason:    out.EndReason,
		Snapshot:     snap,
	}
	if out.Ended && out.WinnerID != "" {
		s.recordOutcome(ctx, sessionID, out.WinnerID, winnerName, sess.Rules.WinCoins)
	}
	return result, nil
}

// GetTableState returns the public view of a table
func (s *gameServiceImpl) GetTableState(ctx context.Context, sessionID string) (*engine.TableSnapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	sess.Lock()
	snap := sess.Engine.Snapshot()
	sess.Unlock()
	return snap, nil
}

// GetPlayerState returns one player's private view: hand, playable tiles,
// and whether it is their turn.
func (s *gameServiceImpl) GetPlayerState(ctx context.Context, sessionID, playerID string) (*PlayerState, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	hand := s.handOf(sess, playerID)
	if hand == nil {
		return nil, engine.ErrUnknownPlayer
	}
	snap := sess.Engine.Snapshot()
	return &PlayerState{
		SessionID: sessionID,
		PlayerID:  playerID,
		Hand:      hand,
		Playable:  sess.Engine.PlayableFor(playerID),
		YourTurn:  snap.CurrentPlayerID == playerID,
	}, nil
}

// ListVariants returns available rule variants
func (s *gameServiceImpl) ListVariants(ctx context.Context) ([]*VariantInfo, error) {
	return s.variants.ListRules()
}

// LoadVariant loads a specific rule variant
func (s *gameServiceImpl) LoadVariant(ctx context.Context, name string) (*engine.Rules, error) {
	return s.variants.LoadRules(name)
}

// Leaderboard returns the top players by recorded wins
func (s *gameServiceImpl) Leaderboard(ctx context.Context, limit int) ([]stats.PlayerStats, error) {
	return s.recorder.Leaderboard(ctx, limit)
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	sess.Lock()
	snap := sess.Engine.Snapshot()
	createdAt := sess.CreatedAt
	lastAccessedAt := sess.LastAccessedAt
	sess.Unlock()
	return &SessionInfo{
		ID:             sess.ID,
		Variant:        sess.Rules.Name,
		CreatedAt:      createdAt,
		LastAccessedAt: lastAccessedAt,
		Snapshot:       snap,
	}
}

// handOf copies the player's hand while the session lock is held. Returns
// nil for an unknown player.
func (s *gameServiceImpl) handOf(sess *Session, playerID string) []engine.Tile {
	for _, p := range sess.Engine.State().Players {
		if p.ID == playerID {
			hand := make([]engine.Tile, len(p.Hand))
			copy(hand, p.Hand)
			return hand
		}
	}
	return nil
}

// afterMutation persists the session and bumps its access time. Persistence
// failures are logged, never surfaced to the player.
func (s *gameServiceImpl) afterMutation(sessionID string) {
	s.sessions.UpdateLastAccessed(sessionID)
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to persist session")
	}
}

// recordOutcome credits the round winner. Stat failures are logged, never
// surfaced; the game result stands regardless.
func (s *gameServiceImpl) recordOutcome(ctx context.Context, sessionID, winnerID, winnerName string, coins int) {
	if winnerID == "" {
		return
	}
	if err := s.recorder.RecordWin(ctx, winnerID, winnerName, coins); err != nil {
		s.logger.Warn().Err(err).
			Str("session_id", sessionID).
			Str("winner_id", winnerID).
			Msg("Failed to record win")
		return
	}
	s.logger.Info().
		Str("session_id", sessionID).
		Str("winner_id", winnerID).
		Int("coins", coins).
		Msg("Win recorded")
}
