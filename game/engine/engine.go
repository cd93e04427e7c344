package engine

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

var (
	ErrWrongPhase        = errors.New("operation not valid in current phase")
	ErrAlreadyJoined     = errors.New("player already joined")
	ErrLobbyFull         = errors.New("lobby is full")
	ErrUnknownPlayer     = errors.New("player not seated at this table")
	ErrNotCreator        = errors.New("only the table creator can start")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrTileNotInHand     = errors.New("tile not in hand")
	ErrTileNotPlayable   = errors.New("tile does not match either table end")
	ErrInsufficientTiles = errors.New("deck too small for requested deal")
)

// GameEngine is the state machine for a single table. It is not safe for
// concurrent use; the session layer serializes access per table.
type GameEngine struct {
	state *GameState
	rules *Rules
}

// NewEngine creates a table in the lobby phase.
func NewEngine(id, creatorID string, rules *Rules) (*GameEngine, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return &GameEngine{
		rules: rules,
		state: &GameState{
			ID:        id,
			CreatorID: creatorID,
			Variant:   rules.Name,
			Status:    StatusLobby,
			Players:   []*Player{},
		},
	}, nil
}

// RestoreEngine rebuilds an engine around persisted state.
func RestoreEngine(state *GameState, rules *Rules) (*GameEngine, error) {
	if state == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	if state.Status == StatusPlaying &&
		(state.TurnIndex < 0 || state.TurnIndex >= len(state.Players)) {
		return nil, fmt.Errorf("persisted turn index %d out of range for %d players",
			state.TurnIndex, len(state.Players))
	}
	return &GameEngine{state: state, rules: rules}, nil
}

// State returns the full internal state. Used by the persistence layer;
// transports must use Snapshot instead.
func (e *GameEngine) State() *GameState { return e.state }

// Rules returns the variant this table plays.
func (e *GameEngine) Rules() *Rules { return e.rules }

// Join seats a player. Valid only in the lobby phase.
func (e *GameEngine) Join(playerID, name string) error {
	if e.state.Status != StatusLobby {
		return ErrWrongPhase
	}
	for _, p := range e.state.Players {
		if p.ID == playerID {
			return ErrAlreadyJoined
		}
	}
	if len(e.state.Players) >= e.rules.MaxPlayers {
		return ErrLobbyFull
	}
	e.state.Players = append(e.state.Players, &Player{ID: playerID, Name: name, Hand: []Tile{}})
	return nil
}

// Start deals the round and moves the table to the playing phase. Only the
// creator may start, and only with enough seated players.
func (e *GameEngine) Start(requesterID string, rng *rand.Rand) error {
	if e.state.Status != StatusLobby {
		return ErrWrongPhase
	}
	if requesterID != e.state.CreatorID {
		return ErrNotCreator
	}
	if len(e.state.Players) < e.rules.MinPlayers {
		return ErrNotEnoughPlayers
	}

	deck := Shuffle(FullSet(), rng)
	hands, stock, err := Deal(deck, len(e.state.Players), e.rules.HandSize)
	if err != nil {
		return err
	}

	for i, p := range e.state.Players {
		p.Hand = hands[i]
	}
	e.state.Stock = stock
	e.state.Status = StatusPlaying
	e.state.TurnIndex = 0
	e.state.Ends = TableEnds{}
	e.state.RoundID = uuid.NewString()
	e.state.PassStreak = 0
	e.state.PlayedCount = 0
	return nil
}

// PlayableFor returns the tiles the player may place right now. Players who
// do not hold the turn always get an empty slice; tile choice is a
// turn-holder privilege even though the predicate itself is public.
func (e *GameEngine) PlayableFor(playerID string) []Tile {
	if e.state.Status != StatusPlaying {
		return []Tile{}
	}
	cur := e.currentPlayer()
	if cur.ID != playerID {
		return []Tile{}
	}
	return PlayableTiles(cur.Hand, e.state.Ends)
}

// Play removes the identified tile from the turn holder's hand and places
// it against the matching end. All preconditions are checked before any
// mutation, so a failed Play leaves the table untouched.
func (e *GameEngine) Play(playerID, tileID string) (*PlayOutcome, error) {
	if e.state.Status != StatusPlaying {
		return nil, ErrWrongPhase
	}
	p := e.playerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if e.currentPlayer().ID != playerID {
		return nil, ErrNotYourTurn
	}
	idx := -1
	for i, t := range p.Hand {
		if t.ID == tileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrTileNotInHand
	}
	tile := p.Hand[idx]
	if !IsPlayable(tile, e.state.Ends) {
		return nil, ErrTileNotPlayable
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	e.state.Ends = placeTile(tile, e.state.Ends)
	e.state.PlayedCount++
	e.state.PassStreak = 0

	out := &PlayOutcome{Placed: tile, Ends: e.state.Ends}
	if len(p.Hand) == 0 {
		e.state.Status = StatusEnded
		e.state.WinnerID = p.ID
		e.state.EndReason = EndReasonWin
		out.Ended = true
		out.WinnerID = p.ID
		return out, nil
	}

	e.advanceTurn()
	out.NextPlayerID = e.currentPlayer().ID
	return out, nil
}

// DrawOrPass is the turn holder's "cannot or will not play" action. What it
// does depends on the variant's draw policy; see DrawPolicy.
func (e *GameEngine) DrawOrPass(playerID string) (*DrawOutcome, error) {
	if e.state.Status != StatusPlaying {
		return nil, ErrWrongPhase
	}
	p := e.playerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if e.currentPlayer().ID != playerID {
		return nil, ErrNotYourTurn
	}

	out := &DrawOutcome{}
	switch e.rules.DrawPolicy {
	case DrawSingle:
		if len(e.state.Stock) == 0 {
			return e.pass(out)
		}
		tile := e.popStock()
		p.Hand = append(p.Hand, tile)
		out.Drawn = []Tile{tile}
		out.NextPlayerID = p.ID
		e.state.PassStreak = 0
		return out, nil

	case DrawUntilPlayable:
		for len(e.state.Stock) > 0 {
			tile := e.popStock()
			p.Hand = append(p.Hand, tile)
			out.Drawn = append(out.Drawn, tile)
			if IsPlayable(tile, e.state.Ends) {
				out.NextPlayerID = p.ID
				e.state.PassStreak = 0
				return out, nil
			}
		}
		if len(out.Drawn) > 0 {
			e.state.PassStreak = 0
		}
		return e.pass(out)

	default: // DrawNone
		return e.pass(out)
	}
}

// Snapshot returns the public read-only view of the table. It is a fresh
// value every call, so repeated snapshots without intervening mutations are
// identical and renders never observe live state.
func (e *GameEngine) Snapshot() *TableSnapshot {
	snap := &TableSnapshot{
		ID:          e.state.ID,
		RoundID:     e.state.RoundID,
		Variant:     e.state.Variant,
		Status:      e.state.Status,
		CreatorID:   e.state.CreatorID,
		Players:     make([]PlayerView, 0, len(e.state.Players)),
		TurnIndex:   e.state.TurnIndex,
		Ends:        e.state.Ends,
		StockSize:   len(e.state.Stock),
		PlayedCount: e.state.PlayedCount,
		WinnerID:    e.state.WinnerID,
		EndReason:   e.state.EndReason,
	}
	for _, p := range e.state.Players {
		snap.Players = append(snap.Players, PlayerView{ID: p.ID, Name: p.Name, HandSize: len(p.Hand)})
	}
	if e.state.Status == StatusPlaying {
		snap.CurrentPlayerID = e.currentPlayer().ID
	}
	return snap
}

// PlayerName resolves a seated player's display name, or "" if unknown.
func (e *GameEngine) PlayerName(playerID string) string {
	if p := e.playerByID(playerID); p != nil {
		return p.Name
	}
	return ""
}

// pass advances the turn, or ends a blocked round when every player has
// passed in a row and the stock has nothing left to offer.
func (e *GameEngine) pass(out *DrawOutcome) (*DrawOutcome, error) {
	e.state.PassStreak++

	drained := e.rules.DrawPolicy == DrawNone || len(e.state.Stock) == 0
	if e.rules.StalemateRule == StalemateLowestPips &&
		drained && e.state.PassStreak >= len(e.state.Players) {
		e.state.Status = StatusEnded
		e.state.EndReason = EndReasonStalemate
		e.state.WinnerID = e.lowestPipsWinner()
		out.Ended = true
		out.WinnerID = e.state.WinnerID
		out.EndReason = EndReasonStalemate
		return out, nil
	}

	e.advanceTurn()
	out.TurnAdvanced = true
	out.NextPlayerID = e.currentPlayer().ID
	return out, nil
}

// lowestPipsWinner picks the blocked-round winner by lowest pip sum.
// An exact tie returns "" (no winner recorded).
func (e *GameEngine) lowestPipsWinner() string {
	best := -1
	winner := ""
	tie := false
	for _, p := range e.state.Players {
		sum := pipSum(p.Hand)
		switch {
		case best < 0 || sum < best:
			best, winner, tie = sum, p.ID, false
		case sum == best:
			tie = true
		}
	}
	if tie {
		return ""
	}
	return winner
}

func (e *GameEngine) advanceTurn() {
	e.state.TurnIndex = (e.state.TurnIndex + 1) % len(e.state.Players)
}

func (e *GameEngine) currentPlayer() *Player {
	return e.state.Players[e.state.TurnIndex]
}

func (e *GameEngine) playerByID(id string) *Player {
	for _, p := range e.state.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *GameEngine) popStock() Tile {
	last := len(e.state.Stock) - 1
	tile := e.state.Stock[last]
	e.state.Stock = e.state.Stock[:last]
	return tile
}
