package engine

// Status represents the lifecycle stage of a table.
type Status string

const (
	// StatusLobby indicates the table is waiting for players.
	StatusLobby Status = "lobby"
	// StatusPlaying indicates a round is in progress.
	StatusPlaying Status = "playing"
	// StatusEnded indicates the round has finished. Terminal.
	StatusEnded Status = "ended"
)

// DrawPolicy selects what DrawOrPass does for the turn holder.
type DrawPolicy string

const (
	// DrawNone is classic gaple: no stock draws, DrawOrPass is a plain pass.
	DrawNone DrawPolicy = "none"
	// DrawSingle is cangkulan: one stock draw per call, the turn stays with
	// the drawer. An empty stock turns the call into a pass.
	DrawSingle DrawPolicy = "single"
	// DrawUntilPlayable is cangkulan with auto-loop: a single call keeps
	// drawing until a playable tile arrives or the stock empties, in which
	// case the turn passes.
	DrawUntilPlayable DrawPolicy = "until_playable"
)

// StalemateRule decides what happens when every player passes in a row with
// nothing left to draw.
type StalemateRule string

const (
	// StalemateLowestPips ends the blocked round; the player with the lowest
	// pip sum wins, an exact tie records no winner.
	StalemateLowestPips StalemateRule = "lowest_pips"
	// StalematePlayOn leaves a blocked table in the playing state.
	StalematePlayOn StalemateRule = "play_on"
)

// End reasons recorded on GameState when a round finishes.
const (
	EndReasonWin       = "win"
	EndReasonStalemate = "stalemate"
)

const (
	// MaxPip is the highest pip value in a double-six set.
	MaxPip = 6
	// FullSetSize is the number of tiles in a double-six set.
	FullSetSize = 28
	// DefaultHandSize is the customary gaple deal.
	DefaultHandSize = 7
	// MinPlayers and MaxPlayers bound the seats at a table. Four players
	// with seven-tile hands exhaust the 28-tile set.
	MinPlayers = 2
	MaxPlayers = 4
)

// Tile is an immutable domino tile. ID is "a-b" with a >= b.
type Tile struct {
	ID    string `json:"id"`
	SideA int    `json:"side_a"`
	SideB int    `json:"side_b"`
}

// IsDouble reports whether both sides carry the same pip value.
func (t Tile) IsDouble() bool { return t.SideA == t.SideB }

// PipSum returns the total pip count of the tile.
func (t Tile) PipSum() int { return t.SideA + t.SideB }

// TableEnds holds the two exposed pip values of the tile chain.
// Open is false until the first tile is placed.
type TableEnds struct {
	Left  int  `json:"left"`
	Right int  `json:"right"`
	Open  bool `json:"open"`
}

// Player holds a seated player's identity and hand. Seating order is join
// order; the hand sequence is stable for display but order carries no
// gameplay meaning.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hand []Tile `json:"hand"`
}

// Rules describes a game variant, loaded from a JSON variant file.
type Rules struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	HandSize      int           `json:"hand_size"`
	MinPlayers    int           `json:"min_players"`
	MaxPlayers    int           `json:"max_players"`
	DrawPolicy    DrawPolicy    `json:"draw_policy"`
	StalemateRule StalemateRule `json:"stalemate_rule"`
	WinCoins      int           `json:"win_coins"`
}

// GameState is the complete table state, including hands and stock. It is
// what the persistence layer serializes; transports only ever see a
// TableSnapshot.
type GameState struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	RoundID     string    `json:"round_id,omitempty"`
	Variant     string    `json:"variant"`
	Status      Status    `json:"status"`
	Players     []*Player `json:"players"`
	TurnIndex   int       `json:"turn_index"`
	Ends        TableEnds `json:"ends"`
	Stock       []Tile    `json:"stock"`
	WinnerID    string    `json:"winner_id,omitempty"`
	EndReason   string    `json:"end_reason,omitempty"`
	PassStreak  int       `json:"pass_streak"`
	PlayedCount int       `json:"played_count"`
}

// PlayerView is the public projection of a Player.
type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HandSize int    `json:"hand_size"`
}

// TableSnapshot is the read-only public view of a table, safe to broadcast
// to every client: it exposes hand sizes and the stock size, never tiles.
type TableSnapshot struct {
	ID              string       `json:"id"`
	RoundID         string       `json:"round_id,omitempty"`
	Variant         string       `json:"variant"`
	Status          Status       `json:"status"`
	CreatorID       string       `json:"creator_id"`
	Players         []PlayerView `json:"players"`
	TurnIndex       int          `json:"turn_index"`
	CurrentPlayerID string       `json:"current_player_id,omitempty"`
	Ends            TableEnds    `json:"ends"`
	StockSize       int          `json:"stock_size"`
	PlayedCount     int          `json:"played_count"`
	WinnerID        string       `json:"winner_id,omitempty"`
	EndReason       string       `json:"end_reason,omitempty"`
}

// PlayOutcome reports the effect of a successful Play.
type PlayOutcome struct {
	Placed       Tile      `json:"placed"`
	Ends         TableEnds `json:"ends"`
	NextPlayerID string    `json:"next_player_id,omitempty"`
	WinnerID     string    `json:"winner_id,omitempty"`
	Ended        bool      `json:"ended"`
}

// DrawOutcome reports the effect of a successful DrawOrPass.
type DrawOutcome struct {
	Drawn        []Tile `json:"drawn,omitempty"`
	TurnAdvanced bool   `json:"turn_advanced"`
	NextPlayerID string `json:"next_player_id,omitempty"`
	Ended        bool   `json:"ended"`
	WinnerID     string `json:"winner_id,omitempty"`
	EndReason    string `json:"end_reason,omitempty"`
}
