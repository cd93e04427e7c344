package engine

import "fmt"

// IsPlayable reports whether the tile can be placed against the current
// table ends. An empty table accepts any tile.
func IsPlayable(tile Tile, ends TableEnds) bool {
	if !ends.Open {
		return true
	}
	return tile.SideA == ends.Left || tile.SideA == ends.Right ||
		tile.SideB == ends.Left || tile.SideB == ends.Right
}

// PlayableTiles filters a hand down to the tiles playable against the given
// ends. It never mutates its inputs and is safe to call for display outside
// the holder's turn; turn ownership is enforced separately by the engine.
func PlayableTiles(hand []Tile, ends TableEnds) []Tile {
	playable := make([]Tile, 0, len(hand))
	for _, t := range hand {
		if IsPlayable(t, ends) {
			playable = append(playable, t)
		}
	}
	return playable
}

// placeTile returns the table ends after placing a playable tile. The left
// end is checked before the right, so a tile touching both ends resolves to
// the left deterministically. The first tile opens the table with its own
// two values.
func placeTile(tile Tile, ends TableEnds) TableEnds {
	if !ends.Open {
		return TableEnds{Left: tile.SideA, Right: tile.SideB, Open: true}
	}
	switch {
	case tile.SideA == ends.Left:
		ends.Left = tile.SideB
	case tile.SideB == ends.Left:
		ends.Left = tile.SideA
	case tile.SideA == ends.Right:
		ends.Right = tile.SideB
	case tile.SideB == ends.Right:
		ends.Right = tile.SideA
	}
	return ends
}

// pipSum totals the pip values of a hand, used for stalemate resolution.
func pipSum(hand []Tile) int {
	sum := 0
	for _, t := range hand {
		sum += t.PipSum()
	}
	return sum
}

// DefaultRules returns the classic gaple variant: seven-tile hands, no
// stock draws, blocked games resolved by lowest pip sum.
func DefaultRules() *Rules {
	return &Rules{
		Name:          "classic",
		Description:   "Classic gaple: no stock draws, pass when stuck",
		HandSize:      DefaultHandSize,
		MinPlayers:    MinPlayers,
		MaxPlayers:    MaxPlayers,
		DrawPolicy:    DrawNone,
		StalemateRule: StalemateLowestPips,
		WinCoins:      10,
	}
}

// ValidateRules checks that a variant is internally consistent and can be
// dealt from the 28-tile set.
func ValidateRules(r *Rules) error {
	if r == nil {
		return fmt.Errorf("rules cannot be nil")
	}
	if r.Name == "" {
		return fmt.Errorf("rules name is required")
	}
	if r.HandSize < 1 {
		return fmt.Errorf("hand_size must be positive, got %d", r.HandSize)
	}
	if r.MinPlayers < MinPlayers {
		return fmt.Errorf("min_players must be at least %d, got %d", MinPlayers, r.MinPlayers)
	}
	if r.MaxPlayers > MaxPlayers {
		return fmt.Errorf("max_players must be at most %d, got %d", MaxPlayers, r.MaxPlayers)
	}
	if r.MinPlayers > r.MaxPlayers {
		return fmt.Errorf("min_players %d exceeds max_players %d", r.MinPlayers, r.MaxPlayers)
	}
	if r.MaxPlayers*r.HandSize > FullSetSize {
		return fmt.Errorf("%w: %d players with %d-tile hands exceed the %d-tile set",
			ErrInsufficientTiles, r.MaxPlayers, r.HandSize, FullSetSize)
	}
	switch r.DrawPolicy {
	case DrawNone, DrawSingle, DrawUntilPlayable:
	default:
		return fmt.Errorf("unknown draw_policy %q", r.DrawPolicy)
	}
	switch r.StalemateRule {
	case StalemateLowestPips, StalematePlayOn:
	default:
		return fmt.Errorf("unknown stalemate_rule %q", r.StalemateRule)
	}
	if r.WinCoins < 0 {
		return fmt.Errorf("win_coins must not be negative, got %d", r.WinCoins)
	}
	return nil
}
