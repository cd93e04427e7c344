package engine

import (
	"fmt"
	"math/rand"
)

// FullSet returns the canonical double-six set: the 28 unordered pairs of
// pip values 0..6, in a deterministic order, identical on every call.
func FullSet() []Tile {
	set := make([]Tile, 0, FullSetSize)
	for a := 0; a <= MaxPip; a++ {
		for b := 0; b <= a; b++ {
			set = append(set, Tile{
				ID:    fmt.Sprintf("%d-%d", a, b),
				SideA: a,
				SideB: b,
			})
		}
	}
	return set
}

// Shuffle returns a shuffled copy of the given tiles. The random source is
// caller-supplied so tests can inject a fixed seed.
func Shuffle(tiles []Tile, rng *rand.Rand) []Tile {
	out := make([]Tile, len(tiles))
	copy(out, tiles)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Deal splits playerCount*handSize tiles off the top of the shuffled deck
// into block-dealt hands and returns the remainder as the stock. Draws pop
// from the end of the stock slice (LIFO).
func Deal(deck []Tile, playerCount, handSize int) ([][]Tile, []Tile, error) {
	need := playerCount * handSize
	if need > len(deck) {
		return nil, nil, fmt.Errorf("%w: need %d tiles for %d players, deck has %d",
			ErrInsufficientTiles, need, playerCount, len(deck))
	}

	hands := make([][]Tile, playerCount)
	for i := 0; i < playerCount; i++ {
		hand := make([]Tile, handSize)
		copy(hand, deck[i*handSize:(i+1)*handSize])
		hands[i] = hand
	}

	stock := make([]Tile, len(deck)-need)
	copy(stock, deck[need:])
	return hands, stock, nil
}
