// Package board implements the authoritative minesweeper engine: the mine
// layout, the derived count grid and the tile state every viewer sees.
//
// A Board is not safe for concurrent use. Rooms own exactly one board and
// mutate it from their own goroutine.
package board

import (
	"errors"
	"math/rand/v2"

	"github.com/gammazero/deque"

	"github.com/wfunc/sweepserver/grid"
)

var (
	ErrTooManyMines = errors.New("mine count exceeds board size")
	ErrShape        = errors.New("layout shape does not match board")
)

// Board holds one round of play.
type Board struct {
	mines     *grid.Grid[bool]
	counts    *grid.Grid[uint8]
	tiles     *grid.Grid[Tile]
	mineCount int
}

// New creates an empty board with every tile hidden and no mines placed.
func New(width, height int, topology grid.Topology) *Board {
	b := &Board{
		mines:  grid.New[bool](width, height, topology),
		counts: grid.New[uint8](width, height, topology),
		tiles:  grid.New[Tile](width, height, topology),
	}
	b.tiles.Fill(Wall)
	return b
}

func (b *Board) Width() int              { return b.tiles.Width() }
func (b *Board) Height() int             { return b.tiles.Height() }
func (b *Board) Topology() grid.Topology { return b.tiles.Topology() }
func (b *Board) MineCount() int          { return b.mineCount }

// Grid exposes the tile grid for read-only geometry queries.
func (b *Board) Grid() *grid.Grid[Tile] { return b.tiles }

func (b *Board) Tile(p grid.Pos) Tile   { return b.tiles.Get(p) }
func (b *Board) IsMine(p grid.Pos) bool { return b.mines.Get(p) }
func (b *Board) Count(p grid.Pos) uint8 { return b.counts.Get(p) }

// Shuffle places mineCount mines uniformly at random and resets the tiles.
func (b *Board) Shuffle(mineCount int, rng *rand.Rand) error {
	n := b.mines.Len()
	if mineCount < 0 || mineCount > n {
		return ErrTooManyMines
	}
	cells := b.mines.Cells()
	for i := range cells {
		cells[i] = i < mineCount
	}
	rng.Shuffle(n, func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})
	b.mineCount = mineCount
	b.recount()
	b.Reset()
	return nil
}

// ApplyLayout replaces the mine layout wholesale and resets the tiles.
func (b *Board) ApplyLayout(mines *grid.Grid[bool]) error {
	if !grid.SameShape(b.mines, mines) {
		return ErrShape
	}
	b.mines = mines.Clone()
	b.mineCount = 0
	for _, m := range b.mines.Cells() {
		if m {
			b.mineCount++
		}
	}
	b.recount()
	b.Reset()
	return nil
}

// Layout returns copies of the mine and count grids.
func (b *Board) Layout() (*grid.Grid[bool], *grid.Grid[uint8]) {
	return b.mines.Clone(), b.counts.Clone()
}

// Reset hides every tile, keeping the layout.
func (b *Board) Reset() {
	b.tiles.Fill(Wall)
}

func (b *Board) Clone() *Board {
	return &Board{
		mines:     b.mines.Clone(),
		counts:    b.counts.Clone(),
		tiles:     b.tiles.Clone(),
		mineCount: b.mineCount,
	}
}

// recount derives the count grid from the mine layout.
func (b *Board) recount() {
	for i := range b.counts.Cells() {
		p := b.counts.PosOf(i)
		var n uint8
		b.mines.ForEachNeighbor(p, false, func(q grid.Pos, _ bool) {
			if b.mines.Get(q) {
				n++
			}
		})
		b.counts.Set(p, n)
	}
}

// Reveal opens p. Revealing a revealed or flagged tile does nothing; a mine
// becomes Mine and the caller decides the loss. Otherwise a flood fill runs
// from p and the numbered cells on its edge are returned as border chains.
// A numbered p is revealed on its own and yields no chains.
func (b *Board) Reveal(p grid.Pos) []*Border {
	if b.tiles.Get(p) != Wall {
		return nil
	}
	if b.mines.Get(p) {
		b.tiles.Set(p, Mine)
		return nil
	}
	if b.counts.Get(p) != 0 {
		b.tiles.Set(p, Tile(b.counts.Get(p)))
		return nil
	}

	var (
		chains   []*Border
		frontier deque.Deque[grid.Pos]
		queued   = grid.New[bool](b.Width(), b.Height(), b.Topology())
	)
	frontier.PushBack(p)
	queued.Set(p, true)

	for frontier.Len() > 0 {
		c := frontier.PopFront()
		if b.tiles.Get(c) == Wall {
			n := b.counts.Get(c)
			b.tiles.Set(c, Tile(n))
			if n != 0 {
				chains = b.addToChain(chains, p, c)
				continue
			}
		}
		// c is a zero cell, fresh or revealed by an earlier flood.
		b.tiles.ForEachNeighbor(c, false, func(q grid.Pos, _ bool) {
			if queued.Get(q) {
				return
			}
			if t := b.tiles.Get(q); t == Wall || t == 0 {
				queued.Set(q, true)
				frontier.PushBack(q)
			}
		})
	}

	return mergeBorders(b.tiles, chains)
}

func (b *Board) addToChain(chains []*Border, origin, p grid.Pos) []*Border {
	for _, chain := range chains {
		if chain.attach(b.tiles, p) {
			return chains
		}
	}
	return append(chains, NewBorder(origin, p))
}

// Chord reveals the hidden neighbors of the numbered tile at p when the
// number of flagged or exposed-mine neighbors matches its count. failed is true when one of
// those neighbors was a mine; the hidden neighbors are then all exposed and
// no chains are returned.
func (b *Board) Chord(p grid.Pos) (failed bool, borders []*Border) {
	t := b.tiles.Get(p)
	if !t.Revealed() || t == 0 {
		return false, nil
	}

	var flagged int
	var hidden []grid.Pos
	b.tiles.ForEachNeighbor(p, false, func(q grid.Pos, _ bool) {
		switch b.tiles.Get(q) {
		case Flag, Mine:
			flagged++
		case Wall:
			hidden = append(hidden, q)
		}
	})
	if flagged != int(t) {
		return false, nil
	}

	for _, q := range hidden {
		if b.mines.Get(q) {
			failed = true
			break
		}
	}
	if failed {
		for _, q := range hidden {
			if b.mines.Get(q) {
				b.tiles.Set(q, Mine)
			} else {
				b.tiles.Set(q, Tile(b.counts.Get(q)))
			}
		}
		return true, nil
	}

	for _, q := range hidden {
		if b.tiles.Get(q) != Wall {
			// opened by an earlier neighbor's flood
			continue
		}
		chains := b.Reveal(q)
		if len(chains) == 0 {
			chains = []*Border{{Origin: q}}
			if b.counts.Get(q) != 0 {
				chains[0].cells.PushBack(q)
			}
		}
		borders = append(borders, chains...)
	}
	return false, borders
}

// ToggleFlag flips a hidden tile between Wall and Flag and returns the new
// tile. Revealed tiles are left alone.
func (b *Board) ToggleFlag(p grid.Pos) (Tile, bool) {
	switch b.tiles.Get(p) {
	case Wall:
		b.tiles.Set(p, Flag)
		return Flag, true
	case Flag:
		b.tiles.Set(p, Wall)
		return Wall, true
	}
	return b.tiles.Get(p), false
}

// MoveFirstMine relocates a mine under p to a random mine-free cell so the
// first click of a round never loses. It reports whether a mine was moved.
func (b *Board) MoveFirstMine(p grid.Pos, rng *rand.Rand) bool {
	if !b.mines.Get(p) {
		return false
	}
	var free []int
	for i, m := range b.mines.Cells() {
		if !m && i != b.mines.Index(p) {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return false
	}
	b.mines.Set(p, false)
	b.mines.Cells()[free[rng.IntN(len(free))]] = true
	b.recount()
	return true
}

// CheckWin reports whether every mine-free cell is revealed.
func (b *Board) CheckWin() bool {
	tiles := b.tiles.Cells()
	for i, m := range b.mines.Cells() {
		if !m && !tiles[i].Revealed() {
			return false
		}
	}
	return true
}

// ExposeMines shows every mine, used when a round is lost.
func (b *Board) ExposeMines() {
	tiles := b.tiles.Cells()
	for i, m := range b.mines.Cells() {
		if m {
			tiles[i] = Mine
		}
	}
}

// Tiles copies the tile grid in index order.
func (b *Board) Tiles() []Tile {
	out := make([]Tile, b.tiles.Len())
	copy(out, b.tiles.Cells())
	return out
}

// FlagCount is the number of flagged tiles.
func (b *Board) FlagCount() int {
	var n int
	for _, t := range b.tiles.Cells() {
		if t == Flag {
			n++
		}
	}
	return n
}

// NeighborTiles lists the tiles around p in neighbor order, with NoCell
// standing in for positions off the grid.
func (b *Board) NeighborTiles(p grid.Pos) []Tile {
	out := make([]Tile, 0, grid.NeighborCount(b.Topology()))
	b.tiles.ForEachNeighbor(p, true, func(q grid.Pos, ok bool) {
		if !ok {
			out = append(out, NoCell)
			return
		}
		out = append(out, b.tiles.Get(q))
	})
	return out
}
