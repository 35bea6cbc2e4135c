// Package border turns flood fill borders into HOLE messages and rebuilds
// the revealed region from them on the receiving side.
//
// Only the numbered cells on the edge of an opening cross the wire. The
// zero cells inside are recovered by a bounded flood from the click that
// stops at those numbers, so a reveal costs O(perimeter) bytes.
package border

import (
	"errors"
	"fmt"

	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/network"
)

const (
	countBits = 3
	countMask = 1<<countBits - 1
)

var (
	ErrCountOverflow = errors.New("border cell count does not fit in a chain unit")
	ErrBadDirection  = errors.New("invalid chain direction")
	ErrOutOfBounds   = errors.New("chain leaves the grid")
	ErrNotAdjacent   = errors.New("border cells are not adjacent")
)

// Unit packs one chain step.
func Unit(d grid.Direction, count uint8) uint32 {
	return uint32(d)<<countBits | uint32(count)
}

// SplitUnit is the inverse of Unit.
func SplitUnit(u uint32) (grid.Direction, uint8) {
	return grid.Direction(u >> countBits), uint8(u & countMask)
}

// Encode drains b into a HOLE message. Each unit carries the step from a
// cell to the next together with the count of the cell being left; the
// final cell is written with the End direction.
func Encode(g *grid.Grid[board.Tile], b *board.Border, click grid.Pos, last bool) (network.Hole, error) {
	hole := network.Hole{
		ClickX: uint32(click.X),
		ClickY: uint32(click.Y),
		StartX: uint32(b.Origin.X),
		StartY: uint32(b.Origin.Y),
		Last:   last,
	}

	prev, ok := b.PopFront()
	if !ok {
		return hole, nil
	}
	hole.StartX, hole.StartY = uint32(prev.X), uint32(prev.Y)
	hole.Directions = make([]uint32, 0, b.Len()+1)

	for {
		count, err := chainCount(g, prev)
		if err != nil {
			return hole, err
		}
		next, ok := b.PopFront()
		if !ok {
			hole.Directions = append(hole.Directions, Unit(grid.End, count))
			return hole, nil
		}
		d, ok := g.Direction(prev, next)
		if !ok {
			return hole, fmt.Errorf("%w: %v -> %v", ErrNotAdjacent, prev, next)
		}
		hole.Directions = append(hole.Directions, Unit(d, count))
		prev = next
	}
}

func chainCount(g *grid.Grid[board.Tile], p grid.Pos) (uint8, error) {
	t := g.Get(p)
	if !t.Revealed() || t > countMask {
		return 0, fmt.Errorf("%w: %v at %v", ErrCountOverflow, t, p)
	}
	return uint8(t), nil
}

// Decode writes the chain carried by hole onto view. Units after the End
// marker are padding and ignored.
func Decode(view *grid.Grid[board.Tile], hole network.Hole) error {
	cur := grid.Pos{X: int(hole.StartX), Y: int(hole.StartY)}
	maxDir := grid.MaxDirection(view.Topology())
	for _, u := range hole.Directions {
		d, count := SplitUnit(u)
		if !view.InBounds(cur) {
			return fmt.Errorf("%w: %v", ErrOutOfBounds, cur)
		}
		view.Set(cur, board.Tile(count))
		if d == grid.End {
			return nil
		}
		if d > maxDir {
			return fmt.Errorf("%w: %d", ErrBadDirection, d)
		}
		cur, _ = view.Step(cur, d)
	}
	return nil
}

// Flood rebuilds the zero cells of an opening from click. It expands through
// hidden cells, which must be zeros since every numbered edge cell has been
// decoded, and through zeros that are already open.
func Flood(view *grid.Grid[board.Tile], click grid.Pos) {
	if t, ok := view.Lookup(click); !ok || (t != board.Wall && t != 0) {
		return
	}
	visited := grid.New[bool](view.Width(), view.Height(), view.Topology())
	stack := []grid.Pos{click}
	visited.Set(click, true)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		view.Set(c, 0)
		view.ForEachNeighbor(c, false, func(q grid.Pos, _ bool) {
			if visited.Get(q) {
				return
			}
			if t := view.Get(q); t == board.Wall || t == 0 {
				visited.Set(q, true)
				stack = append(stack, q)
			}
		})
	}
}
