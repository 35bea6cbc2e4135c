package board

import (
	"github.com/gammazero/deque"

	"github.com/wfunc/sweepserver/grid"
)

// Border is one chain of revealed numbered cells on the edge of a flood
// filled region. Consecutive cells are chain adjacent. Origin is the cell
// whose reveal produced the chain; an empty Border only carries its origin.
type Border struct {
	Origin grid.Pos
	cells  deque.Deque[grid.Pos]
}

// NewBorder starts a chain. Callers outside the engine use it to build
// fixtures.
func NewBorder(origin grid.Pos, cells ...grid.Pos) *Border {
	b := &Border{Origin: origin}
	for _, c := range cells {
		b.cells.PushBack(c)
	}
	return b
}

func (b *Border) Len() int { return b.cells.Len() }

func (b *Border) Head() grid.Pos { return b.cells.Front() }
func (b *Border) Tail() grid.Pos { return b.cells.Back() }

// Cells copies the chain in order.
func (b *Border) Cells() []grid.Pos {
	out := make([]grid.Pos, b.cells.Len())
	for i := range out {
		out[i] = b.cells.At(i)
	}
	return out
}

// PopFront removes and returns the chain start.
func (b *Border) PopFront() (grid.Pos, bool) {
	if b.cells.Len() == 0 {
		return grid.Pos{}, false
	}
	return b.cells.PopFront(), true
}

// attach appends p at whichever end it is chain adjacent to.
func (b *Border) attach(g *grid.Grid[Tile], p grid.Pos) bool {
	switch {
	case g.Adjacent(b.Tail(), p):
		b.cells.PushBack(p)
	case g.Adjacent(b.Head(), p):
		b.cells.PushFront(p)
	default:
		return false
	}
	return true
}

// merge splices o onto b when their endpoints touch. o is left untouched on
// failure.
func (b *Border) merge(g *grid.Grid[Tile], o *Border) bool {
	n := o.cells.Len()
	switch {
	case g.Adjacent(b.Tail(), o.Head()):
		for i := 0; i < n; i++ {
			b.cells.PushBack(o.cells.At(i))
		}
	case g.Adjacent(b.Tail(), o.Tail()):
		for i := n - 1; i >= 0; i-- {
			b.cells.PushBack(o.cells.At(i))
		}
	case g.Adjacent(b.Head(), o.Tail()):
		for i := n - 1; i >= 0; i-- {
			b.cells.PushFront(o.cells.At(i))
		}
	case g.Adjacent(b.Head(), o.Head()):
		for i := 0; i < n; i++ {
			b.cells.PushFront(o.cells.At(i))
		}
	default:
		return false
	}
	return true
}

// mergeBorders joins chains until no two have touching endpoints.
func mergeBorders(g *grid.Grid[Tile], chains []*Border) []*Border {
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(chains) && !merged; i++ {
			for j := i + 1; j < len(chains); j++ {
				if chains[i].merge(g, chains[j]) {
					chains = append(chains[:j], chains[j+1:]...)
					merged = true
					break
				}
			}
		}
	}
	return chains
}
