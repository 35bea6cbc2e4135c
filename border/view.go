package border

import (
	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/network"
)

// Messages encodes the chains produced by one reveal or chord. Chains are
// grouped by origin, which becomes the click of their HOLE messages, and the
// final chain of each group carries Last so the receiver knows when to flood.
func Messages(g *grid.Grid[board.Tile], borders []*board.Border) ([]network.Hole, error) {
	var order []grid.Pos
	groups := make(map[grid.Pos][]*board.Border)
	for _, b := range borders {
		if _, ok := groups[b.Origin]; !ok {
			order = append(order, b.Origin)
		}
		groups[b.Origin] = append(groups[b.Origin], b)
	}

	holes := make([]network.Hole, 0, len(borders))
	for _, origin := range order {
		group := groups[origin]
		for i, b := range group {
			hole, err := Encode(g, b, origin, i == len(group)-1)
			if err != nil {
				return nil, err
			}
			holes = append(holes, hole)
		}
	}
	return holes, nil
}

// View is the receiving side of the protocol: a tile grid kept in sync by
// applying server messages.
type View struct {
	tiles *grid.Grid[board.Tile]
	holes *Receiver
}

func NewView(width, height int, topology grid.Topology) *View {
	v := &View{tiles: grid.New[board.Tile](width, height, topology)}
	v.tiles.Fill(board.Wall)
	v.holes = NewReceiver(v.tiles)
	return v
}

func (v *View) Grid() *grid.Grid[board.Tile] { return v.tiles }

func (v *View) Tile(p grid.Pos) board.Tile { return v.tiles.Get(p) }

// Apply updates the view from one message. Kinds that do not describe tiles
// are ignored.
func (v *View) Apply(msg network.Message) error {
	switch m := msg.(type) {
	case network.Tile:
		v.tiles.Set(pos(m.X, m.Y), board.Tile(m.Tile))
	case network.Flag:
		p := pos(m.X, m.Y)
		if v.tiles.Get(p) == board.Flag {
			v.tiles.Set(p, board.Wall)
		} else if v.tiles.Get(p) == board.Wall {
			v.tiles.Set(p, board.Flag)
		}
	case network.Chord:
		i := 0
		v.tiles.ForEachNeighbor(pos(m.X, m.Y), true, func(q grid.Pos, ok bool) {
			if i < len(m.Tiles) && ok {
				v.tiles.Set(q, board.Tile(m.Tiles[i]))
			}
			i++
		})
	case network.Hole:
		return v.holes.Push(m)
	case network.Board:
		cells := v.tiles.Cells()
		for i := range cells {
			if i < len(m.Tiles) {
				cells[i] = board.Tile(m.Tiles[i])
			}
		}
	case network.Lose:
		cells := v.tiles.Cells()
		for i := range cells {
			if i < len(m.Mines) && m.Mines[i] == 1 {
				cells[i] = board.Mine
			}
		}
	case network.Reset:
		v.holes.Discard()
		v.tiles.Fill(board.Wall)
	}
	return nil
}

// Receiver buffers the HOLE messages of one opening. Nothing touches the
// grid until the chain marked Last arrives; then every chain is decoded and
// the opening flooded from its click.
type Receiver struct {
	view    *grid.Grid[board.Tile]
	pending []network.Hole
}

func NewReceiver(view *grid.Grid[board.Tile]) *Receiver {
	return &Receiver{view: view}
}

// Push queues h and applies the group once h is its last chain. A decode
// error drops the whole group.
func (r *Receiver) Push(h network.Hole) error {
	r.pending = append(r.pending, h)
	if !h.Last {
		return nil
	}
	defer r.Discard()
	for _, hole := range r.pending {
		if err := Decode(r.view, hole); err != nil {
			return err
		}
	}
	Flood(r.view, pos(h.ClickX, h.ClickY))
	return nil
}

// Pending is the number of chains waiting for their Last.
func (r *Receiver) Pending() int { return len(r.pending) }

func (r *Receiver) Discard() { r.pending = r.pending[:0] }

// String renders the view one row per line.
func (v *View) String() string {
	buf := make([]byte, 0, (v.tiles.Width()+1)*v.tiles.Height())
	for y := 0; y < v.tiles.Height(); y++ {
		for x := 0; x < v.tiles.Width(); x++ {
			buf = append(buf, v.tiles.Get(grid.Pos{X: x, Y: y}).String()...)
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}

func pos(x, y uint32) grid.Pos {
	return grid.Pos{X: int(x), Y: int(y)}
}
