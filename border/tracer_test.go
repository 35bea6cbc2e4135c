package border

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/network"
)

func layoutBoard(t *testing.T, topology grid.Topology, rows ...string) *board.Board {
	t.Helper()
	mines := grid.New[bool](len(rows[0]), len(rows), topology)
	for y, row := range rows {
		for x, c := range row {
			mines.Set(grid.Pos{X: x, Y: y}, c == '*')
		}
	}
	b := board.New(mines.Width(), mines.Height(), topology)
	if err := b.ApplyLayout(mines); err != nil {
		t.Fatalf("ApplyLayout failed: %v", err)
	}
	return b
}

// mazeBoard places mines along broken walls so openings have long, winding
// borders.
func mazeBoard(t *testing.T, w, h int, topology grid.Topology, rng *rand.Rand) *board.Board {
	t.Helper()
	mines := grid.New[bool](w, h, topology)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			wall := (x%4 == 3 && rng.IntN(5) != 0) || (y%5 == 4 && rng.IntN(4) != 0)
			mines.Set(grid.Pos{X: x, Y: y}, wall && rng.IntN(3) != 0)
		}
	}
	b := board.New(w, h, topology)
	if err := b.ApplyLayout(mines); err != nil {
		t.Fatalf("ApplyLayout failed: %v", err)
	}
	return b
}

// viewOf copies the current tiles of b into a receiver view.
func viewOf(b *board.Board) *View {
	v := NewView(b.Width(), b.Height(), b.Topology())
	copy(v.tiles.Cells(), b.Tiles())
	return v
}

func sendHoles(t *testing.T, b *board.Board, v *View, borders []*board.Border) {
	t.Helper()
	holes, err := Messages(b.Grid(), borders)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	for _, h := range holes {
		data, err := network.Encode(h)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		msg, err := network.Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if err := v.Apply(msg); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}
}

func TestEncode_SmallChain(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"....",
		"....",
		"***.",
	)
	click := grid.Pos{X: 0, Y: 0}
	borders := b.Reveal(click)
	if len(borders) != 1 {
		t.Fatalf("Expected one chain, got %d", len(borders))
	}
	cells := borders[0].Cells()
	if len(cells) != 4 {
		t.Fatalf("Expected the 4 cells of row 1, got %v", cells)
	}

	hole, err := Encode(b.Grid(), borders[0], click, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(hole.Directions) != 4 {
		t.Fatalf("Expected 4 units, got %d", len(hole.Directions))
	}
	if (grid.Pos{X: int(hole.StartX), Y: int(hole.StartY)}) != cells[0] {
		t.Errorf("Chain should start at %v", cells[0])
	}
	d, count := SplitUnit(hole.Directions[3])
	if d != grid.End || count != uint8(b.Count(cells[3])) {
		t.Errorf("Final unit should be End with the last count, got %d/%d", d, count)
	}
	for i := 0; i < 3; i++ {
		d, count := SplitUnit(hole.Directions[i])
		if count != uint8(b.Count(cells[i])) {
			t.Errorf("Unit %d carries count %d, want %d", i, count, b.Count(cells[i]))
		}
		want, _ := b.Grid().Direction(cells[i], cells[i+1])
		if d != want {
			t.Errorf("Unit %d carries direction %d, want %d", i, d, want)
		}
	}
	if borders[0].Len() != 0 {
		t.Error("Encode should drain the chain")
	}
}

func TestEncode_EmptyChain(t *testing.T) {
	b := layoutBoard(t, grid.Square, "..", "..")
	hole, err := Encode(b.Grid(), board.NewBorder(grid.Pos{X: 1, Y: 1}), grid.Pos{X: 1, Y: 1}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if hole.Directions != nil || hole.StartX != 1 || hole.StartY != 1 {
		t.Errorf("Unexpected empty hole %+v", hole)
	}
}

func TestEncode_CountOverflow(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"***",
		"*.*",
		"***",
	)
	center := grid.Pos{X: 1, Y: 1}
	b.Reveal(center)
	_, err := Encode(b.Grid(), board.NewBorder(center, center), center, true)
	if !errors.Is(err, ErrCountOverflow) {
		t.Errorf("Expected ErrCountOverflow for a count of 8, got %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	v := NewView(3, 3, grid.Square)
	bad := network.Hole{StartX: 0, StartY: 0, Directions: []uint32{Unit(5, 1), Unit(grid.End, 1)}}
	if err := Decode(v.Grid(), bad); !errors.Is(err, ErrBadDirection) {
		t.Errorf("Expected ErrBadDirection, got %v", err)
	}
	off := network.Hole{StartX: 0, StartY: 0, Directions: []uint32{Unit(grid.West, 1), Unit(grid.End, 1)}}
	if err := Decode(v.Grid(), off); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
}

func TestDecode_StopsAtEnd(t *testing.T) {
	v := NewView(4, 1, grid.Square)
	hole := network.Hole{Directions: []uint32{Unit(grid.East, 1), Unit(grid.End, 2), 0}}
	if err := Decode(v.Grid(), hole); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []board.Tile{1, 2, board.Wall, board.Wall}
	for x, tile := range want {
		if got := v.Tile(grid.Pos{X: x}); got != tile {
			t.Errorf("Tile %d = %v, want %v", x, got, tile)
		}
	}
}

func TestRoundTrip_MatchesReveal(t *testing.T) {
	for _, topology := range []grid.Topology{grid.Square, grid.Hex} {
		for seed := uint64(1); seed <= 25; seed++ {
			rng := rand.New(rand.NewPCG(seed, 77))
			b := mazeBoard(t, 24, 18, topology, rng)
			g := b.Grid()
			for i := 0; i < g.Len(); i++ {
				p := g.PosOf(i)
				if b.IsMine(p) || b.Count(p) != 0 || b.Tile(p) != board.Wall {
					continue
				}
				v := viewOf(b)
				borders := b.Reveal(p)
				if len(borders) == 0 {
					borders = []*board.Border{board.NewBorder(p)}
				}
				sendHoles(t, b, v, borders)
				if !reflect.DeepEqual(v.tiles.Cells(), b.Tiles()) {
					t.Fatalf("%v seed %d click %v: receiver view differs\nserver:\n%s\nview:\n%s",
						topology, seed, p, viewOf(b), v)
				}
			}
		}
	}
}

func TestRoundTrip_Chord(t *testing.T) {
	for seed := uint64(1); seed <= 40; seed++ {
		rng := rand.New(rand.NewPCG(seed, 5))
		b := board.New(16, 12, grid.Square)
		if err := b.Shuffle(20, rng); err != nil {
			t.Fatalf("Shuffle failed: %v", err)
		}
		g := b.Grid()
		for i := 0; i < g.Len(); i++ {
			p := g.PosOf(i)
			if b.IsMine(p) || b.Count(p) == 0 || b.Tile(p) != board.Wall {
				continue
			}
			b.Reveal(p)
			for _, q := range g.Neighbors(p) {
				if b.IsMine(q) && b.Tile(q) == board.Wall {
					b.ToggleFlag(q)
				}
			}

			v := viewOf(b)
			failed, borders := b.Chord(p)
			if failed {
				t.Fatalf("Chord with correct flags failed at %v", p)
			}
			tiles := b.NeighborTiles(p)
			chord := network.Chord{X: uint32(p.X), Y: uint32(p.Y), Tiles: make([]uint32, len(tiles))}
			for j, tile := range tiles {
				chord.Tiles[j] = uint32(tile)
			}
			if err := v.Apply(chord); err != nil {
				t.Fatalf("Apply chord failed: %v", err)
			}
			var openings []*board.Border
			for _, border := range borders {
				if b.Tile(border.Origin) == 0 {
					openings = append(openings, border)
				}
			}
			sendHoles(t, b, v, openings)
			if !reflect.DeepEqual(v.tiles.Cells(), b.Tiles()) {
				t.Fatalf("seed %d chord %v: receiver view differs\nserver:\n%s\nview:\n%s", seed, p, viewOf(b), v)
			}
		}
	}
}

func TestView_Apply(t *testing.T) {
	v := NewView(3, 2, grid.Square)
	v.Apply(network.Tile{X: 1, Y: 1, Tile: 3})
	v.Apply(network.Flag{X: 0, Y: 0, ID: 1})
	if v.Tile(grid.Pos{X: 1, Y: 1}) != 3 || v.Tile(grid.Pos{}) != board.Flag {
		t.Fatalf("Unexpected view:\n%s", v)
	}
	v.Apply(network.Flag{X: 0, Y: 0, ID: 1})
	if v.Tile(grid.Pos{}) != board.Wall {
		t.Error("A second FLAG should clear the flag")
	}

	// Column-major order: index = y + x*height.
	v.Apply(network.Lose{Mines: []uint32{0, 1, 0, 0, 0, 0, 0}})
	if v.Tile(grid.Pos{X: 0, Y: 1}) != board.Mine {
		t.Error("LOSE should expose mines in index order")
	}
	v.Apply(network.Reset{})
	if v.Tile(grid.Pos{X: 1, Y: 1}) != board.Wall {
		t.Error("RESET should hide every tile")
	}
}

func TestReceiver_WaitsForLast(t *testing.T) {
	v := NewView(3, 3, grid.Square)
	r := NewReceiver(v.Grid())

	first := network.Hole{Directions: []uint32{Unit(grid.End, 1)}}
	if err := r.Push(first); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if r.Pending() != 1 || v.Tile(grid.Pos{}) != board.Wall {
		t.Fatal("A chain without Last must not touch the view")
	}

	last := network.Hole{StartX: 1, Last: true, Directions: []uint32{Unit(grid.End, 2)}}
	if err := r.Push(last); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if r.Pending() != 0 {
		t.Errorf("Expected the group to be consumed, %d pending", r.Pending())
	}
	if v.Tile(grid.Pos{}) != 1 || v.Tile(grid.Pos{X: 1}) != 2 {
		t.Errorf("Both chains should be decoded:\n%s", v)
	}

	bad := network.Hole{StartX: 9, Last: true, Directions: []uint32{Unit(grid.End, 1)}}
	if err := r.Push(bad); err == nil {
		t.Error("Expected an error for a start outside the grid")
	}
	if r.Pending() != 0 {
		t.Error("A failed group should be dropped")
	}
}
