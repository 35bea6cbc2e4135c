package board

import (
	"math/rand/v2"
	"testing"

	"github.com/wfunc/sweepserver/grid"
)

// layoutBoard builds a board from rows where '*' marks a mine.
func layoutBoard(t *testing.T, topology grid.Topology, rows ...string) *Board {
	t.Helper()
	mines := grid.New[bool](len(rows[0]), len(rows), topology)
	for y, row := range rows {
		for x, c := range row {
			mines.Set(grid.Pos{X: x, Y: y}, c == '*')
		}
	}
	b := New(mines.Width(), mines.Height(), topology)
	if err := b.ApplyLayout(mines); err != nil {
		t.Fatalf("ApplyLayout failed: %v", err)
	}
	return b
}

func randomBoard(t *testing.T, w, h, mines int, topology grid.Topology, seed uint64) *Board {
	t.Helper()
	b := New(w, h, topology)
	if err := b.Shuffle(mines, rand.New(rand.NewPCG(seed, seed^0x9e3779b9))); err != nil {
		t.Fatalf("Shuffle failed: %v", err)
	}
	return b
}

func TestBoard_CountsMatchLayout(t *testing.T) {
	for _, topology := range []grid.Topology{grid.Square, grid.Hex} {
		for seed := uint64(1); seed <= 5; seed++ {
			b := randomBoard(t, 12, 9, 25, topology, seed)
			g := b.Grid()
			for i := 0; i < g.Len(); i++ {
				p := g.PosOf(i)
				want := 0
				for _, q := range g.Neighbors(p) {
					if b.IsMine(q) {
						want++
					}
				}
				if int(b.Count(p)) != want {
					t.Fatalf("%v seed %d: count at %v = %d, want %d", topology, seed, p, b.Count(p), want)
				}
			}
		}
	}
}

func TestBoard_ShuffleRejectsTooManyMines(t *testing.T) {
	b := New(2, 2, grid.Square)
	if err := b.Shuffle(5, rand.New(rand.NewPCG(1, 2))); err != ErrTooManyMines {
		t.Errorf("Expected ErrTooManyMines, got %v", err)
	}
}

func TestBoard_SingleCellWin(t *testing.T) {
	b := New(1, 1, grid.Square)
	borders := b.Reveal(grid.Pos{})
	if len(borders) != 0 {
		t.Errorf("Expected zero borders, got %d", len(borders))
	}
	if !b.CheckWin() {
		t.Error("Revealing the only safe cell should win")
	}
}

func TestBoard_CheckWin(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"*..",
		"...",
		"...",
	)
	var safe []grid.Pos
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x != 0 || y != 0 {
				safe = append(safe, grid.Pos{X: x, Y: y})
			}
		}
	}

	// Reveal numbered cells first so no flood opens the rest.
	for _, p := range []grid.Pos{{1, 0}, {0, 1}, {1, 1}} {
		b.Reveal(p)
	}
	for _, p := range []grid.Pos{{2, 0}, {0, 2}, {2, 1}, {1, 2}} {
		b.tiles.Set(p, Tile(b.Count(p)))
	}
	if b.CheckWin() {
		t.Fatal("CheckWin should be false with 7 of 8 safe cells revealed")
	}
	b.Reveal(grid.Pos{X: 2, Y: 2})
	if !b.CheckWin() {
		t.Fatalf("CheckWin should be true with all %d safe cells revealed", len(safe))
	}
}

func TestBoard_RevealNumberedCell(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"*..",
		"...",
	)
	if borders := b.Reveal(grid.Pos{X: 1, Y: 0}); len(borders) != 0 {
		t.Errorf("A numbered click should produce no borders, got %d", len(borders))
	}
	if b.Tile(grid.Pos{X: 1, Y: 0}) != 1 {
		t.Errorf("Expected tile 1, got %v", b.Tile(grid.Pos{X: 1, Y: 0}))
	}
	if b.Tile(grid.Pos{X: 2, Y: 0}) != Wall {
		t.Error("Neighbors of a numbered click must stay hidden")
	}
}

func TestBoard_RevealIgnoresFlagsAndRevealed(t *testing.T) {
	b := layoutBoard(t, grid.Square, "...", "..*")
	p := grid.Pos{X: 0, Y: 0}
	b.ToggleFlag(p)
	if borders := b.Reveal(p); borders != nil || b.Tile(p) != Flag {
		t.Error("Revealing a flagged tile must be a no-op")
	}
	b.ToggleFlag(p)
	b.Reveal(p)
	if borders := b.Reveal(p); borders != nil {
		t.Error("Revealing an open tile must be a no-op")
	}
}

func TestBoard_RevealMine(t *testing.T) {
	b := layoutBoard(t, grid.Square, "*.", "..")
	b.Reveal(grid.Pos{})
	if b.Tile(grid.Pos{}) != Mine {
		t.Errorf("Expected Mine tile, got %v", b.Tile(grid.Pos{}))
	}
	if b.CheckWin() {
		t.Error("Exploding must not win")
	}
}

// checkRevealProperties verifies a flood from p against a brute force
// computation of its zero region.
func checkRevealProperties(t *testing.T, b *Board, p grid.Pos) {
	t.Helper()
	g := b.Grid()
	if b.IsMine(p) || b.Count(p) != 0 {
		return
	}

	before := b.Clone()
	borders := b.Reveal(p)

	region := map[grid.Pos]bool{p: true}
	stack := []grid.Pos{p}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, q := range g.Neighbors(c) {
			if region[q] || before.Tile(q) == Flag || b.Count(q) != 0 {
				continue
			}
			region[q] = true
			stack = append(stack, q)
		}
	}

	edge := map[grid.Pos]bool{}
	for c := range region {
		if b.Tile(c) != 0 {
			t.Fatalf("Zero cell %v left with tile %v", c, b.Tile(c))
		}
		for _, q := range g.Neighbors(c) {
			if b.Count(q) != 0 && before.Tile(q) == Wall {
				edge[q] = true
			}
		}
	}

	seen := map[grid.Pos]bool{}
	for _, chain := range borders {
		cells := chain.Cells()
		for i, c := range cells {
			if seen[c] {
				t.Fatalf("Cell %v appears in more than one chain", c)
			}
			seen[c] = true
			if !edge[c] {
				t.Fatalf("Chain cell %v is not on the region edge", c)
			}
			if b.Tile(c) != Tile(b.Count(c)) {
				t.Fatalf("Chain cell %v not revealed", c)
			}
			if i > 0 && !g.Adjacent(cells[i-1], c) {
				t.Fatalf("Chain cells %v and %v are not adjacent", cells[i-1], c)
			}
		}
	}
	if len(seen) != len(edge) {
		t.Fatalf("Chains cover %d cells, edge has %d", len(seen), len(edge))
	}
}

func TestBoard_RevealFloodProperties(t *testing.T) {
	for _, topology := range []grid.Topology{grid.Square, grid.Hex} {
		for seed := uint64(1); seed <= 20; seed++ {
			b := randomBoard(t, 20, 14, 30, topology, seed)
			g := b.Grid()
			for i := 0; i < g.Len(); i++ {
				p := g.PosOf(i)
				if !b.IsMine(p) && b.Count(p) == 0 && b.Tile(p) == Wall {
					checkRevealProperties(t, b, p)
				}
			}
		}
	}
}

func TestBoard_MergeKeepsChainsFew(t *testing.T) {
	// A single mine in the middle of an open field leaves one ring of 8.
	b := layoutBoard(t, grid.Square,
		".....",
		".....",
		"..*..",
		".....",
		".....",
	)
	borders := b.Reveal(grid.Pos{})
	total := 0
	for _, c := range borders {
		total += c.Len()
	}
	if total != 8 {
		t.Fatalf("Expected 8 border cells, got %d", total)
	}
	if len(borders) > 2 {
		t.Errorf("Expected the ring to merge into at most 2 chains, got %d", len(borders))
	}
}

func TestBoard_Chord(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"*....",
		".....",
		".....",
	)
	center := grid.Pos{X: 1, Y: 1}
	b.Reveal(center)

	if failed, borders := b.Chord(center); failed || borders != nil {
		t.Fatal("Chord without matching flags must be a no-op")
	}

	b.ToggleFlag(grid.Pos{})
	failed, borders := b.Chord(center)
	if failed {
		t.Fatal("Chord with a correct flag must not fail")
	}
	if len(borders) == 0 {
		t.Fatal("Chord should report opened neighbors")
	}
	if !b.CheckWin() {
		t.Error("Chording here should open the whole board")
	}
	if b.Tile(grid.Pos{}) != Flag {
		t.Error("Chord must not touch the flag")
	}
}

func TestBoard_ChordSingleCellBorders(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"*.*",
		"...",
		"***",
	)
	center := grid.Pos{X: 1, Y: 1}
	b.Reveal(center)
	for _, p := range []grid.Pos{{0, 0}, {2, 0}, {0, 2}, {1, 2}, {2, 2}} {
		b.ToggleFlag(p)
	}
	failed, borders := b.Chord(center)
	if failed {
		t.Fatal("Chord must not fail")
	}
	if len(borders) != 3 {
		t.Fatalf("Expected 3 single cell borders, got %d", len(borders))
	}
	for _, border := range borders {
		if border.Len() != 1 || border.Head() != border.Origin {
			t.Errorf("Expected a single cell border at its origin, got %v", border.Cells())
		}
	}
}

func TestBoard_ChordFails(t *testing.T) {
	b := layoutBoard(t, grid.Square,
		"*..",
		"...",
		"..*",
	)
	center := grid.Pos{X: 1, Y: 1}
	b.Reveal(center)
	b.ToggleFlag(grid.Pos{X: 1, Y: 0})
	b.ToggleFlag(grid.Pos{X: 0, Y: 1})

	failed, borders := b.Chord(center)
	if !failed || borders != nil {
		t.Fatalf("Expected failed chord, got failed=%v borders=%d", failed, len(borders))
	}
	if b.Tile(grid.Pos{}) != Mine || b.Tile(grid.Pos{X: 2, Y: 2}) != Mine {
		t.Error("Mines under a failed chord must be exposed")
	}
	if b.Tile(grid.Pos{X: 1, Y: 0}) != Flag {
		t.Error("Flags must stay after a failed chord")
	}
}

func TestBoard_MoveFirstMine(t *testing.T) {
	b := layoutBoard(t, grid.Square, "*..", "...")
	rng := rand.New(rand.NewPCG(3, 4))
	if !b.MoveFirstMine(grid.Pos{}, rng) {
		t.Fatal("Expected the mine to move")
	}
	if b.IsMine(grid.Pos{}) {
		t.Error("The clicked cell must be mine free")
	}
	if b.MineCount() != 1 {
		t.Errorf("Mine count changed to %d", b.MineCount())
	}
	mines := 0
	for _, m := range b.mines.Cells() {
		if m {
			mines++
		}
	}
	if mines != 1 {
		t.Errorf("Expected exactly one mine, found %d", mines)
	}
	if b.MoveFirstMine(grid.Pos{X: 2, Y: 1}, rng) && b.IsMine(grid.Pos{X: 2, Y: 1}) {
		t.Error("MoveFirstMine must leave the cell mine free")
	}
}

func TestBoard_ToggleFlag(t *testing.T) {
	b := layoutBoard(t, grid.Square, "*.", "..")
	if tile, ok := b.ToggleFlag(grid.Pos{}); !ok || tile != Flag {
		t.Errorf("Expected Flag, got %v %v", tile, ok)
	}
	if b.FlagCount() != 1 {
		t.Errorf("Expected 1 flag, got %d", b.FlagCount())
	}
	if tile, ok := b.ToggleFlag(grid.Pos{}); !ok || tile != Wall {
		t.Errorf("Expected Wall, got %v %v", tile, ok)
	}
	b.Reveal(grid.Pos{X: 1, Y: 1})
	if _, ok := b.ToggleFlag(grid.Pos{X: 1, Y: 1}); ok {
		t.Error("Revealed tiles cannot be flagged")
	}
}
