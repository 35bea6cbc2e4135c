// Package grid provides the flat, topology-aware 2D container shared by the
// board engine, the border tracer and the solver.
//
// Two neighbor notions exist and must not be confused:
//
//   - Adjacent reports chain adjacency. Consecutive cells of a border chain
//     are always adjacent, and every chain step is one Direction. Square grids
//     use the 4 orthogonal cells, hex grids the 6 axial cells.
//   - IsIterationNeighbor drives flood fill, chord and mine counting. Square
//     grids include the diagonals (8 cells), hex grids use the same 6 cells.
//
// The wire protocol depends on Adjacent matching what the receiver steps
// through; gameplay depends on IsIterationNeighbor.
package grid

import "fmt"

// Topology selects the adjacency rules of a grid.
type Topology uint8

const (
	Square Topology = iota
	Hex
)

func (t Topology) String() string {
	switch t {
	case Square:
		return "square"
	case Hex:
		return "hex"
	default:
		return fmt.Sprintf("topology(%d)", uint8(t))
	}
}

// Valid reports whether t is a known topology.
func (t Topology) Valid() bool {
	return t == Square || t == Hex
}

// Pos is a cell coordinate.
type Pos struct {
	X, Y int
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Grid is a width x height arena stored column-major: index = y + x*height.
type Grid[T any] struct {
	width    int
	height   int
	topology Topology
	cells    []T
}

// New allocates a grid filled with the zero value of T.
func New[T any](width, height int, topology Topology) *Grid[T] {
	if width < 0 || height < 0 {
		panic("grid: negative dimensions")
	}
	return &Grid[T]{
		width:    width,
		height:   height,
		topology: topology,
		cells:    make([]T, width*height),
	}
}

func (g *Grid[T]) Width() int         { return g.width }
func (g *Grid[T]) Height() int        { return g.height }
func (g *Grid[T]) Topology() Topology { return g.topology }
func (g *Grid[T]) Len() int           { return len(g.cells) }

// Cells exposes the backing slice in index order.
func (g *Grid[T]) Cells() []T { return g.cells }

func (g *Grid[T]) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Index maps an in-bounds position to its arena index.
func (g *Grid[T]) Index(p Pos) int {
	return p.Y + p.X*g.height
}

// PosOf is the inverse of Index.
func (g *Grid[T]) PosOf(i int) Pos {
	return Pos{X: i / g.height, Y: i % g.height}
}

// Get returns the value at p, or the zero value when p is out of range.
func (g *Grid[T]) Get(p Pos) T {
	var zero T
	if !g.InBounds(p) {
		return zero
	}
	return g.cells[g.Index(p)]
}

// Lookup is Get that also reports whether p was in range.
func (g *Grid[T]) Lookup(p Pos) (T, bool) {
	var zero T
	if !g.InBounds(p) {
		return zero, false
	}
	return g.cells[g.Index(p)], true
}

// Set stores v at p. Out-of-range writes are ignored.
func (g *Grid[T]) Set(p Pos, v T) {
	if !g.InBounds(p) {
		return
	}
	g.cells[g.Index(p)] = v
}

func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

func (g *Grid[T]) Clone() *Grid[T] {
	c := &Grid[T]{
		width:    g.width,
		height:   g.height,
		topology: g.topology,
		cells:    make([]T, len(g.cells)),
	}
	copy(c.cells, g.cells)
	return c
}

// SameShape reports whether o has the same dimensions and topology.
func SameShape[T, U any](g *Grid[T], o *Grid[U]) bool {
	return g.width == o.width && g.height == o.height && g.topology == o.topology
}

// ForEachNeighbor visits the iteration neighbors of p in a fixed order.
// Out-of-range neighbors are skipped unless keepOutOfBounds is set, in which
// case they are visited with ok == false so callers can report "no cell".
func (g *Grid[T]) ForEachNeighbor(p Pos, keepOutOfBounds bool, visit func(q Pos, ok bool)) {
	for _, d := range iterationOffsets(g.topology, p.Y) {
		q := Pos{X: p.X + d.X, Y: p.Y + d.Y}
		ok := g.InBounds(q)
		if ok || keepOutOfBounds {
			visit(q, ok)
		}
	}
}

// Neighbors returns the in-range iteration neighbors of p.
func (g *Grid[T]) Neighbors(p Pos) []Pos {
	out := make([]Pos, 0, 8)
	g.ForEachNeighbor(p, false, func(q Pos, _ bool) {
		out = append(out, q)
	})
	return out
}

// NeighborCount is the number of iteration neighbors a cell has when none
// fall off the grid.
func NeighborCount(t Topology) int {
	if t == Hex {
		return len(hexEven)
	}
	return len(squareAll)
}

// IsIterationNeighbor reports whether b is a flood/chord neighbor of a.
func (g *Grid[T]) IsIterationNeighbor(a, b Pos) bool {
	if g.topology == Square {
		dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
		return max(dx, dy) == 1
	}
	return g.Adjacent(a, b)
}

// Adjacent reports chain adjacency between a and b.
func (g *Grid[T]) Adjacent(a, b Pos) bool {
	_, ok := g.Direction(a, b)
	return ok
}
