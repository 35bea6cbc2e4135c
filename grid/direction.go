package grid

// Direction is a chain step code. 0 is reserved as the end-of-chain marker,
// so real steps are numbered from 1.
type Direction uint8

const (
	End Direction = 0

	East  Direction = 1
	West  Direction = 2
	South Direction = 3
	North Direction = 4

	// Hex grids reuse East and West; the diagonal codes follow them.
	NorthEast Direction = 3
	NorthWest Direction = 4
	SouthEast Direction = 5
	SouthWest Direction = 6
)

var squareSteps = []Pos{
	East:  {1, 0},
	West:  {-1, 0},
	South: {0, 1},
	North: {0, -1},
}

// Odd rows of a hex grid are shifted half a cell to the right.
var hexEvenSteps = []Pos{
	East:      {1, 0},
	West:      {-1, 0},
	NorthEast: {0, -1},
	NorthWest: {-1, -1},
	SouthEast: {0, 1},
	SouthWest: {-1, 1},
}

var hexOddSteps = []Pos{
	East:      {1, 0},
	West:      {-1, 0},
	NorthEast: {1, -1},
	NorthWest: {0, -1},
	SouthEast: {1, 1},
	SouthWest: {0, 1},
}

var squareAll = []Pos{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

var (
	hexEven = hexEvenSteps[1:]
	hexOdd  = hexOddSteps[1:]
)

func stepTable(t Topology, y int) []Pos {
	if t == Hex {
		if y&1 == 1 {
			return hexOddSteps
		}
		return hexEvenSteps
	}
	return squareSteps
}

func iterationOffsets(t Topology, y int) []Pos {
	if t == Hex {
		if y&1 == 1 {
			return hexOdd
		}
		return hexEven
	}
	return squareAll
}

// MaxDirection is the largest valid step code for a topology.
func MaxDirection(t Topology) Direction {
	return Direction(len(stepTable(t, 0)) - 1)
}

// Direction returns the step code that moves a onto b, if b is chain
// adjacent to a.
func (g *Grid[T]) Direction(a, b Pos) (Direction, bool) {
	steps := stepTable(g.topology, a.Y)
	dx, dy := b.X-a.X, b.Y-a.Y
	for d := 1; d < len(steps); d++ {
		if steps[d].X == dx && steps[d].Y == dy {
			return Direction(d), true
		}
	}
	return End, false
}

// Step moves p one cell in direction d. The result may be out of bounds;
// an invalid direction returns p and false.
func (g *Grid[T]) Step(p Pos, d Direction) (Pos, bool) {
	steps := stepTable(g.topology, p.Y)
	if d == End || int(d) >= len(steps) {
		return p, false
	}
	s := steps[d]
	return Pos{X: p.X + s.X, Y: p.Y + s.Y}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
