package board

import "strconv"

// Tile is what a viewer can see of a cell. Values 0..8 are revealed mine
// counts; the remaining values fit the 4-bit wire encoding.
type Tile uint8

const (
	Wall   Tile = 9  // hidden
	Flag   Tile = 10 // hidden, flagged by a player
	Mine   Tile = 11 // exploded or shown after a loss
	NoCell Tile = 15 // placeholder for neighbors outside the grid
)

// Revealed reports whether t is a mine count.
func (t Tile) Revealed() bool { return t <= 8 }

// Hidden reports whether t still hides its cell.
func (t Tile) Hidden() bool { return t == Wall || t == Flag }

func (t Tile) String() string {
	switch t {
	case Wall:
		return "#"
	case Flag:
		return "F"
	case Mine:
		return "*"
	case NoCell:
		return " "
	case 0:
		return "."
	}
	if t.Revealed() {
		return strconv.Itoa(int(t))
	}
	return "?"
}
