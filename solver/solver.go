// Package solver certifies that a mine layout can be cleared without
// guessing. It plays the board the way a careful player would, using only
// what the revealed numbers prove.
package solver

import (
	"errors"
	"math/rand/v2"

	"github.com/gammazero/deque"

	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/grid"
)

// Level selects how much deduction a layout may require.
type Level uint8

const (
	// GuessAny skips certification entirely.
	GuessAny Level = iota
	// GuessBasic allows only the single-cell rules.
	GuessBasic
	// GuessDeep adds subset inference between pairs of numbers.
	GuessDeep
)

func (l Level) String() string {
	switch l {
	case GuessAny:
		return "any"
	case GuessBasic:
		return "basic"
	case GuessDeep:
		return "deep"
	}
	return "unknown"
}

var (
	ErrUnsolved = errors.New("layout cannot be solved without guessing")
	ErrNoStart  = errors.New("layout has no zero cell to start from")
)

// Constraint is one revealed number seen through its hidden neighbors:
// exactly Count of Positions are mines.
type Constraint struct {
	Count     int
	Positions []grid.Pos
}

type Solver struct {
	board *board.Board
	level Level
	rng   *rand.Rand

	safe  deque.Deque[grid.Pos]
	mines deque.Deque[grid.Pos]
}

// New prepares a solver working on a private copy of b.
func New(b *board.Board, level Level, rng *rand.Rand) *Solver {
	return &Solver{
		board: b.Clone(),
		level: level,
		rng:   rng,
	}
}

// Board returns the solver's working copy.
func (s *Solver) Board() *board.Board { return s.board }

// Solve starts from a random zero cell and deduces until nothing changes.
// The start is returned even when the layout turns out to need a guess.
func (s *Solver) Solve() (grid.Pos, error) {
	var zeros []grid.Pos
	g := s.board.Grid()
	for i := 0; i < g.Len(); i++ {
		p := g.PosOf(i)
		if !s.board.IsMine(p) && s.board.Count(p) == 0 {
			zeros = append(zeros, p)
		}
	}
	if len(zeros) == 0 {
		return grid.Pos{}, ErrNoStart
	}

	start := zeros[s.rng.IntN(len(zeros))]
	s.board.Reveal(start)
	for s.Step() {
	}
	if !s.board.CheckWin() {
		return start, ErrUnsolved
	}
	return start, nil
}

// Step applies one round of deductions and reports whether the board
// changed.
func (s *Solver) Step() bool {
	s.local()
	if s.safe.Len() == 0 && s.mines.Len() == 0 && s.level >= GuessDeep {
		s.subsets()
	}
	return s.apply()
}

// local runs the single-cell rules over every revealed number.
func (s *Solver) local() {
	g := s.board.Grid()
	for i := 0; i < g.Len(); i++ {
		p := g.PosOf(i)
		t := s.board.Tile(p)
		if !t.Revealed() || t == 0 {
			continue
		}
		flagged, hidden := s.around(p)
		if len(hidden) == 0 {
			continue
		}
		switch {
		case flagged == int(t):
			for _, q := range hidden {
				s.safe.PushBack(q)
			}
		case flagged+len(hidden) == int(t):
			for _, q := range hidden {
				s.mines.PushBack(q)
			}
		}
	}
}

// subsets compares constraints whose hidden sets nest: when d lies inside c
// the cells of c outside d hold exactly c.Count-d.Count mines.
func (s *Solver) subsets() {
	constraints := s.Constraints()
	g := s.board.Grid()

	sets := make([]map[int]bool, len(constraints))
	byCell := make(map[int][]int)
	for i, c := range constraints {
		sets[i] = make(map[int]bool, len(c.Positions))
		for _, p := range c.Positions {
			idx := g.Index(p)
			sets[i][idx] = true
			byCell[idx] = append(byCell[idx], i)
		}
	}

	for di, d := range constraints {
		// any superset of d must contain its first cell
		for _, ci := range byCell[g.Index(d.Positions[0])] {
			c := constraints[ci]
			if ci == di || len(c.Positions) <= len(d.Positions) || !contains(sets[ci], sets[di]) {
				continue
			}
			rest := len(c.Positions) - len(d.Positions)
			switch c.Count - d.Count {
			case rest:
				for _, p := range c.Positions {
					if !sets[di][g.Index(p)] {
						s.mines.PushBack(p)
					}
				}
			case 0:
				for _, p := range c.Positions {
					if !sets[di][g.Index(p)] {
						s.safe.PushBack(p)
					}
				}
			}
		}
	}
}

func (s *Solver) apply() bool {
	var changed bool
	for s.mines.Len() > 0 {
		p := s.mines.PopFront()
		if s.board.Tile(p) == board.Wall {
			s.board.ToggleFlag(p)
			changed = true
		}
	}
	for s.safe.Len() > 0 {
		p := s.safe.PopFront()
		if s.board.Tile(p) == board.Wall {
			s.board.Reveal(p)
			changed = true
		}
	}
	return changed
}

// Constraints lists the unresolved numbers on the working board.
func (s *Solver) Constraints() []Constraint {
	var out []Constraint
	g := s.board.Grid()
	for i := 0; i < g.Len(); i++ {
		p := g.PosOf(i)
		t := s.board.Tile(p)
		if !t.Revealed() || t == 0 {
			continue
		}
		flagged, hidden := s.around(p)
		if len(hidden) == 0 {
			continue
		}
		out = append(out, Constraint{Count: int(t) - flagged, Positions: hidden})
	}
	return out
}

func (s *Solver) around(p grid.Pos) (flagged int, hidden []grid.Pos) {
	s.board.Grid().ForEachNeighbor(p, false, func(q grid.Pos, _ bool) {
		switch s.board.Tile(q) {
		case board.Flag:
			flagged++
		case board.Wall:
			hidden = append(hidden, q)
		}
	})
	return flagged, hidden
}

func contains(outer, inner map[int]bool) bool {
	for idx := range inner {
		if !outer[idx] {
			return false
		}
	}
	return true
}
