package state

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/network"
	"github.com/wfunc/sweepserver/solver"
)

// Gamemode decides what a mine costs.
type Gamemode uint8

const (
	// Coop rounds end for everyone on the first mine.
	Coop Gamemode = iota
	// Versus rounds go on; the player who hit the mine loses points.
	Versus
)

func (m Gamemode) String() string {
	if m == Versus {
		return "versus"
	}
	return "coop"
}

// Limits imposed by the INIT field widths.
const (
	MaxSide  = 1<<7 - 1
	MaxMines = 1<<10 - 1

	minePenalty = 5
)

var ErrInvalidSettings = errors.New("invalid room settings")

// Settings are fixed when a room is created.
type Settings struct {
	Width     int
	Height    int
	Topology  grid.Topology
	MineCount int
	Level     solver.Level
	Gamemode  Gamemode
}

func (s Settings) Validate() error {
	switch {
	case s.Width < 1 || s.Width > MaxSide || s.Height < 1 || s.Height > MaxSide:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidSettings, s.Width, s.Height)
	case !s.Topology.Valid():
		return fmt.Errorf("%w: topology %d", ErrInvalidSettings, s.Topology)
	case s.MineCount < 0 || s.MineCount > MaxMines || s.MineCount >= s.Width*s.Height:
		return fmt.Errorf("%w: %d mines on %d cells", ErrInvalidSettings, s.MineCount, s.Width*s.Height)
	case s.Level > solver.GuessDeep:
		return fmt.Errorf("%w: guess level %d", ErrInvalidSettings, s.Level)
	case s.Gamemode > Versus:
		return fmt.Errorf("%w: gamemode %d", ErrInvalidSettings, s.Gamemode)
	}
	return nil
}

// Request is the generation request for one round of these settings.
func (s Settings) Request() generator.Request {
	return generator.Request{
		Width:     s.Width,
		Height:    s.Height,
		Topology:  s.Topology,
		MineCount: s.MineCount,
		Level:     s.Level,
	}
}

type flagMark struct {
	player uint32
	color  uint32
}

// Game is the round data a room's states share. It is only touched from the
// room goroutine.
type Game struct {
	Settings  Settings
	Board     *board.Board
	Start     grid.Pos
	HasStart  bool
	Started   bool
	StartedAt time.Time
	Rand      *rand.Rand
	Now       func() time.Time

	flags map[int]flagMark
}

func NewGame(settings Settings, rng *rand.Rand) *Game {
	return &Game{
		Settings: settings,
		Board:    board.New(settings.Width, settings.Height, settings.Topology),
		Rand:     rng,
		Now:      time.Now,
		flags:    make(map[int]flagMark),
	}
}

// ColorID maps a hue onto the 5-bit palette used for flags.
func ColorID(hue uint32) uint32 {
	return hue * 32 / 1024
}

// ToggleFlag flips a flag for player and returns the FLAG message to
// broadcast. ok is false when p cannot be flagged.
func (g *Game) ToggleFlag(player Player, p grid.Pos) (network.Flag, bool) {
	tile, ok := g.Board.ToggleFlag(p)
	if !ok {
		return network.Flag{}, false
	}
	mark := flagMark{player: uint32(player.GetPlayerID()), color: ColorID(player.Profile().Hue)}
	idx := g.Board.Grid().Index(p)
	if tile == board.Flag {
		g.flags[idx] = mark
	} else {
		delete(g.flags, idx)
	}
	return network.Flag{X: uint32(p.X), Y: uint32(p.Y), ID: mark.player, ColorID: mark.color}, true
}

// Begin marks the first reveal of the round. A mine under the first click
// is moved away.
func (g *Game) Begin(p grid.Pos) {
	if g.Started {
		return
	}
	g.Board.MoveFirstMine(p, g.Rand)
	g.Started = true
	g.StartedAt = g.Now()
}

// Apply installs a generated layout and hides every tile.
func (g *Game) Apply(res generator.Result) error {
	if err := g.Board.ApplyLayout(res.Mines); err != nil {
		return err
	}
	g.Start, g.HasStart = res.Start, res.HasStart
	g.Started = false
	g.StartedAt = time.Time{}
	clear(g.flags)
	return nil
}

// Clear hides the board while a new layout is generated.
func (g *Game) Clear() {
	g.Board.Reset()
	g.Started = false
	clear(g.flags)
}

// Minutes since the first reveal, saturated to the INIT field.
func (g *Game) Minutes() uint32 {
	if !g.Started {
		return 0
	}
	return uint32(min(g.Now().Sub(g.StartedAt)/time.Minute, 255))
}

// InitMessage describes the room to a joining player.
func (g *Game) InitMessage(playerID int) network.Init {
	msg := network.Init{
		ID:         uint32(playerID),
		MineCount:  uint32(g.Board.MineCount()),
		Time:       g.Minutes(),
		Width:      uint32(g.Settings.Width),
		Height:     uint32(g.Settings.Height),
		TileType:   uint32(g.Settings.Topology),
		GuessLevel: uint32(g.Settings.Level),
		Gamemode:   uint32(g.Settings.Gamemode),
		HasStart:   g.HasStart,
		Started:    g.Started,
	}
	if g.HasStart {
		msg.StartX, msg.StartY = uint32(g.Start.X), uint32(g.Start.Y)
	}
	for i, t := range g.Board.Grid().Cells() {
		if t != board.Flag {
			continue
		}
		mark := g.flags[i]
		msg.Flags = append(msg.Flags, mark.player<<5|mark.color)
	}
	return msg
}

func (g *Game) BoardMessage() network.Board {
	cells := g.Board.Grid().Cells()
	msg := network.Board{Tiles: make([]uint32, len(cells))}
	for i, t := range cells {
		msg.Tiles[i] = uint32(t)
	}
	return msg
}

func (g *Game) ResetMessage() network.Reset {
	msg := network.Reset{MineCount: uint32(g.Board.MineCount()), HasStart: g.HasStart}
	if g.HasStart {
		msg.StartX, msg.StartY = uint32(g.Start.X), uint32(g.Start.Y)
	}
	return msg
}

// LoseMessage carries one bit per cell, set where a mine lies.
func (g *Game) LoseMessage(playerID int) network.Lose {
	mines, _ := g.Board.Layout()
	msg := network.Lose{ID: uint32(playerID), Mines: make([]uint32, mines.Len())}
	for i, m := range mines.Cells() {
		if m {
			msg.Mines[i] = 1
		}
	}
	return msg
}

func (g *Game) ChordMessage(p grid.Pos) network.Chord {
	tiles := g.Board.NeighborTiles(p)
	msg := network.Chord{X: uint32(p.X), Y: uint32(p.Y), Tiles: make([]uint32, len(tiles))}
	for i, t := range tiles {
		msg.Tiles[i] = uint32(t)
	}
	return msg
}
