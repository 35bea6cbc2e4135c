package state

import (
	"github.com/wfunc/sweepserver/board"
	"github.com/wfunc/sweepserver/border"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/network"
)

// PlayingState 游戏进行状态
type PlayingState struct {
	RoomStateBase
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{
		RoomStateBase: RoomStateBase{
			ID:   IDPlaying,
			Room: room,
		},
	}
}

func (s *PlayingState) OnEnter() {
	logger.Log.Infof("房间 %s 进入游戏状态", s.Room.GetID())
}

// HandleAction handles actions from players.
func (s *PlayingState) HandleAction(player Player, msg network.Message) error {
	game := s.Room.Game()
	switch m := msg.(type) {
	case network.Tile:
		if p, ok := s.pos(m.X, m.Y); ok {
			s.reveal(player, p)
		}
		return nil
	case network.Chord:
		if p, ok := s.pos(m.X, m.Y); ok {
			s.chord(player, p)
		}
		return nil
	case network.Flag:
		if p, ok := s.pos(m.X, m.Y); ok {
			if flag, ok := game.ToggleFlag(player, p); ok {
				s.Room.Broadcast(flag)
			}
		}
		return nil
	case network.Reset:
		logger.Log.Infof("Player %d reset room %s", player.GetPlayerID(), s.Room.GetID())
		return s.Room.ChangeState(NewLoadingState(s.Room))
	}
	return s.RoomStateBase.HandleAction(player, msg)
}

func (s *PlayingState) pos(x, y uint32) (grid.Pos, bool) {
	p := grid.Pos{X: int(x), Y: int(y)}
	return p, s.Room.Game().Board.Grid().InBounds(p)
}

func (s *PlayingState) reveal(player Player, p grid.Pos) {
	game := s.Room.Game()
	b := game.Board
	if b.Tile(p) != board.Wall {
		return
	}
	game.Begin(p)

	borders := b.Reveal(p)
	switch t := b.Tile(p); {
	case t == board.Mine:
		s.mineHit(player, []network.Message{network.Tile{X: uint32(p.X), Y: uint32(p.Y), Tile: uint32(t)}})
		return
	case t != 0:
		s.Room.Broadcast(network.Tile{X: uint32(p.X), Y: uint32(p.Y), Tile: uint32(t)})
	default:
		if len(borders) == 0 {
			borders = []*board.Border{board.NewBorder(p)}
		}
		s.sendBorders(borders)
	}
	s.score(player, 1)
	s.checkWin()
}

func (s *PlayingState) chord(player Player, p grid.Pos) {
	game := s.Room.Game()
	failed, borders := game.Board.Chord(p)
	if !failed && len(borders) == 0 {
		return
	}

	chord := game.ChordMessage(p)
	if failed {
		s.mineHit(player, []network.Message{chord})
		return
	}
	s.Room.Broadcast(chord)

	// Numbered neighbors are already in the CHORD payload; only openings
	// need chains.
	var openings []*board.Border
	for _, b := range borders {
		if game.Board.Tile(b.Origin) == 0 {
			openings = append(openings, b)
		}
	}
	s.sendBorders(openings)
	s.score(player, 1)
	s.checkWin()
}

func (s *PlayingState) sendBorders(borders []*board.Border) {
	holes, err := border.Messages(s.Room.Game().Board.Grid(), borders)
	if err != nil {
		// The board is ahead of the viewers now; a full BOARD resyncs them.
		logger.Log.Errorf("Room %s border encoding failed: %v", s.Room.GetID(), err)
		s.Room.Broadcast(s.Room.Game().BoardMessage())
		return
	}
	for _, h := range holes {
		s.Room.Broadcast(h)
	}
}

// mineHit ends a coop round. In versus the mine stays exposed and costs the
// player points.
func (s *PlayingState) mineHit(player Player, reveal []network.Message) {
	game := s.Room.Game()
	for _, msg := range reveal {
		s.Room.Broadcast(msg)
	}
	if game.Settings.Gamemode == Versus {
		s.score(player, -minePenalty)
		s.checkWin()
		return
	}

	logger.Log.Infof("Player %d hit a mine in room %s", player.GetPlayerID(), s.Room.GetID())
	game.Board.ExposeMines()
	s.Room.Broadcast(game.LoseMessage(player.GetPlayerID()))
	s.Room.ChangeState(NewEndedState(s.Room, false))
}

func (s *PlayingState) score(player Player, delta int) {
	player.AddScore(delta)
	u := player.Profile()
	u.Update = true
	s.Room.Broadcast(u)
}

func (s *PlayingState) checkWin() {
	if !s.Room.Game().Board.CheckWin() {
		return
	}
	s.Room.Broadcast(network.Win{})
	s.Room.ChangeState(NewEndedState(s.Room, true))
}
