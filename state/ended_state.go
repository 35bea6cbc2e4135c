package state

import (
	"fmt"

	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/network"
)

// EndedState holds a finished board until someone asks for a new one.
type EndedState struct {
	RoomStateBase
	Won bool
}

func NewEndedState(room RoomContext, won bool) *EndedState {
	return &EndedState{
		RoomStateBase: RoomStateBase{
			ID:   IDEnded,
			Room: room,
		},
		Won: won,
	}
}

func (s *EndedState) OnEnter() {
	logger.Log.Infof("房间 %s 游戏结束, won=%v", s.Room.GetID(), s.Won)
	s.Room.RoundFinished(s.Won)
}

func (s *EndedState) HandleAction(player Player, msg network.Message) error {
	switch msg.(type) {
	case network.Reset:
		return s.Room.ChangeState(NewLoadingState(s.Room))
	case network.Tile, network.Chord, network.Flag:
		return fmt.Errorf("%w: %s after the round ended", ErrActionNotAllowed, msg.Kind())
	}
	return s.RoomStateBase.HandleAction(player, msg)
}
