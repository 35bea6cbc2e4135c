package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/network"
)

// maxGenerationRetries bounds how often a failed layout is requested again.
const maxGenerationRetries = 3

// LoadingState waits for the generator. Board actions are refused until the
// new layout is in place.
type LoadingState struct {
	RoomStateBase
	retries int
}

func NewLoadingState(room RoomContext) *LoadingState {
	return &LoadingState{
		RoomStateBase: RoomStateBase{
			ID:   IDLoading,
			Room: room,
		},
	}
}

func (s *LoadingState) OnEnter() {
	game := s.Room.Game()
	logger.Log.Infof("房间 %s 生成新棋盘 %dx%d %v, %d mines, level %v",
		s.Room.GetID(), game.Settings.Width, game.Settings.Height, game.Settings.Topology,
		game.Settings.MineCount, game.Settings.Level)
	game.Clear()
	s.Room.Generate(game.Settings.Request())
}

// OnGenerated applies the layout, tells everyone about the new round and
// starts play.
func (s *LoadingState) OnGenerated(res generator.Result) {
	if res.Err != nil {
		s.retry(fmt.Errorf("generation failed: %w", res.Err))
		return
	}
	game := s.Room.Game()
	if err := game.Apply(res); err != nil {
		s.retry(fmt.Errorf("cannot apply layout: %w", err))
		return
	}
	if game.Settings.Gamemode == Versus {
		for _, p := range s.Room.GetPlayers() {
			p.ResetScore()
		}
	}
	logger.Log.Debugf("Room %s layout ready after %d attempts in %v (certified=%v)",
		s.Room.GetID(), res.Attempts, res.Elapsed, res.Solved)

	s.Room.Broadcast(game.ResetMessage())
	if err := s.Room.ChangeState(NewPlayingState(s.Room)); err != nil {
		logger.Log.Errorf("Room %s: %v", s.Room.GetID(), err)
	}
}

// retry asks for another layout unless the worker is shutting down.
func (s *LoadingState) retry(err error) {
	if errors.Is(err, generator.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Log.Infof("Room %s: %v", s.Room.GetID(), err)
		return
	}
	if s.retries >= maxGenerationRetries {
		logger.Log.Errorf("Room %s: %v, giving up after %d retries", s.Room.GetID(), err, s.retries)
		return
	}
	s.retries++
	logger.Log.Warnf("Room %s: %v, retry %d", s.Room.GetID(), err, s.retries)
	s.Room.Generate(s.Room.Game().Settings.Request())
}

func (s *LoadingState) HandleAction(player Player, msg network.Message) error {
	switch msg.(type) {
	case network.Tile, network.Chord, network.Flag, network.Reset:
		return fmt.Errorf("%w: %s while loading", ErrActionNotAllowed, msg.Kind())
	}
	return s.RoomStateBase.HandleAction(player, msg)
}
