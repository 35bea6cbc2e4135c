// state/interfaces.go
package state

import (
	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/network"
)

// Player defines what a state needs from a connected player.
type Player interface {
	GetID() string
	GetPlayerID() int
	Profile() network.User
	SetProfile(u network.User)
	AddScore(delta int)
	ResetScore()
	Send(msg network.Message) error
}

// RoomContext defines the interface that a Room must implement to be managed by the state machine.
// This breaks the import cycle between room and state.
type RoomContext interface {
	GetID() string
	Game() *Game
	GetPlayers() []Player
	ChangeState(newState State) error
	Broadcast(msg network.Message) error
	BroadcastExcept(exclude Player, msg network.Message) error
	// Generate starts building a new layout off the room goroutine. The
	// result is handed back through GenerationHandler.
	Generate(req generator.Request)
	RoundFinished(won bool)
}

// GenerationHandler is implemented by states that wait for a layout.
type GenerationHandler interface {
	OnGenerated(res generator.Result)
}
