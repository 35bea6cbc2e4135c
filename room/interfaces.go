package room

import (
	"context"

	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/models"
	"github.com/wfunc/sweepserver/network"
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msg network.Message) error
	BroadcastExcept(roomID, excludeSessionID string, msg network.Message) error
}

// Generator builds layouts off the room goroutine. *generator.Worker
// implements it.
type Generator interface {
	Submit(ctx context.Context, req generator.Request) <-chan generator.Result
}

// Recorder stores rooms and finished rounds.
type Recorder interface {
	SaveRoom(ctx context.Context, record models.RoomRecord) error
	RecordRound(ctx context.Context, record models.RoundRecord) error
}

// InlineGenerator runs each request on its own goroutine.
type InlineGenerator struct {
	Options generator.Options
}

func (g InlineGenerator) Submit(ctx context.Context, req generator.Request) <-chan generator.Result {
	out := make(chan generator.Result, 1)
	go func() {
		out <- generator.Generate(ctx, g.Options, req)
	}()
	return out
}
