// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/network"
	"github.com/wfunc/sweepserver/room"
	"github.com/wfunc/sweepserver/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, msg network.Message) error
	BroadcastExcept(roomID, excludeSessionID string, msg network.Message) error
	BroadcastToAll(msg network.Message) error
}

// 基于房间的广播器. Every message is encoded once and the same frame is
// written to each session.
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msg network.Message) error {
	return b.BroadcastExcept(roomID, "", msg)
}

// BroadcastExcept skips the session with id excludeSessionID. Send failures
// are logged; the reader of a broken connection will remove the player.
func (b *RoomBroadcaster) BroadcastExcept(roomID, excludeSessionID string, msg network.Message) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	data, err := network.Encode(msg)
	if err != nil {
		return err
	}

	// Get a thread-safe copy of the sessions
	for _, s := range r.GetSessions() {
		if s.ID == excludeSessionID {
			continue
		}
		if err := s.SendRaw(data); err != nil {
			logger.Log.Debugf("Room %s: send %s to %s: %v", roomID, msg.Kind(), s.ID, err)
		}
	}
	return nil
}

// BroadcastToAll reaches every connected session, in a room or not.
func (b *RoomBroadcaster) BroadcastToAll(msg network.Message) error {
	data, err := network.Encode(msg)
	if err != nil {
		return err
	}
	for _, s := range b.sessionManager.All() {
		if err := s.SendRaw(data); err != nil {
			logger.Log.Debugf("Broadcast %s to %s: %v", msg.Kind(), s.ID, err)
		}
	}
	return nil
}
