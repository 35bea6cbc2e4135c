package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/sweepserver/models"
)

// Memory keeps records in process, for development and tests.
type Memory struct {
	rooms  map[string]models.RoomRecord
	rounds map[string][]models.RoundRecord
	mutex  sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		rooms:  make(map[string]models.RoomRecord),
		rounds: make(map[string][]models.RoundRecord),
	}
}

func (m *Memory) SaveRoom(_ context.Context, room models.RoomRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rooms[room.RoomID] = room
	return nil
}

func (m *Memory) LoadRoom(_ context.Context, roomID string) (models.RoomRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return models.RoomRecord{}, ErrRecordNotFound
	}
	return room, nil
}

func (m *Memory) SaveRound(_ context.Context, round models.RoundRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rounds[round.RoomID] = append(m.rounds[round.RoomID], round)
	return nil
}

func (m *Memory) ListRounds(_ context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	rounds := m.rounds[roomID]
	out := make([]models.RoundRecord, 0, min(len(rounds), max(limit, 0)))
	for i := len(rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, rounds[i])
	}
	return out, nil
}

func (m *Memory) GetRoomStats(_ context.Context, roomID string) (models.RoomStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	stats := models.RoomStats{RoomID: roomID}
	for _, r := range m.rounds[roomID] {
		stats.Add(r)
	}
	return stats, nil
}

func (m *Memory) Close() error { return nil }
