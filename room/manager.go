package room

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/sweepserver/directory"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/timer"
)

var ErrRoomExists = errors.New("room already exists")

const directoryTimeout = 2 * time.Second

// Manager 管理所有房间
type Manager struct {
	rooms     map[string]*Room
	deps      Dependencies
	directory directory.Directory
	timers    *timer.TimerManager
	sweepID   int64
	mutex     sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器. A nil directory keeps the lobby
// listing in memory.
func NewRoomManager(deps Dependencies, dir directory.Directory) *Manager {
	if dir == nil {
		dir = directory.NewMemoryDirectory()
	}
	return &Manager{
		rooms:     make(map[string]*Room),
		deps:      deps,
		directory: dir,
	}
}

func (m *Manager) Directory() directory.Directory {
	return m.directory
}

// CreateRoom 创建一个新房间并添加到管理器. An empty id gets a random one.
func (m *Manager) CreateRoom(cfg Config, broadcaster Broadcaster) (*Room, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	m.mutex.Lock()
	if _, exists := m.rooms[cfg.ID]; exists {
		m.mutex.Unlock()
		return nil, ErrRoomExists
	}
	room, err := NewRoom(cfg, m.deps, broadcaster)
	if err != nil {
		m.mutex.Unlock()
		return nil, err
	}
	m.rooms[cfg.ID] = room
	count := len(m.rooms)
	m.mutex.Unlock()

	m.deps.Monitor.SetActiveRooms(count)
	logger.Log.Infof("创建房间 %s (%s) %dx%d %d mines", room.ID, room.Name,
		cfg.Settings.Width, cfg.Settings.Height, cfg.Settings.MineCount)

	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()
	m.publish(ctx, room)
	if m.deps.Recorder != nil {
		if err := m.deps.Recorder.SaveRoom(ctx, room.Record()); err != nil {
			logger.Log.Errorf("Room %s: save: %v", room.ID, err)
		}
	}
	return room, nil
}

func (m *Manager) publish(ctx context.Context, room *Room) {
	if err := m.directory.Put(ctx, room.Summary()); err != nil {
		logger.Log.Warnf("Room %s: publish: %v", room.ID, err)
	}
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	room, exists := m.rooms[id]
	if exists {
		delete(m.rooms, id)
	}
	count := len(m.rooms)
	m.mutex.Unlock()

	if !exists {
		return
	}
	room.Close()
	m.deps.Monitor.SetActiveRooms(count)

	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()
	if err := m.directory.Delete(ctx, id); err != nil {
		logger.Log.Warnf("Room %s: unpublish: %v", id, err)
	}
	logger.Log.Infof("关闭房间 %s", id)
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Rooms lists the rooms ordered by id.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mutex.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// SweepIdle closes rooms that have been empty for idleTimeout and refreshes
// the directory entries of the rest. It returns the ids it closed.
func (m *Manager) SweepIdle(now time.Time, idleTimeout time.Duration) []string {
	var closed []string
	ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
	defer cancel()

	for _, room := range m.Rooms() {
		if room.IsIdle(now, idleTimeout) {
			m.RemoveRoom(room.ID)
			closed = append(closed, room.ID)
			continue
		}
		m.publish(ctx, room)
	}
	return closed
}

// StartSweeper runs SweepIdle every interval on timers.
func (m *Manager) StartSweeper(timers *timer.TimerManager, interval, idleTimeout time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.timers != nil {
		m.timers.RemoveTimer(m.sweepID)
	}
	m.timers = timers
	m.sweepID = timers.AddTimer(interval, interval, func() {
		if closed := m.SweepIdle(time.Now(), idleTimeout); len(closed) > 0 {
			logger.Log.Infof("清理空闲房间 %v", closed)
		}
	})
}

// Close stops the sweeper and closes every room.
func (m *Manager) Close() {
	m.mutex.Lock()
	if m.timers != nil {
		m.timers.RemoveTimer(m.sweepID)
		m.timers = nil
	}
	m.mutex.Unlock()

	for _, room := range m.Rooms() {
		m.RemoveRoom(room.ID)
	}
}
