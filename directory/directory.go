// Package directory publishes a summary of every open room so lobbies can
// list them. Summaries are advisory; the room manager stays authoritative.
package directory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("room not listed")

// Summary is what a lobby shows for one room.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Players     int       `json:"players"`
	MaxPlayers  int       `json:"max_players"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	MineCount   int       `json:"mine_count"`
	Topology    string    `json:"topology"`
	GuessLevel  string    `json:"guess_level"`
	Gamemode    string    `json:"gamemode"`
	State       string    `json:"state"`
	HasPassword bool      `json:"has_password"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Directory interface {
	Put(ctx context.Context, s Summary) error
	Get(ctx context.Context, id string) (Summary, error)
	Delete(ctx context.Context, id string) error
	// List returns summaries ordered by room name, then id.
	List(ctx context.Context) ([]Summary, error)
	Close() error
}

func sortSummaries(list []Summary) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryDirectory keeps summaries in process.
type MemoryDirectory struct {
	rooms map[string]Summary
	mutex sync.RWMutex
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{rooms: make(map[string]Summary)}
}

func (d *MemoryDirectory) Put(_ context.Context, s Summary) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rooms[s.ID] = s
	return nil
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (Summary, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	s, ok := d.rooms[id]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return s, nil
}

func (d *MemoryDirectory) Delete(_ context.Context, id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	delete(d.rooms, id)
	return nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]Summary, error) {
	d.mutex.RLock()
	list := make([]Summary, 0, len(d.rooms))
	for _, s := range d.rooms {
		list = append(list, s)
	}
	d.mutex.RUnlock()
	sortSummaries(list)
	return list, nil
}

func (d *MemoryDirectory) Close() error { return nil }
