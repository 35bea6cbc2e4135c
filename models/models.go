// models/models.go
package models

import (
	"time"
)

// RoomRecord 房间记录
type RoomRecord struct {
	RoomID      string    `json:"room_id"`
	Name        string    `json:"name"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	MineCount   int       `json:"mine_count"`
	Topology    string    `json:"topology"`
	GuessLevel  string    `json:"guess_level"`
	Gamemode    string    `json:"gamemode"`
	MaxPlayers  int       `json:"max_players"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlayerResult 一局结束时玩家的分数
type PlayerResult struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// RoundRecord 一局游戏的记录
type RoundRecord struct {
	RoomID     string         `json:"room_id"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	MineCount  int            `json:"mine_count"`
	Topology   string         `json:"topology"`
	GuessLevel string         `json:"guess_level"`
	Gamemode   string         `json:"gamemode"`
	Won        bool           `json:"won"`
	Players    []PlayerResult `json:"players"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Duration is zero for rounds that ended before the first reveal.
func (r RoundRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RoomStats 房间统计信息
type RoomStats struct {
	RoomID   string        `json:"room_id"`
	Rounds   int           `json:"rounds"`
	Wins     int           `json:"wins"`
	Losses   int           `json:"losses"`
	PlayTime time.Duration `json:"play_time"`
	// FastestWin is zero until the room has a timed win.
	FastestWin time.Duration `json:"fastest_win"`
}

// Add folds one round into the stats.
func (s *RoomStats) Add(r RoundRecord) {
	s.Rounds++
	d := r.Duration()
	s.PlayTime += d
	if !r.Won {
		s.Losses++
		return
	}
	s.Wins++
	if d > 0 && (s.FastestWin == 0 || d < s.FastestWin) {
		s.FastestWin = d
	}
}
