// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormRoom 房间模型
type GormRoom struct {
	gorm.Model
	RoomID      string `gorm:"uniqueIndex;not null"`
	Name        string `gorm:"not null"`
	Width       int    `gorm:"not null"`
	Height      int    `gorm:"not null"`
	MineCount   int    `gorm:"not null"`
	Topology    string `gorm:"not null"`
	GuessLevel  string `gorm:"not null"`
	Gamemode    string `gorm:"not null"`
	MaxPlayers  int    `gorm:"default:32"`
	HasPassword bool   `gorm:"default:false"`
}

// GormRound 游戏记录模型
type GormRound struct {
	gorm.Model
	RoomID     string         `gorm:"index;not null"`
	Width      int            `gorm:"not null"`
	Height     int            `gorm:"not null"`
	MineCount  int            `gorm:"not null"`
	Topology   string         `gorm:"not null"`
	GuessLevel string         `gorm:"not null"`
	Gamemode   string         `gorm:"not null"`
	Won        bool           `gorm:"index"`
	Players    []PlayerResult `gorm:"serializer:json;type:jsonb"`
	StartedAt  *time.Time
	FinishedAt time.Time `gorm:"not null"`
	Duration   int64     `gorm:"default:0"` // 毫秒
}

func (GormRoom) TableName() string  { return "rooms" }
func (GormRound) TableName() string { return "rounds" }

func NewGormRoom(r RoomRecord) GormRoom {
	return GormRoom{
		RoomID:      r.RoomID,
		Name:        r.Name,
		Width:       r.Width,
		Height:      r.Height,
		MineCount:   r.MineCount,
		Topology:    r.Topology,
		GuessLevel:  r.GuessLevel,
		Gamemode:    r.Gamemode,
		MaxPlayers:  r.MaxPlayers,
		HasPassword: r.HasPassword,
	}
}

func (g GormRoom) Record() RoomRecord {
	return RoomRecord{
		RoomID:      g.RoomID,
		Name:        g.Name,
		Width:       g.Width,
		Height:      g.Height,
		MineCount:   g.MineCount,
		Topology:    g.Topology,
		GuessLevel:  g.GuessLevel,
		Gamemode:    g.Gamemode,
		MaxPlayers:  g.MaxPlayers,
		HasPassword: g.HasPassword,
		CreatedAt:   g.CreatedAt,
	}
}

func NewGormRound(r RoundRecord) GormRound {
	g := GormRound{
		RoomID:     r.RoomID,
		Width:      r.Width,
		Height:     r.Height,
		MineCount:  r.MineCount,
		Topology:   r.Topology,
		GuessLevel: r.GuessLevel,
		Gamemode:   r.Gamemode,
		Won:        r.Won,
		Players:    r.Players,
		FinishedAt: r.FinishedAt,
		Duration:   r.Duration().Milliseconds(),
	}
	if !r.StartedAt.IsZero() {
		started := r.StartedAt
		g.StartedAt = &started
	}
	return g
}

func (g GormRound) Record() RoundRecord {
	r := RoundRecord{
		RoomID:     g.RoomID,
		Width:      g.Width,
		Height:     g.Height,
		MineCount:  g.MineCount,
		Topology:   g.Topology,
		GuessLevel: g.GuessLevel,
		Gamemode:   g.Gamemode,
		Won:        g.Won,
		Players:    g.Players,
		FinishedAt: g.FinishedAt,
	}
	if g.StartedAt != nil {
		r.StartedAt = *g.StartedAt
	}
	return r
}
