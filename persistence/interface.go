// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/sweepserver/config"
	"github.com/wfunc/sweepserver/models"
)

// Database 数据库接口
type Database interface {
	SaveRoom(ctx context.Context, room models.RoomRecord) error
	LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error)
	SaveRound(ctx context.Context, round models.RoundRecord) error
	// ListRounds returns up to limit rounds of a room, newest first.
	ListRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error)
	GetRoomStats(ctx context.Context, roomID string) (models.RoomStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown database driver")
)

// Open picks the implementation named by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "pq":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
