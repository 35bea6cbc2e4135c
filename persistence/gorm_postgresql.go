// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// gormWriter sends gorm's log lines to the process logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Log.Debugf(format, args...)
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             time.Second, // 慢SQL阈值
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, err
	}
	return newGorm(db)
}

func newGorm(db *gorm.DB) (*GormPostgreSQL, error) {
	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormRoom{}, &models.GormRound{}); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// SaveRoom upserts on room_id.
func (p *GormPostgreSQL) SaveRoom(ctx context.Context, room models.RoomRecord) error {
	row := models.NewGormRoom(room)
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "width", "height", "mine_count", "topology", "guess_level",
			"gamemode", "max_players", "has_password", "updated_at",
		}),
	}).Create(&row).Error
}

func (p *GormPostgreSQL) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	var row models.GormRoom
	if err := p.db.WithContext(ctx).Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoomRecord{}, ErrRecordNotFound
		}
		return models.RoomRecord{}, err
	}
	return row.Record(), nil
}

func (p *GormPostgreSQL) SaveRound(ctx context.Context, round models.RoundRecord) error {
	row := models.NewGormRound(round)
	return p.db.WithContext(ctx).Create(&row).Error
}

func (p *GormPostgreSQL) ListRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	var rows []models.GormRound
	err := p.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("finished_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	rounds := make([]models.RoundRecord, len(rows))
	for i, row := range rows {
		rounds[i] = row.Record()
	}
	return rounds, nil
}

// GetRoomStats aggregates in the database.
func (p *GormPostgreSQL) GetRoomStats(ctx context.Context, roomID string) (models.RoomStats, error) {
	var row struct {
		Rounds     int
		Wins       int
		PlayTime   int64
		FastestWin int64
	}
	err := p.db.WithContext(ctx).Model(&models.GormRound{}).
		Select(`COUNT(*) AS rounds,
            COALESCE(SUM(CASE WHEN won THEN 1 ELSE 0 END), 0) AS wins,
            COALESCE(SUM(duration), 0) AS play_time,
            COALESCE(MIN(CASE WHEN won AND duration > 0 THEN duration END), 0) AS fastest_win`).
		Where("room_id = ?", roomID).
		Scan(&row).Error
	if err != nil {
		return models.RoomStats{}, err
	}
	return models.RoomStats{
		RoomID:     roomID,
		Rounds:     row.Rounds,
		Wins:       row.Wins,
		Losses:     row.Rounds - row.Wins,
		PlayTime:   time.Duration(row.PlayTime) * time.Millisecond,
		FastestWin: time.Duration(row.FastestWin) * time.Millisecond,
	}, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
