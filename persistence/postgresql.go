// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// PostgreSQL 驱动
	"github.com/lib/pq"
	"github.com/wfunc/sweepserver/models"
)

// PostgreSQL 数据库实现. It shares the schema of GormPostgreSQL.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	connector, err := pq.NewConnector(connStr)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rooms (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_id TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            width BIGINT NOT NULL,
            height BIGINT NOT NULL,
            mine_count BIGINT NOT NULL,
            topology TEXT NOT NULL,
            guess_level TEXT NOT NULL,
            gamemode TEXT NOT NULL,
            max_players BIGINT DEFAULT 32,
            has_password BOOLEAN DEFAULT false
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rounds (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_id TEXT NOT NULL,
            width BIGINT NOT NULL,
            height BIGINT NOT NULL,
            mine_count BIGINT NOT NULL,
            topology TEXT NOT NULL,
            guess_level TEXT NOT NULL,
            gamemode TEXT NOT NULL,
            won BOOLEAN,
            players JSONB,
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ NOT NULL,
            duration BIGINT DEFAULT 0
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_rounds_room_id ON rounds(room_id);
        CREATE INDEX IF NOT EXISTS idx_rounds_won ON rounds(won);
    `)
	return err
}

// SaveRoom 保存房间
func (p *PostgreSQL) SaveRoom(ctx context.Context, room models.RoomRecord) error {
	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	query := `
        INSERT INTO rooms (room_id, name, width, height, mine_count, topology,
            guess_level, gamemode, max_players, has_password)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (room_id)
        DO UPDATE SET name = $2, width = $3, height = $4, mine_count = $5,
            topology = $6, guess_level = $7, gamemode = $8, max_players = $9,
            has_password = $10, updated_at = CURRENT_TIMESTAMP
    `
	_, err := p.db.ExecContext(ctx, query, room.RoomID, room.Name, room.Width, room.Height,
		room.MineCount, room.Topology, room.GuessLevel, room.Gamemode, room.MaxPlayers, room.HasPassword)
	return err
}

// LoadRoom 加载房间
func (p *PostgreSQL) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	room := models.RoomRecord{RoomID: roomID}
	query := `
        SELECT name, width, height, mine_count, topology, guess_level, gamemode,
            max_players, has_password, created_at
        FROM rooms WHERE room_id = $1 AND deleted_at IS NULL
    `
	err := p.db.QueryRowContext(ctx, query, roomID).Scan(&room.Name, &room.Width, &room.Height,
		&room.MineCount, &room.Topology, &room.GuessLevel, &room.Gamemode,
		&room.MaxPlayers, &room.HasPassword, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoomRecord{}, ErrRecordNotFound
		}
		return models.RoomRecord{}, err
	}
	return room, nil
}

// SaveRound 保存游戏记录
func (p *PostgreSQL) SaveRound(ctx context.Context, round models.RoundRecord) error {
	players, err := json.Marshal(round.Players)
	if err != nil {
		return err
	}
	var started sql.NullTime
	if !round.StartedAt.IsZero() {
		started = sql.NullTime{Time: round.StartedAt, Valid: true}
	}

	query := `
        INSERT INTO rounds (room_id, width, height, mine_count, topology, guess_level,
            gamemode, won, players, started_at, finished_at, duration)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err = p.db.ExecContext(ctx, query, round.RoomID, round.Width, round.Height,
		round.MineCount, round.Topology, round.GuessLevel, round.Gamemode, round.Won,
		players, started, round.FinishedAt, round.Duration().Milliseconds())
	return err
}

func (p *PostgreSQL) ListRounds(ctx context.Context, roomID string, limit int) ([]models.RoundRecord, error) {
	query := `
        SELECT width, height, mine_count, topology, guess_level, gamemode, won,
            players, started_at, finished_at
        FROM rounds WHERE room_id = $1 AND deleted_at IS NULL
        ORDER BY finished_at DESC LIMIT $2
    `
	rows, err := p.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []models.RoundRecord
	for rows.Next() {
		r := models.RoundRecord{RoomID: roomID}
		var players []byte
		var started sql.NullTime
		if err := rows.Scan(&r.Width, &r.Height, &r.MineCount, &r.Topology, &r.GuessLevel,
			&r.Gamemode, &r.Won, &players, &started, &r.FinishedAt); err != nil {
			return nil, err
		}
		if len(players) > 0 {
			if err := json.Unmarshal(players, &r.Players); err != nil {
				return nil, err
			}
		}
		if started.Valid {
			r.StartedAt = started.Time
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func (p *PostgreSQL) GetRoomStats(ctx context.Context, roomID string) (models.RoomStats, error) {
	stats := models.RoomStats{RoomID: roomID}
	var playTime, fastest int64
	query := `
        SELECT COUNT(*),
            COALESCE(SUM(CASE WHEN won THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(duration), 0),
            COALESCE(MIN(CASE WHEN won AND duration > 0 THEN duration END), 0)
        FROM rounds WHERE room_id = $1 AND deleted_at IS NULL
    `
	err := p.db.QueryRowContext(ctx, query, roomID).Scan(&stats.Rounds, &stats.Wins, &playTime, &fastest)
	if err != nil {
		return models.RoomStats{}, err
	}
	stats.Losses = stats.Rounds - stats.Wins
	stats.PlayTime = time.Duration(playTime) * time.Millisecond
	stats.FastestWin = time.Duration(fastest) * time.Millisecond
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
