package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/models"
	"github.com/wfunc/sweepserver/persistence"
)

const defaultHistory = 20

// RoundService stores rooms and rounds and answers history queries.
type RoundService struct {
	db persistence.Database
}

func NewRoundService(db persistence.Database) *RoundService {
	return &RoundService{db: db}
}

// SaveRoom 保存房间配置
func (s *RoundService) SaveRoom(ctx context.Context, room models.RoomRecord) error {
	if room.RoomID == "" {
		return fmt.Errorf("save room: empty room id")
	}
	return s.db.SaveRoom(ctx, room)
}

// RecordRound 保存一局的结果
func (s *RoundService) RecordRound(ctx context.Context, round models.RoundRecord) error {
	if round.RoomID == "" {
		return fmt.Errorf("record round: empty room id")
	}
	if err := s.db.SaveRound(ctx, round); err != nil {
		return fmt.Errorf("record round for room %s: %w", round.RoomID, err)
	}
	logger.Log.Debugf("Room %s round recorded: won=%v players=%d duration=%v",
		round.RoomID, round.Won, len(round.Players), round.Duration())
	return nil
}

// RoomHistory 获取房间信息、统计和最近的几局
type RoomHistory struct {
	Room   models.RoomRecord    `json:"room"`
	Stats  models.RoomStats     `json:"stats"`
	Recent []models.RoundRecord `json:"recent"`
}

// GetRoomHistory returns the room with its stats and up to limit recent
// rounds. A limit of zero uses the default.
func (s *RoundService) GetRoomHistory(ctx context.Context, roomID string, limit int) (RoomHistory, error) {
	if limit <= 0 {
		limit = defaultHistory
	}
	room, err := s.db.LoadRoom(ctx, roomID)
	if err != nil {
		return RoomHistory{}, err
	}
	stats, err := s.db.GetRoomStats(ctx, roomID)
	if err != nil {
		return RoomHistory{}, err
	}
	recent, err := s.db.ListRounds(ctx, roomID, limit)
	if err != nil {
		return RoomHistory{}, err
	}
	return RoomHistory{Room: room, Stats: stats, Recent: recent}, nil
}

// BestPlayers ranks players by total score over the recent rounds of a
// room.
func (s *RoundService) BestPlayers(ctx context.Context, roomID string, rounds int) ([]models.PlayerResult, error) {
	recent, err := s.db.ListRounds(ctx, roomID, rounds)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int)
	var order []string
	for _, r := range recent {
		for _, p := range r.Players {
			if _, seen := totals[p.Name]; !seen {
				order = append(order, p.Name)
			}
			totals[p.Name] += p.Score
		}
	}
	ranked := make([]models.PlayerResult, len(order))
	for i, name := range order {
		ranked[i] = models.PlayerResult{PlayerID: -1, Name: name, Score: totals[name]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}
