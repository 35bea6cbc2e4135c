package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wfunc/sweepserver/models"
	"github.com/wfunc/sweepserver/persistence"
)

// MockDatabase wraps the memory store and can fail on demand.
type MockDatabase struct {
	*persistence.Memory
	saveErr error
}

func (m *MockDatabase) SaveRound(ctx context.Context, round models.RoundRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	return m.Memory.SaveRound(ctx, round)
}

func TestRoundService_RecordAndHistory(t *testing.T) {
	db := &MockDatabase{Memory: persistence.NewMemory()}
	svc := NewRoundService(db)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := svc.SaveRoom(ctx, models.RoomRecord{RoomID: "r1", Name: "daily"}); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}
	rounds := []models.RoundRecord{
		{RoomID: "r1", Won: true, StartedAt: start, FinishedAt: start.Add(time.Minute),
			Players: []models.PlayerResult{{Name: "ann", Score: 10}, {Name: "bo", Score: 30}}},
		{RoomID: "r1", Won: false, StartedAt: start, FinishedAt: start.Add(2 * time.Minute),
			Players: []models.PlayerResult{{Name: "ann", Score: 25}}},
	}
	for _, r := range rounds {
		if err := svc.RecordRound(ctx, r); err != nil {
			t.Fatalf("RecordRound failed: %v", err)
		}
	}

	history, err := svc.GetRoomHistory(ctx, "r1", 0)
	if err != nil {
		t.Fatalf("GetRoomHistory failed: %v", err)
	}
	if history.Room.Name != "daily" || history.Stats.Rounds != 2 || len(history.Recent) != 2 {
		t.Errorf("Unexpected history %+v", history)
	}
	if history.Recent[0].Won {
		t.Error("Expected the newest round first")
	}

	best, err := svc.BestPlayers(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("BestPlayers failed: %v", err)
	}
	if len(best) != 2 || best[0].Name != "ann" || best[0].Score != 35 || best[1].Score != 30 {
		t.Errorf("Unexpected ranking %+v", best)
	}
}

func TestRoundService_Errors(t *testing.T) {
	boom := errors.New("disk full")
	svc := NewRoundService(&MockDatabase{Memory: persistence.NewMemory(), saveErr: boom})
	ctx := context.Background()

	if err := svc.RecordRound(ctx, models.RoundRecord{}); err == nil {
		t.Error("Expected an error for a round without a room")
	}
	if err := svc.RecordRound(ctx, models.RoundRecord{RoomID: "r1"}); !errors.Is(err, boom) {
		t.Errorf("Expected the database error to be wrapped, got %v", err)
	}
	if _, err := svc.GetRoomHistory(ctx, "missing", 5); !errors.Is(err, persistence.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
