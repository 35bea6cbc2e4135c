package monitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("sweep_test")

	m.IncOnlinePlayers()
	m.IncOnlinePlayers()
	m.DecOnlinePlayers()
	m.SetActiveRooms(3)
	m.IncMessagesReceived("TILE")
	m.IncMessagesReceived("TILE")
	m.IncMessagesReceived("FLAG")
	m.ObserveGeneration(20*time.Millisecond, 4, false)
	m.ObserveGeneration(2*time.Second, 300, true)

	if got := testutil.ToFloat64(m.metrics.OnlinePlayers); got != 1 {
		t.Errorf("Expected 1 online player, got %v", got)
	}
	if got := testutil.ToFloat64(m.metrics.ActiveRooms); got != 3 {
		t.Errorf("Expected 3 rooms, got %v", got)
	}
	if got := testutil.ToFloat64(m.metrics.MessagesReceived.WithLabelValues("TILE")); got != 2 {
		t.Errorf("Expected 2 TILE messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.metrics.GenerationFallbacks); got != 1 {
		t.Errorf("Expected 1 fallback, got %v", got)
	}
	if m.RequestCount() != 3 {
		t.Errorf("Expected request count 3, got %d", m.RequestCount())
	}
}

func TestMonitor_NilSafe(t *testing.T) {
	var m *Monitor
	m.IncOnlinePlayers()
	m.SetActiveRooms(1)
	m.IncMessagesReceived("CURSOR")
	m.ObserveGeneration(time.Second, 1, true)
	m.IncRoundsFinished("won")
	if m.RequestCount() != 0 {
		t.Error("Nil monitor should report zero")
	}
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("sweep_http")
	m.IncRoundsFinished("lost")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `sweep_http_rounds_finished_total{outcome="lost"} 1`) {
		t.Errorf("Expected the rounds counter in the output, got:\n%s", body)
	}
	if !strings.Contains(body, "sweep_http_uptime_seconds") {
		t.Error("Expected the uptime gauge in the output")
	}
}
