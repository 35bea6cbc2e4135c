package session

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/wfunc/sweepserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
	return nil
}
func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}
func (m *MockConnection) ReadFrame() ([]byte, error)          { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_CloseAll(t *testing.T) {
	manager := NewManager()
	sessions := []*Session{
		NewSession("session1", &MockConnection{}),
		NewSession("session2", &MockConnection{}),
	}
	for _, s := range sessions {
		manager.Add(s)
	}
	if got := len(manager.All()); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}

	manager.CloseAll()
	for _, s := range sessions {
		if !s.Conn.(*MockConnection).closed {
			t.Errorf("Session %s was not closed", s.ID)
		}
	}
}

func TestSession_Send(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s", conn)
	if err := sess.Send(network.Tile{X: 5, Y: 3, Tile: 4}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(conn.frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(conn.frames))
	}
	msg, err := network.Decode(conn.frames[0])
	if err != nil || msg != (network.Tile{X: 5, Y: 3, Tile: 4}) {
		t.Errorf("Unexpected frame: %v %v", msg, err)
	}

	if err := sess.Send(network.Tile{X: 300}); err == nil {
		t.Error("Expected an encode error for an oversized field")
	}
	if len(conn.frames) != 1 {
		t.Error("Nothing should be written when encoding fails")
	}
}

func TestSession_Profile(t *testing.T) {
	sess := NewSession("s", &MockConnection{})
	sess.PlayerID = 4
	sess.SetProfile(network.User{ID: 99, Score: 50, Username: "ada", Hue: 200, Saturation: 80, Lightness: 40})
	sess.AddScore(3)

	u := sess.Profile()
	if u.ID != 4 || u.Username != "ada" || u.Hue != 200 || u.Score != 3 {
		t.Errorf("Unexpected profile %+v", u)
	}

	sess.AddScore(-10)
	if sess.Score() != 0 {
		t.Errorf("Score should not go below zero, got %d", sess.Score())
	}
	sess.AddScore(1000)
	if sess.Score() != 255 {
		t.Errorf("Score should saturate at 255, got %d", sess.Score())
	}
	sess.ResetScore()
	if sess.Score() != 0 {
		t.Error("ResetScore should clear the score")
	}
}

func TestSession_SetProfile_LongName(t *testing.T) {
	sess := NewSession("s", &MockConnection{})

	sess.SetProfile(network.User{Username: strings.Repeat("a", 40)})
	if len(sess.Name()) != MaxNameLength {
		t.Errorf("Expected the name cut to %d bytes, got %d", MaxNameLength, len(sess.Name()))
	}

	// never split a multi-byte rune
	sess.SetProfile(network.User{Username: "a" + strings.Repeat("é", 20)})
	if name := sess.Name(); len(name) != 31 || !utf8.ValidString(name) {
		t.Errorf("Expected 31 valid bytes, got %d %q", len(name), name)
	}

	sess.SetProfile(network.User{Username: "ann"})
	if sess.Name() != "ann" {
		t.Errorf("Expected short names untouched, got %q", sess.Name())
	}
}

func TestIdGen(t *testing.T) {
	g := NewIdGen(1, 3)

	if id, ok := g.Acquire(); !ok || id != 1 {
		t.Fatalf("Expected 1, got %d %v", id, ok)
	}
	if id, ok := g.Acquire(); !ok || id != 2 {
		t.Fatalf("Expected 2, got %d %v", id, ok)
	}
	if id, ok := g.Acquire(); ok {
		t.Fatalf("Expected the pool to be exhausted, got %d", id)
	}

	g.Release(1)
	if id, ok := g.Acquire(); !ok || id != 1 {
		t.Errorf("Expected the released id 1 to come back, got %d %v", id, ok)
	}
	g.Release(42)
	if g.InUse() != 2 {
		t.Errorf("Expected 2 ids in use, got %d", g.InUse())
	}
}

func TestIdGen_Concurrent(t *testing.T) {
	g := NewIdGen(0, 100)
	var wg sync.WaitGroup
	ids := make(chan int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, ok := g.Acquire(); ok {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Id %d issued twice", id)
		}
		seen[id] = true
	}
	if len(seen) != 100 {
		t.Errorf("Expected 100 distinct ids, got %d", len(seen))
	}
}
