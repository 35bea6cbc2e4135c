// session/session.go
package session

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wfunc/sweepserver/network"
)

// MaxNameLength caps a username in bytes.
const MaxNameLength = 32

// Session is one connected player.
type Session struct {
	ID         string
	Conn       network.Connection
	PlayerID   int // wire id, unique within the room
	RoomID     string
	CreatedAt  time.Time
	LastActive time.Time

	profile network.User
	mutex   sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Send encodes msg and writes it to the connection.
func (s *Session) Send(msg network.Message) error {
	data, err := network.Encode(msg)
	if err != nil {
		return err
	}
	return s.SendRaw(data)
}

// SendRaw writes an already encoded message, so a broadcast encodes once.
func (s *Session) SendRaw(data []byte) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) GetPlayerID() int {
	return s.PlayerID
}

// Profile returns the USER message describing this player.
func (s *Session) Profile() network.User {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	u := s.profile
	u.ID = uint32(s.PlayerID)
	return u
}

// SetProfile stores the name and color from u. Id and score stay under
// server control.
func (s *Session) SetProfile(u network.User) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.profile.Username = truncateName(u.Username)
	s.profile.Hue = u.Hue
	s.profile.Saturation = u.Saturation
	s.profile.Lightness = u.Lightness
}

// truncateName cuts name to MaxNameLength bytes without splitting a rune.
func truncateName(name string) string {
	if len(name) <= MaxNameLength {
		return name
	}
	n := MaxNameLength
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}

func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.profile.Username
}

// AddScore adjusts the score, clamped to what the 8-bit field can carry.
func (s *Session) AddScore(delta int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	score := int(s.profile.Score) + delta
	score = max(0, min(score, 255))
	s.profile.Score = uint32(score)
}

func (s *Session) ResetScore() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.profile.Score = 0
}

func (s *Session) Score() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int(s.profile.Score)
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All lists every session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// CloseAll closes every connection, used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, session := range m.sessions {
		session.Close()
	}
}
