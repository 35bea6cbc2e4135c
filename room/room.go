// room/room.go
package room

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/sweepserver/directory"
	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/models"
	"github.com/wfunc/sweepserver/monitor"
	"github.com/wfunc/sweepserver/network"
	"github.com/wfunc/sweepserver/session"
	"github.com/wfunc/sweepserver/state"
)

var (
	ErrRoomFull   = errors.New("room is full")
	ErrRoomClosed = errors.New("room is closed")
	ErrNotInRoom  = errors.New("session is not in the room")
)

// 玩家 id 占 8 位
const maxPlayerIDs = 1 << 8

const (
	tickInterval  = time.Second
	inboxSize     = 256
	recordTimeout = 5 * time.Second
)

// Config describes a room at creation time.
type Config struct {
	ID         string
	Name       string
	Password   string
	MaxPlayers int
	Settings   state.Settings
}

// Dependencies are shared by every room of a manager. Only Generator is
// required; a nil Generator falls back to InlineGenerator.
type Dependencies struct {
	Generator Generator
	Recorder  Recorder
	Monitor   *monitor.Monitor
}

type generation struct {
	seq    uint64
	result generator.Result
}

// Room 是游戏房间的核心结构. All game state is owned by the loop goroutine;
// other goroutines hand it work through the inbox.
type Room struct {
	ID           string
	Name         string
	MaxPlayers   int
	Players      map[string]*session.Session // sessionID -> session
	StateMachine state.StateMachine
	CreatedAt    time.Time

	password    string
	game        *state.Game
	deps        Dependencies
	broadcaster Broadcaster
	ids         *session.IdGen
	emptySince  time.Time
	playerMutex sync.RWMutex

	inbox     chan func()
	generated chan generation
	genSeq    uint64
	genCancel context.CancelFunc

	ticker    *time.Ticker
	closeChan chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewRoom 创建一个新房间. The first layout is requested immediately.
func NewRoom(cfg Config, deps Dependencies, broadcaster Broadcaster) (*Room, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPlayers < 1 || cfg.MaxPlayers > maxPlayerIDs {
		cfg.MaxPlayers = maxPlayerIDs
	}
	if deps.Generator == nil {
		deps.Generator = InlineGenerator{}
	}

	now := time.Now()
	room := &Room{
		ID:          cfg.ID,
		Name:        cfg.Name,
		MaxPlayers:  cfg.MaxPlayers,
		Players:     make(map[string]*session.Session),
		CreatedAt:   now,
		password:    cfg.Password,
		game:        state.NewGame(cfg.Settings, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
		deps:        deps,
		broadcaster: broadcaster,
		ids:         session.NewIdGen(0, cfg.MaxPlayers),
		emptySince:  now,
		inbox:       make(chan func(), inboxSize),
		generated:   make(chan generation, 1),
		closeChan:   make(chan struct{}),
		done:        make(chan struct{}),
	}

	// 初始化状态机，将房间自身(room)作为上下文传入
	room.StateMachine = state.NewRoundMachine(room)

	room.ticker = time.NewTicker(tickInterval)
	go room.loop()

	return room, nil
}

// --- 实现 state.RoomContext 接口 ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) Game() *state.Game {
	return r.game
}

// GetPlayers returns the players ordered by wire id.
func (r *Room) GetPlayers() []state.Player {
	sessions := r.GetSessions()
	players := make([]state.Player, len(sessions))
	for i, s := range sessions {
		players[i] = s
	}
	return players
}

func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

func (r *Room) Broadcast(msg network.Message) error {
	return r.broadcaster.BroadcastToRoom(r.ID, msg)
}

func (r *Room) BroadcastExcept(exclude state.Player, msg network.Message) error {
	return r.broadcaster.BroadcastExcept(r.ID, exclude.GetID(), msg)
}

// Generate cancels any generation still running for this room and starts a
// new one. Results of superseded requests are dropped by the loop.
func (r *Room) Generate(req generator.Request) {
	if r.genCancel != nil {
		r.genCancel()
	}
	r.genSeq++
	seq := r.genSeq
	ctx, cancel := context.WithCancel(context.Background())
	r.genCancel = cancel

	// Submit blocks while every worker is busy.
	go func() {
		var res generator.Result
		select {
		case res = <-r.deps.Generator.Submit(ctx, req):
		case <-r.closeChan:
			return
		}
		select {
		case r.generated <- generation{seq: seq, result: res}:
		case <-r.closeChan:
		}
	}()
}

// RoundFinished reports the round to metrics and stores it in the
// background.
func (r *Room) RoundFinished(won bool) {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	r.deps.Monitor.IncRoundsFinished(outcome)

	if r.deps.Recorder == nil {
		return
	}
	record := r.roundRecord(won, time.Now())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.deps.Recorder.RecordRound(ctx, record); err != nil {
			logger.Log.Errorf("Room %s: record round: %v", r.ID, err)
		}
	}()
}

func (r *Room) roundRecord(won bool, finished time.Time) models.RoundRecord {
	s := r.game.Settings
	record := models.RoundRecord{
		RoomID:     r.ID,
		Width:      s.Width,
		Height:     s.Height,
		MineCount:  s.MineCount,
		Topology:   s.Topology.String(),
		GuessLevel: s.Level.String(),
		Gamemode:   s.Gamemode.String(),
		Won:        won,
		StartedAt:  r.game.StartedAt,
		FinishedAt: finished,
	}
	for _, p := range r.GetSessions() {
		record.Players = append(record.Players, models.PlayerResult{
			PlayerID: p.PlayerID,
			Name:     p.Name(),
			Score:    p.Score(),
		})
	}
	return record
}

// --- 房间核心逻辑 ---

// do runs fn on the loop goroutine and waits for it.
func (r *Room) do(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case r.inbox <- func() { errc <- fn() }:
	case <-r.closeChan:
		return ErrRoomClosed
	}
	select {
	case err := <-errc:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// Join seats s, assigns its wire id and sends it the room snapshot: INIT,
// BOARD and every other player. Everyone then learns about the newcomer.
func (r *Room) Join(s *session.Session) error {
	return r.do(func() error {
		r.playerMutex.Lock()
		if len(r.Players) >= r.MaxPlayers {
			r.playerMutex.Unlock()
			return ErrRoomFull
		}
		id, ok := r.ids.Acquire()
		if !ok {
			r.playerMutex.Unlock()
			return ErrRoomFull
		}
		emptySince := r.emptySince
		s.PlayerID = id
		s.RoomID = r.ID
		s.ResetScore()
		r.Players[s.ID] = s
		r.emptySince = time.Time{}
		r.playerMutex.Unlock()

		if err := r.sendSnapshot(s); err != nil {
			// 发送失败, 撤销座位
			r.playerMutex.Lock()
			delete(r.Players, s.ID)
			s.RoomID = ""
			r.ids.Release(id)
			if len(r.Players) == 0 {
				r.emptySince = emptySince
			}
			r.playerMutex.Unlock()
			return err
		}

		r.deps.Monitor.IncOnlinePlayers()
		logger.Log.Infof("玩家 %s (%d) 加入房间 %s", s.ID, id, r.ID)
		return r.Broadcast(s.Profile())
	})
}

// sendSnapshot sends INIT, BOARD and every other player to s.
func (r *Room) sendSnapshot(s *session.Session) error {
	if err := s.Send(r.game.InitMessage(s.PlayerID)); err != nil {
		return err
	}
	if err := s.Send(r.game.BoardMessage()); err != nil {
		return err
	}
	for _, other := range r.GetSessions() {
		if other == s {
			continue
		}
		if err := s.Send(other.Profile()); err != nil {
			return err
		}
	}
	return nil
}

// Leave removes s and tells the others. Leaving twice is harmless.
func (r *Room) Leave(s *session.Session) error {
	return r.do(func() error {
		r.playerMutex.Lock()
		if _, ok := r.Players[s.ID]; !ok {
			r.playerMutex.Unlock()
			return nil
		}
		delete(r.Players, s.ID)
		s.RoomID = ""
		r.ids.Release(s.PlayerID)
		if len(r.Players) == 0 {
			r.emptySince = time.Now()
		}
		r.playerMutex.Unlock()

		r.deps.Monitor.DecOnlinePlayers()
		logger.Log.Infof("玩家 %s (%d) 离开房间 %s", s.ID, s.PlayerID, r.ID)
		return r.Broadcast(network.Disconnect{ID: uint32(s.PlayerID)})
	})
}

// HandleMessage queues msg from s. It returns once the message is queued;
// refused actions are logged, not returned.
func (r *Room) HandleMessage(s *session.Session, msg network.Message) error {
	received := time.Now()
	r.deps.Monitor.IncMessagesReceived(msg.Kind().String())

	task := func() {
		defer func() {
			r.deps.Monitor.ObserveMessageLatency(time.Since(received))
		}()
		if _, ok := r.GetPlayer(s.ID); !ok {
			return
		}
		err := r.StateMachine.GetCurrentState().HandleAction(s, msg)
		switch {
		case err == nil:
		case errors.Is(err, state.ErrActionNotAllowed):
			logger.Log.Debugf("Room %s player %d: %v", r.ID, s.PlayerID, err)
		default:
			logger.Log.Warnf("Room %s player %d %s: %v", r.ID, s.PlayerID, msg.Kind(), err)
		}
	}
	select {
	case r.inbox <- task:
		return nil
	case <-r.closeChan:
		return ErrRoomClosed
	}
}

// Sync waits until everything queued before it has been handled.
func (r *Room) Sync() error {
	return r.do(func() error { return nil })
}

// GetPlayer 获取单个玩家
func (r *Room) GetPlayer(sessionID string) (*session.Session, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	player, exists := r.Players[sessionID]
	return player, exists
}

// GetSessions returns the sessions ordered by wire id.
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	sessions := make([]*session.Session, 0, len(r.Players))
	for _, s := range r.Players {
		sessions = append(sessions, s)
	}
	r.playerMutex.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].PlayerID < sessions[j].PlayerID
	})
	return sessions
}

func (r *Room) PlayerCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.Players)
}

// CheckPassword reports whether password opens the room. Rooms without a
// password accept anything.
func (r *Room) CheckPassword(password string) bool {
	if r.password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.password), []byte(password)) == 1
}

// IsIdle reports whether the room has been empty for at least timeout.
func (r *Room) IsIdle(now time.Time, timeout time.Duration) bool {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.Players) == 0 && !r.emptySince.IsZero() && now.Sub(r.emptySince) >= timeout
}

// StateID names the current state.
func (r *Room) StateID() string {
	return r.StateMachine.GetCurrentState().GetID()
}

// Summary describes the room for the lobby.
func (r *Room) Summary() directory.Summary {
	s := r.game.Settings
	return directory.Summary{
		ID:          r.ID,
		Name:        r.Name,
		Players:     r.PlayerCount(),
		MaxPlayers:  r.MaxPlayers,
		Width:       s.Width,
		Height:      s.Height,
		MineCount:   s.MineCount,
		Topology:    s.Topology.String(),
		GuessLevel:  s.Level.String(),
		Gamemode:    s.Gamemode.String(),
		State:       r.StateID(),
		HasPassword: r.password != "",
		UpdatedAt:   time.Now(),
	}
}

// Record is the persistent description of the room.
func (r *Room) Record() models.RoomRecord {
	s := r.game.Settings
	return models.RoomRecord{
		RoomID:      r.ID,
		Name:        r.Name,
		Width:       s.Width,
		Height:      s.Height,
		MineCount:   s.MineCount,
		Topology:    s.Topology.String(),
		GuessLevel:  s.Level.String(),
		Gamemode:    s.Gamemode.String(),
		MaxPlayers:  r.MaxPlayers,
		HasPassword: r.password != "",
		CreatedAt:   r.CreatedAt,
	}
}

// loop 是房间的主循环
func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case task := <-r.inbox:
			task()
		case g := <-r.generated:
			r.onGenerated(g)
		case <-r.ticker.C:
			r.Update()
		case <-r.closeChan:
			r.ticker.Stop()
			if r.genCancel != nil {
				r.genCancel()
			}
			return
		}
	}
}

func (r *Room) onGenerated(g generation) {
	if g.seq != r.genSeq {
		return
	}
	current := r.StateMachine.GetCurrentState()
	handler, ok := current.(state.GenerationHandler)
	if !ok {
		logger.Log.Warnf("Room %s: layout arrived in state %s", r.ID, current.GetID())
		return
	}
	handler.OnGenerated(g.result)
}

// Update 由主循环调用，驱动状态机更新
func (r *Room) Update() {
	if current := r.StateMachine.GetCurrentState(); current != nil {
		current.OnUpdate()
	}
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// Done is closed once the loop has stopped.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) String() string {
	return fmt.Sprintf("room %s (%s)", r.ID, r.Name)
}
