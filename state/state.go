package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/sweepserver/network"
)

const (
	IDLoading = "loading"
	IDPlaying = "playing"
	IDEnded   = "ended"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(fromID, toID string, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
	HandleAction(player Player, msg network.Message) error
}

var (
	// ErrTransitionNotAllowed is returned when a state transition is not allowed.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	// ErrActionNotAllowed is returned for messages the current state does not accept.
	ErrActionNotAllowed = errors.New("action not allowed in current state")
)

// 基础状态机实现
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState runs OnExit and OnEnter outside the lock, so they may read the
// current state.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	old := sm.currentState
	if conditions, exists := sm.transitions[old.GetID()]; exists {
		if condition, exists := conditions[newState.GetID()]; exists {
			if condition != nil && !condition() {
				sm.mutex.Unlock()
				return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, old.GetID(), newState.GetID())
			}
		}
	}
	sm.currentState = newState
	sm.mutex.Unlock()

	old.OnExit()
	newState.OnEnter()
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// AddTransition guards moves from fromID to toID with condition. Moves
// without a rule are always allowed.
func (sm *BaseStateMachine) AddTransition(fromID, toID string, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}
	sm.transitions[fromID][toID] = condition
	return nil
}

// NewRoundMachine starts a round lifecycle in the loading state. A round
// can only end from playing, and an ended round only goes back to loading.
func NewRoundMachine(room RoomContext) *BaseStateMachine {
	sm := NewBaseStateMachine(NewLoadingState(room))
	never := func() bool { return false }
	sm.AddTransition(IDLoading, IDEnded, never)
	sm.AddTransition(IDEnded, IDPlaying, never)
	return sm
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

func (s *RoomStateBase) OnUpdate() {}

// HandleAction covers the messages every state accepts: cursor movement and
// profile updates. Anything else is refused.
func (s *RoomStateBase) HandleAction(player Player, msg network.Message) error {
	switch m := msg.(type) {
	case network.Cursor:
		m.ID = uint32(player.GetPlayerID())
		return s.Room.BroadcastExcept(player, m)
	case network.User:
		player.SetProfile(m)
		u := player.Profile()
		u.Update = true
		return s.Room.Broadcast(u)
	}
	return fmt.Errorf("%w: %s in %s", ErrActionNotAllowed, msg.Kind(), s.ID)
}
