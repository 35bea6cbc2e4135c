package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/sweepserver/directory"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/room"
	"github.com/wfunc/sweepserver/services"
	"github.com/wfunc/sweepserver/solver"
	"github.com/wfunc/sweepserver/state"
)

var (
	ErrNoRoom    = errors.New("no such room")
	ErrNoHistory = errors.New("round history is not available")
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and serves lobby as "Lobby".
func NewServer(addr string, lobby *Lobby) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("Lobby", lobby); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      server,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Lobby exposes room listing and creation. Methods follow the net/rpc
// signature: exported args, pointer reply, error result.
type Lobby struct {
	rooms       *room.Manager
	broadcaster room.Broadcaster
	history     *services.RoundService
	maxPlayers  int
}

// NewLobby creates a lobby. history may be nil.
func NewLobby(rooms *room.Manager, broadcaster room.Broadcaster, history *services.RoundService, maxPlayers int) *Lobby {
	return &Lobby{rooms: rooms, broadcaster: broadcaster, history: history, maxPlayers: maxPlayers}
}

type ListRoomsArgs struct {
	// OnlyOpen hides full and password protected rooms.
	OnlyOpen bool
}

type ListRoomsReply struct {
	Rooms []directory.Summary
}

func (l *Lobby) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	rooms, err := l.rooms.Directory().List(ctx)
	if err != nil {
		return err
	}
	reply.Rooms = rooms[:0]
	for _, r := range rooms {
		if args.OnlyOpen && (r.HasPassword || r.Players >= r.MaxPlayers) {
			continue
		}
		reply.Rooms = append(reply.Rooms, r)
	}
	return nil
}

type CreateRoomArgs struct {
	Name       string
	Password   string
	MaxPlayers int
	Width      int
	Height     int
	MineCount  int
	Topology   uint8
	GuessLevel uint8
	Gamemode   uint8
}

type CreateRoomReply struct {
	ID string
}

// CreateRoom opens a room with a fresh id. MaxPlayers is capped by the
// server limit.
func (l *Lobby) CreateRoom(args *CreateRoomArgs, reply *CreateRoomReply) error {
	maxPlayers := args.MaxPlayers
	if maxPlayers <= 0 || maxPlayers > l.maxPlayers {
		maxPlayers = l.maxPlayers
	}
	r, err := l.rooms.CreateRoom(room.Config{
		Name:       args.Name,
		Password:   args.Password,
		MaxPlayers: maxPlayers,
		Settings: state.Settings{
			Width:     args.Width,
			Height:    args.Height,
			Topology:  grid.Topology(args.Topology),
			MineCount: args.MineCount,
			Level:     solver.Level(args.GuessLevel),
			Gamemode:  state.Gamemode(args.Gamemode),
		},
	}, l.broadcaster)
	if err != nil {
		return err
	}
	reply.ID = r.ID
	return nil
}

type CheckPasswordArgs struct {
	RoomID   string
	Password string
}

type CheckPasswordReply struct {
	OK bool
}

func (l *Lobby) CheckPassword(args *CheckPasswordArgs, reply *CheckPasswordReply) error {
	r, ok := l.rooms.GetRoom(args.RoomID)
	if !ok {
		return ErrNoRoom
	}
	reply.OK = r.CheckPassword(args.Password)
	return nil
}

type RoomHistoryArgs struct {
	RoomID string
	Limit  int
}

type RoomHistoryReply struct {
	History services.RoomHistory
}

func (l *Lobby) RoomHistory(args *RoomHistoryArgs, reply *RoomHistoryReply) error {
	if l.history == nil {
		return ErrNoHistory
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	history, err := l.history.GetRoomHistory(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.History = history
	return nil
}
