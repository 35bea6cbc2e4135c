package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/sweepserver/broadcast"
	"github.com/wfunc/sweepserver/config"
	"github.com/wfunc/sweepserver/directory"
	"github.com/wfunc/sweepserver/generator"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/monitor"
	"github.com/wfunc/sweepserver/network"
	"github.com/wfunc/sweepserver/persistence"
	"github.com/wfunc/sweepserver/room"
	sweeprpc "github.com/wfunc/sweepserver/rpc"
	"github.com/wfunc/sweepserver/services"
	"github.com/wfunc/sweepserver/session"
	"github.com/wfunc/sweepserver/solver"
	"github.com/wfunc/sweepserver/state"
	"github.com/wfunc/sweepserver/timer"
)

type GameServer struct {
	addr           string
	heartbeat      time.Duration
	maxPlayers     int
	upgrader       websocket.Upgrader
	engine         *gin.Engine
	httpServer     *http.Server
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    *broadcast.RoomBroadcaster
	rounds         *services.RoundService
	monitor        *monitor.Monitor
	timers         *timer.TimerManager
	worker         *generator.Worker
	rpcServer      *sweeprpc.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires every component. dir may be nil for an in-process
// room directory; an empty RPC address disables the lobby RPC listener.
func NewGameServer(cfg *config.Config, db persistence.Database, dir directory.Directory) (*GameServer, error) {
	mon := monitor.NewMonitor("sweep")
	worker := generator.NewWorker(cfg.Game.GenerationWorkers,
		generator.Options{Budget: cfg.Game.GenerationBudget}, mon)
	rounds := services.NewRoundService(db)

	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		heartbeat:      cfg.Server.Heartbeat,
		maxPlayers:     cfg.Game.MaxPlayers,
		sessionManager: session.NewManager(),
		rounds:         rounds,
		monitor:        mon,
		timers:         timer.NewTimerManager(),
		worker:         worker,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.roomManager = room.NewRoomManager(room.Dependencies{
		Generator: worker,
		Recorder:  rounds,
		Monitor:   mon,
	}, dir)

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	if cfg.Game.SweepInterval > 0 {
		s.roomManager.StartSweeper(s.timers, cfg.Game.SweepInterval, cfg.Game.IdleTimeout)
	}

	// 初始化RPC服务器
	if cfg.Server.RPCAddress != "" {
		lobby := sweeprpc.NewLobby(s.roomManager, s.broadcaster, rounds, s.maxPlayers)
		rpcServer, err := sweeprpc.NewServer(cfg.Server.RPCAddress, lobby)
		if err != nil {
			s.Shutdown()
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	s.engine = s.setupRouter()
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.engine}
	return s, nil
}

func (s *GameServer) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ws", s.handleWebSocket)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))

	api := r.Group("/api")
	{
		api.GET("/rooms", s.handleListRooms)
		api.POST("/rooms", s.handleCreateRoom)
		api.GET("/rooms/:id/history", s.handleRoomHistory)
		api.GET("/rooms/:id/leaderboard", s.handleLeaderboard)
	}
	return r
}

// requestLogger logs every HTTP request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *GameServer) Handler() http.Handler         { return s.engine }
func (s *GameServer) Rooms() *room.Manager          { return s.roomManager }
func (s *GameServer) Broadcaster() room.Broadcaster { return s.broadcaster }
func (s *GameServer) Monitor() *monitor.Monitor     { return s.monitor }

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, then closes rooms, sessions and
// workers.
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				logger.Log.Warnf("HTTP shutdown: %v", err)
			}
		}
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		// 通知所有玩家房间已关闭
		if err := s.broadcaster.BroadcastToAll(network.Error{Code: network.ErrorNoRoom}); err != nil {
			logger.Log.Warnf("Shutdown notice: %v", err)
		}
		s.roomManager.Close()
		s.sessionManager.CloseAll()
		s.timers.Stop()
		s.worker.Close()
	})
}

func (s *GameServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"rooms":    s.roomManager.Count(),
		"sessions": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleListRooms(c *gin.Context) {
	rooms, err := s.roomManager.Directory().List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type createRoomRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	MaxPlayers int    `json:"max_players"`
	Width      int    `json:"width" binding:"required"`
	Height     int    `json:"height" binding:"required"`
	MineCount  int    `json:"mine_count"`
	Topology   uint8  `json:"topology"`
	GuessLevel uint8  `json:"guess_level"`
	Gamemode   uint8  `json:"gamemode"`
}

func (s *GameServer) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers <= 0 || maxPlayers > s.maxPlayers {
		maxPlayers = s.maxPlayers
	}
	r, err := s.roomManager.CreateRoom(room.Config{
		Name:       req.Name,
		Password:   req.Password,
		MaxPlayers: maxPlayers,
		Settings: state.Settings{
			Width:     req.Width,
			Height:    req.Height,
			Topology:  grid.Topology(req.Topology),
			MineCount: req.MineCount,
			Level:     solver.Level(req.GuessLevel),
			Gamemode:  state.Gamemode(req.Gamemode),
		},
	}, s.broadcaster)
	switch {
	case errors.Is(err, state.ErrInvalidSettings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, r.Summary())
}

func (s *GameServer) handleRoomHistory(c *gin.Context) {
	history, err := s.rounds.GetRoomHistory(c.Request.Context(), c.Param("id"), 0)
	switch {
	case errors.Is(err, persistence.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// handleLeaderboard ranks players over the last ?rounds= rounds (default 20).
func (s *GameServer) handleLeaderboard(c *gin.Context) {
	rounds, err := strconv.Atoi(c.DefaultQuery("rounds", "20"))
	if err != nil || rounds <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rounds must be a positive number"})
		return
	}
	players, err := s.rounds.BestPlayers(c.Request.Context(), c.Param("id"), rounds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}

// handleWebSocket serves /ws?room=&password=&name=. Refused connections get
// one ERROR message before they are closed.
func (s *GameServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	sess.SetProfile(network.User{Username: c.Query("name")})

	r, ok := s.roomManager.GetRoom(c.Query("room"))
	if !ok {
		s.refuse(sess, network.ErrorNoRoom)
		return
	}
	if !r.CheckPassword(c.Query("password")) {
		s.refuse(sess, network.ErrorBadPassword)
		return
	}
	s.handleConnection(sess, wsConn, r)
}

func (s *GameServer) refuse(sess *session.Session, code network.ErrorCode) {
	if err := sess.Send(network.Error{Code: code}); err != nil {
		logger.Log.Debugf("Session %s: send error: %v", sess.GetID(), err)
	}
	sess.Close()
}

func (s *GameServer) handleConnection(sess *session.Session, wsConn *network.WSConnection, r *room.Room) {
	s.sessionManager.Add(sess)
	defer s.sessionManager.Remove(sess.GetID())

	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}

	switch err := r.Join(sess); {
	case errors.Is(err, room.ErrRoomFull):
		s.refuse(sess, network.ErrorRoomFull)
		return
	case errors.Is(err, room.ErrRoomClosed):
		s.refuse(sess, network.ErrorNoRoom)
		return
	case err != nil:
		logger.Log.Warnf("Session %s join %s: %v", sess.GetID(), r.ID, err)
		sess.Close()
		return
	}

	logger.Log.Infof("New connection from %s, session ID: %s, room %s", wsConn.RemoteAddr(), sess.GetID(), r.ID)

	done := make(chan struct{})
	defer func() {
		close(done)
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		if err := r.Leave(sess); err != nil && !errors.Is(err, room.ErrRoomClosed) {
			logger.Log.Warnf("Session %s leave %s: %v", sess.GetID(), r.ID, err)
		}
		wsConn.Close()
	}()

	if s.heartbeat > 0 {
		go s.keepAlive(wsConn, done)
	}

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		data, err := wsConn.ReadFrame()
		if errors.Is(err, network.ErrNotBinary) {
			s.monitor.IncMalformedFrames()
			continue
		}
		if err != nil {
			return
		}
		msg, err := network.Decode(data)
		if err != nil {
			logger.Log.Warnf("Session %s: dropping frame: %v", sess.GetID(), err)
			s.monitor.IncMalformedFrames()
			continue
		}
		if err := r.HandleMessage(sess, msg); err != nil {
			return
		}
	}
}

func (s *GameServer) keepAlive(wsConn *network.WSConnection, done <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := wsConn.Ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
