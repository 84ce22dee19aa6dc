package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/betroom/broadcast"
	"github.com/wfunc/betroom/config"
	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/monitor"
	"github.com/wfunc/betroom/network"
	"github.com/wfunc/betroom/persistence"
	"github.com/wfunc/betroom/room"
	betrpc "github.com/wfunc/betroom/rpc"
	"github.com/wfunc/betroom/services"
	"github.com/wfunc/betroom/session"
	"github.com/wfunc/betroom/timer"
)

// GameServer wires the transport to the room registry and game machines.
// One read loop per connection; all game mutations funnel through the
// owning room's lock.
type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	scheduler      *timer.Scheduler
	history        *services.HistoryService
	mon            *monitor.Monitor
	rpcServer      *betrpc.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		roomManager:    room.NewManager(),
		sessionManager: session.NewManager(),
		scheduler:      timer.NewScheduler(0),
		history:        services.NewHistoryService(db),
		mon:            monitor.NewMonitor("betroom"),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	rpcServer, err := betrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	adminService := betrpc.NewAdminService(s.roomManager, s.history)
	rpc.Register(adminService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.mon.StartServer(s.cfg.Server.MetricsAddress)
	s.roomManager.StartSweeper(s.cfg.Room.SweepInterval, s.cfg.Room.MaxIdleAge)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/rooms", s.handleRoomsREST)
	mux.HandleFunc("/rooms/", s.handleRoomDetailREST)

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.roomManager.StopSweeper()
	s.scheduler.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if hb := s.cfg.Server.HeartbeatInterval; hb > 0 {
		wsConn.SetHeartbeat(hb)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.mon.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		// Connection loss is an implicit, immediate leave.
		s.leaveCurrentRoom(sess, "disconnected")
		s.sessionManager.Remove(sess.GetID())
		s.mon.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handlePacket dispatches one request. Panics are caught here so an
// internal fault surfaces as a structured result instead of killing the
// connection or corrupting other rooms.
func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.mon.IncMessagesReceived()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Errorw("panic while handling packet",
				"session", sess.GetID(), "msg_id", packet.MsgID, "panic", rec)
			s.respondError(sess, packet.MsgID, "internal_error")
		}
		s.mon.ObserveMessageLatency(time.Since(start))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		if sess.RoomID != "" {
			if rm, exists := s.roomManager.GetRoom(sess.RoomID); exists {
				rm.Lock()
				rm.Touch()
				rm.Unlock()
			}
		}
	case network.MsgTypeCreateRoom, network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess, packet)
	case network.MsgTypePlaceBet:
		s.handlePlaceBet(sess, packet)
	case network.MsgTypePlayerAction:
		s.handlePlayerAction(sess, packet)
	case network.MsgTypeReady:
		s.handleReady(sess, packet)
	case network.MsgTypeListRooms:
		s.handleListRooms(sess, packet)
	case network.MsgTypeRoomDetail:
		s.handleRoomDetail(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) respond(sess *session.Session, msgID uint16, result network.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Log.Errorf("Failed to marshal result: %v", err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Debugf("Failed to send result to %s: %v", sess.GetID(), err)
	}
}

func (s *GameServer) respondOK(sess *session.Session, msgID uint16, data interface{}) {
	s.respond(sess, msgID, network.Result{OK: true, Data: data})
}

func (s *GameServer) respondError(sess *session.Session, msgID uint16, code string) {
	s.respond(sess, msgID, network.Result{OK: false, Code: code})
}

// --- REST bookkeeping ---

func (s *GameServer) handleRoomsREST(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.roomManager.ListRooms())
}

func (s *GameServer) handleRoomDetailREST(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/rooms/")
	rm, exists := s.roomManager.GetRoom(id)
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room_not_found"})
		return
	}
	writeJSON(w, http.StatusOK, rm.Detail())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("Failed to encode response: %v", err)
	}
}

// defaultRules resolves the configured game defaults for a new room.
func (s *GameServer) defaultRules() models.RoomRules {
	g := s.cfg.Game
	return models.RoomRules{
		MaxRounds:         g.MaxRounds,
		StartingBalance:   g.StartingBalance,
		MinBet:            g.MinBet,
		MaxBet:            g.MaxBet,
		TurnTimeout:       g.TurnTimeout,
		BettingWindow:     g.BettingWindow,
		BetweenRoundDelay: g.BetweenRoundDelay,
		TargetScore:       g.TargetScore,
		MaxPlayers:        g.MaxPlayers,
	}
}
