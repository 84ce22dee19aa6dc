package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/room"
	"github.com/wfunc/betroom/services"
)

// Server manages the RPC listener for the ops surface.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only operational queries over net/rpc.
// Methods follow the net/rpc signature rules: exported, pointer reply,
// error return.
type AdminService struct {
	roomManager *room.Manager
	history     *services.HistoryService
}

func NewAdminService(roomManager *room.Manager, history *services.HistoryService) *AdminService {
	return &AdminService{roomManager: roomManager, history: history}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []models.RoomSummary
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = a.roomManager.ListRooms()
	return nil
}

type RoomDetailArgs struct {
	RoomID string
}

type RoomDetailReply struct {
	Detail models.RoomDetail
}

func (a *AdminService) RoomDetail(args *RoomDetailArgs, reply *RoomDetailReply) error {
	r, exists := a.roomManager.GetRoom(args.RoomID)
	if !exists {
		return room.ErrRoomNotFound
	}
	reply.Detail = r.Detail()
	return nil
}

type LeaderboardArgs struct {
	Limit int
}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

func (a *AdminService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	entries, err := a.history.Leaderboard(args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}
