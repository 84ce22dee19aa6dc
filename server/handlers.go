// server/handlers.go
package server

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/network"
	"github.com/wfunc/betroom/room"
	"github.com/wfunc/betroom/session"
	"github.com/wfunc/betroom/state"
)

type joinRequest struct {
	RoomID   string                 `json:"room_id,omitempty"`
	Name     string                 `json:"name"`
	RoomName string                 `json:"room_name,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type roomRequest struct {
	RoomID string `json:"room_id"`
}

type betRequest struct {
	RoomID string `json:"room_id"`
	Amount int64  `json:"amount"`
}

type actionRequest struct {
	RoomID string          `json:"room_id"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type readyRequest struct {
	RoomID string `json:"room_id"`
	Ready  bool   `json:"ready"`
}

type joinResponse struct {
	ParticipantID string            `json:"participant_id"`
	Room          models.RoomDetail `json:"room"`
}

// errorCode maps the closed set of failure conditions to wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	case errors.Is(err, state.ErrNotHost):
		return "not_host"
	case errors.Is(err, state.ErrNotEnoughPlayers):
		return "not_enough_players"
	case errors.Is(err, state.ErrNotBettingPhase):
		return "not_betting_phase"
	case errors.Is(err, state.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, state.ErrInvalidBetAmount):
		return "invalid_bet_amount"
	case errors.Is(err, state.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, state.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, state.ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, state.ErrInvalidState),
		errors.Is(err, state.ErrTransitionNotAllowed):
		return "invalid_state"
	default:
		return "internal_error"
	}
}

// handleJoinRoom serves both create (empty room_id) and join.
func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req joinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	if sess.RoomID != "" {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	name := req.Name
	if name == "" {
		name = "player-" + sess.GetID()[:8]
	}

	var rm *room.Room
	if req.RoomID == "" {
		roomName := req.RoomName
		if roomName == "" {
			roomName = "New Room"
		}
		rm = s.roomManager.CreateRoom(uuid.New().String(), roomName,
			s.defaultRules(), req.Metadata, s.scheduler, s.broadcaster)
		rm.OnGameFinished = s.onGameFinished
		s.mon.SetActiveRooms(s.roomManager.Count())
	} else {
		var exists bool
		rm, exists = s.roomManager.GetRoom(req.RoomID)
		if !exists {
			s.respondError(sess, packet.MsgID, "room_not_found")
			return
		}
	}

	rm.Lock()
	_, err := rm.AddParticipant(sess.GetID(), name)
	if err != nil {
		rm.Unlock()
		s.respondError(sess, packet.MsgID, errorCode(err))
		return
	}
	rm.Broadcast(network.MsgTypeMemberChanged, models.MemberEvent{
		RoomID:        rm.ID,
		ParticipantID: sess.GetID(),
		Name:          name,
		Change:        "joined",
		HostID:        rm.HostID,
		Count:         len(rm.Participants),
	})
	rm.Unlock()

	sess.RoomID = rm.ID
	sess.SetName(name)
	s.roomManager.BindParticipant(sess.GetID(), rm.ID)

	logger.Log.Infow("participant joined", "room", rm.ID, "participant", sess.GetID())
	s.respondOK(sess, packet.MsgID, joinResponse{
		ParticipantID: sess.GetID(),
		Room:          rm.Detail(),
	})
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	var req roomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	if req.RoomID != "" && req.RoomID != sess.RoomID {
		s.respondError(sess, packet.MsgID, "not_in_room")
		return
	}
	if code := s.leaveCurrentRoom(sess, "left"); code != "" {
		s.respondError(sess, packet.MsgID, code)
		return
	}
	s.respondOK(sess, packet.MsgID, nil)
}

// leaveCurrentRoom removes the session's participant from its room,
// migrating host if needed and deleting the room once empty. Returns a
// failure code or "" on success. Used by both explicit leave and
// connection loss.
func (s *GameServer) leaveCurrentRoom(sess *session.Session, change string) string {
	roomID := sess.RoomID
	if roomID == "" {
		return "not_in_room"
	}

	rm, exists := s.roomManager.GetRoom(roomID)
	if !exists {
		sess.RoomID = ""
		s.roomManager.UnbindParticipant(sess.GetID())
		return "room_not_found"
	}

	rm.Lock()
	empty, err := rm.RemoveParticipant(sess.GetID())
	if err != nil {
		rm.Unlock()
		return errorCode(err)
	}
	rm.Broadcast(network.MsgTypeMemberChanged, models.MemberEvent{
		RoomID:        rm.ID,
		ParticipantID: sess.GetID(),
		Name:          sess.GetName(),
		Change:        change,
		HostID:        rm.HostID,
		Count:         len(rm.Participants),
	})
	rm.Unlock()

	sess.RoomID = ""
	s.roomManager.UnbindParticipant(sess.GetID())

	if empty {
		// Pending timers for this room become no-ops once the machine
		// closes during removal.
		s.roomManager.RemoveRoomIfEmpty(roomID)
		s.mon.SetActiveRooms(s.roomManager.Count())
	}
	logger.Log.Infow("participant left", "room", roomID, "participant", sess.GetID(), "change", change)
	return ""
}

// roomFor validates the session's binding against the requested room.
func (s *GameServer) roomFor(sess *session.Session, roomID string) (*room.Room, string) {
	bound, ok := s.roomManager.RoomOf(sess.GetID())
	if !ok || bound != roomID {
		return nil, "not_in_room"
	}
	rm, exists := s.roomManager.GetRoom(roomID)
	if !exists {
		return nil, "room_not_found"
	}
	return rm, ""
}

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) {
	var req roomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	rm, code := s.roomFor(sess, req.RoomID)
	if code != "" {
		s.respondError(sess, packet.MsgID, code)
		return
	}

	rm.Lock()
	rm.Touch()
	err := rm.Machine.Begin(sess.GetID())
	rm.Unlock()

	if err != nil {
		s.respondError(sess, packet.MsgID, errorCode(err))
		return
	}
	s.respondOK(sess, packet.MsgID, nil)
}

func (s *GameServer) handlePlaceBet(sess *session.Session, packet *network.Packet) {
	var req betRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	rm, code := s.roomFor(sess, req.RoomID)
	if code != "" {
		s.respondError(sess, packet.MsgID, code)
		return
	}

	rm.Lock()
	rm.Touch()
	err := rm.Machine.PlaceBet(sess.GetID(), req.Amount)
	rm.Unlock()

	if err != nil {
		s.respondError(sess, packet.MsgID, errorCode(err))
		return
	}
	s.respondOK(sess, packet.MsgID, nil)
}

func (s *GameServer) handlePlayerAction(sess *session.Session, packet *network.Packet) {
	var req actionRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	rm, code := s.roomFor(sess, req.RoomID)
	if code != "" {
		s.respondError(sess, packet.MsgID, code)
		return
	}

	action := state.Action{
		Kind: state.ParseActionKind(req.Action),
		Data: req.Data,
	}

	rm.Lock()
	rm.Touch()
	err := rm.Machine.HandleAction(sess.GetID(), action)
	rm.Unlock()

	if err != nil {
		s.respondError(sess, packet.MsgID, errorCode(err))
		return
	}
	s.respondOK(sess, packet.MsgID, nil)
}

func (s *GameServer) handleReady(sess *session.Session, packet *network.Packet) {
	var req readyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	rm, code := s.roomFor(sess, req.RoomID)
	if code != "" {
		s.respondError(sess, packet.MsgID, code)
		return
	}

	rm.Lock()
	rm.Touch()
	p, exists := rm.Participants[sess.GetID()]
	if !exists {
		rm.Unlock()
		s.respondError(sess, packet.MsgID, "player_not_found")
		return
	}
	p.Ready = req.Ready
	rm.Broadcast(network.MsgTypeReadyChanged, models.ReadyEvent{
		RoomID:        rm.ID,
		ParticipantID: sess.GetID(),
		Ready:         req.Ready,
	})
	rm.Unlock()

	s.respondOK(sess, packet.MsgID, nil)
}

func (s *GameServer) handleListRooms(sess *session.Session, packet *network.Packet) {
	s.respondOK(sess, packet.MsgID, s.roomManager.ListRooms())
}

func (s *GameServer) handleRoomDetail(sess *session.Session, packet *network.Packet) {
	var req roomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.respondError(sess, packet.MsgID, "invalid_state")
		return
	}
	rm, exists := s.roomManager.GetRoom(req.RoomID)
	if !exists {
		s.respondError(sess, packet.MsgID, "room_not_found")
		return
	}
	s.respondOK(sess, packet.MsgID, rm.Detail())
}

func (s *GameServer) onGameFinished(record models.GameRecord) {
	s.mon.IncGamesFinished()
	s.history.RecordGame(record)
}
