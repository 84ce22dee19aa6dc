package network

// Message type space. 1xx requests mutate room membership, 2xx requests
// drive the game, 3xx are read-only queries, 4xx are server broadcasts.
const (
	MsgTypeHeartbeat = 1

	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeCreateRoom = 103

	MsgTypeStartGame    = 201
	MsgTypePlaceBet     = 202
	MsgTypePlayerAction = 203
	MsgTypeReady        = 204

	MsgTypeListRooms  = 301
	MsgTypeRoomDetail = 302

	MsgTypeMemberChanged = 401
	MsgTypePhaseChanged  = 402
	MsgTypeBetPlaced     = 403
	MsgTypeTurnStarted   = 404
	MsgTypeActionResult  = 405
	MsgTypeRoundResult   = 406
	MsgTypeBetweenRounds = 407
	MsgTypeGameEnd       = 408
	MsgTypeReadyChanged  = 409
)

// Result is the synchronous reply to every request message. Code carries
// one of the closed set of failure reasons when OK is false.
type Result struct {
	OK   bool        `json:"ok"`
	Code string      `json:"code,omitempty"`
	Data interface{} `json:"data,omitempty"`
}
