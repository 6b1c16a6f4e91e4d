package model

import "encoding/json"

// Message types sent by clients.
const (
	TypeCreateRoom      = "createRoom"
	TypeJoinRoom        = "joinRoom"
	TypePlayerReady     = "playerReady"
	TypeGameStateUpdate = "gameStateUpdate"
	TypePlayerAction    = "playerAction"
	TypeLeaveRoom       = "leaveRoom"
)

// Message types sent by server.
const (
	TypeRoomCreated        = "roomCreated"
	TypeRoomJoined         = "roomJoined"
	TypeError              = "error"
	TypePlayersUpdate      = "playersUpdate"
	TypeGameStart          = "gameStart"
	TypeGameStateChanged   = "gameStateChanged"
	TypePlayerDisconnected = "playerDisconnected"
	// TypePlayerAction is used in both directions.
)

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type GameStateUpdateRequest struct {
	RoomCode  string          `json:"roomCode"`
	GameState json.RawMessage `json:"gameState"`
}

type PlayerActionRequest struct {
	RoomCode string          `json:"roomCode"`
	Action   json.RawMessage `json:"action"`
	Data     json.RawMessage `json:"data"`
}

// RoomMembership is the payload of roomCreated and roomJoined.
type RoomMembership struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type PlayerActionRelay struct {
	PlayerID string          `json:"playerId"`
	Action   json.RawMessage `json:"action"`
	Data     json.RawMessage `json:"data"`
}
