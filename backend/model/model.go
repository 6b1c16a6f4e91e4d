package model

import (
	"encoding/json"
	"slices"
)

const defaultWireBuffer = 64

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// Room is a game session. Players are kept in join order.
type Room struct {
	Code      string
	GameState json.RawMessage
	Started   bool

	players []*Player
}

func NewRoom(code string, first Player) *Room {
	return &Room{
		Code:    code,
		players: []*Player{&first},
	}
}

func (r *Room) Player(id string) (*Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) AddPlayer(p Player) {
	r.players = append(r.players, &p)
}

// RemovePlayer drops the player with given id preserving order of the rest.
func (r *Room) RemovePlayer(id string) bool {
	idx := slices.IndexFunc(r.players, func(p *Player) bool { return p.ID == id })
	if idx < 0 {
		return false
	}
	r.players = slices.Delete(r.players, idx, idx+1)
	return true
}

func (r *Room) Len() int {
	return len(r.players)
}

func (r *Room) Full(limit int) bool {
	return len(r.players) >= limit
}

func (r *Room) AllReady() bool {
	for _, p := range r.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Players returns a copy of the player list that is safe to hand to another goroutine.
func (r *Room) Players() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	return out
}

// RoomInfo is a read-only room snapshot.
type RoomInfo struct {
	Code         string   `json:"roomCode"`
	Players      []Player `json:"players"`
	Started      bool     `json:"started"`
	HasGameState bool     `json:"hasGameState"`
}

func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Code:         r.Code,
		Players:      r.Players(),
		Started:      r.Started,
		HasGameState: len(r.GameState) > 0,
	}
}

// Envelope is a single frame exchanged with clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound is an Envelope as received from a client, payload left undecoded.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Wire is an outbound queue of a single connection.
type Wire chan Envelope

func NewWire() Wire {
	return make(Wire, defaultWireBuffer)
}
