package service

import (
	"errors"

	"github.com/adwski/game-relay/backend/model"
	"github.com/adwski/game-relay/backend/storage/memory"
	"github.com/davecgh/go-spew/spew"
)

func (svc *Service) registerHandlers() *router {
	r := newRouter()
	register(r, model.TypeCreateRoom, svc.createRoom)
	register(r, model.TypeJoinRoom, svc.joinRoom)
	register(r, model.TypePlayerReady, svc.playerReady)
	register(r, model.TypeGameStateUpdate, svc.gameStateUpdate)
	register(r, model.TypePlayerAction, svc.playerAction)
	register(r, model.TypeLeaveRoom, svc.leaveRoom)
	return r
}

func (svc *Service) createRoom(connID string, displayName string) {
	svc.leaveAll(connID)

	player := model.Player{ID: connID, Name: displayName}
	var room *model.Room
	for range maxCodeAttempts {
		r, err := svc.store.CreateRoom(normalizeCode(svc.newCode()), player)
		if err == nil {
			room = r
			break
		}
		if !errors.Is(err, memory.ErrDuplicateCode) {
			svc.logger.Error().Err(err).Msg("unable to create room")
			svc.fail(connID, err)
			return
		}
		svc.logger.Debug().Msg("room code collision, regenerating")
	}
	if room == nil {
		svc.logger.Error().Int("attempts", maxCodeAttempts).Msg("room codes exhausted")
		svc.fail(connID, ErrCodeExhausted)
		return
	}

	svc.sw.Subscribe(room.Code, connID)
	svc.sw.Send(connID, model.Envelope{
		Type:    model.TypeRoomCreated,
		Payload: model.RoomMembership{RoomCode: room.Code, PlayerID: connID},
	})
	svc.logger.Debug().
		Str("connID", connID).
		Str("roomCode", room.Code).
		Msg("room created")
	svc.traceRoom(room)
}

func (svc *Service) joinRoom(connID string, req model.JoinRoomRequest) {
	code := normalizeCode(req.RoomCode)
	room, err := svc.store.GetRoom(code)
	switch {
	case err != nil:
		svc.fail(connID, err)
		return
	case room.Started:
		svc.fail(connID, ErrGameAlreadyStarted)
		return
	case room.Full(MaxPlayers):
		svc.fail(connID, ErrRoomFull)
		return
	}

	membership := model.Envelope{
		Type:    model.TypeRoomJoined,
		Payload: model.RoomMembership{RoomCode: code, PlayerID: connID},
	}
	if _, ok := room.Player(connID); ok {
		svc.sw.Send(connID, membership)
		svc.sw.Send(connID, playersUpdate(room))
		return
	}

	svc.leaveAll(connID)
	room.AddPlayer(model.Player{ID: connID, Name: req.PlayerName})
	svc.sw.Subscribe(code, connID)

	svc.sw.Send(connID, membership)
	svc.sw.Broadcast(code, playersUpdate(room), "")
	svc.logger.Debug().
		Str("connID", connID).
		Str("roomCode", code).
		Int("players", room.Len()).
		Msg("player joined room")
	svc.traceRoom(room)
}

func (svc *Service) playerReady(connID string, roomCode string) {
	code := normalizeCode(roomCode)
	room, err := svc.store.GetRoom(code)
	if err != nil {
		return
	}
	player, ok := room.Player(connID)
	if !ok {
		return
	}

	player.Ready = true
	svc.sw.Broadcast(code, playersUpdate(room), "")

	if room.Started || room.Len() < MinPlayers || !room.AllReady() {
		return
	}
	room.Started = true
	svc.metrics.GamesStarted.Inc()
	svc.sw.Broadcast(code, model.Envelope{Type: model.TypeGameStart, Payload: room.Players()}, "")
	svc.logger.Info().
		Str("roomCode", code).
		Int("players", room.Len()).
		Msg("game started")
	svc.traceRoom(room)
}

func (svc *Service) gameStateUpdate(connID string, req model.GameStateUpdateRequest) {
	code := normalizeCode(req.RoomCode)
	room, err := svc.store.GetRoom(code)
	if err != nil {
		return
	}
	room.GameState = req.GameState
	svc.sw.Broadcast(code, model.Envelope{Type: model.TypeGameStateChanged, Payload: req.GameState}, connID)
}

func (svc *Service) playerAction(connID string, req model.PlayerActionRequest) {
	svc.sw.Broadcast(normalizeCode(req.RoomCode), model.Envelope{
		Type: model.TypePlayerAction,
		Payload: model.PlayerActionRelay{
			PlayerID: connID,
			Action:   req.Action,
			Data:     req.Data,
		},
	}, "")
}

func (svc *Service) leaveRoom(connID string, roomCode string) {
	room, err := svc.store.GetRoom(normalizeCode(roomCode))
	if err != nil {
		return
	}
	svc.removePlayer(room, connID)
}

func (svc *Service) disconnect(connID string) {
	svc.leaveAll(connID)
	svc.sw.Detach(connID)
}

// leaveAll removes connection from every room it is a player of.
func (svc *Service) leaveAll(connID string) {
	svc.store.ForEachRoom(func(room *model.Room) {
		svc.removePlayer(room, connID)
	})
}

func (svc *Service) removePlayer(room *model.Room, connID string) {
	if !room.RemovePlayer(connID) {
		return
	}
	svc.sw.Unsubscribe(room.Code, connID)

	logger := svc.logger.With().
		Str("connID", connID).
		Str("roomCode", room.Code).
		Logger()

	if room.Len() == 0 {
		svc.store.DeleteRoom(room.Code)
		logger.Debug().Msg("last player left, room deleted")
		return
	}

	svc.sw.Broadcast(room.Code, playersUpdate(room), "")
	svc.sw.Broadcast(room.Code, model.Envelope{Type: model.TypePlayerDisconnected, Payload: connID}, "")
	logger.Debug().Int("players", room.Len()).Msg("player left room")
}

func (svc *Service) traceRoom(room *model.Room) {
	if e := svc.logger.Trace(); e.Enabled() {
		e.Str("room", spew.Sdump(room.Info())).Msg("room state")
	}
}

func playersUpdate(room *model.Room) model.Envelope {
	return model.Envelope{Type: model.TypePlayersUpdate, Payload: room.Players()}
}
