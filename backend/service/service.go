package service

import (
	"context"
	"errors"
	"sync"

	"github.com/adwski/game-relay/backend/metrics"
	"github.com/adwski/game-relay/backend/model"
	"github.com/adwski/game-relay/backend/storage/memory"
	"github.com/rs/zerolog"
)

const (
	MaxPlayers = 5
	MinPlayers = 2

	defaultEventQueueSize = 256
)

var (
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrRoomFull           = errors.New("room is full")
	ErrCodeExhausted      = errors.New("unable to allocate room code")
	ErrGet                = errors.New("unable to get room")
	ErrStopped            = errors.New("coordinator is stopped")
)

type (
	RoomStore interface {
		CreateRoom(code string, first model.Player) (*model.Room, error)
		GetRoom(code string) (*model.Room, error)
		DeleteRoom(code string)
		ForEachRoom(fn func(*model.Room))
		Len() int
	}

	Switch interface {
		Attach(endpoint string, wire model.Wire)
		Detach(endpoint string)
		Subscribe(group, endpoint string)
		Unsubscribe(group, endpoint string)
		Send(endpoint string, env model.Envelope) bool
		Broadcast(group string, env model.Envelope, except string) int
	}

	// Service is the session coordinator. All room state is owned by
	// the goroutine executing Run, events are handled one at a time.
	Service struct {
		store   RoomStore
		sw      Switch
		metrics *metrics.Metrics
		newCode func() string
		router  *router
		events  chan event
		done    chan struct{}
		logger  zerolog.Logger
	}

	Config struct {
		RoomStore RoomStore
		Switch    Switch
		Metrics   *metrics.Metrics
		Logger    *zerolog.Logger

		// CodeGenerator produces candidate room codes, RandomCode is used if nil.
		CodeGenerator func() string
	}
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
	eventQuery
)

type event struct {
	kind   eventKind
	connID string
	wire   model.Wire
	msg    model.Inbound
	query  func()
}

func NewService(cfg Config) *Service {
	svc := &Service{
		store:   cfg.RoomStore,
		sw:      cfg.Switch,
		metrics: cfg.Metrics,
		newCode: cfg.CodeGenerator,
		events:  make(chan event, defaultEventQueueSize),
		done:    make(chan struct{}),
		logger:  cfg.Logger.With().Str("component", "coordinator").Logger(),
	}
	if svc.newCode == nil {
		svc.newCode = RandomCode
	}
	svc.router = svc.registerHandlers()
	return svc
}

// Run processes events until ctx is canceled.
func (svc *Service) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer func() {
		close(svc.done)
		svc.logger.Debug().Msg("coordinator stopped")
		wg.Done()
	}()
	svc.logger.Debug().Msg("coordinator started")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-svc.events:
			svc.handle(ev)
		}
	}
}

// Connect attaches a new connection. It has no room side effects.
func (svc *Service) Connect(ctx context.Context, connID string, wire model.Wire) error {
	return svc.submit(ctx, event{kind: eventConnect, connID: connID, wire: wire})
}

// Dispatch queues an inbound client message.
func (svc *Service) Dispatch(ctx context.Context, connID string, msg model.Inbound) error {
	return svc.submit(ctx, event{kind: eventMessage, connID: connID, msg: msg})
}

// Disconnect removes the connection from every room it is in and detaches it.
func (svc *Service) Disconnect(ctx context.Context, connID string) error {
	return svc.submit(ctx, event{kind: eventDisconnect, connID: connID})
}

// RoomInfo returns snapshot of a live room.
func (svc *Service) RoomInfo(ctx context.Context, code string) (model.RoomInfo, error) {
	type result struct {
		info model.RoomInfo
		err  error
	}
	res := make(chan result, 1)
	err := svc.submit(ctx, event{kind: eventQuery, query: func() {
		room, err := svc.store.GetRoom(normalizeCode(code))
		if err != nil {
			res <- result{err: errors.Join(ErrGet, err)}
			return
		}
		res <- result{info: room.Info()}
	}})
	if err != nil {
		return model.RoomInfo{}, err
	}
	select {
	case r := <-res:
		return r.info, r.err
	case <-ctx.Done():
		return model.RoomInfo{}, ctx.Err()
	}
}

func (svc *Service) submit(ctx context.Context, ev event) error {
	select {
	case <-svc.done:
		return ErrStopped
	default:
	}
	select {
	case svc.events <- ev:
		return nil
	case <-svc.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (svc *Service) handle(ev event) {
	switch ev.kind {
	case eventConnect:
		svc.sw.Attach(ev.connID, ev.wire)
	case eventMessage:
		svc.dispatch(ev.connID, ev.msg)
	case eventDisconnect:
		svc.disconnect(ev.connID)
	case eventQuery:
		ev.query()
	}
	svc.metrics.RoomsActive.Set(float64(svc.store.Len()))
}

func (svc *Service) dispatch(connID string, msg model.Inbound) {
	logger := svc.logger.With().Str("connID", connID).Str("type", msg.Type).Logger()

	err := svc.router.dispatch(connID, msg)
	switch {
	case errors.Is(err, ErrUnknownType):
		svc.metrics.MessagesReceived.WithLabelValues("unknown").Inc()
		logger.Debug().Msg("unknown message type ignored")
	case err != nil:
		svc.metrics.MessagesReceived.WithLabelValues(msg.Type).Inc()
		logger.Debug().Err(err).Msg("malformed message ignored")
	default:
		svc.metrics.MessagesReceived.WithLabelValues(msg.Type).Inc()
	}
}

func (svc *Service) fail(connID string, err error) {
	svc.logger.Debug().Err(err).Str("connID", connID).Msg("request failed")
	svc.sw.Send(connID, model.Envelope{Type: model.TypeError, Payload: reason(err)})
}

// reason maps request failures to text shown to players.
func reason(err error) string {
	switch {
	case errors.Is(err, memory.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrGameAlreadyStarted):
		return "Game already started"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrCodeExhausted):
		return "Unable to create room"
	default:
		return "Request failed"
	}
}
