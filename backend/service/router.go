package service

import (
	"encoding/json"
	"errors"

	"github.com/adwski/game-relay/backend/model"
)

var ErrUnknownType = errors.New("unknown message type")

type rawHandler func(connID string, payload json.RawMessage) error

// router maps message type to its handler.
type router struct {
	handlers map[string]rawHandler
}

func newRouter() *router {
	return &router{handlers: make(map[string]rawHandler)}
}

// register binds a message type to a handler taking a decoded payload.
func register[Req any](r *router, msgType string, h func(connID string, req Req)) {
	if msgType == "" {
		panic("service router: empty message type")
	}
	r.handlers[msgType] = func(connID string, payload json.RawMessage) error {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return err
			}
		}
		h(connID, req)
		return nil
	}
}

func (r *router) dispatch(connID string, msg model.Inbound) error {
	h, ok := r.handlers[msg.Type]
	if !ok {
		return ErrUnknownType
	}
	return h(connID, msg.Payload)
}
