package _switch

import (
	"sync"

	"github.com/adwski/game-relay/backend/metrics"
	"github.com/adwski/game-relay/backend/model"
	"github.com/rs/zerolog"
)

// Switch keeps outbound wires of connected endpoints and
// their subscriptions to broadcast groups.
type Switch struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
	mx      *sync.RWMutex
	wires   map[string]model.Wire
	groups  map[string]map[string]struct{}
}

func NewSwitch(logger *zerolog.Logger, m *metrics.Metrics) *Switch {
	return &Switch{
		logger:  logger.With().Str("component", "switch").Logger(),
		metrics: m,
		mx:      &sync.RWMutex{},
		wires:   make(map[string]model.Wire),
		groups:  make(map[string]map[string]struct{}),
	}
}

func (sw *Switch) Attach(endpoint string, wire model.Wire) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	if _, ok := sw.wires[endpoint]; !ok {
		sw.metrics.ConnectionsActive.Inc()
	}
	sw.wires[endpoint] = wire
	sw.logger.Debug().Str("endpoint", endpoint).Msg("endpoint attached")
}

// Detach removes endpoint and all of its subscriptions.
func (sw *Switch) Detach(endpoint string) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	if _, ok := sw.wires[endpoint]; !ok {
		return
	}
	delete(sw.wires, endpoint)
	for group, members := range sw.groups {
		delete(members, endpoint)
		if len(members) == 0 {
			delete(sw.groups, group)
		}
	}
	sw.metrics.ConnectionsActive.Dec()
	sw.logger.Debug().Str("endpoint", endpoint).Msg("endpoint detached")
}

func (sw *Switch) Subscribe(group, endpoint string) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	members, ok := sw.groups[group]
	if !ok {
		members = make(map[string]struct{})
		sw.groups[group] = members
	}
	members[endpoint] = struct{}{}
}

func (sw *Switch) Unsubscribe(group, endpoint string) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	members, ok := sw.groups[group]
	if !ok {
		return
	}
	delete(members, endpoint)
	if len(members) == 0 {
		delete(sw.groups, group)
	}
}

func (sw *Switch) Subscribers(group string) int {
	sw.mx.RLock()
	defer sw.mx.RUnlock()
	return len(sw.groups[group])
}

// Send delivers env to a single endpoint.
func (sw *Switch) Send(endpoint string, env model.Envelope) bool {
	sw.mx.RLock()
	wire, ok := sw.wires[endpoint]
	sw.mx.RUnlock()

	if !ok {
		sw.logger.Debug().
			Str("dst", endpoint).
			Str("type", env.Type).
			Msg("cannot send, endpoint not found")
		return false
	}
	return sw.send(endpoint, env, wire)
}

// Broadcast delivers env to every subscriber of group except the one
// named by except. Empty except means nobody is skipped.
// Returns number of endpoints that accepted the message.
func (sw *Switch) Broadcast(group string, env model.Envelope, except string) int {
	sw.mx.RLock()
	defer sw.mx.RUnlock()

	var sent int
	for dst := range sw.groups[group] {
		if dst == except {
			continue
		}
		wire, ok := sw.wires[dst]
		if !ok {
			continue
		}
		if sw.send(dst, env, wire) {
			sent++
		}
	}
	if sent == 0 {
		sw.logger.Debug().
			Str("group", group).
			Str("type", env.Type).
			Msg("broadcast did not reach anyone")
	}
	return sent
}

func (sw *Switch) send(dst string, env model.Envelope, wire model.Wire) bool {
	select {
	case wire <- env:
		sw.logger.Trace().Str("dst", dst).Str("type", env.Type).Msg("message is forwarded")
		return true
	default:
		sw.metrics.MessagesDropped.Inc()
		sw.logger.Warn().Str("dst", dst).Str("type", env.Type).Msg("outbound queue is full, message dropped")
		return false
	}
}
