package realtime

import (
	"context"

	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

// Publisher fans a message out to every API replica.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// Emitter is how services push realtime messages. With a bus, messages go
// through it and come back to the hub via the forwarder; otherwise they go
// straight to the local hub.
type Emitter struct {
	hub *SSEHub
	bus Publisher
	log *logger.Logger
}

func NewEmitter(hub *SSEHub, bus Publisher, log *logger.Logger) *Emitter {
	return &Emitter{hub: hub, bus: bus, log: log.With("component", "SSEEmitter")}
}

func (e *Emitter) Emit(ctx context.Context, msg SSEMessage) {
	if e == nil {
		return
	}
	if e.bus != nil {
		err := e.bus.Publish(ctx, msg)
		if err == nil {
			return
		}
		e.log.Warn("SSE bus publish failed; delivering locally", "error", err)
	}
	if e.hub != nil {
		e.hub.Broadcast(msg)
	}
}
