package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	SSEEventJobDone     SSEEvent = "JobDone"
	SSEEventPlanUpdated SSEEvent = "PlanUpdated"
)

// SSEMessage is one fan-out message. Channel is usually a user id.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

const subscriptionBuffer = 32

// Subscription is one connected listener. Messages is closed by Close.
type Subscription struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	channels []string
	out      chan SSEMessage
	once     sync.Once
	hub      *SSEHub
}

func (s *Subscription) Messages() <-chan SSEMessage { return s.out }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, ch := range s.channels {
			set := h.byChannel[ch]
			delete(set, s)
			if len(set) == 0 {
				delete(h.byChannel, ch)
			}
		}
		close(s.out)
	})
}

// SSEHub fans messages out to the subscriptions held by this process.
type SSEHub struct {
	log       *logger.Logger
	heartbeat time.Duration

	mu        sync.RWMutex
	byChannel map[string]map[*Subscription]struct{}
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:       log.With("component", "SSEHub"),
		heartbeat: 15 * time.Second,
		byChannel: map[string]map[*Subscription]struct{}{},
	}
}

// Subscribe registers a listener on the given channels. Blank channels are
// ignored.
func (h *SSEHub) Subscribe(userID uuid.UUID, channels ...string) *Subscription {
	sub := &Subscription{ID: uuid.New(), UserID: userID, out: make(chan SSEMessage, subscriptionBuffer), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if ch = strings.TrimSpace(ch); ch == "" {
			continue
		}
		set, ok := h.byChannel[ch]
		if !ok {
			set = map[*Subscription]struct{}{}
			h.byChannel[ch] = set
		}
		set[sub] = struct{}{}
		sub.channels = append(sub.channels, ch)
	}
	return sub
}

// Broadcast never blocks; a subscriber whose buffer is full misses msg.
func (h *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.byChannel[msg.Channel] {
		select {
		case sub.out <- msg:
		default:
			h.log.Warn("SSE subscriber too slow, message dropped", "subscription_id", sub.ID, "event", msg.Event)
		}
	}
}

// Stream writes sub's messages to w as "message" events, with a keep-alive
// comment on every idle heartbeat, until ctx ends or sub is closed.
func (h *SSEHub) Stream(ctx context.Context, w http.ResponseWriter, sub *Subscription) error {
	sw, err := NewWriter(w)
	if err != nil {
		return err
	}
	ping := time.NewTicker(h.heartbeat)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ping.C:
			err = sw.Comment("ping")
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			err = sw.Write("message", msg)
		}
		if err != nil {
			return err
		}
	}
}
