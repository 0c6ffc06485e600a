// Package bus relays realtime messages between API replicas over Redis
// pub/sub, so a job finishing on one worker reaches SSE clients on any replica.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/realtime"
)

const envelopeVersion = 1

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// envelope is the wire form of a relayed message.
type envelope struct {
	V      int                 `json:"v"`
	SentAt time.Time           `json:"sent_at"`
	Msg    realtime.SSEMessage `json:"msg"`
}

func encode(msg realtime.SSEMessage, now time.Time) ([]byte, error) {
	return json.Marshal(envelope{V: envelopeVersion, SentAt: now.UTC(), Msg: msg})
}

func decode(raw string) (realtime.SSEMessage, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return realtime.SSEMessage{}, err
	}
	if env.V != envelopeVersion {
		return realtime.SSEMessage{}, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	if env.Msg.Channel == "" {
		return realtime.SSEMessage{}, errors.New("message without channel")
	}
	return env.Msg, nil
}

type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects and pings Redis.
func NewRedisBus(cfg Config, baseLog *logger.Logger) (*RedisBus, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "studyplan:sse"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisBus{log: baseLog.With("component", "RedisBus"), rdb: rdb, channel: channel}, nil
}

// Publish implements realtime.Publisher.
func (b *RedisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	raw, err := encode(msg, time.Now())
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Run delivers every relayed message to deliver until ctx ends. It returns
// an error only when the subscription cannot be established.
func (b *RedisBus) Run(ctx context.Context, deliver func(realtime.SSEMessage)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.log.Info("relaying realtime messages", "channel", b.channel)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decode(m.Payload)
			if err != nil {
				b.log.Warn("dropping relayed message", "error", err)
				continue
			}
			deliver(msg)
		}
	}
}

func (b *RedisBus) Close() error { return b.rdb.Close() }
