package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	v1 "tasker/contracts/realtime/v1"

	"github.com/go-redis/redis/v8"
)

// RedisRelay fans change envelopes out across replicas through Redis Pub/Sub.
//
// Deliver publishes to the channel; Run subscribes to the same channel and
// hands every received envelope to the local Hub. Each replica therefore
// delivers its own events through Redis too, which keeps one ordering for all.
type RedisRelay struct {
	log     *slog.Logger
	client  *redis.Client
	channel string
	local   Sink
}

// NewRedisRelay parses url (redis://...), pings the server and returns a relay
// that feeds local. The caller owns Close.
func NewRedisRelay(ctx context.Context, log *slog.Logger, url, channel string, local Sink) (*RedisRelay, error) {
	if log == nil {
		log = slog.Default()
	}
	if local == nil {
		return nil, errors.New("realtime: nil local sink")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("realtime: empty redis url")
	}
	if channel == "" {
		channel = DefaultConfig().RedisChannel
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("realtime: redis ping: %w", err)
	}

	return &RedisRelay{log: log, client: client, channel: channel, local: local}, nil
}

// Deliver publishes env to the relay channel. It implements Sink.
func (r *RedisRelay) Deliver(ctx context.Context, env v1.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Run forwards channel messages to the local sink until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription confirmation so nothing published after Run
	// starts is missed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("realtime: redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env v1.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn("relay.decode.fail", "channel", msg.Channel, "err", err)
				continue
			}
			if err := env.Validate(); err != nil || env.Type != v1.TypeChange {
				r.log.Warn("relay.envelope.reject", "type", env.Type, "err", err)
				continue
			}
			relayReceived.Inc()
			_ = r.local.Deliver(ctx, env)
		}
	}
}

// Ping checks the Redis connection.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (r *RedisRelay) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
