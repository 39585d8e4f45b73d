package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/swing-scanner/internal/config"
	"github.com/mohamedkhairy/swing-scanner/internal/models"
	"github.com/mohamedkhairy/swing-scanner/pkg/logger"
)

// RedisBroadcaster publishes qualified alerts to a Redis stream for
// durable consumers and to a pub/sub channel for realtime listeners.
// Publishing is best effort; a Redis outage never blocks alert creation.
type RedisBroadcaster struct {
	client  *redis.Client
	stream  string
	channel string
}

// NewRedisBroadcaster creates a Redis-backed alert broadcaster
func NewRedisBroadcaster(cfg config.RedisConfig) (*RedisBroadcaster, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("stream", cfg.AlertStream),
	)

	return &RedisBroadcaster{
		client:  rdb,
		stream:  cfg.AlertStream,
		channel: cfg.AlertStream + ".live",
	}, nil
}

// PublishAlert publishes an alert to the alert stream and the realtime
// channel
func (r *RedisBroadcaster) PublishAlert(ctx context.Context, alert *models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"alert": string(payload),
		},
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", r.stream, err)
	}

	// Pub/sub delivery is fire-and-forget on top of the durable stream
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		logger.Warn("Failed to publish alert to channel",
			logger.ErrorField(err),
			logger.String("channel", r.channel),
			logger.String("ticker", alert.Ticker),
		)
	}

	return nil
}

// Close closes the Redis connection
func (r *RedisBroadcaster) Close() error {
	return r.client.Close()
}
