package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamPublisher publishes JSON payloads to Redis Streams under a "data"
// field
type StreamPublisher struct {
	client *redis.Client
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher creates a publisher. maxLen caps each stream
// approximately; zero leaves streams unbounded.
func NewStreamPublisher(client *redis.Client, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		maxLen: maxLen,
		logger: logger,
	}
}

// Publish marshals payload and appends it to stream
func (p *StreamPublisher) Publish(ctx context.Context, stream string, payload interface{}) error {
	// Marshal payload to JSON
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Append to the stream, trimming old entries when capped
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", stream, err)
	}

	p.logger.Debug("published to stream",
		zap.String("stream", stream),
		zap.String("id", id),
		zap.Int("bytes", len(data)),
	)
	return nil
}
