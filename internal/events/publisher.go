package events

import (
	"context"
	"fmt"

	rediscommon "github.com/MagicKrazik/ALPHA/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Pipeline streams, in data-flow order.
const (
	StreamAssessments = "alpha:assessments"
	StreamProfiles    = "alpha:profiles"
	StreamAlerts      = "alpha:alerts"
	StreamDeliveries  = "alpha:deliveries"
)

// Publisher appends an event to a pipeline stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, event interface{}) error
}

// RedisPublisher writes events as JSON entries on Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher.
func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event interface{}) error {
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, stream, event)
	if err != nil {
		return fmt.Errorf("publish %T: %w", event, err)
	}
	p.logger.Debug("Event published",
		zap.String("stream", stream),
		zap.String("message_id", id),
	)
	return nil
}
