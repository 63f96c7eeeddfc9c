package consumer

import (
	"context"
	"fmt"
	"time"

	rediscommon "github.com/MagicKrazik/ALPHA/internal/common/redis"
	"github.com/MagicKrazik/ALPHA/internal/metrics"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Handler processes one stream entry. A returned error is logged; the entry is acknowledged either way.
type Handler func(ctx context.Context, msg rediscommon.StreamMessage) error

// Options configures a StreamConsumer.
type Options struct {
	Stream       string
	Group        string
	ConsumerName string
	Workers      int
	BatchSize    int64
	Block        time.Duration
}

// StreamConsumer reads one pipeline stream through a consumer group with a pool of workers.
type StreamConsumer struct {
	client  *redis.Client
	opts    Options
	handler Handler
	logger  *zap.Logger
}

// NewStreamConsumer creates a consumer. Workers below 1 are raised to 1.
func NewStreamConsumer(client *redis.Client, opts Options, handler Handler, logger *zap.Logger) *StreamConsumer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 10
	}
	return &StreamConsumer{
		client:  client,
		opts:    opts,
		handler: handler,
		logger:  logger.With(zap.String("stream", opts.Stream)),
	}
}

// Start creates the consumer group and runs the workers until ctx is cancelled.
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.client, c.opts.Stream, c.opts.Group); err != nil {
		return err
	}

	c.logger.Info("Stream consumer started",
		zap.String("consumer_group", c.opts.Group),
		zap.String("consumer_name", c.opts.ConsumerName),
		zap.Int("workers", c.opts.Workers),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.opts.Workers; i++ {
		name := fmt.Sprintf("%s-%d", c.opts.ConsumerName, i)
		g.Go(func() error {
			c.run(ctx, name)
			return nil
		})
	}
	return g.Wait()
}

// run is one worker's loop; read errors back off exponentially.
func (c *StreamConsumer) run(ctx context.Context, consumerName string) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := c.consumeOnce(ctx, consumerName); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to consume stream",
				zap.String("consumer_name", consumerName),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = initialBackoff
	}
}

// consumeOnce reads one batch and processes it, returning the number of entries handled.
func (c *StreamConsumer) consumeOnce(ctx context.Context, consumerName string) (int, error) {
	messages, err := rediscommon.ReadFromStream(ctx, c.client,
		c.opts.Stream, c.opts.Group, consumerName, c.opts.BatchSize, c.opts.Block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", c.opts.Stream, err)
	}

	for _, msg := range messages {
		c.process(ctx, msg)
		if err := rediscommon.Ack(ctx, c.client, c.opts.Stream, c.opts.Group, msg.ID); err != nil {
			c.logger.Error("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return len(messages), nil
}

// process runs the handler with panics contained to the message.
func (c *StreamConsumer) process(ctx context.Context, msg rediscommon.StreamMessage) {
	start := time.Now()
	defer func() {
		metrics.StreamLatency.WithLabelValues(c.opts.Stream).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			metrics.StreamMessages.WithLabelValues(c.opts.Stream, "error").Inc()
			c.logger.Error("Handler panicked",
				zap.String("message_id", msg.ID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := c.handler(ctx, msg); err != nil {
		metrics.StreamMessages.WithLabelValues(c.opts.Stream, "error").Inc()
		c.logger.Error("Failed to process message",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}
	metrics.StreamMessages.WithLabelValues(c.opts.Stream, "ok").Inc()
}
