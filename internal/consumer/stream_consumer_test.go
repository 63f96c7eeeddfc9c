package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	rediscommon "github.com/MagicKrazik/ALPHA/internal/common/redis"
	"github.com/MagicKrazik/ALPHA/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testStream = "alpha:test"

func setupTestStream(t *testing.T, handler Handler) (*redis.Client, *StreamConsumer) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewStreamConsumer(client, Options{
		Stream:       testStream,
		Group:        "alpha-risk",
		ConsumerName: "test",
		Workers:      2,
		BatchSize:    10,
		Block:        10 * time.Millisecond,
	}, handler, zap.NewNop())

	require.NoError(t, rediscommon.CreateConsumerGroup(context.Background(), client, testStream, "alpha-risk"))
	return client, c
}

func publish(t *testing.T, client *redis.Client, caseID string) {
	t.Helper()
	_, err := rediscommon.PublishJSONToStream(context.Background(), client, testStream,
		models.AssessmentSavedEvent{CaseID: caseID})
	require.NoError(t, err)
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	pending, err := client.XPending(context.Background(), testStream, "alpha-risk").Result()
	require.NoError(t, err)
	return pending.Count
}

func TestStreamConsumer_ProcessesAndAcks(t *testing.T) {
	var seen []string
	client, c := setupTestStream(t, func(_ context.Context, msg rediscommon.StreamMessage) error {
		var event models.AssessmentSavedEvent
		if err := msg.DecodeJSON(&event); err != nil {
			return err
		}
		seen = append(seen, event.CaseID)
		return nil
	})

	publish(t, client, "case-1")
	publish(t, client, "case-2")

	n, err := c.consumeOnce(context.Background(), "test-0")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"case-1", "case-2"}, seen)
	assert.Equal(t, int64(0), pendingCount(t, client))
}

func TestStreamConsumer_FailuresAreIsolated(t *testing.T) {
	var handled []string
	client, c := setupTestStream(t, func(_ context.Context, msg rediscommon.StreamMessage) error {
		var event models.AssessmentSavedEvent
		if err := msg.DecodeJSON(&event); err != nil {
			return err
		}
		switch event.CaseID {
		case "fails":
			return errors.New("database unavailable")
		case "panics":
			panic("nil profile")
		}
		handled = append(handled, event.CaseID)
		return nil
	})

	publish(t, client, "fails")
	publish(t, client, "panics")
	publish(t, client, "case-3")

	n, err := c.consumeOnce(context.Background(), "test-0")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"case-3"}, handled)
	assert.Equal(t, int64(0), pendingCount(t, client))
}

func TestNewStreamConsumer_Defaults(t *testing.T) {
	c := NewStreamConsumer(nil, Options{Stream: testStream}, nil, zap.NewNop())
	assert.Equal(t, 1, c.opts.Workers)
	assert.Equal(t, int64(10), c.opts.BatchSize)
}
