package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// queueReader serves queued messages and cancels the consume loop once drained.
type queueReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error { return nil }

func newTestConsumer(msgs ...kafkago.Message) (*Consumer, *queueReader, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &queueReader{queue: msgs, cancel: cancel}
	c := &Consumer{
		reader:  reader,
		logger:  zap.NewNop(),
		backoff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
	return c, reader, ctx
}

func TestConsume_RetriesFailedMessageBeforeMovingOn(t *testing.T) {
	c, reader, ctx := newTestConsumer(
		kafkago.Message{Offset: 1, Value: []byte("paid")},
		kafkago.Message{Offset: 2, Value: []byte("next")},
	)

	var seen []int64
	failures := 1
	err := c.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
		seen = append(seen, msg.Offset)
		if msg.Offset == 1 && failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1, 1, 2}, seen)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsume_StopsRetryingWhenCancelled(t *testing.T) {
	c, reader, ctx := newTestConsumer(
		kafkago.Message{Offset: 7},
		kafkago.Message{Offset: 8},
	)

	calls := 0
	err := c.Consume(ctx, func(_ context.Context, _ kafkago.Message) error {
		calls++
		if calls == 3 {
			reader.cancel()
		}
		return errors.New("still failing")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
	assert.Empty(t, reader.committed)
}
