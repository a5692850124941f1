package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReader replays msgs then blocks until the context is canceled.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    int
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func eventMessage(t *testing.T, offset int64, eventType string) kafka.Message {
	t.Helper()
	e, err := NewEvent(eventType, "agg", "product", "test", nil)
	require.NoError(t, err)
	raw, err := e.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "sublimacion.catalog.changed", Offset: offset, Value: raw}
}

func runConsumer(t *testing.T, r *fakeReader, h Handler) {
	t.Helper()
	c := newConsumer(r, ConsumerConfig{Topic: "sublimacion.catalog.changed", GroupID: "test"}, h, newTestLogger())
	c.backoff = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	<-r.drained
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := newFakeReader(eventMessage(t, 1, "product.created"), eventMessage(t, 2, "product.deleted"))

	var seen []string
	runConsumer(t, r, func(ctx context.Context, e *Event) error {
		seen = append(seen, e.EventType)
		return nil
	})

	assert.Equal(t, []string{"product.created", "product.deleted"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.Equal(t, 1, r.closed)
}

func TestConsumer_RetriesThenSkips(t *testing.T) {
	r := newFakeReader(eventMessage(t, 7, "product.updated"))

	calls := 0
	runConsumer(t, r, func(ctx context.Context, e *Event) error {
		calls++
		return errors.New("elasticsearch down")
	})

	assert.Equal(t, maxHandlerRetries, calls)
	assert.Equal(t, []int64{7}, r.committed, "poison message is committed so the partition moves on")
}

func TestConsumer_RecoversOnRetry(t *testing.T) {
	r := newFakeReader(eventMessage(t, 3, "collection.created"))

	calls := 0
	runConsumer(t, r, func(ctx context.Context, e *Event) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{3}, r.committed)
}

func TestConsumer_BadPayloadCommitted(t *testing.T) {
	r := newFakeReader(kafka.Message{Offset: 9, Value: []byte("garbage")})

	called := false
	runConsumer(t, r, func(ctx context.Context, e *Event) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Equal(t, []int64{9}, r.committed)
}
