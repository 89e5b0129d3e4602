package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-sla-service/internal/config"
	"github.com/spec-kit/ticket-sla-service/internal/events"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducerDisabledWithoutBrokers(t *testing.T) {
	p := NewKafkaProducer(config.KafkaConfig{Topic: "x"}, zaptest.NewLogger(t))
	assert.Nil(t, p)
	assert.NoError(t, p.Close())
	assert.NotPanics(t, func() { p.Subscribe(events.NewInMemoryDispatcher(nil)) })
}

func TestProducerForwardsDispatchedEvents(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, logger: zaptest.NewLogger(t)}
	d := events.NewInMemoryDispatcher(zaptest.NewLogger(t))
	p.Subscribe(d)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, d.Publish(context.Background(), events.Event{
		Type:      events.EventSLABreach,
		TicketID:  "ticket-1",
		Timestamp: ts,
	}))
	require.NoError(t, d.Publish(context.Background(), events.Event{
		Type:  events.EventSLARunCompleted,
		RunID: "run-1",
	}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "ticket-1", string(w.msgs[0].Key))
	assert.Equal(t, ts, w.msgs[0].Time)
	assert.Equal(t, "run-1", string(w.msgs[1].Key))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, events.EventSLABreach, decoded.Type)
}

func TestProducerClosed(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, logger: zaptest.NewLogger(t)}
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), events.Event{}), ErrProducerClosed)
}

type blockingWriter struct {
	ctxErr chan error
}

func (w *blockingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	w.ctxErr <- ctx.Err()
	return ctx.Err()
}

func (w *blockingWriter) Close() error { return nil }

func TestProducerBoundsSlowWrites(t *testing.T) {
	w := &blockingWriter{ctxErr: make(chan error, 1)}
	p := &KafkaProducer{writer: w, logger: zaptest.NewLogger(t), timeout: 50 * time.Millisecond}
	d := events.NewInMemoryDispatcher(zaptest.NewLogger(t))
	p.Subscribe(d)

	start := time.Now()
	_ = d.Publish(context.Background(), events.Event{Type: events.EventSLABreach, TicketID: "ticket-1"})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.ErrorIs(t, <-w.ctxErr, context.DeadlineExceeded)
}

func TestProducerWriteIgnoresCallerCancellation(t *testing.T) {
	w := &fakeWriter{}
	var seen error
	p := &KafkaProducer{writer: writerFunc(func(ctx context.Context, msgs ...kafka.Message) error {
		seen = ctx.Err()
		return w.WriteMessages(ctx, msgs...)
	}), logger: zaptest.NewLogger(t)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Publish(ctx, events.Event{Type: events.EventSLAWarning, TicketID: "ticket-1"}))
	assert.NoError(t, seen)
	assert.Len(t, w.msgs, 1)
}

type writerFunc func(ctx context.Context, msgs ...kafka.Message) error

func (f writerFunc) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return f(ctx, msgs...)
}

func (f writerFunc) Close() error { return nil }

func TestProducerReturnsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaProducer{writer: &fakeWriter{err: boom}, logger: zaptest.NewLogger(t)}
	assert.ErrorIs(t, p.Publish(context.Background(), events.Event{Type: events.EventSLAWarning}), boom)
}
