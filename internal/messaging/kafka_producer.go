package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sla-service/internal/config"
	"github.com/spec-kit/ticket-sla-service/internal/events"
)

// ErrProducerClosed is returned when publishing after Close.
var ErrProducerClosed = errors.New("kafka producer closed")

const defaultPublishTimeout = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer forwards SLA events to a Kafka topic as JSON.
type KafkaProducer struct {
	writer  messageWriter
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// NewKafkaProducer returns nil when no brokers are configured.
func NewKafkaProducer(cfg config.KafkaConfig, logger *zap.Logger) *KafkaProducer {
	if len(cfg.Brokers) == 0 {
		logger.Info("KAFKA_BROKERS not provided; sla events stay in-process")
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("kafka producer configured",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))
	return &KafkaProducer{writer: writer, logger: logger, timeout: defaultPublishTimeout}
}

// Subscribe forwards every SLA event type from the dispatcher.
func (p *KafkaProducer) Subscribe(dispatcher events.Dispatcher) {
	if p == nil || dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		dispatcher.Subscribe(eventType, p.Publish)
	}
}

// Publish writes one event, keyed by ticket id so a ticket's events stay ordered.
// The write runs on its own short deadline, detached from the caller's
// cancellation, so a slow broker only delays the caller by that deadline.
func (p *KafkaProducer) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrProducerClosed
	}
	p.mu.Unlock()

	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	timeout := p.timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Warn("kafka publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return err
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaProducer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

func encodeEvent(event events.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	key := event.TicketID
	if key == "" {
		key = event.RunID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
