package disputerequest

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OutboxStore is the relay's view of the outbox table.
type OutboxStore interface {
	Pending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, maxAttempts int, cause error) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, partitionKey string) error
}

// Relay moves committed outbox rows to the message broker.
type Relay struct {
	store       OutboxStore
	publisher   Publisher
	log         *zap.Logger
	batchSize   int
	maxAttempts int
}

func NewRelay(store OutboxStore, publisher Publisher, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{store: store, publisher: publisher, log: log, batchSize: 100, maxAttempts: 10}
}

// Flush publishes one batch of pending messages and returns how many were
// sent. A publish failure is recorded on the message and does not stop the
// batch.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	msgs, err := r.store.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range msgs {
		if err := r.publisher.Publish(ctx, m.Topic, m.Payload, m.Key); err != nil {
			r.log.Warn("outbox publish failed",
				zap.String("outbox_id", m.ID),
				zap.String("topic", m.Topic),
				zap.Int("attempts", m.Attempts+1),
				zap.Error(err))
			if markErr := r.store.MarkFailed(ctx, m.ID, r.maxAttempts, err); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := r.store.MarkSent(ctx, m.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Run flushes every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := r.Flush(ctx); err != nil {
			r.log.Error("outbox flush failed", zap.Error(err))
		} else if n > 0 {
			r.log.Info("outbox flushed", zap.Int("sent", n))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("disputerequest: kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topicByEvent: topicByEvent,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := eventType
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
