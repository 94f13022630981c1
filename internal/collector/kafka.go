package collector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"sharkspread/internal/adapter"
	"sharkspread/internal/domain"
)

// KafkaPublisher streams sampled points to a Kafka topic. Points are
// keyed by symbol so one token's stream stays ordered within its
// partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher over the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaPublisher{writer: writer}
}

// PublishPoints sends a batch of sampled points.
func (p *KafkaPublisher) PublishPoints(ctx context.Context, points []*domain.SpreadPoint) error {
	msgs := make([]kafka.Message, 0, len(points))
	for _, point := range points {
		data, err := json.Marshal(adapter.PointToDTO(point))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(point.Symbol),
			Value: data,
			Time:  time.Now(),
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
