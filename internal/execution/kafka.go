package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"tradeloop/internal/observability"
)

// KafkaNotifier publishes handoff events to a Kafka topic. The order
// manager consumes them out of process.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier writing to the given topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Notify implements Notifier. Events are keyed by ticker so updates
// for one instrument stay ordered within a partition.
func (n *KafkaNotifier) Notify(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal handoff event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.Ticker),
		Value: data,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write handoff event: %w", err)
	}
	if e.DispatchedPositionCreated {
		observability.RecordSignalEvent("dispatched_position_created")
	}
	if e.OpenPositionUpdated {
		observability.RecordSignalEvent("open_position_updated")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// Compile-time interface check.
var _ Notifier = (*KafkaNotifier)(nil)
