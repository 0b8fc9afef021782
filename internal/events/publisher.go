// Package events publishes refresh lifecycle notifications to Kafka so
// downstream consumers can react to dataset updates without polling /status.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"globaldata/internal/refresh"
)

// KafkaPublisher produces refresh-completed events to a single topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the given brokers. Returns nil when the
// broker list is empty (event publishing not configured).
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// refreshCompletedEvent is the wire shape for the refresh.completed topic.
type refreshCompletedEvent struct {
	RunID      string    `json:"run_id"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Total      int       `json:"total"`
	FinishedAt time.Time `json:"finished_at"`
}

// PublishRefreshCompleted produces one event per completed run, keyed by run
// ID so compacted topics keep the latest state per run.
func (p *KafkaPublisher) PublishRefreshCompleted(ctx context.Context, result refresh.Result) error {
	payload, err := json.Marshal(refreshCompletedEvent{
		RunID:      result.RunID.String(),
		Inserted:   result.Inserted,
		Updated:    result.Updated,
		Total:      result.Total,
		FinishedAt: result.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal refresh event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(result.RunID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce refresh event: %w", err)
	}
	return nil
}

// Close flushes and shuts down the underlying client.
func (p *KafkaPublisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Close()
}
