// Package kafka wraps the franz-go client for shipping domain events.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes event payloads keyed by subject onto a single topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the brokers and ensures the topic exists.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	topics, err := admin.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}
	if _, err := admin.CreateTopic(ctx, -1, -1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %q: %w", topic, err)
	}
	return nil
}

// Publish produces one record synchronously. The key routes all events for
// one subject to the same partition, preserving their relative order.
func (p *Producer) Publish(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes buffered records and releases the connection.
func (p *Producer) Close() {
	p.client.Close()
}
