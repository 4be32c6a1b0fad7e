package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

type KafkaProducer struct {
	producer *kafka.Producer
}

func NewKafkaProducer(broker string) (*KafkaProducer, error) {
	slog.Info("[KafkaClient] Connecting to Kafka", slog.String("broker", broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   broker,
		"security.protocol":   "PLAINTEXT",
		"api.version.request": "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka producer initialized")
	return &KafkaProducer{producer: p}, nil
}

// Publish produces one message and waits for its delivery report.
func (k *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, deliveryChan)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return m.TopicPartition.Error
		}
	}

	slog.Info("[KafkaClient] Published message",
		slog.String("topic", topic),
		slog.String("key", string(key)))
	return nil
}

func (k *KafkaProducer) Close() {
	if k != nil && k.producer != nil {
		k.producer.Flush(5000)
		k.producer.Close()
		slog.Info("[KafkaClient] Kafka producer shut down")
	}
}
