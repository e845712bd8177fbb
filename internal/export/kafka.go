package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaExporter writes reports as JSON messages keyed by session id.
type KafkaExporter struct {
	writer kafkaWriter
}

func NewKafkaExporter(brokers []string, topic string) *KafkaExporter {
	return &KafkaExporter{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaExporter) Name() string { return "kafka" }

func (k *KafkaExporter) Export(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(r.SessionID),
		Value: payload,
		Time:  r.Timestamp,
	})
}

func (k *KafkaExporter) Close() error {
	return k.writer.Close()
}
