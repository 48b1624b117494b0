package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/lightlink-network/ll-rollup-api/rollup"
)

// Kafka publishes lifecycle events as JSON, keyed by rollup id so every
// event of a rollup lands on the same partition in commit order.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

type KafkaOpts struct {
	Brokers []string
	Topic   string
	Logger  *slog.Logger
}

var _ rollup.Publisher = &Kafka{}

func NewKafka(opts KafkaOpts) (*Kafka, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(opts.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaWithProducer(producer, opts.Topic, opts.Logger), nil
}

func NewKafkaWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Kafka {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		producer: producer,
		topic:    topic,
		logger:   logger.With("component", "kafka"),
	}
}

func (k *Kafka) Publish(_ context.Context, ev rollup.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(ev.RollupID, 10)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to send event to kafka: %w", err)
	}

	k.logger.Debug("event published", "type", ev.Type, "rollupID", ev.RollupID, "partition", partition, "offset", offset)
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
