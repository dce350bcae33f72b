// internal/ledger/events/kafka.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"subscription-ledger/internal/common/config"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/common/metrics"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// kafkaEmitter publishes events to a single Kafka topic as JSON.
type kafkaEmitter struct {
	producer sarama.SyncProducer
	topic    string
	log      logger.Logger
}

// NewKafkaEmitter connects a synchronous producer to the configured
// brokers.
func NewKafkaEmitter(cfg config.KafkaConfig, log logger.Logger) (Emitter, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return &kafkaEmitter{
		producer: producer,
		topic:    cfg.Topic,
		log:      log.WithFields(map[string]interface{}{"component": "kafka-emitter"}),
	}, nil
}

func (e *kafkaEmitter) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := validatePayload(payload); err != nil {
		return fmt.Errorf("event schema: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: e.topic,
		Key:   sarama.StringEncoder(string(event.Type)),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
		Timestamp: event.Timestamp,
	}

	partition, offset, err := e.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	metrics.LedgerEventsEmitted.WithLabelValues(string(event.Type)).Inc()
	e.log.Debug("event published", map[string]interface{}{
		"type":      event.Type,
		"partition": partition,
		"offset":    offset,
	})
	return nil
}

func (e *kafkaEmitter) Close() error {
	return e.producer.Close()
}
