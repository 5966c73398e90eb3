package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Dispatcher is the notification boundary. Dispatch failures must never
// roll back the state transition that triggered them; callers log the
// returned error and move on.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind, key string, payload any) error
}

// KafkaDispatcher publishes envelopes to a single notification topic,
// keyed by aggregate id so per-order events stay ordered.
type KafkaDispatcher struct {
	writer  *kafka.Writer
	brokers []string
	logger  *zap.Logger
}

func NewKafkaDispatcher(brokersCSV, topic string, logger *zap.Logger) *KafkaDispatcher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaDispatcher{
		writer:  writer,
		brokers: brokers,
		logger:  logger,
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, kind, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("Failed to marshal event payload",
			zap.String("kind", kind),
			zap.Error(err))
		return err
	}

	env := Envelope{
		EventID:    uuid.New().String(),
		Kind:       kind,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		d.logger.Error("Failed to dispatch event",
			zap.String("event_id", env.EventID),
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	d.logger.Info("Event dispatched",
		zap.String("event_id", env.EventID),
		zap.String("kind", kind),
		zap.String("key", key))
	return nil
}

// HealthCheck dials the first broker. Used by the health endpoint.
func (d *KafkaDispatcher) HealthCheck() error {
	if len(d.brokers) == 0 {
		return nil
	}
	conn, err := kafka.Dial("tcp", d.brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

func (d *KafkaDispatcher) Close() error {
	if d.writer != nil {
		return d.writer.Close()
	}
	return nil
}
