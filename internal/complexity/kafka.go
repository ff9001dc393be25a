package complexity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
)

// instanceID tags events this process publishes so Follow can skip them.
var instanceID = uuid.New().String()

// ChangeEvent announces an accepted level change.
type ChangeEvent struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	Level     int       `json:"level"`
	Previous  int       `json:"previous"`
	ChangedAt time.Time `json:"changed_at"`
}

func newChangeEvent(previous, level domain.Level) ChangeEvent {
	return ChangeEvent{
		EventID:   uuid.New().String(),
		Source:    instanceID,
		Level:     int(level),
		Previous:  int(previous),
		ChangedAt: time.Now().UTC(),
	}
}

// Publisher sends change events somewhere other instances can see them.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Close() error
}

// WriterInterface is the subset of *kafka.Writer the publisher uses.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderInterface is the subset of *kafka.Reader Follow uses.
type ReaderInterface interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaPublisher writes change events to one topic.
type KafkaPublisher struct {
	writer WriterInterface
	topic  string
	logger *logrus.Logger
}

// NewKafkaPublisher builds a writer for cfg.Brokers and cfg.Topic.
func NewKafkaPublisher(cfg domain.KafkaConfig, logger *logrus.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, cfg.Topic, logger), nil
}

func newKafkaPublisher(writer WriterInterface, topic string, logger *logrus.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logrus.New()
	}
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(PreferenceKey),
		Value: payload,
		Time:  event.ChangedAt,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	p.logger.WithFields(logrus.Fields{
		"topic":    p.topic,
		"event_id": event.EventID,
		"level":    event.Level,
	}).Debug("Published complexity change")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewKafkaReader builds a reader for cfg.Topic in its own consumer group
// so every instance sees every event.
func NewKafkaReader(cfg domain.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     "anatomy-twin-" + instanceID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
}

// Follow applies change events published by other instances to state until
// ctx is cancelled or the reader fails. Undecodable events are skipped.
func Follow(ctx context.Context, reader ReaderInterface, state *State, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to read change event: %w", err)
		}

		var event ChangeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.WithError(err).WithField("offset", msg.Offset).Warn("Skipping undecodable complexity event")
			continue
		}
		if event.Source == instanceID {
			continue
		}
		if !state.apply(domain.Level(event.Level)) {
			logger.WithField("level", event.Level).Warn("Skipping out-of-range complexity event")
		}
	}
}
