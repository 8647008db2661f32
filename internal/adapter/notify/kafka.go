package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"academy-commerce/config"
	"academy-commerce/internal/core/ports"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const mailRequestedEvent = "mail.requested"

// mailEvent is the envelope consumed by the mail worker.
type mailEvent struct {
	EventType  string     `json:"event_type"`
	OccurredAt time.Time  `json:"occurred_at"`
	Data       ports.Mail `json:"data"`
}

// NewKafkaClient connects to the configured brokers.
func NewKafkaClient(cfg config.KafkaConfig) (sarama.Client, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	return client, nil
}

// KafkaNotifier implements ports.Notifier by publishing mail requests to a
// topic; delivery is the mail worker's job.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

// NewKafkaNotifier creates a notifier publishing to topic.
func NewKafkaNotifier(producer sarama.SyncProducer, topic string, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, log: log}
}

// Send publishes one mail request keyed by recipient.
func (n *KafkaNotifier) Send(ctx context.Context, mail ports.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(mailEvent{
		EventType:  mailRequestedEvent,
		OccurredAt: time.Now().UTC(),
		Data:       mail,
	})
	if err != nil {
		return fmt.Errorf("marshal mail event: %w", err)
	}

	partition, offset, err := n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(mail.To),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("publish mail event: %w", err)
	}

	n.log.Debug().
		Str("topic", n.topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Str("template", mail.Template).
		Msg("mail event published")
	return nil
}

// Close flushes and closes the producer.
func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

// KafkaHealthCheck implements ports.HealthChecker for the broker connection.
type KafkaHealthCheck struct {
	client sarama.Client
}

// NewKafkaHealthCheck creates a Kafka health checker.
func NewKafkaHealthCheck(client sarama.Client) *KafkaHealthCheck {
	return &KafkaHealthCheck{client: client}
}

// Ping refreshes cluster metadata.
func (h *KafkaHealthCheck) Ping(_ context.Context) error {
	if h.client.Closed() {
		return fmt.Errorf("kafka client closed")
	}
	return h.client.RefreshMetadata()
}

// Name returns the dependency name.
func (h *KafkaHealthCheck) Name() string {
	return "kafka"
}
