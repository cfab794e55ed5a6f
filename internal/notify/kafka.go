package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig configures the Kafka backend.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Envelope is the JSON value written for each message. The record key is
// the recipient.
type Envelope struct {
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

// KafkaNotifier publishes messages to a topic for a downstream mailer.
type KafkaNotifier struct {
	from   string
	topic  string
	client producer
	now    func() time.Time
}

// NewKafkaNotifier creates a Kafka notifier.
func NewKafkaNotifier(from string, cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("notify: kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("notify: kafka topic is required")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: kafka client: %w", err)
	}
	return &KafkaNotifier{from: from, topic: cfg.Topic, client: client, now: time.Now}, nil
}

func (n *KafkaNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{
		From:    n.from,
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
		SentAt:  n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("notify: encode envelope: %w", err)
	}
	rec := &kgo.Record{Topic: n.topic, Key: []byte(msg.To), Value: value}
	if err := n.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("notify: kafka produce to %s: %w", n.topic, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	n.client.Close()
	return nil
}
