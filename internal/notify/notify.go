// Package notify delivers operator notifications.
//
// The account reaper sends one message per tick that deleted anything.
// Backends: the structured log, SMTP email, or a Kafka topic.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

// Backend names accepted by New.
const (
	BackendLog   = "log"
	BackendSMTP  = "smtp"
	BackendKafka = "kafka"
)

// ErrInvalidMessage is returned for a message without a recipient.
var ErrInvalidMessage = errors.New("notify: message has no recipient")

// Message is a single notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Validate checks the message has a recipient.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Notifier sends messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string
	From    string
	SMTP    SMTPConfig
	Kafka   KafkaConfig
}

// New builds the notifier named by cfg.Backend. An empty backend means log.
func New(cfg Config, logger *logging.Logger) (Notifier, error) {
	switch cfg.Backend {
	case "", BackendLog:
		return NewLogNotifier(logger), nil
	case BackendSMTP:
		return NewSMTPNotifier(cfg.From, cfg.SMTP)
	case BackendKafka:
		return NewKafkaNotifier(cfg.From, cfg.Kafka)
	default:
		return nil, fmt.Errorf("notify: unknown backend %q", cfg.Backend)
	}
}
