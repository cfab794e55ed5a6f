package notify

import (
	"context"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

// LogNotifier writes messages to the structured log. It is the default
// backend for deployments without mail.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger uses the global one.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Global()
	}
	return &LogNotifier{logger: logger.WithComponent("notify")}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	log := n.logger
	if l := logging.LoggerFromCtx(ctx); l != nil && l.TickID() != "" {
		log = log.WithTickID(l.TickID())
	}
	log.Infof("operator notification", map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	return nil
}

func (n *LogNotifier) Close() error { return nil }
