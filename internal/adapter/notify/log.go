package notify

import (
	"context"

	"academy-commerce/internal/core/ports"

	"github.com/rs/zerolog"
)

// LogNotifier implements ports.Notifier by writing mail requests to the log.
// It is used when no Kafka brokers are configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the mail instead of delivering it.
func (n *LogNotifier) Send(_ context.Context, mail ports.Mail) error {
	n.log.Info().
		Str("to", mail.To).
		Str("subject", mail.Subject).
		Str("template", mail.Template).
		Interface("data", mail.Data).
		Msg("mail queued (log only)")
	return nil
}
