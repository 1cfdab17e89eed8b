package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogMailer writes messages to the logger instead of delivering them. Sent
// messages are retained for inspection.
type LogMailer struct {
	logger *zap.Logger
	from   Address

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer builds a mailer for development environments.
func NewLogMailer(from Address, logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger, from: from}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.Address)
	}
	m.logger.Info("mail sent",
		zap.String("from", m.from.Address),
		zap.Strings("to", to),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every message passed to Send.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
