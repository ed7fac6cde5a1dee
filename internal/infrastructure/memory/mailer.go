package memory

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/audit"
)

// LogMailer records reset links instead of handing them to a broker. Dev
// only. The log line never carries the link's token.
type LogMailer struct {
	mu   sync.Mutex
	sent []auth.PasswordResetEvent
	log  *zerolog.Logger
}

func NewLogMailer() *LogMailer { return &LogMailer{} }

// WithLogger sends the log line to l instead of the global logger.
func (m *LogMailer) WithLogger(l zerolog.Logger) *LogMailer {
	m.log = &l
	return m
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, evt auth.PasswordResetEvent) error {
	m.mu.Lock()
	m.sent = append(m.sent, evt)
	m.mu.Unlock()

	l := zlog.Logger
	if m.log != nil {
		l = *m.log
	}
	l.Info().
		Int64("user_id", evt.UserID).
		Str("email", audit.MaskEmail(evt.Email)).
		Str("link", redactLink(evt.URL)).
		Msg("[log-mailer] password reset")
	return nil
}

// redactLink keeps scheme, host and path and drops the query, which holds
// the reset token.
func redactLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
}

// Sent returns a copy of every event handed to the mailer.
func (m *LogMailer) Sent() []auth.PasswordResetEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]auth.PasswordResetEvent(nil), m.sent...)
}
