package audit

import (
	"strings"

	"github.com/rs/zerolog"
)

// Logger writes account business events (logins, refreshes, role and
// password changes) as structured audit lines.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record matches the callback shape auth.Service.WithAudit expects.
// Failures are logged at warn level; emails are masked.
func (l *Logger) Record(action string, fields map[string]string) {
	evt := l.log.Info()
	if fields["result"] == "error" {
		evt = l.log.Warn()
	}
	evt = evt.Str("action", action)

	for k, v := range fields {
		if k == "email" {
			v = MaskEmail(v)
		}
		evt = evt.Str(k, v)
	}
	evt.Msg("audit")
}

// MaskEmail keeps the first two characters of the local part and the domain.
func MaskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
