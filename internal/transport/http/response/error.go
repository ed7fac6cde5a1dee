package response

import (
	"errors"
	"net/http"
	"sort"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// WriteError converts an error into the failure envelope. Non-domain errors
// become a 500 without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := Body{
		Message: "internal error",
		Code:    "internal_error",
		Errors:  []string{},
	}

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		body.Message = de.Message
		body.Code = de.Code
		body.Errors = metaErrors(de.Meta)
	}
	body.RequestID = RequestIDFromContext(r)

	if status >= http.StatusInternalServerError {
		l := logger.WithCtx(r.Context())
		l.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}

	WriteJSON(w, status, body)
}

// metaErrors flattens error details into "key: value" lines, sorted.
func metaErrors(meta map[string]string) []string {
	out := make([]string, 0, len(meta))
	for k, v := range meta {
		out = append(out, k+": "+v)
	}
	sort.Strings(out)
	return out
}

func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
