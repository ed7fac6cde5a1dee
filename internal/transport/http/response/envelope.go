package response

import (
	"encoding/json"
	"net/http"

	appCtx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

// Body is the envelope every endpoint answers with.
type Body struct {
	Succeeded bool     `json:"succeeded"`
	Message   string   `json:"message"`
	Code      string   `json:"code,omitempty"`
	Errors    []string `json:"errors"`
	Data      any      `json:"data"`
	RequestID string   `json:"requestId,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Body{Succeeded: true, Message: message, Errors: []string{}, Data: data})
}

func Created(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusCreated, Body{Succeeded: true, Message: message, Errors: []string{}, Data: data})
}

// RequestIDFromContext returns the id set by the request id middleware.
func RequestIDFromContext(r *http.Request) string {
	return appCtx.GetRequestID(r.Context())
}
