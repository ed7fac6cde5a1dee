package http_handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHealthHandler takes readiness checks keyed by dependency name
// ("postgres", "redis", "rabbitmq"). Nil checks are skipped.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	kept := make(map[string]Check, len(checks))
	for name, c := range checks {
		if c != nil {
			kept[name] = c
		}
	}
	return &HealthHandler{checks: kept, timeout: 2 * time.Second}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		writeHealth(w, http.StatusServiceUnavailable, map[string]any{
			"status":      "unavailable",
			"unavailable": failed,
		})
		return
	}
	writeHealth(w, http.StatusOK, map[string]any{"status": "ready"})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
