package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB (through PingFunc) and cache.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the welcome and health endpoints.
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{
		checks:  map[string]Pinger{"database": db, "cache": cache},
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Welcome to the QuizHub API"})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out := HealthEnvelope{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			out.Checks[name] = "down: " + err.Error()
			out.Status = "degraded"
			continue
		}
		out.Checks[name] = "up"
	}
	status := http.StatusOK
	if out.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, out)
}
