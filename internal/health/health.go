// Package health serves the liveness, readiness and API health endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
)

// Status is the body of the liveness and readiness endpoints.
type Status struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Checker is a named dependency probe run by the readiness endpoint.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Store probes the database connection.
func Store(ping func(ctx context.Context) error) Checker {
	return Checker{Name: "store", Check: ping}
}

// Handler provides HTTP health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	ready    bool
	checkers []Checker
	clock    clock.Clock
	timeout  time.Duration
}

// NewHandler creates a new health handler with the given checkers.
func NewHandler(clk clock.Clock, checkers ...Checker) *Handler {
	return &Handler{checkers: checkers, clock: clk, timeout: 5 * time.Second}
}

// SetReady marks the service as ready to receive traffic.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *Handler) isReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

func (h *Handler) now() string {
	return h.clock.Now().UTC().Format(time.RFC3339)
}

// LivenessHandler returns HTTP 200 if the process is alive.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Status{Status: "ok", Timestamp: h.now()})
	}
}

// ReadinessHandler returns HTTP 200 once SetReady(true) was called and every
// checker passes.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.isReady() {
			writeJSON(w, http.StatusServiceUnavailable, Status{Status: "not_ready", Timestamp: h.now()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		checks := make(map[string]string, len(h.checkers))
		code := http.StatusOK
		status := "ready"
		for _, c := range h.checkers {
			if err := c.Check(ctx); err != nil {
				checks[c.Name] = err.Error()
				code = http.StatusServiceUnavailable
				status = "not_ready"
				continue
			}
			checks[c.Name] = "ok"
		}

		writeJSON(w, code, Status{Status: status, Checks: checks, Timestamp: h.now()})
	}
}

// APIHandler answers the API's own health route with {"ok":true}.
func (h *Handler) APIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
