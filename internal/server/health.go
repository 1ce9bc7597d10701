package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "todo-backend"

// ReadinessChecker reports whether a dependency can serve requests
type ReadinessChecker interface {
	CheckReady(ctx context.Context) error
}

// HealthHandler serves the liveness, readiness and metrics endpoints
type HealthHandler struct {
	database    ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler creates the health handler. A nil checker reports the
// database as failed.
func NewHealthHandler(database ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		database:    database,
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks,omitempty"`
}

// Live reports that the process is up
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
	})
}

// Ready reports 503 until the database answers
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	check := healthCheckResult{Status: "ok"}
	switch {
	case h.database == nil:
		check = healthCheckResult{Status: "fail", Message: "not initialized"}
	default:
		if err := h.database.CheckReady(r.Context()); err != nil {
			check = healthCheckResult{Status: "fail", Message: err.Error()}
		}
	}

	resp := healthResponse{
		Status:    check.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   serviceName,
		Checks:    map[string]healthCheckResult{"postgresql": check},
	}
	status := http.StatusOK
	if check.Status == "fail" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Metrics exposes the Prometheus registry
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
