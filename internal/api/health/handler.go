package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"cropadvisor/internal/services/recommendation"
	"cropadvisor/pkg/logger"
)

// EngineStatus reports the recommendation engine status
type EngineStatus interface {
	Status() recommendation.Status
}

// Pinger is a dependency that can be health-checked
type Pinger interface {
	Health(ctx context.Context) error
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	engine      EngineStatus
	deps        map[string]Pinger
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. deps holds the enabled
// dependencies by name (postgres, redis).
func New(
	log *logger.Logger,
	engine EngineStatus,
	deps map[string]Pinger,
	serviceName string,
	version string,
) *Handler {
	if deps == nil {
		deps = map[string]Pinger{}
	}
	return &Handler{
		log:         log,
		engine:      engine,
		deps:        deps,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status      string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service     string                     `json:"service"`
	Version     string                     `json:"version"`
	Uptime      string                     `json:"uptime"`
	Timestamp   string                     `json:"timestamp"`
	Model       recommendation.Status      `json:"model"`
	Checks      map[string]ComponentHealth `json:"checks"`
	ErrorDetail string                     `json:"error_detail,omitempty"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness probe
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// HandleReadiness returns 200 only while the engine serves analyses
// Used by Kubernetes readiness probe
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	model := h.engine.Status()

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Model:     model,
		Checks: map[string]ComponentHealth{
			"model": engineHealth(model),
		},
	}

	statusCode := http.StatusOK
	if !model.State.Serving() {
		status.Status = "unhealthy"
		status.ErrorDetail = "recommendation engine is " + model.State.String()
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "state", model.State)
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth returns detailed health status (includes all checks)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	model := h.engine.Status()
	checks := map[string]ComponentHealth{
		"model": engineHealth(model),
	}

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	degraded := model.State != recommendation.StateReady
	for _, name := range names {
		c := h.check(ctx, name, h.deps[name])
		checks[name] = c
		if c.Status != "healthy" {
			degraded = true
		}
	}

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Model:     model,
		Checks:    checks,
	}

	statusCode := http.StatusOK
	switch {
	case !model.State.Serving():
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	case degraded:
		status.Status = "degraded" // still 200
	}

	writeJSON(w, statusCode, status)
}

func engineHealth(model recommendation.Status) ComponentHealth {
	switch model.State {
	case recommendation.StateReady:
		return ComponentHealth{Status: "healthy"}
	case recommendation.StatePartiallyReady:
		return ComponentHealth{Status: "degraded", Error: "ideal-value table unavailable"}
	default:
		return ComponentHealth{Status: "unhealthy", Error: "state " + model.State.String()}
	}
}

// check pings one dependency
func (h *Handler) check(ctx context.Context, name string, p Pinger) ComponentHealth {
	start := time.Now()
	err := p.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
