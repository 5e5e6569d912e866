package httpserver

import (
	"context"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castwave/internal/httpclient"
)

// HealthHandler serves the /health endpoint used by the desktop shell to
// confirm the background proxy/cast process is alive before it starts
// driving it.
type HealthHandler struct {
	version   string
	startTime time.Time
	cbManager *httpclient.CircuitBreakerManager
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, cbManager *httpclient.CircuitBreakerManager) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		cbManager: cbManager,
	}
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// CircuitBreakerStatus summarizes one upstream host's circuit breaker state.
type CircuitBreakerStatus struct {
	Host     string `json:"host" doc:"Upstream host this breaker tracks"`
	State    string `json:"state" doc:"closed, open, or half-open"`
	Failures int    `json:"failures"`
}

// HealthResponse is the body of the health check response.
type HealthResponse struct {
	Status          string                 `json:"status"`
	Version         string                 `json:"version"`
	Timestamp       string                 `json:"timestamp"`
	UptimeSeconds   float64                `json:"uptime_seconds"`
	Goroutines      int                    `json:"goroutines"`
	CircuitBreakers []CircuitBreakerStatus `json:"circuit_breakers,omitempty"`
}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health route with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports process liveness, uptime, and upstream circuit breaker state",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()

	var breakers []CircuitBreakerStatus
	if h.cbManager != nil {
		stats := h.cbManager.AllStats()
		breakers = make([]CircuitBreakerStatus, 0, len(stats))
		for host, s := range stats {
			breakers = append(breakers, CircuitBreakerStatus{
				Host:     host,
				State:    s.State.String(),
				Failures: s.Failures,
			})
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:          "healthy",
			Version:         h.version,
			Timestamp:       now.UTC().Format(time.RFC3339),
			UptimeSeconds:   now.Sub(h.startTime).Seconds(),
			Goroutines:      runtime.NumGoroutine(),
			CircuitBreakers: breakers,
		},
	}, nil
}
