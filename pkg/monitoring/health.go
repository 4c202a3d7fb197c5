package monitoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/NERVsystems/osmapi/pkg/core"
)

// Health states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Probe states
const (
	ProbeUp      = "up"
	ProbeDown    = "down"
	ProbeUnknown = "unknown"
)

// ProbeStatus is the last result of probing one server
type ProbeStatus struct {
	Status    string    `json:"status"`
	Latency   int64     `json:"latency_ms"`
	LastError string    `json:"last_error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ServiceHealth is the JSON document served by HealthHandler
type ServiceHealth struct {
	Service       string                 `json:"service"`
	Status        string                 `json:"status"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	StartTime     time.Time              `json:"start_time"`
	Probes        map[string]ProbeStatus `json:"probes"`
}

// HealthChecker aggregates probe results
type HealthChecker struct {
	serviceName string
	startTime   time.Time
	mu          sync.RWMutex
	probes      map[string]ProbeStatus
}

// NewHealthChecker creates a health checker with no probes
func NewHealthChecker(serviceName string) *HealthChecker {
	return &HealthChecker{
		serviceName: serviceName,
		startTime:   time.Now(),
		probes:      make(map[string]ProbeStatus),
	}
}

// Record stores the outcome of one probe
func (h *HealthChecker) Record(name string, latency time.Duration, err error) {
	p := ProbeStatus{
		Status:    ProbeUp,
		Latency:   latency.Milliseconds(),
		CheckedAt: time.Now(),
	}
	if err != nil {
		p.Status = ProbeDown
		p.LastError = err.Error()
		p.ErrorCode = string(core.CodeOf(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = p
}

// Register adds a probe in the unknown state so it is reported before its
// first check completes
func (h *HealthChecker) Register(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.probes[name]; !ok {
		h.probes[name] = ProbeStatus{Status: ProbeUnknown}
	}
}

// GetHealth returns the current health. The service is unhealthy when more
// than half of its probes are down and degraded when any probe is down or
// not yet checked.
func (h *HealthChecker) GetHealth() ServiceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	probes := make(map[string]ProbeStatus, len(h.probes))
	down, unknown := 0, 0
	for name, p := range h.probes {
		probes[name] = p
		switch p.Status {
		case ProbeDown:
			down++
		case ProbeUnknown:
			unknown++
		}
	}

	status := StatusHealthy
	switch {
	case down > 0 && down*2 > len(probes):
		status = StatusUnhealthy
	case down > 0 || unknown > 0:
		status = StatusDegraded
	}

	return ServiceHealth{
		Service:       h.serviceName,
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		StartTime:     h.startTime,
		Probes:        probes,
	}
}

// HealthHandler serves the full health document
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	}
}

// ReadinessHandler reports whether the service should receive traffic.
// Only a healthy status is ready; degraded and unhealthy answer 503.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()
		ready := health.Status == StatusHealthy

		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"ready":  ready,
			"status": health.Status,
		})
	}
}

// LivenessHandler always answers while the process runs
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"alive":  true,
			"uptime": time.Since(h.startTime).String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode health response", "error", err)
	}
}

// ProbeFunc checks one server, typically osm.Client.CheckHealth
type ProbeFunc func(ctx context.Context) error

// Monitor runs a probe on an interval and records the results
type Monitor struct {
	name     string
	checker  *HealthChecker
	probe    ProbeFunc
	interval time.Duration
	logger   *slog.Logger
}

// NewMonitor creates a monitor; call Run to start it
func NewMonitor(name string, checker *HealthChecker, probe ProbeFunc, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	checker.Register(name)
	return &Monitor{
		name:     name,
		checker:  checker,
		probe:    probe,
		interval: interval,
		logger:   logger.With("probe", name),
	}
}

// Run probes immediately and then on every tick until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs the probe once
func (m *Monitor) Check(ctx context.Context) {
	start := time.Now()
	err := m.probe(ctx)
	latency := time.Since(start)

	m.checker.Record(m.name, latency, err)
	if err != nil {
		m.logger.Warn("probe failed", "error", err, "latency", latency)
		return
	}
	m.logger.Debug("probe succeeded", "latency", latency)
}
