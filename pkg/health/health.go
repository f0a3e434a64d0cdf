// Package health reports whether a flight session is alive and making
// progress. It backs the liveness and readiness probes served next to the
// telemetry endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// Check is a single named health probe.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// Status is the aggregated result of all checks.
type Status struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker runs the registered checks.
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// AddCheck registers a check, replacing any existing check with the same name.
func (hc *Checker) AddCheck(check Check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a check by name.
func (hc *Checker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth runs every check. The overall status is "healthy" only if all pass.
func (hc *Checker) CheckHealth(ctx context.Context) Status {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := Status{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: "healthy"}
	}
	return status
}

// LivenessHandler always answers 200 while the process can serve requests.
func (hc *Checker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs all checks and answers 200 or 503.
func (hc *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// SessionCheck fails while the flight session is not running.
type SessionCheck struct {
	running func() bool
}

// NewSessionCheck creates a session check.
func NewSessionCheck(running func() bool) *SessionCheck {
	return &SessionCheck{running: running}
}

// Name implements Check.
func (s *SessionCheck) Name() string { return "session" }

// Check implements Check.
func (s *SessionCheck) Check(ctx context.Context) error {
	if !s.running() {
		return fmt.Errorf("flight session is not running")
	}
	return nil
}

// TickProgressCheck fails when the tick counter has not advanced within
// maxIdle, which catches a wedged simulation goroutine.
type TickProgressCheck struct {
	ticks   func() uint64
	maxIdle time.Duration
	now     func() time.Time

	mu       sync.Mutex
	last     uint64
	lastSeen time.Time
}

// NewTickProgressCheck creates a progress check over the given counter.
func NewTickProgressCheck(ticks func() uint64, maxIdle time.Duration) *TickProgressCheck {
	return &TickProgressCheck{ticks: ticks, maxIdle: maxIdle, now: time.Now}
}

// Name implements Check.
func (t *TickProgressCheck) Name() string { return "tick_progress" }

// Check implements Check.
func (t *TickProgressCheck) Check(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	current := t.ticks()
	if t.lastSeen.IsZero() || current != t.last {
		t.last = current
		t.lastSeen = now
		return nil
	}
	if idle := now.Sub(t.lastSeen); idle > t.maxIdle {
		return fmt.Errorf("no tick for %s (stuck at %d)", idle.Round(time.Millisecond), current)
	}
	return nil
}

// ListenerCheck fails when the telemetry listener has no bound address.
type ListenerCheck struct {
	addr func() string
}

// NewListenerCheck creates a listener check.
func NewListenerCheck(addr func() string) *ListenerCheck {
	return &ListenerCheck{addr: addr}
}

// Name implements Check.
func (l *ListenerCheck) Name() string { return "telemetry_listener" }

// Check implements Check.
func (l *ListenerCheck) Check(ctx context.Context) error {
	if l.addr() == "" {
		return fmt.Errorf("telemetry listener is not active")
	}
	return nil
}

// MemoryCheck fails when heap usage exceeds a limit.
type MemoryCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryCheck creates a memory check. A nil getter reads the Go heap.
func NewMemoryCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryCheck {
	if getMemoryUsage == nil {
		getMemoryUsage = HeapMB
	}
	return &MemoryCheck{maxMemoryMB: maxMemoryMB, getMemoryUsage: getMemoryUsage}
}

// Name implements Check.
func (m *MemoryCheck) Name() string { return "memory" }

// Check implements Check.
func (m *MemoryCheck) Check(ctx context.Context) error {
	if current := m.getMemoryUsage(); current > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", current, m.maxMemoryMB)
	}
	return nil
}

// HeapMB returns the current heap allocation in megabytes.
func HeapMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapAlloc / (1024 * 1024))
}
