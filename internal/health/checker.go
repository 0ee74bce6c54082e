// Package health aggregates component checks (feedback store, audit database, reply cache,
// oracle breaker) into the status served on /health.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// State is the health of a component or of the whole service.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// CheckFunc probes one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// DetailsFunc returns extra component information reported next to the check result.
type DetailsFunc func() interface{}

// ComponentHealth is the outcome of one check.
type ComponentHealth struct {
	Name       string      `json:"name"`
	Status     State       `json:"status"`
	Critical   bool        `json:"critical"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Status is the aggregated service health.
type Status struct {
	Overall    State                      `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

type check struct {
	fn       CheckFunc
	details  DetailsFunc
	critical bool
}

// Checker runs registered checks concurrently, each under its own timeout. A failing critical
// check makes the service unhealthy; any other failure degrades it.
type Checker struct {
	version string
	timeout time.Duration
	started time.Time

	mu     sync.RWMutex
	checks map[string]check
}

// NewChecker creates a checker. A non-positive timeout selects two seconds.
func NewChecker(version string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		version: version,
		timeout: timeout,
		started: time.Now(),
		checks:  make(map[string]check),
	}
}

// Register adds or replaces a named check.
func (h *Checker) Register(name string, critical bool, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, critical: critical}
}

// RegisterWithDetails adds a named check whose details are attached to every result.
func (h *Checker) RegisterWithDetails(name string, critical bool, fn CheckFunc, details DetailsFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, details: details, critical: critical}
}

// Names returns the registered check names in sorted order.
func (h *Checker) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every registered check and aggregates the result.
func (h *Checker) Check(ctx context.Context) Status {
	h.mu.RLock()
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		components = make(map[string]ComponentHealth, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c check) {
			defer wg.Done()
			result := h.run(ctx, name, c)
			mu.Lock()
			components[name] = result
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	overall := StateHealthy
	for _, comp := range components {
		if comp.Status == StateHealthy {
			continue
		}
		if comp.Critical {
			overall = StateUnhealthy
			break
		}
		overall = StateDegraded
	}

	return Status{
		Overall:    overall,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: components,
	}
}

func (h *Checker) run(ctx context.Context, name string, c check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.fn(ctx)
	result := ComponentHealth{
		Name:       name,
		Status:     StateHealthy,
		Critical:   c.critical,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Status = StateUnhealthy
		result.Error = err.Error()
	}
	if c.details != nil {
		result.Details = c.details()
	}
	return result
}
