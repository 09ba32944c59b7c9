package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	// Check performs a health check and returns the status.
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc is a function that performs a single health check.
// It returns an error if the check fails.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	// Healthy is false when any check failed.
	Healthy bool `json:"healthy"`

	// Ready is false when a critical check failed. A failing optional
	// dependency (the cache) degrades the service without taking it out of
	// rotation.
	Ready bool `json:"ready"`

	// Message provides additional context about the health status.
	Message string `json:"message,omitempty"`

	// Checks contains individual health check results.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Uptime is how long the service has been running.
	Uptime string `json:"uptime,omitempty"`

	// Timestamp is when the check was performed.
	Timestamp time.Time `json:"timestamp"`

	// Version is the service version.
	Version string `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type namedCheck struct {
	fn       HealthCheckFunc
	critical bool
}

// CompositeHealthChecker runs named checks in parallel.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]namedCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a new composite health checker.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checks:    make(map[string]namedCheck),
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// SetTimeout sets the timeout for individual health checks.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck registers a critical check. Its failure makes the service not ready.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(name, check, true)
}

// AddOptionalCheck registers a check whose failure only marks the service
// unhealthy.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(name, check, false)
}

func (c *CompositeHealthChecker) add(name string, check HealthCheckFunc, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = namedCheck{fn: check, critical: critical}
}

// RemoveCheck removes a named health check.
func (c *CompositeHealthChecker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check performs all health checks and returns the aggregated status.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make(map[string]namedCheck, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	type named struct {
		name   string
		result CheckResult
	}
	results := make(chan named, len(checks))

	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check namedCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := check.fn(checkCtx)

			result := CheckResult{
				Healthy:  err == nil,
				Critical: check.critical,
				Message:  "OK",
				Duration: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				result.Message = err.Error()
			}
			results <- named{name, result}
		}(name, check)
	}

	wg.Wait()
	close(results)

	var failed []string
	for r := range results {
		status.Checks[r.name] = r.result
		if r.result.Healthy {
			continue
		}
		status.Healthy = false
		if r.result.Critical {
			status.Ready = false
		}
		failed = append(failed, r.name)
	}

	if status.Healthy {
		status.Message = "All checks passed"
	} else {
		sort.Strings(failed)
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	}

	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is anything that can verify its connection: the data store and the
// Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck creates a health check from a Pinger.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}
