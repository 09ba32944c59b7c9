// Package circuitbreaker stops calling a failing dependency for a while so
// that callers fall back immediately instead of waiting on timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned when the circuit is open and calls are blocked.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe slots are taken.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// IsRejected reports whether err came from the breaker rather than from the
// protected call.
func IsRejected(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies this circuit breaker in logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes that
	// closes it again. Default: 2
	SuccessThreshold int

	// Timeout is the open-state cool-down. Default: 30s
	Timeout time.Duration

	// MaxHalfOpenRequests caps concurrent probes. Default: 1
	MaxHalfOpenRequests int

	// OnStateChange is called, under the breaker's lock, on every transition.
	OnStateChange func(name string, from, to State)

	// IsFailure classifies errors. Nil counts every non-nil error.
	IsFailure func(error) bool

	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns a Config with the defaults above.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// Option is a functional option for configuring the circuit breaker.
type Option func(*Config)

// WithFailureThreshold sets the failure threshold.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the success threshold.
func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

// WithTimeout sets the open-state cool-down.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithMaxHalfOpenRequests sets the number of half-open probes.
func WithMaxHalfOpenRequests(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxHalfOpenRequests = n
		}
	}
}

// WithOnStateChange sets the state change callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) {
		c.OnStateChange = fn
	}
}

// WithIsFailure sets the failure classifier.
func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) {
		c.IsFailure = fn
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// Counts holds the current counts for the circuit breaker.
type Counts struct {
	Requests             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker implements the closed / open / half-open state machine.
type CircuitBreaker struct {
	config Config

	mu               sync.Mutex
	state            State
	counts           Counts
	openedAt         time.Time
	halfOpenRequests int
}

// New creates a new CircuitBreaker with the given name and options.
func New(name string, opts ...Option) *CircuitBreaker {
	config := DefaultConfig(name)
	for _, opt := range opts {
		opt(&config)
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs fn if the circuit allows it and records the outcome. A
// rejected call returns ErrCircuitOpen or ErrTooManyRequests without running
// fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.config.Now().Sub(cb.openedAt) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.halfOpenRequests = 1
		return nil

	case StateHalfOpen:
		if cb.halfOpenRequests < cb.config.MaxHalfOpenRequests {
			cb.halfOpenRequests++
			return nil
		}
		return ErrTooManyRequests

	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++

	isFailure := err != nil
	if isFailure && cb.config.IsFailure != nil {
		isFailure = cb.config.IsFailure(err)
	}

	if isFailure {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if cb.state == StateHalfOpen {
		if cb.halfOpenRequests > 0 {
			cb.halfOpenRequests--
		}
		if cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	switch cb.state {
	case StateClosed:
		if cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		// one failed probe is enough
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.config.Now()
	cb.setState(StateOpen)
}

func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0
	cb.halfOpenRequests = 0

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, oldState, newState)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns the current counts.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the circuit and clears the counts.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.counts = Counts{}
	cb.halfOpenRequests = 0
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// CacheBreaker returns a breaker for an optional cache. It opens quickly and
// probes again after a short cool-down; errors for which isMiss returns true
// do not count as failures.
func CacheBreaker(isMiss func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(
		"cache",
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithTimeout(15*time.Second),
		WithMaxHalfOpenRequests(1),
		WithIsFailure(func(err error) bool { return isMiss == nil || !isMiss(err) }),
		WithOnStateChange(onStateChange),
	)
}
