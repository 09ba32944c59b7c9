// Package messaging implements the in-process event bus that carries domain
// events from the write side to their subscribers (cache invalidation and
// the audit log).
package messaging

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/classroll/classroll/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus is a simple in-memory implementation of shared.EventBus.
// In sync mode Publish returns after every handler has run, which keeps
// cache invalidation ordered with the write that caused it.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *slog.Logger
	metrics     *EventBusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent workers for async processing
	WorkerPoolSize int

	// Logger for structured logging
	Logger *slog.Logger

	// EnableMetrics enables metrics collection
	EnableMetrics bool
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      false,
		WorkerPoolSize: 4,
		EnableMetrics:  true,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 4
	}

	bus := &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger,
		closeCh:    make(chan struct{}),
	}

	if config.EnableMetrics {
		bus.metrics = NewEventBusMetrics()
	}

	return bus
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)

	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	b.logger.Debug("subscribed global handler")

	return nil
}

// Publish sends an event to all subscribed handlers. Handler failures are
// logged, never returned: the write that produced the event has already
// committed.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.RecordPublish(event.EventType())
	}

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	for _, handler := range handlers {
		if b.asyncMode {
			b.executeAsync(event, handler)
			continue
		}
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}

	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.logger.Error("async handler error", "event_type", event.EventType(), "error", err)
		}
	}()
}

func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) error {
	start := time.Now()
	err := handler(event)
	if b.metrics != nil {
		b.metrics.RecordHandlerExecution(event.EventType(), time.Since(start), err == nil)
	}
	return err
}

// Close stops accepting events and waits for in-flight async handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// Wait blocks until all async handlers started so far have finished.
func (b *InMemoryEventBus) Wait() {
	b.wg.Wait()
}

// Metrics returns the metrics collector, or nil when disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics tracks event bus counters.
type EventBusMetrics struct {
	mu sync.RWMutex

	published            map[shared.EventType]int64
	handlerExecutions    int64
	handlerFailures      int64
	handlerTotalDuration time.Duration
}

// NewEventBusMetrics creates new metrics tracker.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{published: make(map[shared.EventType]int64)}
}

// RecordPublish records a publish event.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
}

// RecordHandlerExecution records a handler execution.
func (m *EventBusMetrics) RecordHandlerExecution(_ shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlerExecutions++
	m.handlerTotalDuration += duration
	if !success {
		m.handlerFailures++
	}
}

// Snapshot returns a copy of current metrics.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := EventBusMetricsSnapshot{
		PublishedByType:   make(map[shared.EventType]int64, len(m.published)),
		TotalHandlerExecs: m.handlerExecutions,
		HandlerFailures:   m.handlerFailures,
	}
	for t, n := range m.published {
		snap.PublishedByType[t] = n
		snap.TotalPublished += n
	}
	if m.handlerExecutions > 0 {
		snap.AverageHandlerDuration = m.handlerTotalDuration / time.Duration(m.handlerExecutions)
	}
	return snap
}

// EventBusMetricsSnapshot is a point-in-time snapshot of metrics.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	PublishedByType        map[shared.EventType]int64
	TotalHandlerExecs      int64
	HandlerFailures        int64
	AverageHandlerDuration time.Duration
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilEvent is returned when publishing a nil event.
	ErrNilEvent = errors.New("event cannot be nil")
)
