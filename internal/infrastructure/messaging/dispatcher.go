package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher registers named handlers on an event bus, wrapping each with
// the configured middleware chain.
type Dispatcher struct {
	bus         shared.EventSubscriber
	middlewares []Middleware
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher over bus. Recovery and logging
// middleware are always installed, outermost first.
func NewDispatcher(bus shared.EventSubscriber, logger *slog.Logger, extra ...Middleware) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	mws := append([]Middleware{RecoveryMiddleware(logger), LoggingMiddleware(logger)}, extra...)
	return &Dispatcher{bus: bus, middlewares: mws, logger: logger}
}

// Register subscribes handler to the given event types. With no types the
// handler receives every event.
func (d *Dispatcher) Register(name string, handler shared.EventHandler, types ...shared.EventType) error {
	if handler == nil {
		return ErrNilHandler
	}

	wrapped := d.wrap(name, handler)

	if len(types) == 0 {
		if err := d.bus.SubscribeAll(wrapped); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		d.logger.Debug("registered handler", "handler", name, "event_type", "*")
		return nil
	}

	for _, t := range types {
		if err := d.bus.Subscribe(t, wrapped); err != nil {
			return fmt.Errorf("register %s for %s: %w", name, t, err)
		}
		d.logger.Debug("registered handler", "handler", name, "event_type", t)
	}
	return nil
}

func (d *Dispatcher) wrap(name string, handler shared.EventHandler) shared.EventHandler {
	named := func(event shared.Event) error {
		if err := handler(event); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	h := shared.EventHandler(named)
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		h = d.middlewares[i](h)
	}
	return h
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs handler execution.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			duration := time.Since(start)

			if err != nil {
				logger.Error("handler failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", duration,
					"error", err,
				)
			} else {
				logger.Debug("handler completed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", duration,
				)
			}

			return err
		}
	}
}

// RetryMiddleware re-runs a failing handler with backoff. Handlers that must
// not be retried return retry.Permanent errors.
func RetryMiddleware(attempts int, initialDelay time.Duration) Middleware {
	p := retry.Policy{Attempts: attempts, Delay: initialDelay, MaxDelay: time.Second}
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			return p.Do(context.Background(), func(context.Context) error {
				return next(event)
			})
		}
	}
}
