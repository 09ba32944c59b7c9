package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
)

// invalidationTimeout bounds a single cache round trip from a handler.
const invalidationTimeout = 2 * time.Second

// CacheInvalidator drops cached directory entries touched by an event.
func CacheInvalidator(cache school.DirectoryCache) shared.EventHandler {
	return func(event shared.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
		defer cancel()
		return cache.Invalidate(ctx, affectedClassroom(event))
	}
}

// affectedClassroom returns the classroom whose directory entry or roster
// changed, or zero when only the directory is affected.
func affectedClassroom(event shared.Event) shared.ID {
	switch e := event.(type) {
	case shared.StudentDeletedEvent:
		return e.ClassroomID
	case shared.ClassroomCreatedEvent, shared.ClassroomDeletedEvent, shared.StudentsEnrolledEvent:
		id, err := shared.ParseID(event.AggregateID())
		if err != nil {
			return 0
		}
		return id
	default:
		return 0
	}
}

// AuditLogger writes one structured line per committed change.
func AuditLogger(logger *slog.Logger) shared.EventHandler {
	return func(event shared.Event) error {
		attrs := []any{
			"event_type", string(event.EventType()),
			"aggregate_id", event.AggregateID(),
			"occurred_at", event.OccurredAt(),
		}
		for k, v := range event.Payload() {
			attrs = append(attrs, k, v)
		}
		logger.Info("audit", attrs...)
		return nil
	}
}

// CacheEvents lists the events that change the classroom directory or a
// roster. Attendance submissions change neither.
var CacheEvents = []shared.EventType{
	shared.EventClassroomCreated,
	shared.EventClassroomDeleted,
	shared.EventStudentsEnrolled,
	shared.EventStudentDeleted,
}

// RegisterSubscribers wires the audit log and, when cache is non-nil, cache
// invalidation onto bus.
func RegisterSubscribers(bus shared.EventSubscriber, cache school.DirectoryCache, logger *slog.Logger) error {
	d := NewDispatcher(bus, logger)

	if err := d.Register("audit", AuditLogger(logger)); err != nil {
		return err
	}
	if cache == nil {
		return nil
	}

	inv := NewDispatcher(bus, logger, RetryMiddleware(3, 50*time.Millisecond))
	return inv.Register("cache-invalidation", CacheInvalidator(cache), CacheEvents...)
}
