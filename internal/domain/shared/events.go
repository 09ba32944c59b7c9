package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents a committed change to the store.
const (
	// Classroom events
	EventClassroomCreated EventType = "classroom.created"
	EventClassroomDeleted EventType = "classroom.deleted"

	// Student events
	EventStudentsEnrolled EventType = "student.enrolled"
	EventStudentDeleted   EventType = "student.deleted"

	// Attendance events
	EventAttendanceSubmitted EventType = "attendance.submitted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID ID) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID.String(),
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Classroom Events
// ═══════════════════════════════════════════════════════════════════════════

// ClassroomCreatedEvent is emitted after a classroom is persisted.
type ClassroomCreatedEvent struct {
	BaseEvent
	Name string `json:"name"`
}

// Payload implements Event interface.
func (e ClassroomCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"name": e.Name}
}

// NewClassroomCreatedEvent creates a new ClassroomCreatedEvent.
func NewClassroomCreatedEvent(classroomID ID, name string) ClassroomCreatedEvent {
	return ClassroomCreatedEvent{
		BaseEvent: NewBaseEvent(EventClassroomCreated, classroomID),
		Name:      name,
	}
}

// ClassroomDeletedEvent is emitted after an empty classroom is removed.
type ClassroomDeletedEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e ClassroomDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewClassroomDeletedEvent creates a new ClassroomDeletedEvent.
func NewClassroomDeletedEvent(classroomID ID) ClassroomDeletedEvent {
	return ClassroomDeletedEvent{BaseEvent: NewBaseEvent(EventClassroomDeleted, classroomID)}
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentsEnrolledEvent is emitted after one or more students are added to a
// classroom, either singly or by bulk import.
type StudentsEnrolledEvent struct {
	BaseEvent
	StudentIDs []ID `json:"student_ids"`
}

// Payload implements Event interface.
func (e StudentsEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_ids": e.StudentIDs,
		"count":       len(e.StudentIDs),
	}
}

// NewStudentsEnrolledEvent creates a new StudentsEnrolledEvent. The aggregate
// is the classroom the students joined.
func NewStudentsEnrolledEvent(classroomID ID, studentIDs []ID) StudentsEnrolledEvent {
	return StudentsEnrolledEvent{
		BaseEvent:  NewBaseEvent(EventStudentsEnrolled, classroomID),
		StudentIDs: studentIDs,
	}
}

// StudentDeletedEvent is emitted after a student and its attendance history
// have been removed.
type StudentDeletedEvent struct {
	BaseEvent
	ClassroomID       ID  `json:"classroom_id"`
	AttendanceRemoved int `json:"attendance_removed"`
}

// Payload implements Event interface.
func (e StudentDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"classroom_id":       e.ClassroomID,
		"attendance_removed": e.AttendanceRemoved,
	}
}

// NewStudentDeletedEvent creates a new StudentDeletedEvent.
func NewStudentDeletedEvent(studentID, classroomID ID, attendanceRemoved int) StudentDeletedEvent {
	return StudentDeletedEvent{
		BaseEvent:         NewBaseEvent(EventStudentDeleted, studentID),
		ClassroomID:       classroomID,
		AttendanceRemoved: attendanceRemoved,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceSubmittedEvent is emitted after a roster's attendance for one day
// has been recorded.
type AttendanceSubmittedEvent struct {
	BaseEvent
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// Payload implements Event interface.
func (e AttendanceSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"date":    e.Date,
		"present": e.Present,
		"absent":  e.Absent,
	}
}

// NewAttendanceSubmittedEvent creates a new AttendanceSubmittedEvent.
func NewAttendanceSubmittedEvent(classroomID ID, date string, present, absent int) AttendanceSubmittedEvent {
	return AttendanceSubmittedEvent{
		BaseEvent: NewBaseEvent(EventAttendanceSubmitted, classroomID),
		Date:      date,
		Present:   present,
		Absent:    absent,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
