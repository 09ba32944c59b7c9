// Package attendance contains the attendance record, its repository contract
// and the pure aggregation used by reports.
package attendance

import (
	"time"

	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the attendance status of a student on a day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

// ParseStatus accepts exactly "Present" or "Absent".
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPresent, StatusAbsent:
		return Status(s), nil
	default:
		return "", shared.ErrInvalidStatus
	}
}

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// StatusFor returns Present when present is true, Absent otherwise.
func StatusFor(present bool) Status {
	if present {
		return StatusPresent
	}
	return StatusAbsent
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is a single (student, date, status) fact.
type Record struct {
	ID        shared.ID
	StudentID shared.ID

	// Date is a calendar date, midnight UTC.
	Date   time.Time
	Status Status
}

// NewRecord builds an unsaved record. A zero date means the calendar date of
// now, which callers pass in the school's time zone.
func NewRecord(studentID shared.ID, date time.Time, status Status, now time.Time) (*Record, error) {
	if !studentID.IsValid() {
		return nil, shared.Validation("attendance", "Create", "student id is required")
	}
	if !status.IsValid() {
		return nil, shared.ErrInvalidStatus
	}
	if date.IsZero() {
		date = now
	}
	return &Record{
		StudentID: studentID,
		Date:      timeutil.Day(date),
		Status:    status,
	}, nil
}

// IsPresent reports whether the record is a Present mark.
func (r *Record) IsPresent() bool {
	return r.Status == StatusPresent
}

// Row is a record joined with its student, as returned by report queries.
type Row struct {
	RecordID    shared.ID
	StudentID   shared.ID
	StudentName string
	ClassroomID shared.ID
	Date        time.Time
	Status      Status
}
