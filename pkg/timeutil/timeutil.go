// Package timeutil provides school-timezone utilities.
// Attendance is recorded per calendar day, and "today" depends on where the
// school is, not on where the server runs. Calendar dates are represented as
// midnight UTC so they compare and serialize identically in every store.
// No external dependencies - uses only standard library.
package timeutil

import (
	"strings"
	"time"
	_ "time/tzdata" // zone names must resolve on minimal images
)

// Common date/time formats.
const (
	// LayoutDate is the standard date format (YYYY-MM-DD).
	LayoutDate = "2006-01-02"
	// LayoutDateTime is the standard datetime format.
	LayoutDateTime = "2006-01-02 15:04"
	// LayoutHumanDate is a human-readable format.
	LayoutHumanDate = "Mon, 2 Jan 2006"
)

// LoadLocation resolves an IANA zone name. An empty name means UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock reports the current time in the school's time zone.
// The zero value is not usable; construct with NewClock or FixedClock.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a wall clock in loc. A nil loc means UTC.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// FixedClock returns a clock that always reports t. Intended for tests.
func FixedClock(t time.Time, loc *time.Location) *Clock {
	c := NewClock(loc)
	c.now = func() time.Time { return t }
	return c
}

// Location returns the school's time zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the school's time zone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the school's current calendar date.
func (c *Clock) Today() time.Time {
	return Day(c.Now())
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR DATES
// ══════════════════════════════════════════════════════════════════════════════

// Day returns the calendar date of t (as seen in t's own location) as
// midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(LayoutDate, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(LayoutDate)
}

// FormatHuman formats a calendar date for display, e.g. "Mon, 2 Sep 2024".
func FormatHuman(t time.Time) string {
	return t.Format(LayoutHumanDate)
}
