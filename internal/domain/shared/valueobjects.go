package shared

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// ID is a store-assigned entity identifier. Zero means "not yet persisted".
type ID int64

// IsValid checks if the ID refers to a persisted entity.
func (i ID) IsValid() bool {
	return i > 0
}

// Int64 returns the underlying int64 value.
func (i ID) Int64() int64 {
	return int64(i)
}

// String returns the decimal representation.
func (i ID) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// ParseID parses a decimal id. Blank input yields (0, nil) so that optional
// form fields can be passed straight through.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidFormat
	}
	return ID(v), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Name Value Object
// ═══════════════════════════════════════════════════════════════════════════

// MaxNameLength matches the width of the name columns.
const MaxNameLength = 100

// Name is a trimmed, non-empty display name of a classroom or a student.
type Name string

// NewName trims s and validates it.
func NewName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyValue
	}
	if utf8.RuneCountInString(s) > MaxNameLength {
		return "", ErrTooLong
	}
	return Name(s), nil
}

// String returns the string representation.
func (n Name) String() string {
	return string(n)
}
