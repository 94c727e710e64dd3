package rrule

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("rrule: parse error")
	// ErrRange matches every *RangeError.
	ErrRange = errors.New("rrule: value out of range")

	errUnknownKey = errors.New("unknown key")
	errRequired   = errors.New("required")
	errNoValue    = errors.New("missing '='")
	errBadValue   = errors.New("invalid value")
)

// ParseError reports malformed rule text. Key is the offending part's
// key and Value, when set, the offending value.
type ParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("rrule: %s=%q: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("rrule: %s: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// RangeError reports a rule value outside its domain, such as
// BYMONTH=13. It is returned when an Iterator is built.
type RangeError struct {
	Key   string
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("rrule: %s value %d out of range", e.Key, e.Value)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }
