package contracts

import (
	"errors"
	"fmt"
)

// ErrInvalidCapital is returned when initial capital is not strictly positive
var ErrInvalidCapital = errors.New("initial capital must be greater than zero")

// ErrNumericOverflow is returned when aggregated P&L leaves the float64 range
var ErrNumericOverflow = errors.New("metrics overflow float64 range")

// MalformedInputError means the uploaded document cannot be interpreted.
// Key names the offending strategy label or top-level field.
type MalformedInputError struct {
	Key    string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed input at %q", e.Key)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Leg identifies which side of a round trip a value came from
type Leg string

const (
	LegEntry Leg = "entry"
	LegExit  Leg = "exit"
)

// FieldParseError reports a price, quantity or side that could not be used.
// RoundTrip is zero-based.
type FieldParseError struct {
	RoundTrip int
	Leg       Leg
	Field     string
	Value     string
	Err       error
}

func (e *FieldParseError) Error() string {
	msg := fmt.Sprintf("round trip %d (%s leg): invalid %s %q", e.RoundTrip, e.Leg, e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldParseError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is caused by bad input rather than infrastructure
func IsInputError(err error) bool {
	var malformed *MalformedInputError
	var field *FieldParseError
	return errors.As(err, &malformed) || errors.As(err, &field) || errors.Is(err, ErrInvalidCapital) || errors.Is(err, ErrNumericOverflow)
}
