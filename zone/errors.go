package zone

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is returned when the apex or default TTL header line is missing or unparseable
	ErrMalformedHeader = errors.New("malformed zone header")
	// ErrMalformedRecordLine is returned when a record line does not follow master file grammar
	ErrMalformedRecordLine = errors.New("malformed record line")
)

// HeaderError describes a header line that could not be parsed.
type HeaderError struct {
	Line int // 1-based line number
	Text string
	Err  error
}

func (e *HeaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s %q: %v", e.Line, ErrMalformedHeader, e.Text, e.Err)
	}
	return fmt.Sprintf("line %d: %s %q", e.Line, ErrMalformedHeader, e.Text)
}

// Unwrap allows errors.Is to match both ErrMalformedHeader and the cause.
func (e *HeaderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedHeader}
	}
	return []error{ErrMalformedHeader, e.Err}
}

// RecordError describes a record line that could not be parsed.
type RecordError struct {
	Line int // 1-based line number
	Text string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, ErrMalformedRecordLine, e.Text, e.Err)
}

// Unwrap allows errors.Is to match both ErrMalformedRecordLine and the cause.
func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecordLine}
	}
	return []error{ErrMalformedRecordLine, e.Err}
}
