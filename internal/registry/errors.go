package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("registry: not found")
	// ErrMalformedData is matched by every MalformedDataError.
	ErrMalformedData = errors.New("registry: malformed data")
)

// NotFoundError reports an unknown station, field or derived quantity.
type NotFoundError struct {
	Kind string // "station", "field", "phase centre", "hba rotation"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: %s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MalformedDataError reports structurally invalid input found while building
// a Registry. Row is the 1-based data row, or 0 for header problems.
type MalformedDataError struct {
	Table  string
	Row    int
	Reason string
	Err    error
}

func (e *MalformedDataError) Error() string {
	msg := "registry: malformed " + e.Table
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedDataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedData}
	}
	return []error{ErrMalformedData, e.Err}
}

func stationNotFound(name string) error {
	return &NotFoundError{Kind: "station", Key: name}
}

func fieldNotFound(station, field string) error {
	return &NotFoundError{Kind: "field", Key: station + " " + field}
}
