package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCoverage is returned by a ReaderFactory when the requested point
	// lies outside the spatial coverage of a grid. It is the only meaning of
	// a missing reader; every other Open error is a store failure.
	ErrNoCoverage = errors.New("grid does not cover location")

	// ErrNoDataForLocation is returned when none of the requested domains
	// has a single grid covering the point.
	ErrNoDataForLocation = errors.New("no data is available for this location")
)

// ValidationError reports a request parameter outside its allowed values.
type ValidationError struct {
	Param   string
	Given   any
	Allowed string
}

func (e *ValidationError) Error() string {
	if e.Allowed == "" {
		return fmt.Sprintf("parameter %s is invalid: given %v", e.Param, e.Given)
	}
	return fmt.Sprintf("parameter %s is invalid: given %v, allowed %s", e.Param, e.Given, e.Allowed)
}

func invalid(param string, given any, allowed string) error {
	return &ValidationError{Param: param, Given: given, Allowed: allowed}
}
