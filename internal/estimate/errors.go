package estimate

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable failure category returned to clients
type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindNoComparables ErrorKind = "no_comparables"
	KindInternal      ErrorKind = "internal"
)

// InvalidInputError rejects a request before any comparable is read
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Kind() ErrorKind {
	return KindInvalidInput
}

// NoComparablesError means the suburb and property type have no sales to
// anchor an estimate on. Callers should ask for a broader search, not retry.
type NoComparablesError struct {
	Suburb       string
	PropertyType PropertyType
}

func (e *NoComparablesError) Error() string {
	return fmt.Sprintf("no comparable %s sales found in %s", e.PropertyType, e.Suburb)
}

func (e *NoComparablesError) Kind() ErrorKind {
	return KindNoComparables
}

// KindOf classifies any error returned by the calculator
func KindOf(err error) ErrorKind {
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return KindInvalidInput
	}
	var none *NoComparablesError
	if errors.As(err, &none) {
		return KindNoComparables
	}
	return KindInternal
}
