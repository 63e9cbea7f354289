package precache

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every option validation failure.
	ErrValidation = errors.New("invalid precache options")
	// ErrInjectionPoint is matched when the injection point cannot be used.
	ErrInjectionPoint = errors.New("injection point")
)

// ValidationError reports a rejected option.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InjectionPointError reports a source file whose injection point is missing
// or ambiguous.
type InjectionPointError struct {
	Path           string
	InjectionPoint string
	Occurrences    int
}

func (e *InjectionPointError) Error() string {
	if e.Occurrences == 0 {
		return fmt.Sprintf("unable to find a place to inject the manifest: %s does not reference %s", e.Path, e.InjectionPoint)
	}
	return fmt.Sprintf("multiple instances of %s were found in %s; it must appear exactly once", e.InjectionPoint, e.Path)
}

func (e *InjectionPointError) Is(target error) bool {
	return target == ErrInjectionPoint
}
