package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBundle    = errors.New("bundle service worker")
	ErrInjection = errors.New("inject precache manifest")
)

// BundleError carries the messages reported by the bundler.
type BundleError struct {
	Entry    string
	Messages []string
	Err      error
}

func (e *BundleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", ErrBundle, e.Entry)
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *BundleError) Is(target error) bool {
	return target == ErrBundle
}

func (e *BundleError) Unwrap() error {
	return e.Err
}

// InjectionError wraps a precache engine rejection.
type InjectionError struct {
	SwSrc  string
	SwDest string
	Err    error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("%s into %s: %v", ErrInjection, e.SwDest, e.Err)
}

func (e *InjectionError) Is(target error) bool {
	return target == ErrInjection
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}
