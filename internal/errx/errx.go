// Package errx wraps sentinel errors with call-specific detail while keeping
// them matchable with errors.Is.
package errx

import "fmt"

// Wrap attaches cause to sentinel so that errors.Is(result, sentinel) and
// errors.Is(result, cause) both hold.
func Wrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// With formats extra detail onto sentinel. format and args are applied with
// fmt.Sprintf and appended after sentinel's own message; a %w verb in format
// may reference a wrapped error the same way fmt.Errorf does.
func With(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w"+format, append([]any{sentinel}, args...)...)
}
