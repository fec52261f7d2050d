package domain

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks invalid user input: bad dates, unknown parameters
// or columns, missing shapes or credentials.
var ErrConfiguration = errors.New("configuration error")

// ErrEmptyResponse is returned when a remote source yields no usable rows
// for a required unit of work.
var ErrEmptyResponse = errors.New("empty response")

// ConfigError wraps ErrConfiguration with a formatted message.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// FetchError is returned once every retry attempt against a URL has failed.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: giving up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap returns the error of the last attempt.
func (e *FetchError) Unwrap() error { return e.Err }
