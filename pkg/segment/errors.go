package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTask is returned when a task name has no archetype mapping.
	ErrUnknownTask = errors.New("segment: unknown task")

	// ErrMissingChannel is returned when a configured channel name is
	// absent from the trial.
	ErrMissingChannel = errors.New("segment: required channel missing")

	// ErrInvalidThreshold is returned for conflicting threshold values.
	ErrInvalidThreshold = errors.New("segment: invalid threshold configuration")

	// ErrInsufficientData marks a trial too short or too degenerate to
	// segment. Segmenters never surface it to callers; they convert it to
	// an empty result with a diagnostic note, since a trial contributing
	// zero cycles is a normal occurrence in batch processing.
	ErrInsufficientData = errors.New("segment: insufficient data")
)

// ConfigurationError reports an invalid segmentation setup: an unknown task,
// a missing required channel name, or conflicting thresholds. It is raised
// at segmenter construction or invocation, before any signal processing, and
// is never converted to an empty result.
type ConfigurationError struct {
	Field  string // configuration field or task name at fault
	Reason string
	Err    error // sentinel for errors.Is matching
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("segment: configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("segment: configuration: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(sentinel error, field, format string, args ...any) error {
	return &ConfigurationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
		Err:    sentinel,
	}
}
