// Package errors collects the sentinel errors and category checkers used
// across the storage engine. Every kind from the error taxonomy
// (NotFound, IOFailure, LogicFault, InvalidOption) has one or more
// sentinel values here, plus helpers to classify a wrapped error and a
// ValidationErrors collector used by option validation.
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors, grouped by kind.
// ============================================================================

var (
	// NotFound
	ErrMetricNotFound = errors.New("metric not found")
	ErrPageNotFound   = errors.New("page not found")

	// IOFailure
	ErrIOFailure = errors.New("page store I/O failure")

	// LogicFault
	ErrLogicFault          = errors.New("logic fault")
	ErrColumnKindMismatch  = errors.New("merge: column kind mismatch")
	ErrMergeOrderViolation = errors.New("merge: wrong order")
	ErrNotAMultiple        = errors.New("rescale: new interval is not a multiple of the current interval")
	ErrAvgUnsupported      = errors.New("avg column does not support write or merge")
	ErrAvgShapeMismatch    = errors.New("avg synthesis: sum and count columns have mismatched interval or start time")

	// InvalidOption
	ErrInvalidOption          = errors.New("invalid option")
	ErrAggregationNone        = errors.New("aggregation type may not be None")
	ErrNoFlushThreshold       = errors.New("memtable must configure max_bytes_size or max_age")
	ErrLevelIntervalMismatch  = errors.New("level 0 interval must equal the memtable bucket interval")
	ErrLevelIntervalNotMultiple = errors.New("level interval must be a multiple of the previous level's interval")
	ErrRawNotPrefix           = errors.New("store_raw may only be set on a prefix of the level chain")
)

// Is is a convenience wrapper for errors.Is.
var Is = errors.Is

// As is a convenience wrapper for errors.As.
var As = errors.As

// IsNotFound reports whether err is, or wraps, a NotFound-kind sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMetricNotFound) || errors.Is(err, ErrPageNotFound)
}

// IsIOFailure reports whether err is, or wraps, an IOFailure.
func IsIOFailure(err error) bool {
	return errors.Is(err, ErrIOFailure)
}

// IsLogicFault reports whether err is, or wraps, a LogicFault-kind
// sentinel.
func IsLogicFault(err error) bool {
	return errors.Is(err, ErrLogicFault) ||
		errors.Is(err, ErrColumnKindMismatch) ||
		errors.Is(err, ErrMergeOrderViolation) ||
		errors.Is(err, ErrNotAMultiple) ||
		errors.Is(err, ErrAvgUnsupported) ||
		errors.Is(err, ErrAvgShapeMismatch)
}

// IsInvalidOption reports whether err is, or wraps, an InvalidOption.
func IsInvalidOption(err error) bool {
	return errors.Is(err, ErrInvalidOption) ||
		errors.Is(err, ErrAggregationNone) ||
		errors.Is(err, ErrNoFlushThreshold) ||
		errors.Is(err, ErrLevelIntervalMismatch) ||
		errors.Is(err, ErrLevelIntervalNotMultiple) ||
		errors.Is(err, ErrRawNotPrefix)
}

// Wrap adds context to err, or returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to err, or returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewNotFound builds a NotFound error naming the missing entity.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s %q: %w", entityType, identifier, ErrMetricNotFound)
}

// ============================================================================
// ValidationErrors — collects every InvalidOption violation found during
// InitMetric / Config.Validate instead of failing on the first one.
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors returns a fresh, empty collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add appends err to the collection, ignoring nil.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField appends a field-scoped InvalidOption error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidOption))
}

// HasErrors reports whether any error has been collected.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}
	msg := fmt.Sprintf("invalid options: %d violations:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors were collected, else the collector itself.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first collected error, for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
