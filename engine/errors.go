/*
errors.go - Centralized error types for the aggregation engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Outer layers (store, api) wrap these with transport/persistence context.

ERROR CATEGORIES:
  1. Key errors        - Malformed month/date keys
  2. Validation errors - Business rule violations (lot ranges, quantities)
  3. Lookup errors     - Referenced entities missing from the dataset

USAGE:
  if errors.Is(err, engine.ErrSectorNotFound) { ... }

SEE ALSO:
  - rollup.go: Uses lookup errors
  - bucketing.go: Uses LotConfigError
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidMonthKey is returned when a month key is not YYYY-MM.
	ErrInvalidMonthKey = errors.New("invalid month key")

	// ErrInvalidDateKey is returned when a date key is not YYYY-MM-DD.
	ErrInvalidDateKey = errors.New("invalid date key")

	// ErrSectorNotFound is returned when a referenced sector doesn't exist.
	ErrSectorNotFound = errors.New("sector not found")

	// ErrRequestNotFound is returned when a referenced request doesn't exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidQuantity is returned when a request carries a non-positive
	// extras or days quantity.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidLotRange is returned when a lot's day range is malformed
	// (start < 1, end < start, end beyond the month).
	ErrInvalidLotRange = errors.New("invalid lot day range")

	// ErrUnknownMetric is returned for a rollup metric outside {extras, clt, total}.
	ErrUnknownMetric = errors.New("unknown rollup metric")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// LotConfigError describes a problem with a month's lot configuration:
// either a malformed range or a coverage/overlap violation.
type LotConfigError struct {
	Month   MonthKey
	LotID   int
	LotName string
	Code    string // "invalid_range", "overlap", "uncovered_day"
	Day     int    // set for overlap/uncovered_day
}

func (e *LotConfigError) Error() string {
	switch e.Code {
	case "overlap":
		return fmt.Sprintf("lot config %s: day %d covered by more than one lot (lot %q)", e.Month, e.Day, e.LotName)
	case "uncovered_day":
		return fmt.Sprintf("lot config %s: day %d not covered by any lot", e.Month, e.Day)
	default:
		return fmt.Sprintf("lot config %s: lot %q has an invalid day range", e.Month, e.LotName)
	}
}

func (e *LotConfigError) Unwrap() error { return ErrInvalidLotRange }

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSectorNotFound) || errors.Is(err, ErrRequestNotFound)
}
