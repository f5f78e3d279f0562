/*
errors.go - Centralized error taxonomy for the report pipeline

PURPOSE:
  All error types in one place. A run either aborts completely (nothing is
  written for the week) or degrades with a logged warning; which of the two
  happens is decided by which sentinel the error wraps.

ERROR CATEGORIES:
  1. Fatal ingestion errors - bad filename, unsupported format, missing
     header. The whole run aborts before any store write.
  2. Degrading errors - empty reference data. The run continues with
     defaults (TBD-for-all, no exclusions) and logs a warning.
  3. Edit errors - missing record, concurrent modification. Reported to
     the caller of the manual-override path, never retried internally.

USAGE:
  Structured errors wrap the sentinels so callers can branch:

    if errors.Is(err, report.ErrHeaderNotFound) { ... }

    var hdrErr *report.HeaderNotFoundError
    if errors.As(err, &hdrErr) { log sheet/column }
*/
package report

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidFilename is returned when no whitespace-delimited segment of
	// the source file name parses as a DDMonYYYY date token.
	ErrInvalidFilename = errors.New("filename contains no parseable date token")

	// ErrUnsupportedFormat is returned for workbook extensions outside the
	// fixed extension→engine table.
	ErrUnsupportedFormat = errors.New("unsupported workbook format")

	// ErrHeaderNotFound is returned when the bounded header scan exhausts
	// without finding the expected column label. Fatal: the run never
	// proceeds with a guessed header offset.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrMissingColumn is returned when a located header row lacks one of
	// the required columns. Fatal, same policy as ErrHeaderNotFound.
	ErrMissingColumn = errors.New("required column missing")

	// ErrMissingReferenceData signals an empty billing map or exclusion
	// list. Non-fatal: the run degrades to defaults and logs a warning.
	ErrMissingReferenceData = errors.New("reference data empty")

	// ErrRecordNotFound is returned when a manual-edit target is absent.
	ErrRecordNotFound = errors.New("report record not found")

	// ErrConcurrentModification is returned when optimistic locking detects
	// that a record changed between read and write of a manual edit.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the sheet/column/resource implicated
// =============================================================================

// InvalidFilenameError reports the file name that failed date extraction.
type InvalidFilenameError struct {
	Filename string
}

func (e *InvalidFilenameError) Error() string {
	return fmt.Sprintf("filename %q does not contain a date token like 10Apr2025", e.Filename)
}

func (e *InvalidFilenameError) Unwrap() error { return ErrInvalidFilename }

// UnsupportedFormatError reports a workbook extension with no engine.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported workbook format %q", e.Extension)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// HeaderNotFoundError names the sheet and the column label that the
// bounded scan failed to locate.
type HeaderNotFoundError struct {
	Sheet   string
	Column  string
	Scanned int // rows examined before giving up
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("header containing %q not found in sheet %q (scanned %d rows)",
		e.Column, e.Sheet, e.Scanned)
}

func (e *HeaderNotFoundError) Unwrap() error { return ErrHeaderNotFound }

// MissingColumnError names a required column absent from a located header.
type MissingColumnError struct {
	Sheet  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %q is missing required column %q", e.Sheet, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// RecordNotFoundError identifies the missing manual-edit target.
type RecordNotFoundError struct {
	ID       int64
	Resource ResourceID
	Date     time.Time
}

func (e *RecordNotFoundError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("report record %d not found", e.ID)
	}
	return fmt.Sprintf("report record for %s on %s not found",
		e.Resource, e.Date.Format("2006-01-02"))
}

func (e *RecordNotFoundError) Unwrap() error { return ErrRecordNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal reports whether an ingestion error must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidFilename) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrHeaderNotFound) ||
		errors.Is(err, ErrMissingColumn)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsConflict reports whether the error is a lost-update conflict that the
// caller may retry after re-reading.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
