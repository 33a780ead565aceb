package ingest

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError reports input the caller can fix: a bad filename,
// an empty file or a header without the required columns.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RowError is a single rejected data row. Line is 1-based and counts
// the header.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// stepError names what an importer was doing when storage failed.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func stepFailed(step string, err error) error {
	return &stepError{step: step, err: err}
}

// ImportError reports a file that passed validation but could not be
// stored. Error includes the underlying cause, which may carry database
// driver detail; Summary does not.
type ImportError struct {
	Filename    string
	IngestionID string // empty when the ingestion log was never created
	Rows        int    // rows written before the failure
	Step        string
	Err         error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Filename, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Summary describes the failure in terms safe to show the uploader.
func (e *ImportError) Summary() string {
	msg := e.Step + " failed"
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		msg += ": timed out"
	case errors.Is(e.Err, context.Canceled):
		msg += ": canceled"
	}
	if e.Rows > 0 {
		msg += fmt.Sprintf(" after %d rows were stored", e.Rows)
	}
	return msg
}

func newImportError(filename, ingestionID string, rows int, err error) *ImportError {
	step := "store rows"
	var se *stepError
	if errors.As(err, &se) {
		step = se.step
	}
	return &ImportError{Filename: filename, IngestionID: ingestionID, Rows: rows, Step: step, Err: err}
}
