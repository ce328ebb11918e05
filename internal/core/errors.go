package core

// errors.go defines the error taxonomy of a roll-up run.
//
// Fatal errors halt the run before any output is produced:
//   - UnreadableWorkbookError: the bytes are not a spreadsheet
//   - SheetNotFoundError: the requested sheet is absent
//
// ConfigurationError is recoverable: the user picks another column.
// Cell-level problems are never errors; see normalize.go.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the Service.
var (
	ErrDatasetNotFound = errors.New("dataset not found or expired")
	ErrRunNotFound     = errors.New("run not found or expired")
	ErrEmptyFile       = errors.New("empty file")
	ErrNoFile          = errors.New("no file provided")
	ErrNoHeaderRow     = errors.New("sheet has no header row")
)

// UnreadableWorkbookError reports bytes that could not be opened as a workbook.
type UnreadableWorkbookError struct {
	FileName string
	Err      error
}

func (e *UnreadableWorkbookError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("unreadable workbook %q: %v", e.FileName, e.Err)
	}
	return fmt.Sprintf("unreadable workbook: %v", e.Err)
}

func (e *UnreadableWorkbookError) Unwrap() error { return e.Err }

// SheetNotFoundError reports a sheet name that is not in the workbook.
type SheetNotFoundError struct {
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found (available sheets: %s)", e.Sheet, strings.Join(e.Available, ", "))
}

// ConfigurationError reports an invalid column selection or load option.
type ConfigurationError struct {
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Column == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for column %q: %s", e.Column, e.Reason)
}

// Reasons used by ConfigurationError.
const (
	ReasonColumnMissing  = "column does not exist"
	ReasonGroupNotText   = "group-by column must be a text column"
	ReasonValueNotNumber = "value column must be a numeric column"
	ReasonNegativeSkip   = "header skip count must not be negative"
)

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
