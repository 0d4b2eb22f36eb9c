package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Source errors
	ErrDataSource   = errors.New("data source unreadable")
	ErrColumnFormat = errors.New("column does not match year/metric naming")

	// Lookup errors
	ErrNotFound     = errors.New("resource not found")
	ErrViewNotFound = fmt.Errorf("%w: view", ErrNotFound)

	// Presentation errors
	ErrUnsupportedChart = errors.New("unsupported chart kind")
)

// DataSourceError reports a file that is missing or unparsable under every
// candidate encoding.
type DataSourceError struct {
	Source   string
	Attempts []string
	Cause    error
}

func (e *DataSourceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s", ErrDataSource, e.Source)
	if len(e.Attempts) > 0 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(e.Attempts, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *DataSourceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrDataSource}
	}
	return []error{ErrDataSource, e.Cause}
}

// ColumnFormatError names the column that broke the year/metric convention.
type ColumnFormatError struct {
	Column string
	Reason string
}

func (e *ColumnFormatError) Error() string {
	return fmt.Sprintf("%v: %q: %s", ErrColumnFormat, e.Column, e.Reason)
}

func (e *ColumnFormatError) Unwrap() error {
	return ErrColumnFormat
}

// Error constructors with context
func NewDataSourceError(source string, attempts []string, cause error) error {
	return &DataSourceError{Source: source, Attempts: attempts, Cause: cause}
}

func NewColumnFormatError(column, reason string) error {
	return &ColumnFormatError{Column: column, Reason: reason}
}

func NewViewNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrViewNotFound, id)
}

// Error checking helpers
func IsDataSourceError(err error) bool {
	return errors.Is(err, ErrDataSource)
}

func IsColumnFormatError(err error) bool {
	return errors.Is(err, ErrColumnFormat)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// OffendingColumn extracts the column name from a ColumnFormatError chain.
func OffendingColumn(err error) (string, bool) {
	var cfe *ColumnFormatError
	if errors.As(err, &cfe) {
		return cfe.Column, true
	}
	return "", false
}
