package scan

import (
	"errors"
	"fmt"
)

var errNoReaders = errors.New("a scan must contain at least one reader")

// SetupError is returned when the scan cannot start a reader.
type SetupError struct {
	Reader string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Reader == "" {
		return fmt.Sprintf("scan setup failed: %v", e.Err)
	}
	return fmt.Sprintf("setup failed for reader %s: %v", e.Reader, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// OutOfMemoryError is returned when buffers for a batch could not be
// reserved. Callers may back off and retry at a higher level.
type OutOfMemoryError struct {
	Reader string
	Err    error
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("out of memory reading %s: %v", e.Reader, e.Err)
}

func (e *OutOfMemoryError) Unwrap() error { return e.Err }

// SystemError wraps any other reader failure with the reader it came from.
type SystemError struct {
	Reader string
	Path   string
	Err    error
}

func (e *SystemError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("reader %s failed on %s: %v", e.Reader, e.Path, e.Err)
	}
	return fmt.Sprintf("reader %s failed: %v", e.Reader, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// SchemaChangeError is returned when a field is added with a column type
// other than the one its type maps to.
type SchemaChangeError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *SchemaChangeError) Error() string {
	return fmt.Sprintf("field %s: requested column %s does not match column %s", e.Field, e.Expected, e.Actual)
}
