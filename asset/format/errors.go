package format

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic      = errors.New("bad magic number")
	ErrBlockNotFound = errors.New("block not found")
	ErrTruncated     = errors.New("truncated data")
	ErrBadBlock      = errors.New("invalid block header")
)

// A FormatError is returned when the input is not a well formed container:
// the magic number does not match, the requested block is missing or a read
// returns fewer bytes than declared.
type FormatError struct {
	// What was being read when the error occurred.
	Context string

	// The underlying cause; one of the Err* values or an io error.
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format: %s: %s", e.Context, e.Err.Error())
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(err error, ctxFormat string, args ...interface{}) error {
	return &FormatError{Context: fmt.Sprintf(ctxFormat, args...), Err: err}
}

// A CorruptDataError is returned when an index read from a file points
// outside the array it refers to, or when the tree topology is invalid.
type CorruptDataError struct {
	// The name of the offending field.
	Field string

	// The position of the record holding the field.
	Record int

	// The offending value and the exclusive upper bound it violated.
	Value int64
	Limit int64
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("format: corrupt data: %s of record %d is %d; expected a value in [0, %d)", e.Field, e.Record, e.Value, e.Limit)
}

// Check that [value, value+count) lies inside [0, limit).
func checkRange(field string, record int, value, count, limit int64) error {
	if value < 0 || count < 0 || value+count > limit {
		bad := value
		if value >= 0 && value < limit {
			bad = value + count - 1
		}
		return &CorruptDataError{Field: field, Record: record, Value: bad, Limit: limit}
	}
	return nil
}
