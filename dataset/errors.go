package dataset

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrIO is returned, wrapped, when a partition or dataset file cannot be read, parsed or written.
var ErrIO = errors.New("dataset io error")

// IOError is a failure reading or writing a dataset file. It matches both ErrIO and its cause, so callers can
// test for fs.ErrNotExist and friends.
type IOError struct {
	Op  string
	Err error
}

// NewIOError returns an IOError describing the operation with format and args.
func NewIOError(cause error, format string, args ...interface{}) error {
	return &IOError{Op: fmt.Sprintf(format, args...), Err: cause}
}

func (e *IOError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns ErrIO and the cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}
