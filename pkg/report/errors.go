package report

import (
	"errors"
	"fmt"
)

var (
	errNoNumber  = errors.New("no numeric value found")
	errNoPosture = errors.New("no known posture keyword")
)

// FieldError records a failure to extract one field. The field keeps its
// default value.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DocumentError records an unexpected failure while walking the whole
// document. Fields resolved before the failure are kept.
type DocumentError struct {
	Cause interface{}
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("report extraction aborted: %v", e.Cause)
}

func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

func IsDocumentError(err error) bool {
	var de *DocumentError
	return errors.As(err, &de)
}
