package vitals

import (
	"errors"
	"fmt"
)

// InvalidValueError reports a record field outside what a patient reading
// can hold.
type InvalidValueError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func IsInvalidValue(err error) bool {
	var ie *InvalidValueError
	return errors.As(err, &ie)
}
