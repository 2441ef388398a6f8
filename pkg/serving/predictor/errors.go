package predictor

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownModelError is returned when a requested model is not in the
// registry.
type UnknownModelError struct {
	Name  string
	Known []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

func IsUnknownModel(err error) bool {
	var ue *UnknownModelError
	return errors.As(err, &ue)
}

// IntegrityError means the persisted artifacts are missing, corrupt or
// inconsistent with each other. The service must not start with them.
type IntegrityError struct {
	Artifact string
	Err      error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Artifact, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

func integrity(artifact string, format string, args ...interface{}) error {
	return &IntegrityError{Artifact: artifact, Err: fmt.Errorf(format, args...)}
}
