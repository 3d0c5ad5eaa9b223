package pipeline

import (
	"errors"
	"fmt"
)

// ErrResolution matches every *ResolutionError with errors.Is.
var ErrResolution = errors.New("pipeline: resolution failed")

// ResolutionError reports a plugin that could not be resolved at compile
// time, or a delegated handler that failed fatally while running.
type ResolutionError struct {
	Stage  int
	Module string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("plugins[%d]: module %q: %v", e.Stage, e.Module, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// TransformError is a non-fatal problem reported by a delegated handler.
// The run continues and the error is returned in Result.Errors.
type TransformError struct {
	Stage  int
	Module string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("plugins[%d]: %s: %v", e.Stage, e.Module, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
