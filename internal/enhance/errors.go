package enhance

import "fmt"

// ProcessingError wraps any failure inside a pipeline path.
type ProcessingError struct {
	Path  Path
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("image processing failed: %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func fail(path Path, stage string, err error) error {
	return &ProcessingError{Path: path, Stage: stage, Err: err}
}
