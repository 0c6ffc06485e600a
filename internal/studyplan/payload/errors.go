package payload

import "fmt"

// MalformedGenerationError reports a model response that could not be decoded
// into the expected payload. It is never retried.
type MalformedGenerationError struct {
	Stage string
	Err   error
}

func (e *MalformedGenerationError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Stage, e.Err)
}

func (e *MalformedGenerationError) Unwrap() error { return e.Err }
