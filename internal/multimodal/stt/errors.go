package stt

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when a backend that needs an API key has none.
var ErrMissingCredential = errors.New("missing API credential")

// BackendError reports a non-success answer from a transcription backend.
type BackendError struct {
	Backend    string
	StatusCode int // 0 when the backend gave no HTTP status
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Backend, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Backend, e.StatusCode, e.Message)
}
