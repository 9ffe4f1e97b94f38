package transcription

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThePyWizard/subgenie/internal/llm"
	"github.com/ThePyWizard/subgenie/internal/multimodal/stt"
	"github.com/ThePyWizard/subgenie/internal/translate"
)

// Kind classifies a failed request.
type Kind string

const (
	KindUpload        Kind = "upload"
	KindTranscription Kind = "transcription"
	KindTranslation   Kind = "translation"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Error is the failure result of Process. Status is the HTTP status the
// caller should answer with and Detail is safe to show to clients.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func uploadError(status int, detail string, err error) *Error {
	return &Error{Kind: KindUpload, Status: status, Detail: detail, Err: err}
}

func configurationError(detail string, err error) *Error {
	return &Error{Kind: KindConfiguration, Status: http.StatusInternalServerError, Detail: detail, Err: err}
}

func internalError(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Detail: detail, Err: err}
}

func transcriptionError(err error) *Error {
	if errors.Is(err, stt.ErrMissingCredential) {
		return configurationError(err.Error(), err)
	}

	e := &Error{Kind: KindTranscription, Status: http.StatusInternalServerError, Detail: err.Error(), Err: err}
	var be *stt.BackendError
	if errors.As(err, &be) {
		e.Status = backendStatus(be.StatusCode)
		if be.Message != "" {
			e.Detail = be.Message
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Detail = "transcription timed out"
	}
	return e
}

func translationError(err error) *Error {
	if errors.Is(err, llm.ErrMissingCredential) {
		return configurationError(err.Error(), err)
	}

	e := &Error{Kind: KindTranslation, Status: http.StatusInternalServerError, Detail: translate.ErrNoTranslation.Error(), Err: err}
	if errors.Is(err, translate.ErrNoTranslation) {
		return e
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		e.Status = backendStatus(apiErr.StatusCode)
		e.Detail += ": " + apiErr.Message
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Detail += ": timed out"
		return e
	}
	e.Detail += ": " + err.Error()
	return e
}

// backendStatus keeps error statuses reported by a backend and maps anything
// else to a generic server error.
func backendStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return http.StatusInternalServerError
}
