package transcription

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable classification of a transcription failure.
type Kind string

const (
	// KindNoFileUploaded indicates the request carried no audio file.
	KindNoFileUploaded Kind = "NO_FILE_UPLOADED"
	// KindEngineConfiguration indicates the recognition engine could not
	// be constructed or configured (bad credentials, bad options).
	KindEngineConfiguration Kind = "ENGINE_CONFIGURATION"
	// KindAudioPreparation indicates the audio source could not be
	// prepared (file unreadable, transcoder failed to launch).
	KindAudioPreparation Kind = "AUDIO_PREPARATION"
	// KindMalformedResult indicates a recognition payload that could not
	// be parsed. Recovered locally: the event is dropped, the session
	// continues.
	KindMalformedResult Kind = "MALFORMED_RESULT"
	// KindEngineCanceled indicates the engine reported a fatal error
	// through a cancellation event.
	KindEngineCanceled Kind = "ENGINE_CANCELED"
	// KindUnexpected wraps any other failure during request handling.
	KindUnexpected Kind = "UNEXPECTED"
)

// Error is the unified transcription error type, carrying a Kind for
// classification and an optional cause for unwrapping.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps the error kind to the response status code.
func (e *Error) HTTPStatus() int {
	if e.Kind == KindNoFileUploaded {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// NewError creates an Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error with the given kind, message, and cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AsError extracts an *Error from err, wrapping unknown errors as
// KindUnexpected so the HTTP layer always has a classified error to
// report.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return WrapError(KindUnexpected, "failed to process audio", err)
}
