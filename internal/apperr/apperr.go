// Package apperr defines the pipeline error taxonomy and its mapping to
// caller-facing status codes.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindUpstream
	KindMalformedResponse
	KindEmptyResult
	KindConfiguration
	KindTimeout
	KindCanceled
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindUpstream:
		return "upstream"
	case KindMalformedResponse:
		return "malformed_response"
	case KindEmptyResult:
		return "empty_result"
	case KindConfiguration:
		return "configuration"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Stage names used when tagging errors.
const (
	StageValidation    = "validation"
	StageTranscription = "transcription"
	StageGeneration    = "generation"
	StageNormalization = "normalization"
	StageExport        = "export"
)

// StatusClientClosedRequest is reported when the caller aborted the request.
const StatusClientClosedRequest = 499

// Error is a stage-aware pipeline error.
//
// Status and Body carry the provider response for server-side logging; they
// are never part of the caller-facing message.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Status  int
	Body    string
	Err     error
}

// Error formats the failure for logs.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status=%d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Stage == "" {
		return msg
	}
	return e.Stage + ": " + msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validationf reports bad caller input.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Stage: StageValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorizationf reports missing or invalid credentials.
func Authorizationf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Stage: StageValidation, Message: fmt.Sprintf(format, args...)}
}

// Configurationf reports a provider that cannot be built from its configuration.
func Configurationf(stage, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Provider reports a non-success response from an upstream provider.
func Provider(stage string, status int, body string) *Error {
	return &Error{
		Kind:    KindUpstream,
		Stage:   stage,
		Message: fmt.Sprintf("%s provider returned an error", stage),
		Status:  status,
		Body:    body,
	}
}

// Upstream reports a provider call that failed before a response was received.
func Upstream(stage string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Stage:   stage,
		Message: fmt.Sprintf("%s provider request failed", stage),
		Err:     err,
	}
}

// Malformed reports a successful response whose payload breaks the contract.
func Malformed(stage, raw string, err error) *Error {
	return &Error{
		Kind:    KindMalformedResponse,
		Stage:   stage,
		Message: fmt.Sprintf("%s provider returned an unexpected payload", stage),
		Body:    raw,
		Err:     err,
	}
}

// Empty reports a successful response without usable content.
func Empty(stage, msg string) *Error {
	return &Error{Kind: KindEmptyResult, Stage: stage, Message: msg}
}

// Timeout reports a stage that exceeded its deadline.
func Timeout(stage string, err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Stage:   stage,
		Message: fmt.Sprintf("%s timed out", stage),
		Err:     err,
	}
}

// Internal wraps an unanticipated failure.
func Internal(stage string, err error) *Error {
	return &Error{Kind: KindInternal, Stage: stage, Message: "internal error", Err: err}
}

// FromContext converts a context error into a Timeout or Canceled error.
// It returns nil when err is not caused by the context.
func FromContext(stage string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(stage, err)
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Stage: stage, Message: fmt.Sprintf("%s canceled", stage), Err: err}
	default:
		return nil
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// StageOf returns the stage err is tagged with.
func StageOf(err error) string {
	if e, ok := As(err); ok {
		return e.Stage
	}
	return ""
}

// HTTPStatus maps err to a conventional status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusUnauthorized
	case KindUpstream, KindMalformedResponse, KindEmptyResult:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns a message safe to show to the caller. Provider bodies,
// raw model output and wrapped error text are left out.
func Public(err error) string {
	e, ok := As(err)
	if !ok {
		return "internal error"
	}
	switch e.Kind {
	case KindInternal, KindConfiguration:
		return "internal error"
	case KindUpstream:
		if e.Status != 0 {
			return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
		}
		return e.Message
	default:
		return e.Message
	}
}
