// Package domainerrors provides coded errors shared by services and the HTTP
// layer. Handlers translate codes to status lines; services never import
// net/http.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies an error class. Codes are part of the API contract: UIs key
// retry/contact-support/readiness-blocked messaging off them.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// CodeEvaluationFailed marks a blocking policy evaluation failure: the
	// template catalog could not be loaded or an applicability expression
	// referenced an unknown fact. Never downgraded to "not applicable".
	CodeEvaluationFailed Code = "evaluation_failed"

	// CodeSnapshotPrecondition marks an issuance attempted against an asset
	// whose compliance was never evaluated. Blocks the issuance entirely.
	CodeSnapshotPrecondition Code = "snapshot_precondition"

	// CodeManifestBuildFailed marks a manifest serialization/hash failure.
	// Recoverable: the issuance proceeds without a manifest.
	CodeManifestBuildFailed Code = "manifest_build_failed"
)

// Error is the coded error type returned by domain services.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error preserving the underlying cause for errors.Is/As.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from an error, defaulting to internal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps an error code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeEvaluationFailed:
		return http.StatusUnprocessableEntity
	case CodeSnapshotPrecondition:
		return http.StatusPreconditionFailed
	case CodeManifestBuildFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
