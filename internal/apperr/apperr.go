// Package apperr holds the coded, recoverable errors reported by the onboarding core.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Registration errors
	CodeFieldRequired    Code = "FIELD_REQUIRED"
	CodeInvalidEmail     Code = "INVALID_EMAIL"
	CodePasswordMismatch Code = "PASSWORD_MISMATCH"
	CodePasswordTooLong  Code = "PASSWORD_TOO_LONG"
	CodeTermsRequired    Code = "TERMS_REQUIRED"

	// Credential dialog errors
	CodeHandleRequired     Code = "HANDLE_REQUIRED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnknownProvider    Code = "UNKNOWN_PROVIDER"
	CodeUnknownRegion      Code = "UNKNOWN_REGION"
	CodeUnknownField       Code = "UNKNOWN_FIELD"
	CodeReadOnlyField      Code = "READ_ONLY_FIELD"
	CodeRegionsUnsupported Code = "REGIONS_UNSUPPORTED"
	CodeDialogClosed       Code = "DIALOG_CLOSED"
	CodeDialogBusy         Code = "DIALOG_BUSY"
	CodeNoDialog           Code = "NO_DIALOG"

	// Orchestrator errors
	CodeWrongStep   Code = "WRONG_STEP"
	CodeNoProviders Code = "NO_PROVIDERS"
)

// Issue is a single field-level problem found while validating a form.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a ValidationError: local, recoverable, and never fatal to the caller.
type Error struct {
	Code    Code
	Title   string
	Message string
	Issues  []Issue
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New returns a validation error with a user-facing title and message.
func New(code Code, title, message string) *Error {
	return &Error{Code: code, Title: title, Message: message}
}

// CodeOf extracts the code of err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// RemoteError wraps a failure of the provider connect operation. The simulated
// connector never produces one; real provider integrations and timeouts do.
type RemoteError struct {
	Provider string
	Err      error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
