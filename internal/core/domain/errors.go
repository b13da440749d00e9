// Package domain defines the core domain models for bankline.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form BL-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "BL-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// UserMessage returns the text shown to a person: the server supplied
// details when present, the generic message otherwise.
func (e *DomainError) UserMessage() string {
	if e.Details != "" {
		return e.Details
	}
	return e.Message
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrInvalidCredentials indicates the session-creation endpoint rejected
	// the username/password pair.
	ErrInvalidCredentials = NewDomainError("BL-AUTH-4010", "invalid credentials")

	// ErrServerRejected indicates the server refused a request and supplied
	// a reason. Details carries the server message.
	ErrServerRejected = NewDomainError("BL-AUTH-4000", "request rejected by server")

	// ErrLoginFailed is the generic login failure when the server gives no reason.
	ErrLoginFailed = NewDomainError("BL-AUTH-4001", "login failed")

	// ErrRegistrationFailed is the generic registration failure when the
	// server gives no reason.
	ErrRegistrationFailed = NewDomainError("BL-AUTH-4002", "registration failed")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrProfileFetchFailed indicates a token is present but the profile
	// endpoint did not confirm it.
	ErrProfileFetchFailed = NewDomainError("BL-SESS-4011", "profile fetch failed")

	// ErrNotResolved indicates the session has not finished startup resolution.
	ErrNotResolved = NewDomainError("BL-SESS-4250", "session not resolved")

	// ErrNotAuthenticated indicates an operation requires an authenticated session.
	ErrNotAuthenticated = NewDomainError("BL-SESS-4012", "not authenticated")

	// ErrSuperseded indicates an operation completed after a later state
	// transition and its result was discarded.
	ErrSuperseded = NewDomainError("BL-SESS-4090", "superseded by a later session change")
)

// ============================================================================
// System Errors (NET, STOR)
// ============================================================================

var (
	// ErrNetwork indicates a request could not complete.
	ErrNetwork = NewDomainError("BL-NET-5030", "network error")

	// ErrStore indicates the credential store failed.
	ErrStore = NewDomainError("BL-STOR-5000", "credential store error")
)
