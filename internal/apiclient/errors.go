package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport marks failures where no HTTP response was received:
	// dial errors, timeouts, cancelled contexts, rate-limit waits.
	ErrTransport = errors.New("apiclient: transport failure")

	// ErrDecode marks a 2xx response whose body did not match the expected shape.
	ErrDecode = errors.New("apiclient: malformed response body")

	// ErrEmptyBody is joined with ErrDecode when a 2xx response had no body.
	ErrEmptyBody = errors.New("apiclient: empty response body")
)

// Error is returned for any non-2xx response.
type Error struct {
	Status  int    // HTTP status code
	Message string // server "error" field, empty when absent
	Body    []byte // raw response body
}

// Error implements the error interface.
func (e *Error) Error() string {
	text := http.StatusText(e.Status)
	if e.Message != "" {
		return fmt.Sprintf("apiclient: %d %s: %s", e.Status, text, e.Message)
	}
	return fmt.Sprintf("apiclient: %d %s", e.Status, text)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server-supplied message carried by err, or "".
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// newError builds an Error, pulling the message out of an {"error": "..."}
// body. Bodies that are not JSON objects leave Message empty.
func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}

	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Error) == 0 {
		return e
	}

	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err == nil {
		e.Message = strings.TrimSpace(msg)
		return e
	}

	// {"error": {"message": "..."}} is accepted too.
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		e.Message = strings.TrimSpace(nested.Message)
	}
	return e
}
