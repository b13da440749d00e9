package session

import (
	"errors"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/core/domain"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("session: manager closed")

const (
	fallbackLoginMessage    = "Login failed"
	fallbackRegisterMessage = "Registration failed"
)

// Result is what Login and Register hand back to consumers. Err is a
// *domain.DomainError (or ErrClosed) when Success is false.
type Result struct {
	Success bool
	Message string
	Err     error
}

func failure(message string, err error) Result {
	return Result{Message: message, Err: err}
}

// loginError maps an API failure from session creation onto the taxonomy.
func loginError(err error) *domain.DomainError {
	msg := apiclient.MessageOf(err)
	switch {
	case errors.Is(err, apiclient.ErrTransport):
		return domain.ErrNetwork.Wrap(err)
	case apiclient.StatusOf(err) == 401:
		return domain.ErrInvalidCredentials.WithDetails(msg).Wrap(err)
	case msg != "":
		return domain.ErrServerRejected.WithDetails(msg).Wrap(err)
	default:
		return domain.ErrLoginFailed.Wrap(err)
	}
}

// registerError maps an API failure from registration onto the taxonomy.
func registerError(err error) *domain.DomainError {
	msg := apiclient.MessageOf(err)
	switch {
	case errors.Is(err, apiclient.ErrTransport):
		return domain.ErrNetwork.Wrap(err)
	case msg != "":
		return domain.ErrServerRejected.WithDetails(msg).Wrap(err)
	default:
		return domain.ErrRegistrationFailed.Wrap(err)
	}
}

// profileError separates transport failures from rejected tokens. Both
// end the session; the distinction is for logs.
func profileError(err error) *domain.DomainError {
	if errors.Is(err, apiclient.ErrTransport) {
		return domain.ErrNetwork.Wrap(err)
	}
	return domain.ErrProfileFetchFailed.Wrap(err)
}

// userMessage is the server's message when it sent one, the fallback otherwise.
func userMessage(err error, fallback string) string {
	if msg := apiclient.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
