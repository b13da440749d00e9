// Package domain defines the core domain models for bankline.
package domain

import (
	"log/slog"
	"time"
)

// SessionToken is the opaque credential issued by the create-session endpoint.
// It is never interpreted client side.
type SessionToken string

// IsZero reports whether the token is absent.
func (t SessionToken) IsZero() bool {
	return t == ""
}

// String returns a masked form so tokens never leak through fmt verbs.
func (t SessionToken) String() string {
	return MaskToken(string(t))
}

// LogValue implements slog.LogValuer.
func (t SessionToken) LogValue() slog.Value {
	return slog.StringValue(MaskToken(string(t)))
}

// MaskToken keeps the first and last three characters of long tokens.
func MaskToken(raw string) string {
	switch {
	case raw == "":
		return ""
	case len(raw) <= 8:
		return "***"
	default:
		return raw[:3] + "..." + raw[len(raw)-3:]
	}
}

// Phase is a state of the session state machine.
type Phase int

// Session phases.
const (
	// PhaseUnresolved is the startup phase before the credential store was read.
	PhaseUnresolved Phase = iota
	// PhaseAnonymous means no token is held.
	PhaseAnonymous
	// PhaseAuthenticating means a token is held and the profile fetch is in flight.
	PhaseAuthenticating
	// PhaseAuthenticated means the token was confirmed by a profile fetch.
	PhaseAuthenticated
	// PhaseAuthenticationFailed is the transient phase after a rejected login.
	PhaseAuthenticationFailed
)

var phaseNames = map[Phase]string{
	PhaseUnresolved:           "unresolved",
	PhaseAnonymous:            "anonymous",
	PhaseAuthenticating:       "authenticating",
	PhaseAuthenticated:        "authenticated",
	PhaseAuthenticationFailed: "authentication_failed",
}

// String returns the phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SessionState is a point-in-time snapshot of the session.
//
// Snapshots are values: readers get a copy and never observe a partial
// transition. Profile is non-nil only when Phase is PhaseAuthenticated.
type SessionState struct {
	Phase      Phase        `json:"phase"`
	Token      SessionToken `json:"-"`
	Profile    *UserProfile `json:"profile,omitempty"`
	Resolved   bool         `json:"resolved"`
	Generation uint64       `json:"generation"`
	Reason     string       `json:"reason,omitempty"`
	ChangedAt  time.Time    `json:"changed_at"`
}

// HasToken reports whether a token is held locally.
func (s SessionState) HasToken() bool {
	return !s.Token.IsZero()
}

// IsAuthenticated reports whether consumers may render authenticated content.
func (s SessionState) IsAuthenticated() bool {
	return s.Resolved && s.Phase == PhaseAuthenticated && s.Profile != nil && s.HasToken()
}

// Valid checks the invariants every committed state must hold.
func (s SessionState) Valid() bool {
	switch s.Phase {
	case PhaseUnresolved:
		return !s.Resolved && s.Profile == nil
	case PhaseAnonymous, PhaseAuthenticationFailed:
		return s.Resolved && !s.HasToken() && s.Profile == nil
	case PhaseAuthenticating:
		return s.HasToken() && s.Profile == nil
	case PhaseAuthenticated:
		return s.Resolved && s.HasToken() && s.Profile != nil
	default:
		return false
	}
}
