package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/core/domain"
)

// API paths used by the Manager.
const (
	pathSessions = "/sessions"
	pathUsers    = "/users"
	pathMe       = "/users/me"
)

// Login creates a server session, persists the token and confirms it by
// fetching the profile. It returns once the session is Authenticated or the
// attempt has failed; failures never leave a token behind. A Logout that
// lands while the session is being created wins: the new server session is
// revoked and Login reports domain.ErrSuperseded.
func (m *Manager) Login(ctx context.Context, username, password string) Result {
	ctx, _ = apiclient.EnsureRequestID(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return failure("session manager closed", ErrClosed)
	}
	epoch := m.signouts
	m.mu.Unlock()
	log := m.logCtx(ctx).With("username", username)

	var resp apiclient.TokenResponse
	err := m.api.Post(ctx, pathSessions, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err == nil && resp.Token == "" {
		err = fmt.Errorf("%w: response carried no token", apiclient.ErrDecode)
	}
	if err != nil {
		derr := loginError(err)
		msg := userMessage(err, fallbackLoginMessage)
		log.Info("login rejected", "code", derr.Code, "error", err)
		m.reportLoginFailure(msg)
		return failure(msg, derr)
	}

	gen, err := m.adoptToken(ctx, resp.Token, epoch)
	switch {
	case errors.Is(err, domain.ErrSuperseded):
		log.Info("login overtaken by logout, revoking the new session")
		m.revoke(ctx, resp.Token)
		return failure(domain.ErrSuperseded.UserMessage(), err)
	case err != nil:
		log.Error("could not persist session credential", "error", err)
		m.reportLoginFailure(domain.ErrStore.Message)
		return failure(domain.ErrStore.Message, err)
	}

	if err := m.fetchProfile(ctx, gen, resp.Token); err != nil {
		return failure(userFacing(err), err)
	}

	log.Info("login succeeded")
	return Result{Success: true}
}

// Register creates an account. It does not touch session state.
func (m *Manager) Register(ctx context.Context, fields map[string]any) Result {
	if m.isClosed() {
		return failure("session manager closed", ErrClosed)
	}
	ctx, _ = apiclient.EnsureRequestID(ctx)

	if err := m.api.Post(ctx, pathUsers, fields, nil); err != nil {
		derr := registerError(err)
		m.logCtx(ctx).Info("registration rejected", "code", derr.Code, "error", err)
		return failure(userMessage(err, fallbackRegisterMessage), derr)
	}
	return Result{Success: true}
}

// Logout ends the session. The server is told on a best-effort basis when a
// token is held; whatever it answers, the token, the stored copy and the
// profile are cleared. Calling Logout while Anonymous is harmless.
func (m *Manager) Logout(ctx context.Context) {
	ctx, _ = apiclient.EnsureRequestID(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	// Invalidate in-flight profile fetches and session creations now; the
	// token stays in place until the DELETE below has been sent with it.
	m.gen++
	m.signouts++
	held := m.state.HasToken()
	m.mu.Unlock()

	if held {
		if err := m.api.Delete(ctx, pathSessions, nil); err != nil {
			m.logCtx(ctx).Warn("server logout failed, clearing local session anyway", "error", err)
		}
	}

	m.teardown(context.WithoutCancel(ctx), "logout", nil)
}

// Refresh re-fetches the profile for the current token. Failure ends the
// session like any other profile-fetch failure. A result that arrives after
// a newer transition is discarded and reported as domain.ErrSuperseded.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.state.HasToken() {
		m.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	gen, tok := m.gen, string(m.state.Token)
	m.mu.Unlock()

	ctx, _ = apiclient.EnsureRequestID(ctx)
	return m.fetchProfile(ctx, gen, tok)
}

// userFacing extracts the text shown to people from a domain error.
func userFacing(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.UserMessage()
	}
	return err.Error()
}
