package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yndnr/bankline-go/internal/apiclient"
	"github.com/yndnr/bankline-go/internal/core/domain"
	"github.com/yndnr/bankline-go/internal/storage"
	"github.com/yndnr/bankline-go/internal/telemetry/logger"
)

// revokeTimeout bounds the best-effort DELETE for an abandoned token.
const revokeTimeout = 5 * time.Second

// logCtx returns the Manager's logger enriched with the request ID in ctx.
func (m *Manager) logCtx(ctx context.Context) logger.Logger {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return m.log.With("request_id", id)
	}
	return m.log
}

// commitLocked installs next as the current state. The caller holds mu and
// has already adjusted m.gen.
func (m *Manager) commitLocked(next domain.SessionState, reason string) {
	prev := m.state
	next.Generation = m.gen
	next.ChangedAt = m.now()
	if next.Reason == "" {
		next.Reason = reason
	}
	if !next.Valid() {
		m.log.Error("session state breaks its invariants",
			"phase", next.Phase.String(), "resolved", next.Resolved,
			"has_token", next.HasToken(), "has_profile", next.Profile != nil)
	}
	m.state = next

	if next.Resolved && !m.resolvedDone {
		m.resolvedDone = true
		close(m.resolved)
	}

	if prev.Phase == next.Phase && prev.Token == next.Token &&
		prev.Profile == next.Profile && prev.Resolved == next.Resolved {
		return
	}

	if prev.Phase != next.Phase {
		m.metrics.ObserveTransition(prev.Phase.String(), next.Phase.String())
	}
	m.log.Info("session transition",
		"from", prev.Phase.String(),
		"to", next.Phase.String(),
		"generation", m.gen,
		"reason", reason)

	m.publishLocked(m.snapshotLocked())
}

func (m *Manager) snapshotLocked() domain.SessionState {
	s := m.state
	s.Profile = s.Profile.Clone()
	return s
}

// publishLocked delivers s to every subscriber, replacing any value the
// subscriber has not read yet.
func (m *Manager) publishLocked(s domain.SessionState) {
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// dropStale records a result discarded by the generation guard.
func (m *Manager) dropStale(op string, gen uint64) {
	m.metrics.ObserveStale()
	m.log.Debug("discarding stale result", "op", op, "generation", gen)
}

// adoptToken persists tok and makes it the current credential in the
// Authenticating phase. It returns the generation the profile fetch must
// commit under. epoch is the sign-out count observed before the session
// was created; if a Logout, an external change or Close has happened since,
// nothing is adopted and domain.ErrSuperseded is returned.
func (m *Manager) adoptToken(ctx context.Context, tok string, epoch uint64) (uint64, error) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if !m.sameEpoch(epoch) {
		m.dropStale("login", epoch)
		return 0, domain.ErrSuperseded
	}

	if err := m.store.Save(ctx, tok); err != nil {
		m.metrics.ObserveStoreError("save")
		return 0, domain.ErrStore.Wrap(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.signouts != epoch {
		// Logout slipped in during the save. It did not see our token, so
		// undo the write; storeMu keeps anyone else from touching it.
		if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
			m.metrics.ObserveStoreError("clear")
			m.log.Warn("credential store clear failed", "error", err)
		}
		m.dropStale("login", epoch)
		return 0, domain.ErrSuperseded
	}
	m.gen++
	m.commitLocked(domain.SessionState{
		Phase:    domain.PhaseAuthenticating,
		Token:    domain.SessionToken(tok),
		Resolved: m.state.Resolved,
	}, "login")
	return m.gen, nil
}

func (m *Manager) sameEpoch(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.signouts == epoch
}

// revoke ends the server session for tok on a best-effort basis. It is used
// for tokens the Manager has dropped, so the request carries tok rather
// than the current credential.
func (m *Manager) revoke(ctx context.Context, tok string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
	defer cancel()

	if err := m.api.WithToken(tok).Delete(ctx, pathSessions, nil); err != nil {
		m.logCtx(ctx).Warn("could not revoke abandoned server session", "error", err)
		return
	}
	m.logCtx(ctx).Debug("abandoned server session revoked")
}

// teardown returns to Anonymous and clears the stored credential. With a
// non-nil guard it only acts if the generation still equals *guard and
// reports whether it did.
func (m *Manager) teardown(ctx context.Context, reason string, guard *uint64) bool {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	if guard != nil && m.gen != *guard {
		m.mu.Unlock()
		m.dropStale(reason, *guard)
		return false
	}
	m.gen++
	m.commitLocked(domain.SessionState{Phase: domain.PhaseAnonymous, Resolved: true}, reason)
	m.mu.Unlock()

	// State is already cleared; a failing store cannot resurrect the session.
	if err := m.store.Clear(ctx); err != nil {
		m.metrics.ObserveStoreError("clear")
		m.log.Warn("credential store clear failed", "error", err)
	}
	return true
}

// reportLoginFailure surfaces a rejected login as a transient
// AuthenticationFailed phase. Subscribers read latest values and may only
// see the Anonymous state that follows, so it carries the same reason. A
// session that is already held is left alone.
func (m *Manager) reportLoginFailure(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	switch m.state.Phase {
	case domain.PhaseAnonymous, domain.PhaseAuthenticationFailed:
	default:
		return
	}
	m.commitLocked(domain.SessionState{
		Phase:    domain.PhaseAuthenticationFailed,
		Resolved: true,
		Reason:   message,
	}, "login failed")
	m.commitLocked(domain.SessionState{
		Phase:    domain.PhaseAnonymous,
		Resolved: true,
		Reason:   message,
	}, "login failed")
}

// fetchProfile confirms tok against the profile endpoint and commits the
// outcome under generation gen. Any failure tears the session down.
func (m *Manager) fetchProfile(ctx context.Context, gen uint64, tok string) error {
	var env apiclient.Envelope[*domain.UserProfile]
	err := m.api.Get(ctx, pathMe, &env)
	if err == nil {
		if verr := env.Data.Validate(); verr != nil {
			err = fmt.Errorf("%w: %w", apiclient.ErrDecode, verr)
		}
	}

	if err != nil {
		derr := profileError(err)
		if !m.teardown(context.WithoutCancel(ctx), "profile fetch failed", &gen) {
			return domain.ErrSuperseded
		}
		status := apiclient.StatusOf(err)
		m.logCtx(ctx).Warn("profile fetch failed, session cleared",
			"code", derr.Code, "status", status, "error", err)
		// A 401 means the server already forgot the token. Anything else
		// may leave a live server session behind.
		if status != http.StatusUnauthorized {
			m.revoke(ctx, tok)
		}
		return derr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || string(m.state.Token) != tok {
		m.dropStale("profile fetch", gen)
		return domain.ErrSuperseded
	}
	m.commitLocked(domain.SessionState{
		Phase:    domain.PhaseAuthenticated,
		Token:    domain.SessionToken(tok),
		Profile:  env.Data,
		Resolved: true,
	}, "profile confirmed")
	return nil
}

// ============================================================================
// External changes
// ============================================================================

func (m *Manager) startWatch() {
	if !m.watch {
		return
	}
	w, ok := m.store.(storage.Watchable)
	if !ok {
		m.log.Debug("credential store cannot be watched")
		return
	}

	stop, err := w.Watch(func() {
		m.goBackground(m.syncFromStore)
	})
	if err != nil {
		m.log.Warn("credential store watch failed", "error", err)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		stop()
		return
	}
	m.stopWatch = stop
	m.mu.Unlock()
	m.log.Debug("watching credential store")
}

// syncFromStore reconciles state with a credential changed by another
// process. Writes made by this Manager match the current token and are
// ignored.
func (m *Manager) syncFromStore(ctx context.Context) {
	m.storeMu.Lock()
	tok, ok, err := m.store.Load(ctx)
	if err != nil {
		m.storeMu.Unlock()
		m.metrics.ObserveStoreError("load")
		m.log.Warn("credential store read failed", "error", err)
		return
	}

	m.mu.Lock()
	if m.closed || m.state.Phase == domain.PhaseUnresolved {
		m.mu.Unlock()
		m.storeMu.Unlock()
		return
	}
	current := string(m.state.Token)
	if (ok && tok == current) || (!ok && current == "") {
		m.mu.Unlock()
		m.storeMu.Unlock()
		return
	}

	m.gen++
	m.signouts++
	if !ok {
		m.commitLocked(domain.SessionState{Phase: domain.PhaseAnonymous, Resolved: true}, "credential removed externally")
		m.mu.Unlock()
		m.storeMu.Unlock()
		return
	}

	gen := m.gen
	m.commitLocked(domain.SessionState{
		Phase:    domain.PhaseAuthenticating,
		Token:    domain.SessionToken(tok),
		Resolved: m.state.Resolved,
	}, "credential replaced externally")
	m.mu.Unlock()
	m.storeMu.Unlock()

	ctx, _ = apiclient.EnsureRequestID(ctx)
	m.fetchProfile(ctx, gen, tok)
}
