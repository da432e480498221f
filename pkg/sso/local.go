package sso

import (
	"context"
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/identity"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/registry"
	"github.com/platinummonkey/gatehouse/pkg/session"
)

const (
	// LoginKeyParam is the request parameter carrying a same-server
	// hand-off key. The name is part of the wire contract between
	// cooperating webapps.
	LoginKeyParam = "externalLoginKey"

	// loginKeyAttr is the session attribute holding the session's bound key
	loginKeyAttr = "externalLoginKey"

	requestedWithHeader = "X-Requested-With"
	ajaxRequestedWith   = "XMLHttpRequest"
)

// Authenticator performs login/logout state transitions on the request's
// session. Implemented by session.Authenticator; hosts embedding the
// coordinators in an existing platform supply their own.
type Authenticator interface {
	Login(st *session.State, p *identity.Principal) error
	Logout(st *session.State) error
}

// TenantSwitcher reconfigures the request's working tenant when a hand-off
// resolves a principal owned by a different tenant.
type TenantSwitcher interface {
	Switch(st *session.State, tenant string) error
}

// Local coordinates same-server hand-offs: it issues login keys bound to
// the caller's session and consumes inbound keys to transfer the
// authenticated identity to another webapp on this server.
type Local struct {
	keys    registry.Store
	auth    Authenticator
	tenants TenantSwitcher
	locks   *session.KeyedMutex
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewLocal creates the same-server coordinator
func NewLocal(keys registry.Store, auth Authenticator, tenants TenantSwitcher, logger *observability.Logger) *Local {
	return &Local{
		keys:    keys,
		auth:    auth,
		tenants: tenants,
		locks:   session.NewKeyedMutex(),
		logger:  logger,
	}
}

// SetMetrics attaches hand-off metrics
func (l *Local) SetMetrics(m *observability.Metrics) {
	l.metrics = m
}

// ExternalLoginKey returns the login key for the current request, creating
// one if needed. Within one request the same key is always returned. A new
// request of the same session rotates the previous key unless it is a
// background sub-request of the same page load, which reuses it. Requests
// with no authenticated principal get "" after the previous key, if any,
// has been cleared.
func (l *Local) ExternalLoginKey(r *http.Request) string {
	ctx := r.Context()
	st := session.FromContext(ctx)
	if st == nil || st.Session == nil {
		return ""
	}

	if key := st.LoginKey(); key != "" {
		return key
	}

	// Concurrent sub-requests of one session must not both rotate.
	unlock := l.locks.Lock(st.Session.ID())
	defer unlock()

	if prev, ok := st.Session.Value(loginKeyAttr).(string); ok && prev != "" {
		if isAjax(r) {
			return prev
		}
		if err := l.keys.Remove(ctx, prev); err != nil {
			l.logger.WithError(err).WithField("login_key", prev).Error("failed to remove rotated login key")
		}
		if l.metrics != nil {
			l.metrics.LoginKeysRotated.Inc()
		}
	}

	// The principal check comes after rotation so a stale key is cleared
	// even when the current request is unauthenticated.
	if st.Principal == nil {
		return ""
	}

	key, err := registry.NewKey(ctx, l.keys)
	if err != nil {
		l.logger.WithError(err).Error("failed to generate login key")
		return ""
	}

	st.SetLoginKey(key)
	st.Session.SetValue(loginKeyAttr, key)
	if err := l.keys.Put(ctx, key, *st.Principal); err != nil {
		l.logger.WithError(err).Error("failed to store login key")
		st.SetLoginKey("")
		st.Session.Remove(loginKeyAttr)
		return ""
	}

	if l.metrics != nil {
		l.metrics.LoginKeysIssued.Inc()
		l.updateActiveGauge(ctx)
	}
	return key
}

// Consume resolves a login key to its principal. It is a pure lookup;
// lifecycle mutation happens only through issuance, rotation, and cleanup.
func (l *Local) Consume(ctx context.Context, key string) (identity.Principal, bool) {
	p, ok, err := l.keys.Get(ctx, key)
	if err != nil {
		l.logger.WithError(err).WithField("login_key", key).Error("registry lookup failed")
		return identity.Principal{}, false
	}
	return p, ok
}

// CheckLoginKey is the chain entry point for same-server hand-off. It
// resolves the inbound login key parameter, transfers the identity onto
// the caller's session, and always signals Proceed: failures are logged,
// never raised.
func (l *Local) CheckLoginKey(w http.ResponseWriter, r *http.Request) Signal {
	res := l.checkLoginKey(r)
	l.report("local", r, res)
	return Proceed
}

func (l *Local) checkLoginKey(r *http.Request) Result {
	ctx := r.Context()
	st := session.FromContext(ctx)
	if st == nil || st.Session == nil {
		return Result{Outcome: OutcomeNone}
	}

	key := r.FormValue(LoginKeyParam)
	if key == "" {
		return Result{Outcome: OutcomeNone}
	}

	p, ok, err := l.keys.Get(ctx, key)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Failure: FailureRegistry, Err: err}
	}
	if !ok {
		l.logger.WithField("login_key", key).Warn("could not find principal for external login key")
		return Result{Outcome: OutcomeUnknownKey, Failure: FailureUnknownKey}
	}

	return establishPrincipal(st, &p, l.auth, l.tenants, l.logger, nil)
}

// Cleanup removes the session's bound key from the registry. It is invoked
// on logout and session end, and is idempotent.
func (l *Local) Cleanup(s session.Session) {
	if s == nil {
		return
	}
	key, ok := s.Value(loginKeyAttr).(string)
	if !ok || key == "" {
		return
	}
	ctx := context.Background()
	if err := l.keys.Remove(ctx, key); err != nil {
		l.logger.WithError(err).WithField("login_key", key).Error("failed to remove login key on session end")
		return
	}
	s.Remove(loginKeyAttr)
	if l.metrics != nil {
		l.updateActiveGauge(ctx)
	}
}

func (l *Local) updateActiveGauge(ctx context.Context) {
	if n, err := l.keys.Len(ctx); err == nil {
		l.metrics.LoginKeysActive.Set(float64(n))
	}
}

func (l *Local) report(path string, r *http.Request, res Result) {
	reportResult(path, r, res, l.logger, l.metrics)
}

func isAjax(r *http.Request) bool {
	return r.Header.Get(requestedWithHeader) == ajaxRequestedWith
}

// establishPrincipal applies the identity-switch rules shared by both
// hand-off paths: switch the working tenant if the principal is owned by a
// different one, no-op if the same principal is already active, otherwise
// log out the active principal (tolerating failure) and log the new one in.
// beforeLogin, when non-nil, runs after any logout and before the login.
func establishPrincipal(st *session.State, p *identity.Principal, auth Authenticator, tenants TenantSwitcher, logger *observability.Logger, beforeLogin func(*identity.Principal) Result) Result {
	if p.Tenant != "" && p.Tenant != st.Tenant && tenants != nil {
		if err := tenants.Switch(st, p.Tenant); err != nil {
			return Result{Outcome: OutcomeFailed, Failure: FailureTenantSwitch, Err: err}
		}
	}

	current := session.CurrentPrincipal(st.Session)
	switched := false
	if current != nil {
		if current.ID == p.ID {
			return Result{Outcome: OutcomeAlreadyActive}
		}
		// Logout failure is tolerated: the new principal is established
		// regardless, matching the ordered logout-then-login contract.
		if err := auth.Logout(st); err != nil {
			logger.WithError(err).WithField("user_id", current.ID).Warn("logout of previous principal failed; continuing")
		}
		switched = true
	}

	if beforeLogin != nil {
		if res := beforeLogin(p); res.Failure != FailureNone {
			return res
		}
	}

	if err := auth.Login(st, p); err != nil {
		return Result{Outcome: OutcomeFailed, Failure: FailureLogin, Err: err}
	}
	if switched {
		return Result{Outcome: OutcomeSwitched}
	}
	return Result{Outcome: OutcomeLogin}
}

// reportResult logs and counts one hand-off attempt
func reportResult(path string, r *http.Request, res Result, logger *observability.Logger, metrics *observability.Metrics) {
	if metrics != nil && res.Outcome != OutcomeNone {
		metrics.HandoffsTotal.WithLabelValues(path, res.Outcome.String()).Inc()
	}
	if res.Err == nil && res.Failure == FailureNone {
		return
	}
	entry := logger.WithFields(map[string]interface{}{
		"path":    path,
		"outcome": res.Outcome.String(),
		"failure": res.Failure.String(),
	})
	if rid := contextkeys.RequestID(r.Context()); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	if res.Err != nil {
		entry.WithError(res.Err).Error("hand-off failed")
		return
	}
	entry.Warn("hand-off not performed")
}
