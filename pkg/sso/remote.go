package sso

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/config"
	"github.com/platinummonkey/gatehouse/pkg/identity"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/session"
	"github.com/platinummonkey/gatehouse/pkg/token"
)

const (
	// ServerLoginKeyParam carries the target account identifier for a
	// cross-server hand-off. Unlike the local key it is not a registry
	// key: the two servers share no in-process state, only the signed
	// token vouches for the identity.
	ServerLoginKeyParam = "externalServerLoginKey"

	// AuthorisationHeader carries the serialized bearer token. The
	// spelling is part of the wire contract with peer servers.
	AuthorisationHeader = "Authorisation"
)

// Remote coordinates cross-server hand-offs: an inbound account identifier
// plus a signed bearer token asserted by a trusted peer server.
type Remote struct {
	accounts identity.Store
	codec    *token.Codec
	security *config.SecurityConfig
	auth     Authenticator
	tenants  TenantSwitcher
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewRemote creates the cross-server coordinator
func NewRemote(accounts identity.Store, codec *token.Codec, security *config.SecurityConfig, auth Authenticator, tenants TenantSwitcher, logger *observability.Logger) *Remote {
	return &Remote{
		accounts: accounts,
		codec:    codec,
		security: security,
		auth:     auth,
		tenants:  tenants,
		logger:   logger,
	}
}

// SetMetrics attaches hand-off metrics
func (c *Remote) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// CheckServerLoginKey is the chain entry point for cross-server hand-off.
// Like the local entry point it always signals Proceed; a missing or
// invalid bearer token additionally forces a defensive logout of whoever
// is currently active, so a forged hand-off can never ride an existing
// session.
func (c *Remote) CheckServerLoginKey(w http.ResponseWriter, r *http.Request) Signal {
	res := c.checkServerLoginKey(r)
	reportResult("server", r, res, c.logger, c.metrics)
	return Proceed
}

func (c *Remote) checkServerLoginKey(r *http.Request) Result {
	ctx := r.Context()
	st := session.FromContext(ctx)
	if st == nil || st.Session == nil {
		return Result{Outcome: OutcomeNone}
	}

	id := r.FormValue(ServerLoginKeyParam)
	if id == "" {
		return Result{Outcome: OutcomeNone}
	}

	p, err := c.accounts.Lookup(ctx, st.Tenant, id)
	if errors.Is(err, identity.ErrNotFound) {
		c.logger.WithFields(map[string]interface{}{
			"user_id": id,
			"tenant":  st.Tenant,
		}).Warn("could not find account for external server login key")
		return Result{Outcome: OutcomeUnknownKey, Failure: FailureUnknownKey}
	}
	if err != nil {
		return Result{Outcome: OutcomeFailed, Failure: FailureAccountLookup, Err: err}
	}

	if p.Tenant != "" && p.Tenant != st.Tenant && c.tenants != nil {
		if err := c.tenants.Switch(st, p.Tenant); err != nil {
			return Result{Outcome: OutcomeFailed, Failure: FailureTenantSwitch, Err: err}
		}
	}

	serialized := r.Header.Get(AuthorisationHeader)
	if serialized == "" {
		c.logger.WithField("user_id", id).Warn("missing bearer token on cross-server hand-off; logging out current principal")
		c.defensiveLogout(st)
		return Result{Outcome: OutcomeRejected, Failure: FailureMissingToken}
	}

	issuer := c.security.ExternalServerURL(st.Tenant)
	if err := c.codec.Verify(serialized, p.ID, issuer, c.security.ApplicationName); err != nil {
		if c.metrics != nil {
			c.metrics.TokenVerifications.WithLabelValues("failure").Inc()
		}
		c.logger.WithError(err).WithField("user_id", id).Warn("bearer token verification failed; logging out current principal")
		c.defensiveLogout(st)
		return Result{Outcome: OutcomeRejected, Failure: FailureInvalidToken, Err: err}
	}
	if c.metrics != nil {
		c.metrics.TokenVerifications.WithLabelValues("success").Inc()
	}

	// The account was actively re-authenticated by a trusted assertion:
	// clear its logged-out flag before login, unless the administrative
	// flag forbids login, in which case the re-enable step is skipped.
	beforeLogin := func(p *identity.Principal) Result {
		if !p.LoginAllowed() || !p.HasLoggedOut {
			return Result{}
		}
		if err := c.accounts.SetLoggedOut(r.Context(), p.Tenant, p.ID, false); err != nil {
			return Result{Outcome: OutcomeFailed, Failure: FailureAccountUpdate, Err: err}
		}
		p.HasLoggedOut = false
		return Result{}
	}

	return establishPrincipal(st, p, c.auth, c.tenants, c.logger, beforeLogin)
}

// IssueServerToken mints the bearer token for an outbound hand-off of the
// given account to the named destination application, using the tenant's
// configured token lifetime.
func (c *Remote) IssueServerToken(tenant, id, destinationApp string) (string, error) {
	issuer := c.security.ExternalServerURL(tenant)
	signed, err := c.codec.Issue(id, issuer, destinationApp, c.security.TokenTTL(tenant))
	if err != nil {
		return "", err
	}
	if c.metrics != nil {
		c.metrics.TokensIssuedTotal.Inc()
	}
	return signed, nil
}

func (c *Remote) defensiveLogout(st *session.State) {
	if session.CurrentPrincipal(st.Session) == nil {
		return
	}
	if err := c.auth.Logout(st); err != nil {
		c.logger.WithError(err).Warn("defensive logout failed")
	}
	if c.metrics != nil {
		c.metrics.DefensiveLogouts.Inc()
	}
}
