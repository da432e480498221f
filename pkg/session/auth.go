package session

import (
	"errors"

	"github.com/platinummonkey/gatehouse/pkg/identity"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// PrincipalKey is the session attribute holding the active logged-in principal
const PrincipalKey = "principal"

// CurrentPrincipal returns the principal currently logged in on the
// session, or nil.
func CurrentPrincipal(s Session) *identity.Principal {
	if s == nil {
		return nil
	}
	if p, ok := s.Value(PrincipalKey).(*identity.Principal); ok {
		return p
	}
	return nil
}

// Authenticator performs the login/logout state transitions on a session.
// The surrounding platform owns credential verification; this type only
// binds an already-authenticated principal to the session.
type Authenticator struct {
	logger   *observability.Logger
	onLogout func(Session)
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(logger *observability.Logger) *Authenticator {
	return &Authenticator{logger: logger}
}

// SetLogoutHook registers a hook run before a principal is unbound. The
// SSO coordinator uses it to release the session's login key.
func (a *Authenticator) SetLogoutHook(fn func(Session)) {
	a.onLogout = fn
}

// Login binds the principal to the session and attaches it to the request
func (a *Authenticator) Login(st *State, p *identity.Principal) error {
	if st == nil || st.Session == nil {
		return errors.New("session: no session to log in to")
	}
	if p == nil {
		return errors.New("session: nil principal")
	}
	st.Session.SetValue(PrincipalKey, p)
	st.Principal = p
	a.logger.WithFields(map[string]interface{}{
		"user_id": p.ID,
		"tenant":  p.Tenant,
	}).Debug("principal logged in")
	return nil
}

// Logout unbinds the active principal from the session, running the
// logout hook first.
func (a *Authenticator) Logout(st *State) error {
	if st == nil || st.Session == nil {
		return errors.New("session: no session to log out of")
	}
	if a.onLogout != nil {
		a.onLogout(st.Session)
	}
	if p := CurrentPrincipal(st.Session); p != nil {
		a.logger.WithField("user_id", p.ID).Debug("principal logged out")
	}
	st.Session.Remove(PrincipalKey)
	st.Principal = nil
	return nil
}
