package session

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/identity"
)

// State is the mutable per-request state shared along the handler chain.
// It is created once per request by the session middleware and carried in
// the request context. A State is only touched by the goroutine serving its
// request; the request-scoped login key cache therefore needs no lock.
type State struct {
	// Session is the caller's HTTP session.
	Session Session

	// Tenant is the request's current working tenant. Hand-off may
	// reconfigure it to the resolved principal's tenant.
	Tenant string

	// Principal is the authenticated principal attached to this request,
	// if any. It mirrors the session's active principal at request entry
	// and is updated by login/logout during the request.
	Principal *identity.Principal

	// loginKey caches the login key derived for this request so repeated
	// lookups within one request return the identical key.
	loginKey string
}

// LoginKey returns the request-scoped cached login key, or ""
func (s *State) LoginKey() string {
	return s.loginKey
}

// SetLoginKey caches the login key for the remainder of this request
func (s *State) SetLoginKey(key string) {
	s.loginKey = key
}

// NewContext returns a context carrying the request state
func NewContext(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, contextkeys.StateKey, st)
}

// FromContext returns the request state carried by ctx, or nil
func FromContext(ctx context.Context) *State {
	if st, ok := ctx.Value(contextkeys.StateKey).(*State); ok {
		return st
	}
	return nil
}
