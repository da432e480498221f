package middleware

import (
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/session"
)

// TenantParam selects the working tenant for a request
const TenantParam = "tenant"

// SessionState ensures every request has a session and a *session.State in
// its context. The state starts with the session's active principal
// attached and the working tenant resolved from the tenant parameter,
// falling back to defaultTenant.
func SessionState(manager *session.Manager, defaultTenant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := manager.Ensure(w, r)

			tenant := r.URL.Query().Get(TenantParam)
			if tenant == "" {
				tenant = defaultTenant
			}

			st := &session.State{
				Session:   s,
				Tenant:    tenant,
				Principal: session.CurrentPrincipal(s),
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), st)))
		})
	}
}
