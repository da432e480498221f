package middleware

import (
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/sso"
)

// HandOff runs both SSO coordinators as preprocessor steps before the next
// handler. The chain never short-circuits: whatever the coordinators
// decide, the request continues, matching their always-Proceed contract.
func HandOff(local *sso.Local, remote *sso.Remote) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if local != nil {
				local.CheckLoginKey(w, r)
			}
			if remote != nil {
				remote.CheckServerLoginKey(w, r)
			}
			next.ServeHTTP(w, r)
		})
	}
}
