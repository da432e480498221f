package sso

import (
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/session"
)

// stateTenantSwitcher is the default TenantSwitcher: it repoints the
// request's working tenant at the principal's owner. Platforms with real
// per-tenant dispatch (separate datasources, routing tables) supply their
// own implementation.
type stateTenantSwitcher struct {
	logger *observability.Logger
}

// NewStateTenantSwitcher creates the default tenant switcher
func NewStateTenantSwitcher(logger *observability.Logger) TenantSwitcher {
	return &stateTenantSwitcher{logger: logger}
}

// Switch implements TenantSwitcher
func (s *stateTenantSwitcher) Switch(st *session.State, tenant string) error {
	s.logger.WithFields(map[string]interface{}{
		"from": st.Tenant,
		"to":   tenant,
	}).Debug("switching working tenant")
	st.Tenant = tenant
	return nil
}
