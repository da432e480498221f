package identity

// Principal is an authenticated account reference a session can be bound to.
type Principal struct {
	// ID is the stable account identifier, unique within a tenant.
	ID string

	// Tenant names the isolated data partition the account belongs to.
	Tenant string

	// Enabled is the administrative flag on the account: "Y", "N", or
	// empty. An empty value is treated as enabled; that default is part
	// of the account store contract and must not be tightened here.
	Enabled string

	// HasLoggedOut records that the account's last session ended with an
	// explicit logout. It is cleared when the account is re-authenticated
	// through a trusted cross-server assertion.
	HasLoggedOut bool
}

// LoginAllowed reports whether the administrative flag permits login.
func (p Principal) LoginAllowed() bool {
	return p.Enabled == "" || p.Enabled == "Y"
}
