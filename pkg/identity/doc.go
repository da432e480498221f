// Package identity defines the authenticated principal model and the
// tenant-scoped account store it is resolved from.
//
// A Principal is an opaque reference to an account: its stable identifier,
// its owning tenant, and the administrative flags the cross-server hand-off
// path consults before login. Two Store implementations are provided: an
// in-memory store for tests and single-node use, and a PostgreSQL store for
// deployments sharing an account database across servers.
package identity
