// Package registry implements the process-wide login key registry: a
// concurrent mapping from opaque, unguessable login keys to the principals
// they represent.
//
// # Lifecycle
//
// Keys have no TTL. A key is created when a session first needs one,
// replaced when the session navigates (rotation), and removed when the
// session logs out or ends. The registry itself lives for the server
// process; Clear exists for teardown and test isolation.
//
// # Backends
//
// Memory is the default and matches the one-process-per-server model. Redis
// backs deployments where several processes serve one logical host and must
// honor each other's keys.
//
// # Key format
//
// "EL" + random UUID, e.g. EL550e8400-e29b-41d4-a716-446655440000. NewKey
// retries until the generated key is absent from the store.
package registry
