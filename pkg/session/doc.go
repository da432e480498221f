// Package session provides the HTTP session abstraction the SSO core runs
// against: a concurrent attribute map keyed by session id, per-request
// mutable state carried in the request context, a keyed mutex for
// serializing per-session critical sections, and the login/logout
// primitives that bind a principal to a session.
//
// The package deliberately knows nothing about login keys or tokens; those
// live in pkg/registry and pkg/sso. Hosts embedding the coordinators in an
// existing platform can supply their own Session implementation.
package session
