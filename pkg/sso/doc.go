// Package sso implements single-sign-on identity hand-off between webapps
// on one server and between trusting servers.
//
// # Same-server hand-off
//
// Local issues each authenticated session one opaque login key, registered
// in pkg/registry. Another webapp on the same server presents the key as
// the externalLoginKey request parameter; CheckLoginKey resolves it and
// transfers the identity onto the caller's session. Keys rotate on normal
// navigation and are reused for background sub-requests of the same page.
//
// # Cross-server hand-off
//
// Remote trusts an identity asserted by a peer server: the
// externalServerLoginKey parameter names the account, and the Authorisation
// header carries an HS512-signed bearer token (pkg/token) binding that
// account to the issuing server and the destination application. A missing
// or invalid token defensively logs out whoever is active.
//
// # Chain semantics
//
// Both entry points are preprocessor steps in a non-short-circuiting
// chain: they always return Proceed. Internally every attempt produces a
// Result (Outcome plus FailureKind) that is logged and counted, keeping
// the real behavior observable and testable while the chain sees only
// "continue".
package sso
