// Package token implements the cross-server bearer token codec: compact
// HS512-signed JWTs carrying the asserted account id, the issuing server's
// canonical name, the destination application, and a short expiry.
//
// Tokens are transient and never stored; each one is minted for a single
// cross-server hand-off and verified statelessly by the receiving server
// under the shared secret. Verification is fail-closed: a parse or
// signature failure rejects the token before any claim is compared, and a
// token without an expiry claim is refused outright.
package token
