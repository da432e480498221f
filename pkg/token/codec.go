package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

var (
	// ErrInvalid reports a token that failed to parse or whose signature
	// did not verify. Structurally invalid input is rejected before any
	// claim is examined.
	ErrInvalid = errors.New("token: invalid or tampered token")

	// ErrClaimMismatch reports a verified token whose id, issuer, or
	// subject does not match the expected values.
	ErrClaimMismatch = errors.New("token: claim mismatch")

	// ErrNoExpiry reports a verified token carrying no expiry claim.
	// Such tokens would otherwise be valid forever, so verification
	// refuses them.
	ErrNoExpiry = errors.New("token: token has no expiry")

	// ErrExpired reports a verified token past its expiry.
	ErrExpired = errors.New("token: token has expired")
)

// Codec issues and verifies the signed bearer tokens that carry a
// cross-server identity assertion. Tokens are HS512-signed compact JWTs;
// every server trusting the assertion holds the same secret.
type Codec struct {
	secret []byte
	now    func() time.Time
	logger *observability.Logger
}

// NewCodec constructs a codec from the base64-encoded shared secret. An
// empty or undecodable secret is a configuration error; there is no weak
// default.
func NewCodec(encodedSecret string, logger *observability.Logger) (*Codec, error) {
	if encodedSecret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	secret, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return nil, fmt.Errorf("token: signing secret is not valid base64: %w", err)
	}
	return &Codec{
		secret: secret,
		now:    time.Now,
		logger: logger,
	}, nil
}

// SetNowFunc overrides the clock; used by tests
func (c *Codec) SetNowFunc(now func() time.Time) {
	c.now = now
}

// Issue builds a signed token asserting that account id, vouched for by
// issuer, may be trusted by subject until the ttl elapses.
//
// A negative ttl omits the expiry claim. That escape hatch is kept for
// wire compatibility with older issuers, but Verify refuses tokens without
// expiry, so only use it when the consumer is known to accept them.
func (c *Codec) Issue(id, issuer, subject string, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		ID:       id,
		Issuer:   issuer,
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl >= 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	} else {
		c.logger.WithField("id", id).Warn("issuing bearer token without expiry; it never expires")
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

// Verify parses the serialized token and checks it against the expected
// identity. The signature is verified first: tampered or structurally
// invalid input fails with ErrInvalid before any claim comparison. On a
// valid signature, id, issuer, and subject must match exactly and the
// expiry must be strictly in the future.
func (c *Codec) Verify(serialized, id, issuer, subject string) error {
	parsed, err := jwt.ParseWithClaims(serialized, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return ErrInvalid
	}

	if claims.ID != id || claims.Issuer != issuer || claims.Subject != subject {
		return ErrClaimMismatch
	}
	if claims.ExpiresAt == nil {
		return ErrNoExpiry
	}
	if !claims.ExpiresAt.Time.After(c.now()) {
		return ErrExpired
	}
	return nil
}
