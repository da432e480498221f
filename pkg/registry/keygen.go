package registry

import (
	"context"

	"github.com/google/uuid"
)

// KeyPrefix identifies login keys
const KeyPrefix = "EL"

// NewKey generates a login key that is not present in the store. A random
// 128-bit UUID makes collisions negligible, but uniqueness is an invariant
// of the registry, so generation retries until the key is confirmed absent
// rather than assuming it.
//
// Callers issue keys under the per-session lock, so the check-then-put
// window is not observable for a single session.
func NewKey(ctx context.Context, s Store) (string, error) {
	for {
		key := KeyPrefix + uuid.NewString()
		_, ok, err := s.Get(ctx, key)
		if err != nil {
			return "", err
		}
		if !ok {
			return key, nil
		}
	}
}
