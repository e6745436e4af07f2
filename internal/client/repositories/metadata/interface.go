// Package metadata stores small unencrypted values of the local client
// (last opened chest, cached OAuth token) in the SQLite metadata table.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt is returned by GetJSON when the stored value does not decode.
var ErrCorrupt = errors.New("corrupt metadata value")

// Repository is a byte-valued key/value store.
// Get returns (nil, nil) when key is absent.
type Repository interface {
	// Get returns the raw value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys.
const (
	KeyLastOpened   = "last_opened"
	KeyOAuthToken   = "oauth_token"
	KeyAccountEmail = "account_email"
)

// GetJSON decodes the value of key into v and reports whether it was present.
//
// Parameters:
//   - r: the repository to read from.
//   - key: one of the Key* constants or any caller-defined key.
//   - v: a pointer to decode into, as for json.Unmarshal.
//
// Returns:
//   - found: false when the key is absent or stores an empty value; v is
//     left untouched in that case.
//   - err: a repository error, or ErrCorrupt when the value is not valid
//     JSON for v.
//
// Example:
//
//	var last string
//	ok, err := metadata.GetJSON(ctx, repo, metadata.KeyLastOpened, &last)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    // nothing opened yet
//	}
func GetJSON(ctx context.Context, r Repository, key string, v any) (bool, error) {
	b, err := r.Get(ctx, key)
	if err != nil || len(b) == 0 {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("%w %q: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding metadata %q: %w", key, err)
	}
	return r.Set(ctx, key, b)
}
