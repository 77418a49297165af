// Package store provides the persistent key-value store shared by the quota
// tracker, the response cache, the replied-comment record and the user tokens.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// ErrConflict is returned by Update when optimistic retries are exhausted.
var ErrConflict = errors.New("store: concurrent update conflict")

// maxUpdateAttempts bounds optimistic read-modify-write retries.
const maxUpdateAttempts = 10

// UpdateFunc receives the current value (nil when absent) and returns the value
// to store. Returning a nil slice leaves the key untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a key-value store with an atomic read-modify-write primitive.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Update applies fn atomically with respect to other Update calls on the same key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// GetJSON decodes the value at key into dst.
func GetJSON(ctx context.Context, s Store, key string, dst any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// UpdateJSON runs fn over the decoded value at key inside Update. fn reports
// whether the mutated value must be written back. A value that fails to decode
// is treated as absent.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v *T, exists bool) (bool, error)) error {
	return s.Update(ctx, key, func(current []byte) ([]byte, error) {
		var v T
		exists := false
		if current != nil {
			if err := json.Unmarshal(current, &v); err == nil {
				exists = true
			} else {
				var zero T
				v = zero
			}
		}
		write, err := fn(&v, exists)
		if err != nil || !write {
			return nil, err
		}
		return json.Marshal(v)
	})
}
