// Package expiring defines the keyed store with per-key time-to-live used for
// staged registrations and rate counters, plus an in-memory implementation.
package expiring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/exam-registration/internal/domain"
)

// Store is a put/get/delete-with-TTL store keyed by string.
// Get returns domain.ErrNotFound once a key's TTL elapses, exactly as if Delete
// had been called; implementations must never serve a stale value.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Incr atomically adds one to the counter at key and returns the new
	// count. A missing or expired key starts at one with ttl; later increments
	// keep the original expiry.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// PutJSON encodes v and stores it under key for ttl.
func PutJSON[T any](ctx context.Context, s Store, key string, v T, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("put %s: ttl must be positive: %w", key, domain.ErrBadRequest)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, b, ttl)
}

// GetJSON loads and decodes the value under key.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	b, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return &v, nil
}
