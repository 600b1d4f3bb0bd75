package redis

// Package redis provides Redis-based adapters for pending-identity staging
// and the block cool-down throttle.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ubc/wiki-cwl-link/internal/domain/identity"
	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// PendingStore stages PendingIdentity records in Redis keyed by attempt ID,
// for hosts whose resolve and finalize callbacks may land on different
// processes. Records expire after the configured TTL, and Take consumes via
// GETDEL so a staged record is observed at most once.
type PendingStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// PendingStoreOptions groups construction parameters for PendingStore.
type PendingStoreOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewPendingStore creates a Redis-backed pending store.
func NewPendingStore(client redis.UniversalClient, opts PendingStoreOptions) *PendingStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "cwl:pending:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PendingStore{client: client, prefix: prefix, ttl: ttl}
}

// Put stages the record under the attempt ID, replacing any prior one.
func (s *PendingStore) Put(ctx context.Context, attemptID string, p identity.PendingIdentity) error {
	if attemptID == "" {
		return errors.New("attempt ID cannot be empty")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending identity: %w", err)
	}

	return s.client.Set(ctx, s.prefix+attemptID, data, s.ttl).Err()
}

// Take removes and returns the staged record for the attempt, if any.
func (s *PendingStore) Take(ctx context.Context, attemptID string) (identity.PendingIdentity, bool, error) {
	if attemptID == "" {
		return identity.PendingIdentity{}, false, nil
	}

	data, err := s.client.GetDel(ctx, s.prefix+attemptID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return identity.PendingIdentity{}, false, nil
		}
		return identity.PendingIdentity{}, false, fmt.Errorf("redis getdel: %w", err)
	}

	var p identity.PendingIdentity
	if unmarshalErr := json.Unmarshal([]byte(data), &p); unmarshalErr != nil {
		return identity.PendingIdentity{}, false, fmt.Errorf("unmarshal pending identity: %w", unmarshalErr)
	}
	return p, true, nil
}

var _ ports.PendingStore = (*PendingStore)(nil)
