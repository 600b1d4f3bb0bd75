package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ubc/wiki-cwl-link/internal/ports"
)

// AddressThrottle records a cool-down window per originating network address
// after a policy block. The key's TTL is the window; NX keeps an earlier,
// longer cool-down from being shortened by a repeat block.
type AddressThrottle struct {
	client redis.UniversalClient
	prefix string
}

// NewAddressThrottle creates a Redis-backed address throttle.
func NewAddressThrottle(client redis.UniversalClient) *AddressThrottle {
	return &AddressThrottle{client: client, prefix: "cwl:blockcooldown:"}
}

// Throttle places the address under cool-down for the given window.
func (t *AddressThrottle) Throttle(ctx context.Context, addr string, window time.Duration) error {
	if addr == "" || window <= 0 {
		return nil
	}
	return t.client.SetNX(ctx, t.prefix+addr, time.Now().UTC().Format(time.RFC3339), window).Err()
}

// Throttled reports whether the address is currently under cool-down.
func (t *AddressThrottle) Throttled(ctx context.Context, addr string) (bool, error) {
	if addr == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, t.prefix+addr).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ ports.AddressThrottle = (*AddressThrottle)(nil)
