package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressThrottle_ThrottleSetsCooldown(t *testing.T) {
	srv, client := newTestRedis(t)
	throttle := NewAddressThrottle(client)
	ctx := context.Background()

	require.NoError(t, throttle.Throttle(ctx, "198.51.100.7", 24*time.Hour))

	throttled, err := throttle.Throttled(ctx, "198.51.100.7")
	require.NoError(t, err)
	assert.True(t, throttled)
	assert.True(t, srv.Exists("cwl:blockcooldown:198.51.100.7"))
}

func TestAddressThrottle_CooldownExpires(t *testing.T) {
	srv, client := newTestRedis(t)
	throttle := NewAddressThrottle(client)
	ctx := context.Background()

	require.NoError(t, throttle.Throttle(ctx, "198.51.100.7", time.Hour))
	srv.FastForward(2 * time.Hour)

	throttled, err := throttle.Throttled(ctx, "198.51.100.7")
	require.NoError(t, err)
	assert.False(t, throttled)
}

func TestAddressThrottle_RepeatBlockKeepsEarlierWindow(t *testing.T) {
	srv, client := newTestRedis(t)
	throttle := NewAddressThrottle(client)
	ctx := context.Background()

	require.NoError(t, throttle.Throttle(ctx, "198.51.100.7", 24*time.Hour))
	require.NoError(t, throttle.Throttle(ctx, "198.51.100.7", time.Minute))

	// The later, shorter window must not shorten the existing cool-down.
	srv.FastForward(10 * time.Minute)
	throttled, err := throttle.Throttled(ctx, "198.51.100.7")
	require.NoError(t, err)
	assert.True(t, throttled)
}

func TestAddressThrottle_EmptyAddressIsIgnored(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewAddressThrottle(client)
	ctx := context.Background()

	require.NoError(t, throttle.Throttle(ctx, "", 24*time.Hour))

	throttled, err := throttle.Throttled(ctx, "")
	require.NoError(t, err)
	assert.False(t, throttled)
}

func TestAddressThrottle_UnknownAddress(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewAddressThrottle(client)

	throttled, err := throttle.Throttled(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, throttled)
}
