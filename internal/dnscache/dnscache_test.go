package dnscache

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ResolveLiteralIP(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	addr, ok := c.Resolve(context.Background(), "192.168.1.42", false)
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("192.168.1.42"), addr)

	// A literal IP never touches the cache or the resolver.
	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestCache_ResolveCachesSuccessfulLookup(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.store("receiver.local", netip.MustParseAddr("10.0.0.5"))

	addr, ok := c.Resolve(context.Background(), "receiver.local", false)
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), addr)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestCache_ExpiredEntryIsMissed(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	defer c.Close()

	c.store("receiver.local", netip.MustParseAddr("10.0.0.5"))

	time.Sleep(30 * time.Millisecond)

	_, ok := c.lookupCached("receiver.local")
	assert.False(t, ok, "expected expired entry to miss")
}

func TestCache_ForceRefreshDropsCachedEntry(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	c.store("receiver.local", netip.MustParseAddr("10.0.0.5"))
	assert.Equal(t, 1, c.Stats().CurrentSize)

	c.ForceRefresh("receiver.local")
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestCache_JanitorEvictsExpiredEntries(t *testing.T) {
	c := New(10*time.Millisecond, 5*time.Millisecond)
	defer c.Close()

	c.store("receiver.local", netip.MustParseAddr("10.0.0.5"))

	require.Eventually(t, func() bool {
		return c.Stats().CurrentSize == 0
	}, 200*time.Millisecond, 5*time.Millisecond, "expected janitor to evict expired entry")

	assert.GreaterOrEqual(t, c.Stats().Evictions, int64(1))
}

func TestHostResolver_ImplementsResolverShape(t *testing.T) {
	c := New(time.Minute, 0)
	defer c.Close()

	r := c.AsResolver()

	ip, err := r.Resolve(context.Background(), "192.168.1.42")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.42", ip)

	// ForceRefresh on an address never cached is a no-op, not an error.
	r.ForceRefresh("192.168.1.42")
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	c.Close()
	assert.NotPanics(t, func() { c.Close() })
}
