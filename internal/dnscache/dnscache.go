// Package dnscache resolves hostnames to IPv4 addresses and caches the
// answer for a finite TTL, so the media proxy and Cast client can pin a
// dial to a known-good address and force a re-resolve when that address
// stops answering, instead of re-querying the OS resolver on every request.
package dnscache

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"
)

// DefaultTTL is used when a Cache is constructed with ttl <= 0.
const DefaultTTL = 5 * time.Minute

// Stats holds cache performance counters, returned by Cache.Stats. No HTTP
// endpoint reports them; /health covers circuit breakers only.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	CurrentSize int
}

// entry is one cached host -> address resolution.
type entry struct {
	addr       netip.Addr
	acquiredAt time.Time
}

func (e *entry) expired(ttl time.Duration) bool {
	return time.Since(e.acquiredAt) >= ttl
}

// Cache resolves and caches host -> IPv4 address mappings with a finite
// TTL. Host lookups are never cached forever: a device can reboot onto a
// new DHCP lease, so every entry has an expiry and can be force-refreshed
// by callers that observe a dial failure against the cached address.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats

	ttl      time.Duration
	resolver *net.Resolver

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a DNS cache with the given ttl and cleanup interval. If ttl
// is <= 0, DefaultTTL is used. If cleanupInterval is <= 0, no janitor
// goroutine is started and expired entries are only evicted lazily on
// Resolve.
func New(ttl, cleanupInterval time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		resolver: net.DefaultResolver,
		stop:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.runJanitor(cleanupInterval)
	}

	return c
}

// Resolve implements spec's resolve_host(host, force_refresh). When
// forceRefresh is false and a non-expired entry exists, it is returned.
// Otherwise a fresh lookup is performed, preferring the first IPv4 result;
// on success the answer is cached, on failure the stale entry (if any) is
// dropped and ok is false.
func (c *Cache) Resolve(ctx context.Context, host string, forceRefresh bool) (netip.Addr, bool) {
	if addr, ok := netip.ParseAddr(host); ok == nil {
		return addr, true
	}

	if !forceRefresh {
		if addr, ok := c.lookupCached(host); ok {
			return addr, true
		}
	}

	addr, err := c.lookup(ctx, host)
	if err != nil {
		c.evict(host)
		return netip.Addr{}, false
	}

	c.store(host, addr)
	return addr, true
}

// ResolveHost backs the httpclient.Resolver adapter returned by AsResolver,
// always serving from cache when fresh and only falling back to a live
// lookup on miss or expiry. It returns a plain error instead of a bool so it composes with
// code that wants to log the failure.
func (c *Cache) ResolveHost(ctx context.Context, host string) (string, error) {
	addr, ok := c.Resolve(ctx, host, false)
	if !ok {
		return "", fmt.Errorf("resolving %q: lookup failed", host)
	}
	return addr.String(), nil
}

// ForceRefresh drops any cached entry for host so the next Resolve call
// performs a fresh lookup. The AsResolver adapter forwards to it.
func (c *Cache) ForceRefresh(host string) {
	c.evict(host)
}

func (c *Cache) lookupCached(host string) (netip.Addr, bool) {
	c.mu.RLock()
	e, found := c.entries[host]
	c.mu.RUnlock()

	if !found {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return netip.Addr{}, false
	}

	if e.expired(c.ttl) {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return netip.Addr{}, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return e.addr, true
}

func (c *Cache) lookup(ctx context.Context, host string) (netip.Addr, error) {
	addrs, err := c.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("looking up %q: %w", host, err)
	}

	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			addr, ok := netip.AddrFromSlice(ip4)
			if ok {
				return addr, nil
			}
		}
	}

	// No A record; fall back to the first address of any family rather
	// than failing outright.
	if len(addrs) > 0 {
		if addr, ok := netip.AddrFromSlice(addrs[0].IP); ok {
			return addr, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("looking up %q: no addresses returned", host)
}

func (c *Cache) store(host string, addr netip.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[host] = &entry{addr: addr, acquiredAt: time.Now()}
}

func (c *Cache) evict(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.entries[host]; found {
		delete(c.entries, host)
		c.stats.Evictions++
	}
}

// Stats returns a snapshot of cache hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.CurrentSize = len(c.entries)
	return s
}

func (c *Cache) runJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for host, e := range c.entries {
		if e.expired(c.ttl) {
			delete(c.entries, host)
			c.stats.Evictions++
		}
	}
}

// Close stops the janitor goroutine, if running. Safe to call more than
// once and safe to call on a cache created with no cleanup interval.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// AsResolver adapts the cache to httpclient.Resolver's two-method shape
// (Resolve without a forceRefresh flag, ForceRefresh as a separate call),
// so it can be handed straight to httpclient.Config.Resolver.
func (c *Cache) AsResolver() *HostResolver {
	return &HostResolver{cache: c}
}

// HostResolver is the httpclient.Resolver-shaped view of a Cache.
type HostResolver struct {
	cache *Cache
}

// Resolve returns the cached or freshly looked-up address for host as a
// string, suitable for net.JoinHostPort.
func (r *HostResolver) Resolve(ctx context.Context, host string) (string, error) {
	return r.cache.ResolveHost(ctx, host)
}

// ForceRefresh drops the cached entry for host.
func (r *HostResolver) ForceRefresh(host string) {
	r.cache.ForceRefresh(host)
}
