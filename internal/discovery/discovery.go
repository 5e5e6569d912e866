// Package discovery browses the LAN for Google Cast receivers over mDNS.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// serviceType and serviceDomain together name the mDNS service every Cast
// receiver advertises: "_googlecast._tcp.local.".
const (
	serviceType   = "_googlecast._tcp"
	serviceDomain = "local."
)

// DefaultBrowseTimeout is used when Discover is called with timeout <= 0.
const DefaultBrowseTimeout = 2 * time.Second

// CastDeviceInfo describes one discovered Cast receiver.
type CastDeviceInfo struct {
	Name string
	IP   netip.Addr
}

// Discoverer browses for Cast receivers over mDNS. It is a concrete type;
// there is no interface for substituting a fake resolver.
type Discoverer struct {
	logger *slog.Logger
}

// New creates a Discoverer.
func New(logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{logger: logger}
}

// Discover browses `_googlecast._tcp.local.` for the given window and
// returns one CastDeviceInfo per distinct IPv4 address seen. A zero or
// negative timeout uses DefaultBrowseTimeout.
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) ([]CastDeviceInfo, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: starting mDNS resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(browseCtx, serviceType, serviceDomain, entries); err != nil {
		return nil, fmt.Errorf("discovery: browsing %s%s: %w", serviceType, serviceDomain, err)
	}

	var seen []*zeroconf.ServiceEntry
	for entry := range entries {
		seen = append(seen, entry)
	}

	devices := dedupeByIPv4(seen)
	for _, dev := range devices {
		d.logger.Debug("discovered cast receiver", slog.String("name", dev.Name), slog.String("ip", dev.IP.String()))
	}

	return devices, nil
}

// dedupeByIPv4 converts resolved mDNS entries into CastDeviceInfo, keeping
// exactly one entry per distinct IPv4 address: the first one seen wins,
// matching spec's "two advertisements for the same IP -> one result".
func dedupeByIPv4(entries []*zeroconf.ServiceEntry) []CastDeviceInfo {
	byIP := make(map[netip.Addr]CastDeviceInfo)
	var order []netip.Addr

	for _, entry := range entries {
		ip, ok := firstIPv4(entry)
		if !ok {
			continue
		}
		if _, exists := byIP[ip]; exists {
			continue
		}
		byIP[ip] = CastDeviceInfo{Name: deviceName(entry), IP: ip}
		order = append(order, ip)
	}

	devices := make([]CastDeviceInfo, 0, len(order))
	for _, ip := range order {
		devices = append(devices, byIP[ip])
	}
	return devices
}

func firstIPv4(entry *zeroconf.ServiceEntry) (netip.Addr, bool) {
	for _, ip := range entry.AddrIPv4 {
		if addr, ok := netip.AddrFromSlice(ip.To4()); ok {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

// deviceName prefers the TXT record's "fn" (friendly name) property, falls
// back to the service instance name, then to the hostname with its
// trailing dot stripped.
func deviceName(entry *zeroconf.ServiceEntry) string {
	if fn, ok := txtValue(entry.Text, "fn"); ok && fn != "" {
		return fn
	}
	if entry.Instance != "" {
		return entry.Instance
	}
	return strings.TrimSuffix(entry.HostName, ".")
}

func txtValue(txt []string, key string) (string, bool) {
	prefix := key + "="
	for _, rec := range txt {
		if strings.HasPrefix(rec, prefix) {
			return strings.TrimPrefix(rec, prefix), true
		}
	}
	return "", false
}
