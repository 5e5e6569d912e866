// Package caster exposes the four externally visible casting operations —
// discover, load, control, and status — as a thin facade over discovery,
// the Cast client, and the session store.
package caster

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jmylchreest/castwave/internal/cast"
	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/discovery"
	"github.com/jmylchreest/castwave/internal/session"
)

// DiscoveredDevice is one entry in a CastDiscover result.
type DiscoveredDevice struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// LoadMediaRequest is the input to CastLoadMedia.
type LoadMediaRequest struct {
	DeviceIP    string
	URL         string
	ContentType string
	Headers     map[string]string
	Subtitles   []cast.SubtitleTrack
}

// Facade wires discovery, the Cast client, and the session store behind
// the four named operations.
type Facade struct {
	discoverer *discovery.Discoverer
	castClient *cast.Client
	store      *session.Store
	logger     *slog.Logger

	browseTimeout time.Duration

	// loadGroup collapses overlapping CastLoadMedia calls into the single
	// in-flight load already running: a load is a multi-second, strictly
	// ordered state machine against one receiver, and the session store
	// only ever tracks one active session, so a second concurrent caller
	// should observe the first load's outcome rather than race it.
	loadGroup singleflight.Group
}

// New builds a Facade around the given session store, constructing its own
// mDNS discoverer and Cast client from cfg.
func New(cfg config.Config, store *session.Store, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{
		discoverer:    discovery.New(logger),
		castClient:    cast.New(cfg.Cast, store, logger),
		store:         store,
		logger:        logger,
		browseTimeout: cfg.Discovery.BrowseTimeout,
	}
}

// CastDiscover browses the LAN for Cast receivers.
func (f *Facade) CastDiscover(ctx context.Context) ([]DiscoveredDevice, error) {
	devices, err := f.discoverer.Discover(ctx, f.browseTimeout)
	if err != nil {
		return nil, err
	}

	out := make([]DiscoveredDevice, len(devices))
	for i, d := range devices {
		out[i] = DiscoveredDevice{Name: d.Name, IP: d.IP.String()}
	}
	return out, nil
}

// CastLoadMedia connects to the given receiver and loads the given media
// URL, launching or adopting the default media receiver app as needed.
func (f *Facade) CastLoadMedia(ctx context.Context, req LoadMediaRequest) (string, error) {
	deviceIP, err := netip.ParseAddr(req.DeviceIP)
	if err != nil {
		return "", fmt.Errorf("caster: invalid device_ip %q: %w", req.DeviceIP, err)
	}

	result, err, _ := f.loadGroup.Do("load", func() (any, error) {
		return f.castClient.LoadMedia(ctx, cast.LoadMediaRequest{
			DeviceIP:    deviceIP,
			URL:         req.URL,
			ContentType: req.ContentType,
			Headers:     req.Headers,
			Subtitles:   req.Subtitles,
		})
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil //nolint:errcheck // loadGroup.Do's func always returns a string.
}

// CastControl executes a control action against the active session. Only
// "stop" is implemented; every other action reports ErrUnsupportedAction
// rather than guessing at behavior no source defines.
func (f *Facade) CastControl(ctx context.Context, action string) (string, error) {
	if action != "stop" {
		return "", ErrUnsupportedAction
	}
	return f.castClient.Stop(ctx)
}

// GetProxyStatus returns the proxy's published "<lan_ip>:<port>" address.
func (f *Facade) GetProxyStatus() (string, error) {
	addr, ok := f.store.ProxyAddress()
	if !ok {
		return "", ErrProxyNotStarted
	}
	return addr, nil
}
