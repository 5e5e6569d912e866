// Package cast implements the Google Cast v2 session controller: discovery
// is a separate package, but connecting, launching or adopting the default
// media receiver, loading media, and stopping a session all happen here.
package cast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/jmylchreest/castwave/internal/cast/protocol"
	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/session"
)

// castPort is the TCP port every Cast receiver's control channel listens
// on. A var, not a const, so tests can point it at a local fake receiver.
var castPort = 8009

// Client drives the Cast v2 load/stop state machine against a single
// receiver at a time; it holds no long-lived connection between calls.
type Client struct {
	cfg    config.CastConfig
	store  *session.Store
	logger *slog.Logger
}

// New builds a Cast client. store is used to publish the session resulting
// from a successful load and to look up the active session for Stop.
func New(cfg config.CastConfig, store *session.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, store: store, logger: logger}
}

// LoadMediaRequest describes one cast_load_media call.
type LoadMediaRequest struct {
	DeviceIP    netip.Addr
	URL         string
	ContentType string
	Headers     map[string]string
	Subtitles   []SubtitleTrack
}

type loadResult struct {
	transportID string
	sessionID   string
}

// LoadMedia runs the full connect/launch-or-adopt/load sequence, retrying
// the entire sequence up to cfg.LoadRetryAttempts times on failure. It
// checks the proxy port before attempting any network I/O: per contract, a
// proxy port of 0 fails immediately without dialing the receiver.
func (c *Client) LoadMedia(ctx context.Context, req LoadMediaRequest) (string, error) {
	contentURL, err := buildContentURL(c.store.ProxyPort(), req.URL, req.ContentType, req.Headers)
	if err != nil {
		return "", err
	}

	attempts := c.cfg.LoadRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.loadAttempt(ctx, req.DeviceIP, contentURL, req.ContentType, req.Subtitles)
		if err == nil {
			c.store.SetActive(session.Active{
				DeviceIP:    req.DeviceIP,
				TransportID: result.transportID,
				SessionID:   result.sessionID,
			})
			return "Media Loaded", nil
		}

		lastErr = err
		c.logger.Warn("cast load attempt failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.LoadRetryDelay):
			}
		}
	}

	return "", fmt.Errorf("Failed after %d attempts. Last error: %s", attempts, lastErr) //nolint:stylecheck // exact user-facing text per contract.
}

// loadAttempt executes one pass of the INIT -> DONE state machine.
func (c *Client) loadAttempt(ctx context.Context, deviceIP netip.Addr, contentURL, contentType string, subs []SubtitleTrack) (loadResult, error) {
	addr := fmt.Sprintf("%s:%d", deviceIP, castPort)

	conn, err := dial(ctx, addr, c.cfg.ConnectTimeout)
	if err != nil {
		return loadResult{}, fmt.Errorf("Connect failed: %v", err) //nolint:stylecheck // exact user-facing text per contract.
	}
	defer conn.Close()

	if err := conn.send(protocol.NamespaceConnection, protocol.ReceiverID, connectPayload{Type: typeConnect}); err != nil {
		return loadResult{}, fmt.Errorf("Connect sender-0 failed: %v", err) //nolint:stylecheck
	}

	if err := c.handshake(conn); err != nil {
		return loadResult{}, fmt.Errorf("Connect sender-0 failed: %v", err) //nolint:stylecheck
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go c.heartbeatLoop(heartbeatCtx, conn)

	if err := c.sleep(ctx, c.cfg.StatusSettleDelay); err != nil {
		return loadResult{}, err
	}

	transportID, sessionID, err := c.statusOrLaunch(conn)
	if err != nil {
		return loadResult{}, err
	}

	if err := conn.send(protocol.NamespaceConnection, transportID, connectPayload{Type: typeConnect}); err != nil {
		return loadResult{}, fmt.Errorf("Connect transport failed: %v", err) //nolint:stylecheck
	}

	if err := c.sleep(ctx, c.cfg.TransportSettleDelay); err != nil {
		return loadResult{}, err
	}

	if err := c.loadMedia(conn, transportID, sessionID, contentURL, contentType, subs); err != nil {
		return loadResult{}, err
	}

	if err := c.sleep(ctx, c.cfg.KeepAliveAfterLoad); err != nil {
		return loadResult{}, err
	}

	return loadResult{transportID: transportID, sessionID: sessionID}, nil
}

// handshake sends a PING on the heartbeat channel and waits for the
// receiver's PONG, the HANDSHAKE -> ALIVE transition.
func (c *Client) handshake(conn *connection) error {
	if err := conn.send(protocol.NamespaceHeartbeat, protocol.ReceiverID, heartbeatPayload{Type: typePing}); err != nil {
		return err
	}
	_, err := conn.awaitOnNamespace(protocol.NamespaceHeartbeat, []string{typePong}, time.Now().Add(c.cfg.ConnectTimeout), nil)
	return err
}

// statusOrLaunch fetches receiver status; if the default media receiver is
// already running it adopts its transport/session, otherwise it launches
// a fresh instance and waits for the resulting status.
func (c *Client) statusOrLaunch(conn *connection) (transportID, sessionID string, err error) {
	if err := conn.send(protocol.NamespaceReceiver, protocol.ReceiverID, getStatusRequest{
		Type:      typeGetStatus,
		RequestID: conn.nextRequestID(),
	}); err != nil {
		return "", "", fmt.Errorf("Get status failed: %v", err) //nolint:stylecheck
	}

	var status receiverStatusResponse
	if _, err := conn.awaitOnNamespace(protocol.NamespaceReceiver, []string{typeReceiverStatus}, time.Now().Add(c.cfg.ConnectTimeout), &status); err != nil {
		return "", "", fmt.Errorf("Get status failed: %v", err) //nolint:stylecheck
	}

	if transportID, sessionID, ok := findApp(status.Status.Applications); ok {
		c.logger.Debug("adopting already-running app", slog.String("transport_id", transportID))
		return transportID, sessionID, nil
	}

	if err := conn.send(protocol.NamespaceReceiver, protocol.ReceiverID, launchRequest{
		Type:      typeLaunch,
		RequestID: conn.nextRequestID(),
		AppID:     protocol.DefaultMediaReceiverAppID,
	}); err != nil {
		return "", "", fmt.Errorf("Launch app failed: %v", err) //nolint:stylecheck
	}

	var launched receiverStatusResponse
	if _, err := conn.awaitOnNamespace(protocol.NamespaceReceiver, []string{typeReceiverStatus}, time.Now().Add(c.cfg.ConnectTimeout), &launched); err != nil {
		return "", "", fmt.Errorf("Launch app failed: %v", err) //nolint:stylecheck
	}

	transportID, sessionID, ok := findApp(launched.Status.Applications)
	if !ok {
		return "", "", fmt.Errorf("Launch app failed: %v", errors.New("launched app did not appear in receiver status")) //nolint:stylecheck
	}
	return transportID, sessionID, nil
}

func findApp(apps []application) (transportID, sessionID string, ok bool) {
	for _, app := range apps {
		if app.AppID == protocol.DefaultMediaReceiverAppID {
			return app.TransportID, app.SessionID, true
		}
	}
	return "", "", false
}

// loadMedia sends LOAD on the app transport and waits for an acknowledgement.
func (c *Client) loadMedia(conn *connection, transportID, sessionID, contentURL, contentType string, subs []SubtitleTrack) error {
	tracks, activeTrackIDs := buildTracks(subs)

	if err := conn.send(protocol.NamespaceMedia, transportID, loadRequest{
		Type:      typeLoad,
		RequestID: conn.nextRequestID(),
		SessionID: sessionID,
		Media: mediaObject{
			ContentID:   contentURL,
			StreamType:  "BUFFERED",
			ContentType: contentType,
			Tracks:      tracks,
		},
		ActiveTrackIDs: activeTrackIDs,
	}); err != nil {
		return fmt.Errorf("Load media failed: %v", err) //nolint:stylecheck
	}

	responseType, err := conn.awaitOnNamespace(protocol.NamespaceMedia,
		[]string{typeMediaStatus, typeLoadFailed, typeLoadCancelled},
		time.Now().Add(c.cfg.ConnectTimeout), nil)
	if err != nil {
		return fmt.Errorf("Load media failed: %v", err) //nolint:stylecheck
	}
	if responseType != typeMediaStatus {
		return fmt.Errorf("Load media failed: %v", fmt.Errorf("receiver responded %s", responseType)) //nolint:stylecheck
	}
	return nil
}

// heartbeatLoop sends a PING on the heartbeat channel every cfg interval
// until ctx is cancelled or a send fails, keeping the receiver from
// closing the connection out from under the rest of the load sequence.
func (c *Client) heartbeatLoop(ctx context.Context, conn *connection) {
	interval := c.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.send(protocol.NamespaceHeartbeat, protocol.ReceiverID, heartbeatPayload{Type: typePing}); err != nil {
				c.logger.Debug("heartbeat ping failed, stopping", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Stop reconnects to the device holding the active session and issues
// STOP on the receiver channel. It never reuses a live connection, since
// none is kept between calls.
func (c *Client) Stop(ctx context.Context) (string, error) {
	active, ok := c.store.Active()
	if !ok {
		return "", errors.New("No active cast connection") //nolint:stylecheck // exact user-facing text per contract.
	}

	addr := fmt.Sprintf("%s:%d", active.DeviceIP, castPort)
	conn, err := dial(ctx, addr, c.cfg.ConnectTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.send(protocol.NamespaceConnection, protocol.ReceiverID, connectPayload{Type: typeConnect}); err != nil {
		return "", err
	}
	if err := conn.send(protocol.NamespaceReceiver, protocol.ReceiverID, stopRequest{
		Type:      typeStop,
		RequestID: conn.nextRequestID(),
		SessionID: active.SessionID,
	}); err != nil {
		return "", err
	}

	c.store.Clear()
	return "Executed stop", nil
}
