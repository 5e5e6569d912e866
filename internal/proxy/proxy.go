// Package proxy implements the LAN-facing media proxy: a passthrough HTTP
// endpoint that fetches a caller-supplied upstream URL, retries transient
// failures with a DNS re-resolve in between, and rewrites HLS playlists so
// that every segment and variant reference routes back through this same
// proxy instead of the original remote origin.
package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/dnscache"
	"github.com/jmylchreest/castwave/internal/httpclient"
	"github.com/jmylchreest/castwave/internal/session"
	"github.com/jmylchreest/castwave/pkg/m3u8"
	"github.com/jmylchreest/castwave/pkg/netinfo"
)

// reservedQueryParam is the query key that carries the upstream URL. Every
// other query parameter is reconstituted into an outgoing request header.
const reservedQueryParam = "url"

// defaultRetryAttempts and defaultRetryBaseDelay back fetchWithRetry when
// the engine's config.ProxyConfig leaves RetryAttempts/RetryBaseDelay unset, matching the
// linear 1s/2s backoff for transient upstream failures.
const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
)

var (
	proxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "castwave_proxy_requests_total",
		Help: "Total number of /proxy requests handled, by outcome.",
	}, []string{"outcome"})

	proxyUpstreamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castwave_proxy_upstream_retries_total",
		Help: "Total number of upstream fetch retries issued by the media proxy.",
	})

	proxyBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "castwave_proxy_bytes_total",
		Help: "Total number of response bytes relayed by the media proxy.",
	})
)

// Engine is the media proxy's HTTP handler: it resolves and fetches a
// caller-supplied URL, classifying failures as transient (retry with a
// forced DNS re-resolve) or terminal (forward to the caller as-is).
type Engine struct {
	client   *httpclient.Client
	dnsCache *dnscache.Cache
	store    *session.Store
	cfg      config.ProxyConfig
	logger   *slog.Logger
}

// NewEngine builds a media proxy engine. The underlying httpclient.Client is
// configured with no internal retries: Engine owns the retry loop itself so
// it can force a DNS re-resolve between attempts, while still getting the
// client's per-host circuit breaker, decompression, and response-size cap.
func NewEngine(cfg config.ProxyConfig, dnsCache *dnscache.Cache, store *session.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	client := httpclient.New(httpclient.Config{
		Timeout:             cfg.UpstreamTimeout,
		RetryAttempts:       0,
		EnableDecompression: true,
		MaxResponseSize:     cfg.MaxResponseSize.Int64(),
		Resolver:            dnsCache.AsResolver(),
		Logger:              logger,
	})

	return &Engine{
		client:   client,
		dnsCache: dnsCache,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// Breakers exposes the proxy's per-host circuit breaker manager so the
// health endpoint can report upstream breaker state.
func (e *Engine) Breakers() *httpclient.CircuitBreakerManager {
	return e.client.Breakers()
}

// RegisterChiRoutes mounts the proxy's raw passthrough handler directly on
// the chi router, bypassing Huma: the proxy streams arbitrary media bytes
// and must control headers (Range, Content-Range) that Huma's typed
// response model cannot express. The caller is expected to have already
// applied a CORS middleware to router so cross-origin GET/HEAD requests and
// OPTIONS preflights both carry the right headers.
func (e *Engine) RegisterChiRoutes(router chi.Router) {
	for _, pattern := range []string{"/proxy", "/proxy/{filename}"} {
		router.Get(pattern, e.handleProxy)
		router.Head(pattern, e.handleProxy)
		router.Options(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func (e *Engine) handleProxy(w http.ResponseWriter, r *http.Request) {
	targetRaw := r.URL.Query().Get(reservedQueryParam)
	if strings.TrimSpace(targetRaw) == "" {
		proxyRequestsTotal.WithLabelValues("missing_url").Inc()
		http.Error(w, "Missing URL", http.StatusBadRequest)
		return
	}

	target, err := url.Parse(targetRaw)
	if err != nil || target.Host == "" {
		proxyRequestsTotal.WithLabelValues("invalid_url").Inc()
		http.Error(w, fmt.Sprintf("Error: invalid url: %v", err), http.StatusBadRequest)
		return
	}

	headers := forwardedHeaders(r.URL.Query())
	if rng := r.Header.Get("Range"); rng != "" {
		headers.Set("Range", rng)
	}

	resp, body, err := e.fetchWithRetry(r.Context(), r.Method, target, headers)
	if err != nil {
		proxyRequestsTotal.WithLabelValues("upstream_error").Inc()
		http.Error(w, fmt.Sprintf("Error: %v", err), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	authority := e.authority(r)
	contentType := resp.Header.Get("Content-Type")

	if isHLSRequest(targetRaw, contentType) {
		rewritten, rerr := m3u8.RewritePlaylist(string(body), target, authority, headers)
		if rerr != nil {
			e.logger.Warn("hls rewrite failed, serving original playlist", slog.String("error", rerr.Error()))
		} else {
			body = []byte(rewritten)
			contentType = "application/x-mpegURL"
		}
	}

	copyPassthroughHeaders(w.Header(), resp.Header)
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if w.Header().Get("Accept-Ranges") == "" {
		w.Header().Set("Accept-Ranges", "bytes")
	}

	w.WriteHeader(resp.StatusCode)
	proxyRequestsTotal.WithLabelValues("ok").Inc()

	if r.Method == http.MethodHead {
		return
	}
	n, _ := w.Write(body)
	proxyBytesTotal.Add(float64(n))
}

// fetchWithRetry fetches target up to cfg.RetryAttempts times, classifying a
// network error, a 5xx/429 status, or a failed body read as transient: it
// force-refreshes the cached DNS entry for the upstream host and retries
// after a linear per-attempt backoff of cfg.RetryBaseDelay. Any other
// outcome is terminal, success or not, and is returned immediately.
func (e *Engine) fetchWithRetry(ctx context.Context, method string, target *url.URL, headers http.Header) (*http.Response, []byte, error) {
	maxAttempts := e.cfg.RetryAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	retryBaseDelay := e.cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			e.dnsCache.ForceRefresh(target.Hostname())
			proxyUpstreamRetriesTotal.Inc()

			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * retryBaseDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
		if err != nil {
			return nil, nil, err
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = err
			e.logger.Warn("upstream fetch failed, will retry",
				slog.Int("attempt", attempt), slog.String("error", err.Error()))
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			resp.Body.Close()
			e.logger.Warn("upstream returned retryable status",
				slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading upstream body: %w", err)
			e.logger.Warn("upstream body read failed, will retry",
				slog.Int("attempt", attempt), slog.String("error", err.Error()))
			continue
		}

		return resp, body, nil
	}

	return nil, nil, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

// authority returns the address clients should use to reach this proxy:
// the Host header of the inbound request if present, otherwise the LAN
// IPv4 address paired with the proxy's published port.
func (e *Engine) authority(r *http.Request) string {
	if r.Host != "" {
		return r.Host
	}
	if addr, ok := e.store.ProxyAddress(); ok {
		return addr
	}
	return fmt.Sprintf("%s:%d", netinfo.LocalIPv4String(), e.store.ProxyPort())
}

// forwardedHeaders reconstitutes outgoing request headers from every query
// parameter except "url": header names are canonicalized by http.Header
// (so "user-agent" and "User-Agent" merge into one header), and values
// containing control characters are dropped rather than forwarded, since
// they cannot be valid header field values.
func forwardedHeaders(query url.Values) http.Header {
	headers := make(http.Header)
	for key, values := range query {
		if key == reservedQueryParam {
			continue
		}
		for _, v := range values {
			if !validHeaderValue(v) {
				continue
			}
			headers.Add(strings.ToLower(key), v)
		}
	}
	return headers
}

func validHeaderValue(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 && v[i] != '\t' {
			return false
		}
		if v[i] == 0x7f {
			return false
		}
	}
	return true
}

// copyPassthroughHeaders forwards the subset of upstream response headers
// the caller needs to resume byte-range playback correctly.
func copyPassthroughHeaders(dst, src http.Header) {
	for _, h := range []string{"Content-Range", "Accept-Ranges", "Cache-Control", "ETag", "Last-Modified"} {
		if v := src.Get(h); v != "" {
			dst.Set(h, v)
		}
	}
}

func isHLSRequest(targetURL, contentType string) bool {
	lowerURL := strings.ToLower(targetURL)
	lowerType := strings.ToLower(contentType)
	return strings.Contains(lowerURL, ".m3u8") ||
		strings.Contains(lowerType, "mpegurl") ||
		strings.Contains(lowerType, "m3u8")
}
