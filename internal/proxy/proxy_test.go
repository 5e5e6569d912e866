package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/castwave/internal/config"
	"github.com/jmylchreest/castwave/internal/dnscache"
	"github.com/jmylchreest/castwave/internal/httpserver/middleware"
	"github.com/jmylchreest/castwave/internal/session"
)

func testEngine(t *testing.T) (*Engine, *chi.Mux) {
	t.Helper()
	cfg := config.ProxyConfig{
		RetryAttempts:   3,
		RetryBaseDelay:  time.Second,
		UpstreamTimeout: 5 * time.Second,
	}
	cache := dnscache.New(time.Minute, 0)
	t.Cleanup(cache.Close)

	e := NewEngine(cfg, cache, session.New(), slog.New(slog.DiscardHandler))
	router := chi.NewRouter()
	router.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	e.RegisterChiRoutes(router)
	return e, router
}

func TestEngine_MissingURL(t *testing.T) {
	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/proxy", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEngine_SuccessfulProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp2t")
		_, _ = w.Write([]byte("segment-bytes"))
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "segment-bytes" {
		t.Errorf("expected body passed through, got %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len("segment-bytes")) {
		t.Errorf("expected Content-Length recomputed, got %q", got)
	}
}

func TestEngine_ForwardsQueryParamsAsHeaders(t *testing.T) {
	var gotHeader string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom")
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	q := url.Values{}
	q.Set("url", upstream.URL)
	q.Set("x-custom", "hello")

	req := httptest.NewRequest(http.MethodGet, "/proxy?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotHeader != "hello" {
		t.Errorf("expected forwarded X-Custom header, got %q", gotHeader)
	}
}

func TestEngine_RetriesTransientStatus(t *testing.T) {
	var attempts int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok-on-retry"))
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected eventual 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "ok-on-retry" {
		t.Errorf("expected retried body, got %q", rec.Body.String())
	}
	if atomic.LoadInt64(&attempts) != 2 {
		t.Errorf("expected exactly 2 upstream attempts, got %d", attempts)
	}
}

func TestEngine_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after exhausting retries, got %d", rec.Code)
	}
}

func TestEngine_FourXXIsTerminalNotRetried(t *testing.T) {
	var attempts int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected upstream 404 forwarded as-is, got %d", rec.Code)
	}
	if atomic.LoadInt64(&attempts) != 1 {
		t.Errorf("expected exactly 1 upstream attempt for a terminal 4xx, got %d", attempts)
	}
}

func TestEngine_HLSPlaylistRewritten(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:10,\nsegment1.ts\n"))
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	playlistURL := upstream.URL + "/playlist.m3u8"
	req := httptest.NewRequest(http.MethodGet, "/proxy?url="+url.QueryEscape(playlistURL), nil)
	req.Host = "192.168.1.10:8080"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/x-mpegURL" {
		t.Errorf("expected rewritten Content-Type, got %q", rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	if want := "http://192.168.1.10:8080/proxy/stream.ts?url="; !strings.Contains(body, want) {
		t.Errorf("expected segment rewritten through this proxy's authority, got:\n%s", body)
	}
}

func TestEngine_OptionsPreflightReturnsCORSHeaders(t *testing.T) {
	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/proxy", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "GET") {
		t.Errorf("expected Access-Control-Allow-Methods to include GET, got %q", got)
	}
}

func TestEngine_GetRequestCarriesCORSHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/proxy?url="+url.QueryEscape(upstream.URL), nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin header on a cross-origin GET, got %q", got)
	}
}

func TestEngine_HeadRequestWritesNoBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ignored-on-head"))
	}))
	defer upstream.Close()

	_, router := testEngine(t)

	req := httptest.NewRequest(http.MethodHead, "/proxy?url="+url.QueryEscape(upstream.URL), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if b, _ := io.ReadAll(rec.Body); len(b) != 0 {
		t.Errorf("expected empty body for HEAD, got %q", b)
	}
}
