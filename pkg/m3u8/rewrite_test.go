package m3u8

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return u
}

func TestRewritePlaylist_MediaPlaylist(t *testing.T) {
	body := "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\nsegment001.ts\n#EXTINF:10,\nsegment002.ts\n"
	base := mustParse(t, "https://origin.example.com/stream/playlist.m3u8")

	got, err := RewritePlaylist(body, base, "192.168.1.10:8080", http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "https://origin.example.com/stream/segment001.ts"
	if !strings.Contains(got, "url="+url.QueryEscape(want)) {
		t.Errorf("expected rewritten segment to embed %q, got:\n%s", want, got)
	}
	if !strings.Contains(got, "http://192.168.1.10:8080/proxy/stream.ts?") {
		t.Errorf("expected segment rewritten to proxy URL, got:\n%s", got)
	}
	if !strings.Contains(got, "#EXT-X-TARGETDURATION:10") {
		t.Errorf("expected tag lines without URIs to pass through unchanged")
	}
}

func TestRewritePlaylist_MasterPlaylistVariant(t *testing.T) {
	body := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=128000\nlow/index.m3u8\n"
	base := mustParse(t, "https://origin.example.com/stream/master.m3u8")

	got, err := RewritePlaylist(body, base, "192.168.1.10:8080", http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "/proxy/stream.m3u8?url=") {
		t.Errorf("expected variant playlist reference rewritten to proxy .m3u8, got:\n%s", got)
	}
}

func TestRewritePlaylist_TagURIAttribute(t *testing.T) {
	body := `#EXTM3U` + "\n" + `#EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=0x1` + "\n" + "segment.ts\n"
	base := mustParse(t, "https://origin.example.com/stream/playlist.m3u8")

	got, err := RewritePlaylist(body, base, "192.168.1.10:8080", http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, `URI="http://192.168.1.10:8080/proxy/`) {
		t.Errorf("expected key URI rewritten to a proxy URL, got:\n%s", got)
	}
}

func TestRewritePlaylist_ForwardsHeadersExceptRange(t *testing.T) {
	body := "#EXTM3U\nsegment.ts\n"
	base := mustParse(t, "https://origin.example.com/stream/playlist.m3u8")

	headers := http.Header{}
	headers.Set("authorization", "Bearer abc123")
	headers.Set("user-agent", "TestPlayer/1.0")
	headers.Set("range", "bytes=0-100")

	got, err := RewritePlaylist(body, base, "192.168.1.10:8080", headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Authorization=Bearer+abc123") {
		t.Errorf("expected case-preserved Authorization header forwarded, got:\n%s", got)
	}
	if !strings.Contains(got, "User-Agent=TestPlayer%2F1.0") {
		t.Errorf("expected case-preserved User-Agent header forwarded, got:\n%s", got)
	}
	if strings.Contains(strings.ToLower(got), "range=") {
		t.Errorf("expected range header not forwarded into rewritten references, got:\n%s", got)
	}
}

func TestRewritePlaylist_IdempotentOnAlreadyProxiedURLs(t *testing.T) {
	body := "#EXTM3U\nhttp://192.168.1.10:8080/proxy/stream.ts?url=https%3A%2F%2Forigin.example.com%2Fsegment.ts\n"
	base := mustParse(t, "https://origin.example.com/stream/playlist.m3u8")

	got, err := RewritePlaylist(body, base, "192.168.1.10:8080", http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != body {
		t.Errorf("expected already-proxied reference left unchanged, got:\n%s", got)
	}
}

func TestRewritePlaylist_BlankLinesPreserved(t *testing.T) {
	body := "#EXTM3U\n\nsegment.ts\n"
	base := mustParse(t, "https://origin.example.com/stream/playlist.m3u8")

	got, err := RewritePlaylist(body, base, "192.168.1.10:8080", http.Header{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) < 2 || lines[1] != "" {
		t.Errorf("expected blank line preserved at index 1, got lines: %#v", lines)
	}
}
