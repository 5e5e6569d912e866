package m3u8

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RewritePlaylist rewrites every URI reference in an HLS playlist body so it
// routes back through the proxy at authority instead of the original
// remote origin. base is the upstream URL the playlist itself was fetched
// from, used to resolve relative references. forwardedHeaders carries the
// query-param-encoded headers of the original request (Range excluded),
// which are re-attached to every rewritten reference so auth tokens and
// similar headers survive into segment and sub-playlist fetches.
func RewritePlaylist(body string, base *url.URL, authority string, forwardedHeaders http.Header) (string, error) {
	lines := strings.Split(body, "\n")
	out := make([]string, len(lines))

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		classified := Classify(line)

		switch classified.Kind {
		case KindBlank:
			out[i] = raw

		case KindTag:
			if !classified.HasURI || classified.URI == "" || alreadyProxied(classified.URI, authority) {
				out[i] = raw
				continue
			}
			rewritten, err := rewriteReference(classified.URI, base, authority, forwardedHeaders)
			if err != nil {
				out[i] = raw
				continue
			}
			out[i] = ReplaceURI(line, rewritten)

		case KindSegmentURI:
			if alreadyProxied(classified.Segment, authority) {
				out[i] = raw
				continue
			}
			rewritten, err := rewriteReference(classified.Segment, base, authority, forwardedHeaders)
			if err != nil {
				out[i] = raw
				continue
			}
			out[i] = rewritten

		default:
			out[i] = raw
		}
	}

	return strings.Join(out, "\n"), nil
}

// rewriteReference resolves ref against base into an absolute upstream URL,
// then wraps it as a /proxy URL on authority carrying the forwarded headers.
func rewriteReference(ref string, base *url.URL, authority string, forwardedHeaders http.Header) (string, error) {
	abs, err := resolveAbsolute(base, ref)
	if err != nil {
		return "", err
	}
	return proxyURL(abs, authority, forwardedHeaders), nil
}

// resolveAbsolute resolves ref against base, returning its absolute form.
func resolveAbsolute(base *url.URL, ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing reference %q: %w", ref, err)
	}
	if base == nil {
		if !parsed.IsAbs() {
			return "", fmt.Errorf("reference %q is relative and no base URL is available", ref)
		}
		return parsed.String(), nil
	}
	return base.ResolveReference(parsed).String(), nil
}

// proxyURL builds "http://<authority>/proxy/<filename>?url=<abs>&<headers>".
// filename is inferred from the absolute target's extension so player
// clients that sniff the URL path (rather than Content-Type) still see the
// right container hint.
func proxyURL(abs, authority string, forwardedHeaders http.Header) string {
	filename := "stream.ts"
	if strings.Contains(strings.ToLower(abs), ".m3u8") {
		filename = "stream.m3u8"
	}

	q := url.Values{}
	for k, vs := range forwardedHeaders {
		if strings.EqualFold(k, "range") {
			continue
		}
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	rawQuery := "url=" + url.QueryEscape(abs)
	if encoded := q.Encode(); encoded != "" {
		rawQuery += "&" + encoded
	}

	u := url.URL{
		Scheme:   "http",
		Host:     authority,
		Path:     "/proxy/" + filename,
		RawQuery: rawQuery,
	}
	return u.String()
}

// alreadyProxied reports whether ref already points back at this proxy's
// own authority, so RewritePlaylist can leave it untouched rather than
// wrapping an already-wrapped URL.
func alreadyProxied(ref, authority string) bool {
	if authority == "" {
		return false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return parsed.Host == authority && strings.HasPrefix(parsed.Path, "/proxy")
}
