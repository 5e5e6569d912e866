package cast

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jmylchreest/castwave/pkg/netinfo"
)

// ErrProxyNotReady is returned when a load is attempted before the proxy
// has published a listening port.
var ErrProxyNotReady = errors.New("Stream server not started. Port is 0.") //nolint:stylecheck // exact user-facing text per contract.

// buildContentURL constructs the proxy URL a receiver is told to fetch:
// http://<lan_ip>:<proxy_port>/proxy/<ext>?url=<origin>&<headers...>.
func buildContentURL(proxyPort int, rawURL, contentType string, headers map[string]string) (string, error) {
	if proxyPort == 0 {
		return "", ErrProxyNotReady
	}

	ext := "stream.mp4"
	lowerType := strings.ToLower(contentType)
	if strings.Contains(lowerType, "mpegurl") {
		ext = "stream.m3u8"
	}

	var query strings.Builder
	query.WriteString("url=" + url.QueryEscape(rawURL))

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.WriteString("&" + url.QueryEscape(k) + "=" + url.QueryEscape(headers[k]))
	}

	u := url.URL{
		Scheme:   "http",
		Host:     fmt.Sprintf("%s:%d", netinfo.LocalIPv4String(), proxyPort),
		Path:     "/proxy/" + ext,
		RawQuery: query.String(),
	}
	return u.String(), nil
}
