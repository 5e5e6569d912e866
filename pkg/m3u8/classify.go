// Package m3u8 classifies individual lines of an HLS playlist so a rewriter
// can decide, line by line, what needs rewriting: a blank line passes
// through untouched, a tag line may carry a URI attribute that needs
// resolving, and a bare line is a segment or sub-playlist reference.
package m3u8

import (
	"regexp"
	"strings"
)

// LineKind identifies which case of HlsLine a classified line belongs to.
type LineKind int

const (
	// KindBlank is an empty or whitespace-only line.
	KindBlank LineKind = iota
	// KindTag is a line beginning with '#', optionally carrying a URI="..." attribute.
	KindTag
	// KindSegmentURI is a bare line naming a segment or sub-playlist.
	KindSegmentURI
)

var uriAttrPattern = regexp.MustCompile(`URI="([^"]*)"`)

// Line is the classification of one playlist line (the HlsLine sum type:
// Blank | Tag{name,attrs,has_uri} | SegmentUri).
type Line struct {
	Kind LineKind

	// Raw is the original, unmodified line text.
	Raw string

	// Name is the tag name (e.g. "#EXT-X-KEY") when Kind == KindTag.
	Name string

	// HasURI reports whether a tag line carries a URI="..." attribute.
	HasURI bool

	// URI is the attribute value when HasURI is true.
	URI string

	// Segment is the trimmed line content when Kind == KindSegmentURI.
	Segment string
}

// Classify inspects one line of an HLS playlist and returns its logical
// classification. The input should be a single line with its trailing
// newline already stripped; leading/trailing whitespace is tolerated.
func Classify(line string) Line {
	trimmed := strings.TrimSpace(line)

	if trimmed == "" {
		return Line{Kind: KindBlank, Raw: line}
	}

	if strings.HasPrefix(trimmed, "#") {
		l := Line{Kind: KindTag, Raw: line, Name: tagName(trimmed)}
		if m := uriAttrPattern.FindStringSubmatch(trimmed); m != nil {
			l.HasURI = true
			l.URI = m[1]
		}
		return l
	}

	return Line{Kind: KindSegmentURI, Raw: line, Segment: trimmed}
}

// tagName extracts the tag identifier up to the first ':' or the whole
// line if there's no colon (e.g. "#EXTM3U").
func tagName(trimmed string) string {
	if idx := strings.IndexByte(trimmed, ':'); idx != -1 {
		return trimmed[:idx]
	}
	return trimmed
}

// ReplaceURI returns the tag line with its URI="..." attribute value
// replaced by newURI. It is a no-op (returns the original line) if the
// line carries no URI attribute.
func ReplaceURI(line, newURI string) string {
	return uriAttrPattern.ReplaceAllString(line, `URI="`+escapeQuotes(newURI)+`"`)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `%22`)
}

// IsMasterPlaylist reports whether the body contains a stream variant tag,
// meaning it enumerates other playlists rather than segments directly.
func IsMasterPlaylist(body string) bool {
	return strings.Contains(body, "#EXT-X-STREAM-INF")
}
