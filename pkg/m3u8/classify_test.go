package m3u8

import "testing"

func TestClassify_Blank(t *testing.T) {
	l := Classify("   ")
	if l.Kind != KindBlank {
		t.Fatalf("expected KindBlank, got %v", l.Kind)
	}
}

func TestClassify_TagWithoutURI(t *testing.T) {
	l := Classify("#EXT-X-TARGETDURATION:10")
	if l.Kind != KindTag {
		t.Fatalf("expected KindTag, got %v", l.Kind)
	}
	if l.Name != "#EXT-X-TARGETDURATION" {
		t.Errorf("expected name #EXT-X-TARGETDURATION, got %q", l.Name)
	}
	if l.HasURI {
		t.Errorf("expected HasURI false")
	}
}

func TestClassify_TagWithURI(t *testing.T) {
	line := `#EXT-X-KEY:METHOD=AES-128,URI="https://example.com/key",IV=0x1`
	l := Classify(line)
	if l.Kind != KindTag {
		t.Fatalf("expected KindTag, got %v", l.Kind)
	}
	if !l.HasURI {
		t.Fatalf("expected HasURI true")
	}
	if l.URI != "https://example.com/key" {
		t.Errorf("expected URI https://example.com/key, got %q", l.URI)
	}
}

func TestClassify_SegmentURI(t *testing.T) {
	l := Classify("segment001.ts")
	if l.Kind != KindSegmentURI {
		t.Fatalf("expected KindSegmentURI, got %v", l.Kind)
	}
	if l.Segment != "segment001.ts" {
		t.Errorf("expected segment001.ts, got %q", l.Segment)
	}
}

func TestClassify_SegmentURITrimsWhitespace(t *testing.T) {
	l := Classify("  segment001.ts  ")
	if l.Segment != "segment001.ts" {
		t.Errorf("expected trimmed segment, got %q", l.Segment)
	}
}

func TestReplaceURI(t *testing.T) {
	line := `#EXT-X-MEDIA:TYPE=AUDIO,URI="audio.m3u8"`
	got := ReplaceURI(line, "http://192.168.1.10:8080/proxy/stream.m3u8?url=audio.m3u8")
	want := `#EXT-X-MEDIA:TYPE=AUDIO,URI="http://192.168.1.10:8080/proxy/stream.m3u8?url=audio.m3u8"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReplaceURI_NoOpWithoutURI(t *testing.T) {
	line := "#EXT-X-TARGETDURATION:10"
	got := ReplaceURI(line, "http://example.com")
	if got != line {
		t.Errorf("expected unchanged line, got %q", got)
	}
}

func TestIsMasterPlaylist(t *testing.T) {
	master := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=128000\nlow.m3u8\n"
	media := "#EXTM3U\n#EXTINF:10,\nsegment1.ts\n"

	if !IsMasterPlaylist(master) {
		t.Errorf("expected master playlist to be detected")
	}
	if IsMasterPlaylist(media) {
		t.Errorf("expected media playlist not to be detected as master")
	}
}
