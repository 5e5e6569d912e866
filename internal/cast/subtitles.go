package cast

import "strings"

// SubtitleTrack is a caller-supplied text track to attach to a LOAD
// request.
type SubtitleTrack struct {
	URL      string
	Language string
	Label    string
}

// buildTracks maps subtitle tracks to Cast media tracks (1-based trackId,
// TEXT/SUBTITLES) and selects which ones should be active: every English
// track if any exist, else just the first track, else none.
func buildTracks(subs []SubtitleTrack) ([]mediaTrack, []int) {
	if len(subs) == 0 {
		return nil, nil
	}

	tracks := make([]mediaTrack, len(subs))
	for i, s := range subs {
		tracks[i] = mediaTrack{
			TrackID:     i + 1,
			Type:        "TEXT",
			Subtype:     "SUBTITLES",
			ContentID:   s.URL,
			ContentType: "text/vtt",
			Language:    s.Language,
			Name:        s.Label,
		}
	}

	var active []int
	for _, t := range tracks {
		if isEnglish(t.Language) {
			active = append(active, t.TrackID)
		}
	}
	if len(active) == 0 {
		active = []int{tracks[0].TrackID}
	}

	return tracks, active
}

func isEnglish(language string) bool {
	switch strings.ToLower(language) {
	case "en", "english":
		return true
	default:
		return false
	}
}
