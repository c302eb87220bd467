// Package render turns raw assistant answers into display-ready parts: body
// text, recommended YouTube video IDs, and deduplicated source labels.
// All functions are pure.
package render

import (
	"regexp"
	"strings"

	"github.com/voxtutor/voxtutor/internal/gateway"
)

// VideoMarker separates the answer body from the recommended-videos section.
const VideoMarker = "**Recommended Videos:**"

var videoIDPattern = regexp.MustCompile(`watch\?v=([a-zA-Z0-9_-]{11})`)

// Answer is a parsed assistant answer ready for display.
type Answer struct {
	// Body is the answer text with the video section removed, trimmed.
	Body string

	// VideoIDs are the YouTube video IDs found after the marker, in order
	// of appearance.
	VideoIDs []string
}

// Parse splits raw into body text and recommended video IDs. Without the
// marker the whole text is the body. Only the first marker splits; video IDs
// are taken one per line from lines containing a "watch?v=" link.
func Parse(raw string) Answer {
	marker := strings.Index(raw, VideoMarker)
	if marker < 0 {
		return Answer{Body: raw}
	}

	body := strings.TrimSpace(raw[:marker])
	tail := strings.TrimSpace(raw[marker+len(VideoMarker):])

	var ids []string
	for _, line := range strings.Split(tail, "\n") {
		if !strings.Contains(line, "watch?v=") {
			continue
		}
		m := videoIDPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ids = append(ids, m[1])
	}
	return Answer{Body: body, VideoIDs: ids}
}

// WatchURL returns the YouTube watch page for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailURL returns the high-quality thumbnail image for a video ID.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}

// SourceLabels maps retrieval sources to display labels, deduplicated in
// first-seen order. A source without a filename is labelled "Note", so at
// most one "Note" label appears regardless of how many anonymous sources
// the answer carried.
func SourceLabels(sources []gateway.SourceRef) []string {
	var labels []string
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		label := s.Source
		if label == "" {
			label = "Note"
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}
