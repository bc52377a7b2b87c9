// Package hls defines the fixed rendition ladder and master playlist
// assembly for HLS delivery.
package hls

import "fmt"

// Rendition is one entry of the fixed quality ladder.
type Rendition struct {
	// Label names the rendition and its output directory (e.g. "720p").
	Label string
	// Scale is the ffmpeg -vf scale argument (W:H).
	Scale string
	// Resolution is the WxH pair advertised in the master playlist.
	Resolution string
	// VideoBitrate and AudioBitrate are ffmpeg -b:v / -b:a arguments.
	VideoBitrate string
	AudioBitrate string
	// Bandwidth is the nominal bits-per-second advertised in the master
	// playlist for client-side selection.
	Bandwidth int
}

// Ladder is the fixed set of renditions every source is transcoded into,
// in ascending quality order. The master playlist lists available
// renditions in exactly this order.
var Ladder = []Rendition{
	{Label: "480p", Scale: "854:480", Resolution: "854x480", VideoBitrate: "800k", AudioBitrate: "96k", Bandwidth: 800000},
	{Label: "720p", Scale: "1280:720", Resolution: "1280x720", VideoBitrate: "2800k", AudioBitrate: "128k", Bandwidth: 2800000},
	{Label: "1080p", Scale: "1920:1080", Resolution: "1920x1080", VideoBitrate: "5000k", AudioBitrate: "192k", Bandwidth: 5000000},
}

// LadderRendition returns the ladder entry for label.
func LadderRendition(label string) (Rendition, bool) {
	for _, r := range Ladder {
		if r.Label == label {
			return r, true
		}
	}
	return Rendition{}, false
}

// ValidateLadder checks the ladder is well formed: non-empty, unique
// labels, complete ffmpeg parameters, ascending bandwidth. Called once at
// process start so a bad edit fails fast instead of mid-pipeline.
func ValidateLadder() error {
	if len(Ladder) == 0 {
		return fmt.Errorf("ladder is empty")
	}
	seen := make(map[string]bool, len(Ladder))
	prev := 0
	for _, r := range Ladder {
		if r.Label == "" || r.Scale == "" || r.Resolution == "" || r.VideoBitrate == "" || r.AudioBitrate == "" {
			return fmt.Errorf("ladder entry %q is incomplete", r.Label)
		}
		if seen[r.Label] {
			return fmt.Errorf("duplicate ladder label %q", r.Label)
		}
		seen[r.Label] = true
		if r.Bandwidth <= prev {
			return fmt.Errorf("ladder not in ascending bandwidth order at %q", r.Label)
		}
		prev = r.Bandwidth
	}
	return nil
}
