package hls

import (
	"fmt"
	"strings"
)

// MasterPlaylist assembles the master manifest from the renditions that
// actually completed. renditions maps ladder label to its playlist path;
// only presence matters, references in the manifest are relative
// (<label>/index.m3u8) because the master lives at the hls/ root.
//
// A rendition set missing entries still yields a valid playlist, and an
// empty set yields a header-only one.
func MasterPlaylist(renditions map[string]string) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n\n")
	for _, r := range Ladder {
		if _, ok := renditions[r.Label]; !ok {
			continue
		}
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", r.Bandwidth, r.Resolution)
		fmt.Fprintf(&b, "%s/index.m3u8\n\n", r.Label)
	}
	return b.String()
}
