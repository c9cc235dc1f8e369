package gstreamer

import (
	"net/url"
	"strings"
)

// Sources behind these schemes cannot preroll: they produce data in real
// time whether or not anything consumes it.
var liveSchemes = map[string]bool{
	"rtsp":  true,
	"rtsps": true,
	"rtspt": true,
	"rtmp":  true,
	"rtmps": true,
	"rtp":   true,
	"udp":   true,
	"srt":   true,
	"v4l2":  true,
	"dvb":   true,
}

// liveElements are launch-description elements that are live sources.
var liveElements = []string{
	"v4l2src", "rtspsrc", "udpsrc", "srtsrc", "rtmpsrc", "autovideosrc",
	"ksvideosrc", "mfvideosrc", "avfvideosrc", "ximagesrc", "pipewiresrc",
}

// isLiveURI reports whether uri names a live source.
func isLiveURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	return liveSchemes[strings.ToLower(u.Scheme)]
}

// isLiveDescription reports whether a launch description contains a live
// source element or sets is-live on one.
func isLiveDescription(desc string) bool {
	if strings.Contains(desc, "is-live=true") || strings.Contains(desc, "is-live=1") {
		return true
	}
	for _, field := range strings.FieldsFunc(desc, func(r rune) bool {
		return r == ' ' || r == '!' || r == '\t' || r == '\n'
	}) {
		for _, name := range liveElements {
			if field == name {
				return true
			}
		}
	}
	return false
}
