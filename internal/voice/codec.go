package voice

import (
	"strings"

	"github.com/claimwise/cli/internal/api"
)

// Preferred recording formats, best first. The empty string leaves the
// choice to the device.
var Preferred = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4",
	"",
}

// Negotiate returns the first preferred format the device supports
func Negotiate(supports func(string) bool) string {
	for _, mt := range Preferred {
		if mt == "" || supports(mt) {
			return mt
		}
	}
	return ""
}

// Extension picks a file extension for an audio MIME type
func Extension(mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "webm"):
		return "webm"
	case strings.Contains(mt, "mp4"), strings.Contains(mt, "m4a"):
		return "mp4"
	case strings.Contains(mt, "ogg"):
		return "ogg"
	case strings.Contains(mt, "wav"):
		return "wav"
	case strings.Contains(mt, "mpeg"), strings.Contains(mt, "mp3"):
		return "mp3"
	default:
		return "webm"
	}
}

// DocumentContext is what the current screen knows about the document the
// user is asking about.
type DocumentContext struct {
	URLFileID  string
	ViewFileID string
	Analysis   *api.AnalysisData
}

// FileID resolves the document a question refers to: an explicit id wins
// over the id of the screen, which wins over the loaded analysis.
func (d DocumentContext) FileID() string {
	switch {
	case d.URLFileID != "":
		return d.URLFileID
	case d.ViewFileID != "":
		return d.ViewFileID
	case d.Analysis != nil:
		return d.Analysis.DocumentID
	default:
		return ""
	}
}
