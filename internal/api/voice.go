package api

import (
	"context"
	"net/url"
	"strings"
)

// Voice endpoint response headers. Text headers are percent-encoded.
const (
	HeaderTranscript = "X-Transcript-Text"
	HeaderAnswer     = "X-Answer-Text"
	HeaderLanguage   = "X-Language"
	HeaderTTSError   = "X-TTS-Error"
)

// VoiceReply is the synthesized answer to a spoken question
type VoiceReply struct {
	Audio       []byte
	ContentType string
	Transcript  string
	Answer      string
	Language    string
	// TTSFailed is set when speech synthesis failed; the text fields are still valid
	TTSFailed bool
}

// VoiceChat uploads a recording and returns the spoken answer
func (c *Client) VoiceChat(ctx context.Context, audio []byte, filename, mimeType, fileID string) (*VoiceReply, error) {
	form := NewForm().AddFile("audio", filename, mimeType, audio)
	if fileID != "" {
		form.AddField("file_id", fileID)
	}

	resp, err := c.DoRaw(ctx, "POST", "/chat/voice", form)
	if err != nil {
		return nil, err
	}

	return &VoiceReply{
		Audio:       resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Transcript:  decodeHeader(resp.Header.Get(HeaderTranscript)),
		Answer:      decodeHeader(resp.Header.Get(HeaderAnswer)),
		Language:    decodeHeader(resp.Header.Get(HeaderLanguage)),
		TTSFailed:   strings.EqualFold(strings.TrimSpace(resp.Header.Get(HeaderTTSError)), "true"),
	}, nil
}

// decodeHeader undoes percent-encoding; '+' is kept literally.
// Malformed values are returned unchanged.
func decodeHeader(v string) string {
	if v == "" {
		return ""
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}
