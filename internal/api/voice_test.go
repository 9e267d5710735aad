package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceChatDecodesHeaders(t *testing.T) {
	var gotFileID, gotFilename, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotFileID = r.FormValue("file_id")
			if _, hdr, err := r.FormFile("audio"); err == nil {
				gotFilename = hdr.Filename
				gotType = hdr.Header.Get("Content-Type")
			}
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set(HeaderTranscript, url.PathEscape("¿Cuánto es mi depósito?"))
		w.Header().Set(HeaderAnswer, url.PathEscape("Your deposit is $1,500 + interest."))
		w.Header().Set(HeaderLanguage, "es")
		_, _ = w.Write([]byte{0x49, 0x44, 0x33})
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, nil)
	reply, err := c.VoiceChat(context.Background(), []byte("webm-bytes"), "recording.webm", "audio/webm;codecs=opus", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", gotFileID)
	assert.Equal(t, "recording.webm", gotFilename)
	assert.Equal(t, "audio/webm;codecs=opus", gotType)

	assert.Equal(t, "¿Cuánto es mi depósito?", reply.Transcript)
	assert.Equal(t, "Your deposit is $1,500 + interest.", reply.Answer)
	assert.Equal(t, "es", reply.Language)
	assert.Equal(t, "audio/mpeg", reply.ContentType)
	assert.Equal(t, []byte{0x49, 0x44, 0x33}, reply.Audio)
	assert.False(t, reply.TTSFailed)
}

func TestVoiceChatTTSErrorFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderTranscript, "hello")
		w.Header().Set(HeaderAnswer, "bad%zzencoding")
		w.Header().Set(HeaderTTSError, "true")
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, nil)
	reply, err := c.VoiceChat(context.Background(), []byte("x"), "recording.webm", "audio/webm", "")
	require.NoError(t, err)

	assert.True(t, reply.TTSFailed)
	assert.Empty(t, reply.Audio)
	assert.Equal(t, "hello", reply.Transcript)
	// malformed escapes fall back to the raw value
	assert.Equal(t, "bad%zzencoding", reply.Answer)
}

func TestPriorityAcceptsStringsAndNumbers(t *testing.T) {
	var hs []Highlight
	data := `[{"id":"h1","priority":"critical","color":"red"},{"id":"h2","priority":2,"color":"orange"},{"id":"h3","color":"green"}]`
	require.NoError(t, json.Unmarshal([]byte(data), &hs))

	require.Len(t, hs, 3)
	assert.Equal(t, Priority("critical"), hs[0].Priority)
	assert.Equal(t, Priority("2"), hs[1].Priority)
	assert.Equal(t, Priority(""), hs[2].Priority)

	out, err := json.Marshal(hs[1].Priority)
	require.NoError(t, err)
	assert.Equal(t, "2", string(out))
}

func TestHighlightsNilVersusEmpty(t *testing.T) {
	var missing, empty AnalysisData
	require.NoError(t, json.Unmarshal([]byte(`{"documentId":"a"}`), &missing))
	require.NoError(t, json.Unmarshal([]byte(`{"documentId":"a","highlights":[]}`), &empty))

	assert.Nil(t, missing.Highlights)
	assert.NotNil(t, empty.Highlights)
	assert.Len(t, empty.Highlights, 0)
}

func TestDeleteDocumentPath(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = io.WriteString(w, `{"message":"deleted"}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL, nil)
	require.NoError(t, c.DeleteDocument(context.Background(), "f-9"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/document/f-9", path)
}

func TestGenerateDemandLetterRequiresAnalysis(t *testing.T) {
	c := New("http://127.0.0.1:1", nil)
	_, err := c.GenerateDemandLetter(context.Background(), DemandLetterRequest{})
	require.Error(t, err)
	assert.Equal(t, KindValidation, Kind(err))
}
