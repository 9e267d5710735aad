package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

func recordingServer(t *testing.T, reply string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestLifecycleEndpointsSendFileIDInBody(t *testing.T) {
	srv, recorded := recordingServer(t, `{"message":"ok"}`)
	c, _ := newTestClient(srv.URL, nil)
	ctx := context.Background()

	require.NoError(t, c.StartExtraction(ctx, "f1"))
	require.NoError(t, c.ConfirmMetadata(ctx, "f1", KeyDetails{
		Landlord:        "ABC LLC",
		Tenant:          "John Smith",
		PropertyAddress: "123 Main St",
	}))
	require.NoError(t, c.Analyze(ctx, "f1"))

	reqs := recorded()
	require.Len(t, reqs, 3)

	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "/extract-metadata", reqs[0].path)
	assert.JSONEq(t, `{"file_id":"f1"}`, reqs[0].body)

	assert.Equal(t, http.MethodPost, reqs[1].method)
	assert.Equal(t, "/confirm-metadata", reqs[1].path)
	assert.JSONEq(t, `{"file_id":"f1","metadata":{"landlord":"ABC LLC","tenant":"John Smith","propertyAddress":"123 Main St"}}`, reqs[1].body)

	assert.Equal(t, http.MethodPost, reqs[2].method)
	assert.Equal(t, "/analyze", reqs[2].path)
	assert.JSONEq(t, `{"file_id":"f1"}`, reqs[2].body)
}

func TestStatusAcceptsFractionalProgress(t *testing.T) {
	srv, recorded := recordingServer(t, `{"file_id":"f1","status":"processing","progress":42.5,"message":"Analyzing document"}`)
	c, _ := newTestClient(srv.URL, nil)

	st, err := c.Status(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, st.Status)
	assert.InDelta(t, 42.5, st.Progress, 0.001)

	reqs := recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].method)
	assert.Equal(t, "/status/f1", reqs[0].path)
}
