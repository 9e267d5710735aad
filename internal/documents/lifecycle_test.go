package documents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/logging"
)

// fakeBackend replays a scripted status sequence; the last entry repeats
type fakeBackend struct {
	mu           sync.Mutex
	statuses     []api.Status
	statusErr    error
	statusCalls  int
	metaCalls    int
	extractCalls int
	analyzeCalls int
	confirmed    []api.KeyDetails
	metadata     *api.KeyDetails
	inFlight     int
	maxInFlight  int
	statusDelay  time.Duration
}

func (f *fakeBackend) StartExtraction(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls++
	return nil
}

func (f *fakeBackend) Status(ctx context.Context, fileID string) (*api.StatusResponse, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.statusDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	i := f.statusCalls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.statusCalls++
	st := f.statuses[i]
	return &api.StatusResponse{FileID: fileID, Status: st, Message: "backend says " + string(st)}, nil
}

func (f *fakeBackend) Metadata(ctx context.Context, fileID string) (*api.MetadataResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	return &api.MetadataResponse{FileID: fileID, Status: "metadata_extracted", Metadata: f.metadata}, nil
}

func (f *fakeBackend) ConfirmMetadata(ctx context.Context, fileID string, details api.KeyDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, details)
	return nil
}

func (f *fakeBackend) Analyze(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	return nil
}

func (f *fakeBackend) GetDocument(ctx context.Context, fileID string) (*api.DocumentResponse, error) {
	return &api.DocumentResponse{FileID: fileID, Status: api.StatusCompleted, Analysis: &api.AnalysisData{DocumentID: fileID}}, nil
}

func (f *fakeBackend) counts() (status, meta int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.metaCalls
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRequestExtractionFetchesMetadataOnce(t *testing.T) {
	fb := &fakeBackend{
		statuses: []api.Status{api.StatusProcessing, api.StatusProcessing, api.StatusMetadataExtracted},
		metadata: &api.KeyDetails{Landlord: "ABC LLC", Tenant: "John Smith", PropertyAddress: "123 Main St"},
	}
	var seen []api.Status
	var mu sync.Mutex
	p := NewPoller(fb, 5*time.Millisecond, logging.Discard(), WithStatusHook(func(st api.StatusResponse) {
		mu.Lock()
		seen = append(seen, st.Status)
		mu.Unlock()
	}))

	ext := p.RequestExtraction(context.Background(), "f1")
	details, err := ext.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "ABC LLC", details.Landlord)

	// polling has stopped: no further status checks after the third
	time.Sleep(30 * time.Millisecond)
	status, meta := fb.counts()
	assert.Equal(t, 3, status)
	assert.Equal(t, 1, meta)
	assert.Equal(t, 1, fb.extractCalls)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []api.Status{api.StatusProcessing, api.StatusProcessing, api.StatusMetadataExtracted}, seen)
}

func TestRequestExtractionFailed(t *testing.T) {
	fb := &fakeBackend{statuses: []api.Status{api.StatusProcessing, api.StatusFailed}}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	_, err := p.RequestExtraction(context.Background(), "f1").Wait(waitCtx(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assert.Contains(t, err.Error(), "backend says failed")

	_, meta := fb.counts()
	assert.Equal(t, 0, meta)
}

func TestRequestExtractionStopsOnPollError(t *testing.T) {
	fb := &fakeBackend{
		statuses:  []api.Status{api.StatusProcessing},
		statusErr: &api.Error{Status: 503, Detail: "down"},
	}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	_, err := p.RequestExtraction(context.Background(), "f1").Wait(waitCtx(t))
	require.Error(t, err)
	assert.Equal(t, api.KindServer, api.Kind(err))
}

func TestRequestExtractionCancel(t *testing.T) {
	fb := &fakeBackend{statuses: []api.Status{api.StatusProcessing}}
	p := NewPoller(fb, 2*time.Millisecond, logging.Discard())

	ext := p.RequestExtraction(context.Background(), "f1")
	time.Sleep(20 * time.Millisecond)
	ext.Cancel()

	_, err := ext.Wait(waitCtx(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	before, _ := fb.counts()
	time.Sleep(20 * time.Millisecond)
	after, _ := fb.counts()
	assert.Equal(t, before, after, "no polls after cancel")
}

func TestPollingNeverOverlaps(t *testing.T) {
	fb := &fakeBackend{
		statuses:    []api.Status{api.StatusProcessing, api.StatusProcessing, api.StatusProcessing, api.StatusMetadataExtracted},
		statusDelay: 15 * time.Millisecond,
	}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	_, err := p.RequestExtraction(context.Background(), "f1").Wait(waitCtx(t))
	require.NoError(t, err)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, 1, fb.maxInFlight)
}

func TestConfirmMetadataValidatesWithoutRequest(t *testing.T) {
	fb := &fakeBackend{}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	step, err := p.ConfirmMetadata(context.Background(), "f1", api.KeyDetails{Landlord: "ABC LLC", Tenant: "  "})
	require.Error(t, err)
	assert.Equal(t, StepReview, step)
	assert.Equal(t, api.KindValidation, api.Kind(err))

	var verr *api.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "tenant", verr.Field)
	assert.Empty(t, fb.confirmed)
}

func TestConfirmMetadataAdvances(t *testing.T) {
	fb := &fakeBackend{}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	step, err := p.ConfirmMetadata(context.Background(), "f1", api.KeyDetails{
		Landlord:        " ABC LLC ",
		Tenant:          "John Smith",
		PropertyAddress: "123 Main St",
		SpecialClauses:  []string{"pets allowed", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, StepAnalyze, step)

	require.Len(t, fb.confirmed, 1)
	assert.Equal(t, "ABC LLC", fb.confirmed[0].Landlord)
	assert.Equal(t, []string{"pets allowed"}, fb.confirmed[0].SpecialClauses)
}

func TestSkipToAnalysis(t *testing.T) {
	fb := &fakeBackend{}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	step, err := p.SkipToAnalysis(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, StepAnalyze, step)
	assert.Equal(t, 1, fb.analyzeCalls)
}

func TestAwaitAnalysis(t *testing.T) {
	fb := &fakeBackend{statuses: []api.Status{api.StatusProcessing, api.StatusCompleted}}
	p := NewPoller(fb, time.Millisecond, logging.Discard())

	doc, err := p.AwaitAnalysis(context.Background(), "f1").Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "f1", doc.FileID)
	assert.NotNil(t, doc.Analysis)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("  "))
	assert.Equal(t, []string{"a", "b c"}, SplitList("a, ,b c,"))
}
