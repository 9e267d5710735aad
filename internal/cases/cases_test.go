package cases

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimwise/cli/internal/api"
)

func sampleDocs() []api.DocumentListItem {
	return []api.DocumentListItem{
		{FileID: "a", Filename: "lease-123-main.pdf", Status: api.StatusCompleted, UploadedAt: "2026-03-01T10:00:00Z"},
		{FileID: "b", Filename: "baystate-medical-bill.pdf", Status: api.StatusProcessing, UploadedAt: "2026-03-02T10:00:00.123456"},
		{FileID: "c", Filename: "lease-45-elm.pdf", Status: api.StatusFailed, UploadedAt: "garbage"},
		{FileID: "d", Filename: "mgh-invoice.pdf", Status: api.StatusCompleted},
	}
}

func TestFromDocuments(t *testing.T) {
	cs := FromDocuments(sampleDocs())
	require.Len(t, cs, 4)

	assert.Equal(t, StatusReady, cs[0].Status)
	assert.Equal(t, "Lease", cs[0].Type)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), cs[0].UploadedAt)

	assert.Equal(t, StatusChecking, cs[1].Status)
	assert.Equal(t, "Medical Bill", cs[1].Type)
	assert.False(t, cs[1].UploadedAt.IsZero())

	assert.Equal(t, StatusAttention, cs[2].Status)
	assert.True(t, cs[2].UploadedAt.IsZero())
	assert.Equal(t, "unknown", cs[2].LastActivity())
}

func TestApplyAndCounts(t *testing.T) {
	cs := FromDocuments(sampleDocs())

	assert.Len(t, Apply(cs, FilterAll, ""), 4)
	assert.Len(t, Apply(cs, FilterReady, ""), 2)
	assert.Len(t, Apply(cs, FilterChecking, ""), 1)
	assert.Len(t, Apply(cs, FilterAttention, ""), 1)

	found := Apply(cs, FilterAll, "  LEASE ")
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].FileID)

	assert.Empty(t, Apply(cs, FilterReady, "elm"))

	counts := Counts(cs)
	assert.Equal(t, 4, counts[FilterAll])
	assert.Equal(t, 2, counts[FilterReady])
	assert.Equal(t, 1, counts[FilterChecking])
	assert.Equal(t, 1, counts[FilterAttention])
}

type fakeFetcher struct {
	docs     map[string]*api.DocumentResponse
	err      error
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	asked    []string
}

func (f *fakeFetcher) Get(ctx context.Context, fileID string) (*api.DocumentResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.asked = append(f.asked, fileID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[fileID], nil
}

func analyzed(amounts ...float64) *api.DocumentResponse {
	var hs []api.Highlight
	for _, a := range amounts {
		hs = append(hs, api.Highlight{DamagesEstimate: &a})
	}
	return &api.DocumentResponse{Status: api.StatusCompleted, Analysis: &api.AnalysisData{Highlights: hs}}
}

func TestSummarize(t *testing.T) {
	cs := FromDocuments(sampleDocs())
	f := &fakeFetcher{docs: map[string]*api.DocumentResponse{
		"a": analyzed(2500, 650),
		"d": {Status: api.StatusCompleted, Analysis: &api.AnalysisData{
			AnalysisSummary: api.AnalysisSummary{EstimatedRecovery: "$450"},
		}},
	}}

	totals, err := Summarize(context.Background(), f, cs, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, totals.Cases)
	assert.Equal(t, 2, totals.Analyzed)
	assert.InDelta(t, 3600, totals.PotentialRefunds, 0.001)
	assert.Equal(t, "$3,600", totals.RefundsLabel())
	assert.InDelta(t, 3150, cs[0].Recovery, 0.001)
	assert.InDelta(t, 450, cs[3].Recovery, 0.001)

	assert.ElementsMatch(t, []string{"a", "d"}, f.asked)
	assert.Equal(t, int32(1), f.peak.Load())
}

func TestSummarizeError(t *testing.T) {
	cs := FromDocuments(sampleDocs())
	f := &fakeFetcher{err: errors.New("unreachable")}

	_, err := Summarize(context.Background(), f, cs, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Zero(t, cs[0].Recovery)
}
