package demo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimwise/cli/internal/analysis"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/documents"
	"github.com/claimwise/cli/internal/logging"
)

func setup(t *testing.T) (*Server, *api.Client) {
	t.Helper()
	srv := NewServer(logging.Discard(), WithPolls(2))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := api.New(ts.URL, nil,
		api.WithLogger(logging.Discard()),
		api.WithDefaults(0, time.Millisecond, 5*time.Second),
	)
	return srv, client
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUploadExtractConfirmAnalyze(t *testing.T) {
	srv, client := setup(t)
	ctx := testCtx(t)

	up, err := client.Upload(ctx, "lease.pdf", "application/pdf", string(documents.TypeLease), []byte("%PDF-1.4 lease"))
	require.NoError(t, err)
	require.NotEmpty(t, up.FileID)
	assert.Equal(t, int64(14), up.Size)

	var statuses []api.Status
	poller := documents.NewPoller(client, time.Millisecond, logging.Discard(),
		documents.WithStatusHook(func(st api.StatusResponse) { statuses = append(statuses, st.Status) }))

	details, err := poller.RequestExtraction(ctx, up.FileID).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ABC LLC", details.Landlord)
	assert.Equal(t, "John Smith", details.Tenant)
	assert.Equal(t, "123 Main St", details.PropertyAddress)
	assert.Equal(t, []api.Status{api.StatusProcessing, api.StatusMetadataExtracted}, statuses)

	edited := *details
	edited.Tenant = "  Jane Smith "
	edited.SpecialClauses = []string{"Tenant pays all repairs", " "}

	step, err := poller.ConfirmMetadata(ctx, up.FileID, edited)
	require.NoError(t, err)
	assert.Equal(t, documents.StepAnalyze, step)

	stored, ok := srv.Details(up.FileID)
	require.True(t, ok)
	assert.Equal(t, "Jane Smith", stored.Tenant)
	assert.Equal(t, []string{"Tenant pays all repairs"}, stored.SpecialClauses)

	doc, err := poller.AwaitAnalysis(ctx, up.FileID).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, up.FileID, doc.FileID)
	assert.Equal(t, api.StatusCompleted, doc.Status)
	require.NotNil(t, doc.Analysis)
	assert.Equal(t, up.FileID, doc.Analysis.DocumentID)
	assert.Equal(t, "Jane Smith", doc.Analysis.DocumentMetadata.Parties.Tenant)
	assert.Equal(t, "$3,150", analysis.CalculateEstimatedRecovery(doc.Analysis.Highlights, doc.Analysis.AnalysisSummary.EstimatedRecovery))
}

func TestConfirmRejectsMissingFieldsLocally(t *testing.T) {
	srv, client := setup(t)
	ctx := testCtx(t)

	up, err := client.Upload(ctx, "lease.pdf", "application/pdf", "lease", []byte("lease"))
	require.NoError(t, err)

	poller := documents.NewPoller(client, time.Millisecond, logging.Discard())
	_, err = poller.RequestExtraction(ctx, up.FileID).Wait(ctx)
	require.NoError(t, err)

	step, err := poller.ConfirmMetadata(ctx, up.FileID, api.KeyDetails{Landlord: "ABC LLC"})
	require.Error(t, err)
	assert.Equal(t, documents.StepReview, step)
	assert.Equal(t, api.KindValidation, api.Kind(err))

	stored, _ := srv.Details(up.FileID)
	assert.Equal(t, "John Smith", stored.Tenant)
}

func TestSkipToAnalysis(t *testing.T) {
	_, client := setup(t)
	ctx := testCtx(t)

	up, err := client.Upload(ctx, "baystate-bill.pdf", "application/pdf", string(documents.TypeMedicalBill), []byte("bill"))
	require.NoError(t, err)

	poller := documents.NewPoller(client, time.Millisecond, logging.Discard())
	step, err := poller.SkipToAnalysis(ctx, up.FileID)
	require.NoError(t, err)
	assert.Equal(t, documents.StepAnalyze, step)

	doc, err := poller.AwaitAnalysis(ctx, up.FileID).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "$780", analysis.CalculateEstimatedRecovery(doc.Analysis.Highlights, ""))
	assert.Equal(t, "Baystate Medical Center", doc.Analysis.KeyDetails.Landlord)
}

func TestListAndDelete(t *testing.T) {
	_, client := setup(t)
	ctx := testCtx(t)

	up, err := client.Upload(ctx, "lease.pdf", "application/pdf", "lease", []byte("lease"))
	require.NoError(t, err)

	list, err := client.ListDocuments(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, api.StatusUploaded, list.Documents[0].Status)

	require.NoError(t, client.DeleteDocument(ctx, up.FileID))

	_, err = client.GetDocument(ctx, up.FileID)
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Document not found", apiErr.Detail)
}

func TestLifecycleRoutesReadFileIDFromBody(t *testing.T) {
	srv, client := setup(t)
	ctx := testCtx(t)

	up, err := client.Upload(ctx, "lease.pdf", "application/pdf", "lease", []byte("lease"))
	require.NoError(t, err)

	err = client.StartExtraction(ctx, "")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "file_id is required", apiErr.Detail)

	err = client.Analyze(ctx, "missing")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, client.ConfirmMetadata(ctx, up.FileID, api.KeyDetails{Landlord: "Oak Properties", Tenant: "Ann Lee", PropertyAddress: "9 Elm St"}))
	details, ok := srv.Details(up.FileID)
	require.True(t, ok)
	assert.Equal(t, "Oak Properties", details.Landlord)

	st, err := client.Status(ctx, up.FileID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusProcessing, st.Status)
	assert.InDelta(t, 100.0/3, st.Progress, 0.001)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	_, client := setup(t)

	_, err := client.Upload(testCtx(t), "virus.exe", "application/octet-stream", "lease", []byte("MZ"))
	require.Error(t, err)
	assert.Equal(t, api.KindClient, api.Kind(err))
	assert.Contains(t, api.UserMessage(err), "Unsupported file type")
}

func TestChatAndVoice(t *testing.T) {
	_, client := setup(t)
	ctx := testCtx(t)

	resp, err := client.Chat(ctx, api.ChatRequest{Message: "Can they keep my deposit?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "security deposit")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "186", resp.Sources[0].Chapter)

	reply, err := client.VoiceChat(ctx, make([]byte, 2048), "recording.webm", "audio/webm", "")
	require.NoError(t, err)
	assert.Equal(t, "What can I do about my security deposit?", reply.Transcript)
	assert.Contains(t, reply.Answer, "one month's rent")
	assert.Equal(t, "audio/mpeg", reply.ContentType)
	assert.False(t, reply.TTSFailed)
	assert.NotEmpty(t, reply.Audio)
}

func TestDemandLetter(t *testing.T) {
	_, client := setup(t)
	ctx := testCtx(t)

	d := &document{id: "x", filename: "lease.pdf", docType: "lease", details: leaseDetails(), uploadedAt: time.Now()}
	letter, err := client.GenerateDemandLetter(ctx, api.DemandLetterRequest{
		AnalysisJSON: buildAnalysis(d),
		Recipient:    &api.LetterParty{Name: "ABC LLC Property Management", Address: "1 State St"},
	})
	require.NoError(t, err)
	assert.Contains(t, letter.Letter, "To: ABC LLC Property Management")
	assert.Contains(t, letter.Letter, "$3,150")
	assert.Contains(t, letter.Letter, "Sincerely,\nJohn Smith")
	assert.NotEmpty(t, letter.GeneratedAt)
}
