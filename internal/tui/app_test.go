package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimwise/cli/config"
	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/auth"
	"github.com/claimwise/cli/internal/documents"
	"github.com/claimwise/cli/internal/logging"
	"github.com/claimwise/cli/internal/notify"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LettersDir = t.TempDir()
	logger := logging.Discard()
	client := api.New("http://127.0.0.1:1", nil, api.WithLogger(logger), api.WithDefaults(0, 0, time.Second))

	return NewApp(Deps{
		Config:   cfg,
		Client:   client,
		Session:  auth.NewSession(filepath.Join(t.TempDir(), "token")),
		Cache:    documents.NewCache(client, time.Minute),
		Notices:  notify.NewCenter(logger),
		Activity: activity.NewMemoryStore(10),
		Logger:   logger,
	})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(a *App, keys ...string) {
	for _, k := range keys {
		a.Update(key(k))
	}
}

func TestScreenSwitching(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, screenDashboard, a.screen)

	press(a, "2")
	assert.Equal(t, screenCases, a.screen)

	press(a, "esc")
	assert.Equal(t, screenDashboard, a.screen)

	press(a, "5")
	assert.Equal(t, screenSettings, a.screen)

	_, cmd := a.Update(switchMsg{to: screenNotifications})
	assert.NotNil(t, a.views[screenNotifications])
	assert.Equal(t, screenNotifications, a.screen)
	assert.Nil(t, cmd)
}

func TestChatInputCapturesDigits(t *testing.T) {
	a := newTestApp(t)
	press(a, "3")
	require.Equal(t, screenChat, a.screen)

	press(a, "1", "2")
	assert.Equal(t, screenChat, a.screen)
	assert.Equal(t, "12", a.views[screenChat].(*chatView).input.Value())

	press(a, "esc")
	assert.Equal(t, screenDashboard, a.screen)
}

func TestQuitOnlyFromDashboard(t *testing.T) {
	a := newTestApp(t)
	press(a, "4")

	_, cmd := a.Update(key("q"))
	assert.Nil(t, cmd)
	assert.Equal(t, screenNotifications, a.screen)

	press(a, "0")
	_, cmd = a.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestUploadChooseType(t *testing.T) {
	a := newTestApp(t)
	press(a, "1")
	u := a.views[screenUpload].(*uploadView)

	assert.Equal(t, documents.StepChooseType, u.step)
	assert.Equal(t, documents.TypeLease, u.selectedType())

	press(a, "m")
	assert.Equal(t, documents.TypeMedicalBill, u.selectedType())

	press(a, "enter")
	assert.Equal(t, documents.StepUpload, u.step)
	assert.True(t, u.capturing())

	// digits are part of the path now
	press(a, "2")
	assert.Equal(t, screenUpload, a.screen)
	assert.Equal(t, "2", u.path.Value())

	press(a, "esc")
	assert.Equal(t, documents.StepChooseType, u.step)
	assert.Equal(t, screenUpload, a.screen)

	press(a, "esc")
	assert.Equal(t, screenDashboard, a.screen)
}

func TestUploadRequiresPath(t *testing.T) {
	a := newTestApp(t)
	press(a, "1", "enter")
	u := a.views[screenUpload].(*uploadView)

	cmd := u.upload()
	assert.Nil(t, cmd)
	assert.NotEmpty(t, u.err)
	assert.Empty(t, u.busy)
}

func TestUploadIgnoresStaleResults(t *testing.T) {
	a := newTestApp(t)
	u := a.views[screenUpload].(*uploadView)
	u.uploaded = &api.UploadResponse{FileID: "current"}
	u.step = documents.StepUpload
	u.busy = "Extracting key details..."

	u.update(extractedMsg{fileID: "old", details: &api.KeyDetails{Landlord: "X"}})
	assert.Equal(t, documents.StepUpload, u.step)
	assert.Nil(t, u.review)

	u.update(extractedMsg{fileID: "current", details: &api.KeyDetails{Landlord: "ABC LLC"}})
	assert.Equal(t, documents.StepReview, u.step)
	require.NotNil(t, u.review)
	assert.Equal(t, "ABC LLC", u.review.values().Landlord)
}

func TestUploadExtractionFailureOffersRetry(t *testing.T) {
	a := newTestApp(t)
	u := a.views[screenUpload].(*uploadView)
	u.uploaded = &api.UploadResponse{FileID: "doc-1"}
	u.step = documents.StepUpload

	u.update(extractedMsg{fileID: "doc-1", err: documents.ErrExtractionFailed})
	assert.Equal(t, documents.StepReview, u.step)
	assert.Nil(t, u.review)
	assert.NotEmpty(t, u.err)
	assert.False(t, u.capturing())
	assert.Equal(t, 1, a.deps.Notices.UnreadCount())
}

func TestConfirmValidatesLocally(t *testing.T) {
	a := newTestApp(t)
	u := a.views[screenUpload].(*uploadView)
	u.uploaded = &api.UploadResponse{FileID: "doc-1"}
	u.step = documents.StepReview
	u.review = newReviewForm(api.KeyDetails{Tenant: "John Smith"})

	cmd := u.confirm(false)
	assert.Nil(t, cmd)
	assert.Equal(t, "Landlord name is required.", u.review.err)
	assert.Empty(t, u.busy)
}

func TestResultsViewSetsDocumentContext(t *testing.T) {
	a := newTestApp(t)
	doc := &api.DocumentResponse{
		FileID:   "doc-9",
		Filename: "lease.pdf",
		Status:   api.StatusCompleted,
		Analysis: &api.AnalysisData{DocumentID: "doc-9"},
	}

	r := newResultsView(a, doc)
	assert.Equal(t, "doc-9", a.documentContext().FileID())
	assert.Same(t, doc.Analysis, a.documentContext().Analysis)

	r.update(key("l"))
	assert.Equal(t, panelLetter, r.panel)
	assert.True(t, r.capturing())
	assert.True(t, r.back())
	assert.Equal(t, panelNone, r.panel)
	assert.False(t, r.back())
}

func TestNotificationsMarkRead(t *testing.T) {
	a := newTestApp(t)
	a.deps.Notices.Notify(notify.LevelInfo, "one", "")
	a.deps.Notices.Notify(notify.LevelError, "two", "")
	require.Equal(t, 2, a.deps.Notices.UnreadCount())

	press(a, "4", "enter")
	assert.Equal(t, 1, a.deps.Notices.UnreadCount())

	press(a, "a")
	assert.Equal(t, 0, a.deps.Notices.UnreadCount())

	n := a.views[screenNotifications].(*notificationsView)
	press(a, "tab")
	assert.True(t, n.unreadOnly)
	assert.Empty(t, n.items())
}

func TestSettingsRejectsInvalidURL(t *testing.T) {
	a := newTestApp(t)
	t.Setenv("HOME", t.TempDir())
	s := a.views[screenSettings].(*settingsView)

	press(a, "5", "e")
	require.True(t, s.editing)
	s.inputs[0].SetValue("not a url")
	press(a, "ctrl+s")

	assert.True(t, s.failed)
	assert.True(t, s.editing)
	assert.Equal(t, "http://localhost:8000", a.deps.Config.API.BaseURL)
}

func TestSettingsSavesLettersDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	a := newTestApp(t)
	s := a.views[screenSettings].(*settingsView)

	press(a, "5", "e")
	s.inputs[1].SetValue("~/letters")
	press(a, "ctrl+s")

	require.False(t, s.failed, s.status)
	assert.False(t, s.editing)
	assert.Equal(t, filepath.Join(home, "letters"), a.deps.Config.Paths.LettersDir)
	assert.FileExists(t, config.Path())
}
