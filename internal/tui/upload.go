package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/documents"
	"github.com/claimwise/cli/internal/notify"
)

var documentTypes = []documents.DocumentType{documents.TypeLease, documents.TypeMedicalBill}

// uploadView walks a document from the local file to its analysis
type uploadView struct {
	app *App

	step    documents.Step
	docType int
	path    textinput.Model
	spinner spinner.Model
	busy    string
	err     string

	file     *documents.LocalFile
	uploaded *api.UploadResponse
	review   *reviewForm
	progress api.StatusResponse
	results  *resultsView

	// cancel stops the extraction or analysis in flight
	cancel func()
}

type uploadedMsg struct {
	file *documents.LocalFile
	resp *api.UploadResponse
	err  error
}

type extractedMsg struct {
	fileID  string
	details *api.KeyDetails
	err     error
}

type analysisStartedMsg struct {
	fileID string
	step   documents.Step
	err    error
}

type analyzedMsg struct {
	fileID string
	doc    *api.DocumentResponse
	err    error
}

func newUploadView(app *App) *uploadView {
	in := textinput.New()
	in.Placeholder = "path/to/document.pdf"
	in.Prompt = "> "
	in.Width = 60
	in.CharLimit = 1024

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return &uploadView{app: app, step: documents.StepChooseType, path: in, spinner: s}
}

func (u *uploadView) init() tea.Cmd {
	if u.step == documents.StepUpload && u.busy == "" {
		return u.path.Focus()
	}
	if u.busy != "" {
		return u.spinner.Tick
	}
	return nil
}

func (u *uploadView) capturing() bool {
	switch u.step {
	case documents.StepUpload:
		return u.busy == ""
	case documents.StepReview:
		return u.review != nil && u.busy == ""
	case documents.StepResults:
		return u.results != nil && u.results.capturing()
	}
	return false
}

// back steps the wizard back one stage, cancelling any work in flight
func (u *uploadView) back() bool {
	switch u.step {
	case documents.StepChooseType:
		return false
	case documents.StepUpload:
		if u.busy != "" {
			return true
		}
		u.path.Blur()
		u.step = documents.StepChooseType
		u.err = ""
		return true
	case documents.StepReview, documents.StepAnalyze:
		u.reset()
		return true
	case documents.StepResults:
		if u.results != nil && u.results.back() {
			return true
		}
		u.reset()
		return true
	}
	return false
}

// reset abandons the current document and starts over
func (u *uploadView) reset() {
	u.stop()
	u.step = documents.StepChooseType
	u.busy = ""
	u.err = ""
	u.file = nil
	u.uploaded = nil
	u.review = nil
	u.results = nil
	u.progress = api.StatusResponse{}
	u.path.SetValue("")
	u.path.Blur()
	u.app.setViewDocument("")
	u.app.setAnalysis(nil)
}

func (u *uploadView) stop() {
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
	}
}

func (u *uploadView) fileID() string {
	if u.uploaded == nil {
		return ""
	}
	return u.uploaded.FileID
}

func (u *uploadView) selectedType() documents.DocumentType {
	return documentTypes[u.docType]
}

func (u *uploadView) upload() tea.Cmd {
	path := strings.TrimSpace(u.path.Value())
	if path == "" {
		u.err = "Enter the path of the document to upload."
		return nil
	}
	u.err = ""
	u.busy = "Uploading..."
	u.path.Blur()

	client := u.app.deps.Client
	maxSize := u.app.deps.Config.Upload.MaxSize
	docType := string(u.selectedType())
	return tea.Batch(u.spinner.Tick, func() tea.Msg {
		file, err := documents.Inspect(path, maxSize)
		if err != nil {
			return uploadedMsg{err: err}
		}
		ctx, cancel := requestContext()
		defer cancel()
		resp, err := client.Upload(ctx, file.Name, file.ContentType, docType, file.Data)
		return uploadedMsg{file: file, resp: resp, err: err}
	})
}

func (u *uploadView) extract(fileID string) tea.Cmd {
	ctx, cancel := requestContext()
	task := u.app.poller.RequestExtraction(ctx, fileID)
	u.cancel = func() { task.Cancel(); cancel() }
	return func() tea.Msg {
		details, err := task.Wait(ctx)
		return extractedMsg{fileID: fileID, details: details, err: err}
	}
}

func (u *uploadView) confirm(skip bool) tea.Cmd {
	fileID := u.fileID()
	poller := u.app.poller
	var details api.KeyDetails
	if skip {
		u.busy = "Starting analysis..."
	} else {
		details = u.review.values()
		if err := documents.ValidateRequired(details); err != nil {
			u.review.err = api.UserMessage(err)
			return nil
		}
		u.review.err = ""
		u.busy = "Confirming details..."
	}
	return tea.Batch(u.spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		var (
			step documents.Step
			err  error
		)
		if skip {
			step, err = poller.SkipToAnalysis(ctx, fileID)
		} else {
			step, err = poller.ConfirmMetadata(ctx, fileID, details)
		}
		return analysisStartedMsg{fileID: fileID, step: step, err: err}
	})
}

func (u *uploadView) analyze(fileID string) tea.Cmd {
	ctx, cancel := requestContext()
	task := u.app.poller.AwaitAnalysis(ctx, fileID)
	u.cancel = func() { task.Cancel(); cancel() }
	return func() tea.Msg {
		doc, err := task.Wait(ctx)
		return analyzedMsg{fileID: fileID, doc: doc, err: err}
	}
}

func (u *uploadView) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case uploadedMsg:
		return u.onUploaded(msg)
	case extractedMsg:
		return u.onExtracted(msg)
	case analysisStartedMsg:
		return u.onAnalysisStarted(msg)
	case analyzedMsg:
		return u.onAnalyzed(msg)
	case statusMsg:
		if msg.FileID == u.fileID() {
			u.progress = api.StatusResponse(msg)
		}
		return nil
	case spinner.TickMsg:
		if u.busy == "" {
			if u.results != nil {
				return u.results.update(msg)
			}
			return nil
		}
		var cmd tea.Cmd
		u.spinner, cmd = u.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		return u.onKey(msg)
	}
	if u.results != nil {
		return u.results.update(msg)
	}
	return nil
}

func (u *uploadView) onUploaded(msg uploadedMsg) tea.Cmd {
	u.busy = ""
	if msg.err != nil {
		u.err = api.UserMessage(msg.err)
		u.app.deps.Notices.Notify(notify.LevelError, "Upload failed", u.err)
		u.app.logger.Error("upload failed", "error", msg.err)
		return u.path.Focus()
	}
	u.file = msg.file
	u.uploaded = msg.resp
	u.app.setViewDocument(msg.resp.FileID)
	u.app.deps.Notices.Notify(notify.LevelSuccess, "Document uploaded", msg.resp.Filename)
	u.busy = "Extracting key details..."
	return tea.Batch(
		u.spinner.Tick,
		u.app.record(activity.KindUpload, msg.resp.FileID, "Uploaded "+msg.resp.Filename, humanize.Bytes(uint64(msg.resp.Size))),
		u.extract(msg.resp.FileID),
	)
}

func (u *uploadView) onExtracted(msg extractedMsg) tea.Cmd {
	if msg.fileID != u.fileID() {
		return nil
	}
	u.cancel = nil
	u.busy = ""
	u.step = documents.StepReview
	if msg.err != nil {
		u.err = api.UserMessage(msg.err)
		u.app.deps.Notices.Notify(notify.LevelError, "Extraction failed", u.err)
		u.app.logger.Error("extraction failed", "file_id", msg.fileID, "error", msg.err)
		return nil
	}
	u.err = ""
	u.review = newReviewForm(*msg.details)
	u.app.deps.Notices.Notify(notify.LevelInfo, "Review the details", "Check what we found before the analysis runs.")
	return u.app.record(activity.KindExtraction, msg.fileID, "Key details extracted", "")
}

func (u *uploadView) onAnalysisStarted(msg analysisStartedMsg) tea.Cmd {
	if msg.fileID != u.fileID() {
		return nil
	}
	u.busy = ""
	if msg.err != nil {
		var verr *api.ValidationError
		text := api.UserMessage(msg.err)
		if u.review != nil {
			u.review.err = text
		} else {
			u.err = text
		}
		if !errors.As(msg.err, &verr) {
			u.app.deps.Notices.Notify(notify.LevelError, "Could not start analysis", text)
		}
		return nil
	}

	u.step = msg.step
	var cmds []tea.Cmd
	if u.review != nil {
		u.review = nil
		cmds = append(cmds, u.app.record(activity.KindConfirmation, msg.fileID, "Details confirmed", ""))
	}
	u.busy = "Analyzing your document..."
	u.progress = api.StatusResponse{}
	cmds = append(cmds, u.spinner.Tick, u.analyze(msg.fileID))
	return tea.Batch(cmds...)
}

func (u *uploadView) onAnalyzed(msg analyzedMsg) tea.Cmd {
	if msg.fileID != u.fileID() {
		return nil
	}
	u.cancel = nil
	u.busy = ""
	if msg.err != nil {
		u.err = api.UserMessage(msg.err)
		u.app.deps.Notices.Notify(notify.LevelError, "Analysis failed", u.err)
		u.app.logger.Error("analysis failed", "file_id", msg.fileID, "error", msg.err)
		return nil
	}
	u.err = ""
	u.step = documents.StepResults
	u.app.deps.Cache.Invalidate(msg.fileID)
	u.results = newResultsView(u.app, msg.doc)

	detail := ""
	if msg.doc.Analysis != nil {
		detail = u.results.report.EstimatedRecovery
	}
	u.app.deps.Notices.Notify(notify.LevelSuccess, "Analysis complete", detail)
	return u.app.record(activity.KindAnalysis, msg.fileID, "Analyzed "+msg.doc.Filename, detail)
}

func (u *uploadView) onKey(msg tea.KeyMsg) tea.Cmd {
	switch u.step {
	case documents.StepChooseType:
		switch msg.String() {
		case "up", "k", "left", "h":
			u.docType = (u.docType - 1 + len(documentTypes)) % len(documentTypes)
		case "down", "j", "right":
			u.docType = (u.docType + 1) % len(documentTypes)
		case "l":
			u.docType = 0
		case "m":
			u.docType = 1
		case "enter":
			u.step = documents.StepUpload
			u.err = ""
			return u.path.Focus()
		}
		return nil

	case documents.StepUpload:
		if u.busy != "" {
			return nil
		}
		if msg.String() == "enter" {
			return u.upload()
		}
		var cmd tea.Cmd
		u.path, cmd = u.path.Update(msg)
		return cmd

	case documents.StepReview:
		if u.busy != "" {
			return nil
		}
		if u.review == nil {
			// extraction failed, allow a retry or go straight to analysis
			switch msg.String() {
			case "r":
				u.err = ""
				u.busy = "Extracting key details..."
				return tea.Batch(u.spinner.Tick, u.extract(u.fileID()))
			case "ctrl+k":
				return u.confirm(true)
			}
			return nil
		}
		if msg.String() == "ctrl+k" {
			return u.confirm(true)
		}
		submit, cmd := u.review.update(msg)
		if submit {
			return u.confirm(false)
		}
		return cmd

	case documents.StepAnalyze:
		if u.busy == "" && msg.String() == "r" {
			u.err = ""
			u.busy = "Analyzing your document..."
			return tea.Batch(u.spinner.Tick, u.analyze(u.fileID()))
		}
		return nil

	case documents.StepResults:
		if u.results == nil {
			return nil
		}
		if msg.String() == "n" && !u.results.capturing() && u.results.panel == panelNone {
			u.reset()
			return nil
		}
		return u.results.update(msg)
	}
	return nil
}

func (u *uploadView) steps() string {
	var parts []string
	for i, s := range documents.Steps {
		label := fmt.Sprintf("%d. %s", i+1, s)
		switch {
		case s == u.step:
			parts = append(parts, selectedStyle.Render(label))
		case s < u.step:
			parts = append(parts, successStyle.Render(label))
		default:
			parts = append(parts, helpStyle.Render(label))
		}
	}
	return strings.Join(parts, helpStyle.Render(" > "))
}

func (u *uploadView) view() string {
	if u.step == documents.StepResults && u.results != nil {
		return lipgloss.JoinVertical(lipgloss.Left, u.steps(), "", u.results.view(), help("n: New upload"))
	}

	var lines []string
	lines = append(lines, u.steps(), "")

	switch u.step {
	case documents.StepChooseType:
		lines = append(lines, titleStyle.Render("What are you uploading?"))
		for i, t := range documentTypes {
			marker := "  "
			label := t.Label()
			if i == u.docType {
				marker = selectedStyle.Render("> ")
				label = selectedStyle.Render(label)
			}
			lines = append(lines, marker+label)
		}
		lines = append(lines, "", help("j/k: Choose | l: Lease | m: Medical bill | Enter: Continue"))

	case documents.StepUpload:
		lines = append(lines, titleStyle.Render("Upload your "+strings.ToLower(u.selectedType().Label())))
		lines = append(lines, helpStyle.Render(fmt.Sprintf("PDF, JPG, PNG, DOCX or TXT up to %s", humanize.Bytes(uint64(u.app.deps.Config.Upload.MaxSize)))))
		lines = append(lines, u.path.View())
		if u.file != nil {
			info := fmt.Sprintf("%s, %s", u.file.Name, humanize.Bytes(uint64(u.file.Size)))
			if u.file.Pages > 0 {
				info += fmt.Sprintf(", %d pages", u.file.Pages)
			}
			lines = append(lines, helpStyle.Render(info))
		}
		lines = append(lines, "", help("Enter: Upload | Esc: Back"))

	case documents.StepReview:
		lines = append(lines, titleStyle.Render("Review the key details"))
		if u.uploaded != nil {
			lines = append(lines, helpStyle.Render(u.uploaded.Filename))
			if n := redactedCount(u.uploaded.PIIRedacted); n > 0 {
				lines = append(lines, helpStyle.Render(fmt.Sprintf("%d personal details were redacted before processing", n)))
			}
		}
		lines = append(lines, "")
		if u.review != nil {
			lines = append(lines, u.review.view(), "",
				help("Tab: Next field | ctrl+s: Confirm | ctrl+k: Skip to analysis | Esc: Start over"))
		} else if u.busy == "" {
			lines = append(lines, help("r: Retry extraction | ctrl+k: Skip to analysis | Esc: Start over"))
		}

	case documents.StepAnalyze:
		lines = append(lines, titleStyle.Render("Analyzing"))
		if u.progress.Message != "" {
			lines = append(lines, fmt.Sprintf("%s (%.0f%%)", u.progress.Message, u.progress.Progress))
		}
		if u.busy == "" && u.err != "" {
			lines = append(lines, "", help("r: Retry | Esc: Start over"))
		}
	}

	if u.busy != "" {
		lines = append(lines, "", u.spinner.View()+" "+u.busy)
	}
	if u.err != "" {
		lines = append(lines, "", errorStyle.Render("Error: "+u.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func redactedCount(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
