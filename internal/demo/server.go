// Package demo serves the backend API from memory so the client can be
// tried without the analysis service.
package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/claimwise/cli/internal/analysis"
	"github.com/claimwise/cli/internal/api"
)

// MaxUploadSize is the largest document the demo accepts
const MaxUploadSize = 20 << 20

// audioReply stands in for synthesized speech
var audioReply = []byte("ID3\x03\x00\x00\x00\x00\x00\x00demo-voice-reply")

type document struct {
	id         string
	filename   string
	size       int64
	docType    string
	uploadedAt time.Time
	analyzedAt time.Time

	status api.Status
	// polls left before the current phase finishes
	remaining int
	analyzing bool
	details   api.KeyDetails
	analysis  *api.AnalysisData
}

func (d *document) sizeLabel() string {
	return humanize.Bytes(uint64(d.size))
}

// Server is an in-memory backend
type Server struct {
	mu     sync.Mutex
	docs   map[string]*document
	polls  int
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithPolls sets how many status checks each processing phase takes
func WithPolls(n int) Option {
	return func(s *Server) { s.polls = n }
}

// NewServer creates an empty demo backend
func NewServer(logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		docs:   make(map[string]*document),
		polls:  2,
		logger: logger.With("component", "demo"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes every backend endpoint
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/upload", s.upload).Methods(http.MethodPost)
	r.HandleFunc("/documents", s.list).Methods(http.MethodGet)
	r.HandleFunc("/document/{id}", s.get).Methods(http.MethodGet)
	r.HandleFunc("/document/{id}", s.remove).Methods(http.MethodDelete)
	r.HandleFunc("/extract-metadata", s.extract).Methods(http.MethodPost)
	r.HandleFunc("/status/{id}", s.status).Methods(http.MethodGet)
	r.HandleFunc("/metadata/{id}", s.metadata).Methods(http.MethodGet)
	r.HandleFunc("/confirm-metadata", s.confirm).Methods(http.MethodPost)
	r.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	r.HandleFunc("/chat", s.chat).Methods(http.MethodPost)
	r.HandleFunc("/chat/voice", s.voice).Methods(http.MethodPost)
	r.HandleFunc("/demand-letter/generate", s.letter).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not Found")
	})
	return r
}

// Listen serves on addr in the background and returns the base URL and a
// shutdown function
func (s *Server) Listen(addr string) (string, func(context.Context) error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("demo server stopped", "error", err)
		}
	}()
	baseURL := "http://" + ln.Addr().String()
	s.logger.Info("demo backend listening", "url", baseURL)
	return baseURL, srv.Shutdown, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// lookup returns the document named in the route, or writes a 404
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *document {
	id := mux.Vars(r)["id"]
	d, ok := s.docs[id]
	if !ok {
		respondError(w, http.StatusNotFound, "Document not found")
		return nil
	}
	return d
}

// decode reads a JSON request body into v
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return true
}

// find returns the document named in a request body
func (s *Server) find(w http.ResponseWriter, fileID string) *document {
	if fileID == "" {
		respondError(w, http.StatusUnprocessableEntity, "file_id is required")
		return nil
	}
	d, ok := s.docs[fileID]
	if !ok {
		respondError(w, http.StatusNotFound, "Document not found")
		return nil
	}
	return d
}

var allowedExt = map[string]bool{".pdf": true, ".docx": true, ".doc": true, ".txt": true, ".png": true, ".jpg": true, ".jpeg": true}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !allowedExt[strings.ToLower(filepath.Ext(header.Filename))] {
		respondError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}
	n, err := io.Copy(io.Discard, file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	if n == 0 {
		respondError(w, http.StatusBadRequest, "Uploaded file is empty")
		return
	}

	docType := r.FormValue("document_type")
	if docType == "" {
		docType = "lease"
	}
	d := &document{
		id:         uuid.NewString(),
		filename:   header.Filename,
		size:       n,
		docType:    docType,
		uploadedAt: s.now().UTC(),
		status:     api.StatusUploaded,
	}

	s.mu.Lock()
	s.docs[d.id] = d
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, api.UploadResponse{
		FileID:      d.id,
		Filename:    d.filename,
		Size:        d.size,
		UploadTime:  d.uploadedAt.Format(time.RFC3339),
		PIIRedacted: map[string]int{"PERSON": 2, "PHONE_NUMBER": 1},
		Message:     "File uploaded successfully",
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]api.DocumentListItem, 0, len(s.docs))
	for _, d := range s.docs {
		items = append(items, api.DocumentListItem{
			FileID:     d.id,
			Filename:   d.filename,
			UploadedAt: d.uploadedAt.Format(time.RFC3339),
			Status:     d.status,
			Size:       d.size,
		})
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].UploadedAt > items[j].UploadedAt })
	respondJSON(w, http.StatusOK, api.DocumentsList{Total: len(items), Documents: items})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookup(w, r)
	if d == nil {
		return
	}
	resp := api.DocumentResponse{
		FileID:     d.id,
		Filename:   d.filename,
		UploadedAt: d.uploadedAt.Format(time.RFC3339),
		Status:     d.status,
		Analysis:   d.analysis,
	}
	if !d.analyzedAt.IsZero() {
		resp.AnalyzedAt = d.analyzedAt.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookup(w, r)
	if d == nil {
		return
	}
	delete(s.docs, d.id)
	respondJSON(w, http.StatusOK, api.MessageResponse{Message: "Document deleted", FileID: d.id})
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req api.FileRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.find(w, req.FileID)
	if d == nil {
		return
	}
	d.status = api.StatusProcessing
	d.remaining = s.polls
	d.analyzing = false
	respondJSON(w, http.StatusOK, api.MessageResponse{Message: "Metadata extraction started", FileID: d.id, Status: string(d.status)})
}

// status advances the document one poll through its current phase
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookup(w, r)
	if d == nil {
		return
	}

	progress := 100.0
	msg := "Ready"
	if d.status == api.StatusProcessing {
		d.remaining--
		if d.remaining <= 0 {
			s.finishPhase(d)
		} else {
			progress = float64(100*(s.polls-d.remaining)) / float64(s.polls+1)
			msg = "Extracting key details"
			if d.analyzing {
				msg = "Analyzing document"
			}
		}
	}
	if d.status == api.StatusUploaded {
		progress = 0
		msg = "Waiting for extraction"
	}

	respondJSON(w, http.StatusOK, api.StatusResponse{
		FileID:   d.id,
		Status:   d.status,
		Progress: progress,
		Message:  msg,
		Filename: d.filename,
	})
}

func (s *Server) finishPhase(d *document) {
	if !d.analyzing {
		d.status = api.StatusMetadataExtracted
		if d.docType == "medical_bill" {
			d.details = billDetails()
		} else {
			d.details = leaseDetails()
		}
		return
	}
	d.status = api.StatusCompleted
	d.analyzedAt = s.now().UTC()
	d.analysis = buildAnalysis(d)
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookup(w, r)
	if d == nil {
		return
	}
	if d.status != api.StatusMetadataExtracted && d.status != api.StatusCompleted {
		respondError(w, http.StatusConflict, "Metadata not extracted yet")
		return
	}
	details := d.details
	respondJSON(w, http.StatusOK, api.MetadataResponse{FileID: d.id, Status: string(d.status), Metadata: &details})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	var req api.ConfirmMetadataRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.find(w, req.FileID)
	if d == nil {
		return
	}
	d.details = req.Metadata
	s.startAnalysis(d)
	respondJSON(w, http.StatusOK, api.MessageResponse{Message: "Metadata confirmed, analysis started", FileID: d.id, Status: string(d.status)})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req api.FileRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.find(w, req.FileID)
	if d == nil {
		return
	}
	if d.details.Landlord == "" {
		if d.docType == "medical_bill" {
			d.details = billDetails()
		} else {
			d.details = leaseDetails()
		}
	}
	s.startAnalysis(d)
	respondJSON(w, http.StatusOK, api.MessageResponse{Message: "Analysis started", FileID: d.id, Status: string(d.status)})
}

func (s *Server) startAnalysis(d *document) {
	d.status = api.StatusProcessing
	d.analyzing = true
	d.remaining = s.polls
}

// Details returns the key details the demo holds for a document
func (s *Server) Details(fileID string) (api.KeyDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[fileID]
	if !ok {
		return api.KeyDetails{}, false
	}
	return d.details, true
}

func answerFor(question string) (string, []api.Source) {
	q := strings.ToLower(question)
	for _, a := range chatAnswers {
		for _, k := range a.keywords {
			if strings.Contains(q, k) {
				return a.answer, a.sources
			}
		}
	}
	return fallbackAnswer, nil
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusUnprocessableEntity, "Message is required")
		return
	}
	answer, sources := answerFor(req.Message)
	if req.FileID != "" {
		s.mu.Lock()
		d, ok := s.docs[req.FileID]
		if ok {
			answer = fmt.Sprintf("About %s: %s", d.filename, answer)
		}
		s.mu.Unlock()
	}
	respondJSON(w, http.StatusOK, api.ChatResponse{Answer: answer, Sources: sources})
}

// voice pretends to transcribe the recording and answers with canned speech
func (s *Server) voice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No audio provided")
		return
	}
	defer file.Close()
	n, _ := io.Copy(io.Discard, file)
	if n == 0 {
		respondError(w, http.StatusBadRequest, "Audio file is empty")
		return
	}

	transcript := "What can I do about my security deposit?"
	answer, _ := answerFor(transcript)
	s.logger.Debug("voice question", "filename", header.Filename, "bytes", n, "file_id", r.FormValue("file_id"))

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set(api.HeaderTranscript, url.PathEscape(transcript))
	w.Header().Set(api.HeaderAnswer, url.PathEscape(answer))
	w.Header().Set(api.HeaderLanguage, "en")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audioReply)
}

func (s *Server) letter(w http.ResponseWriter, r *http.Request) {
	var req api.DemandLetterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request")
		return
	}
	if req.AnalysisJSON == nil {
		respondError(w, http.StatusUnprocessableEntity, "analysis_json is required")
		return
	}
	respondJSON(w, http.StatusOK, api.DemandLetterResponse{
		Letter:      draftLetter(req, s.now()),
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	})
}

func draftLetter(req api.DemandLetterRequest, now time.Time) string {
	a := req.AnalysisJSON
	sender := a.KeyDetails.Tenant
	recipient := a.KeyDetails.Landlord
	var senderAddr, recipientAddr string
	if req.Sender != nil && req.Sender.Name != "" {
		sender, senderAddr = req.Sender.Name, req.Sender.Address
	}
	if req.Recipient != nil && req.Recipient.Name != "" {
		recipient, recipientAddr = req.Recipient.Name, req.Recipient.Address
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", now.Format("January 2, 2006"))
	if senderAddr != "" {
		fmt.Fprintf(&b, "%s\n%s\n", sender, senderAddr)
	}
	fmt.Fprintf(&b, "\nTo: %s\n", recipient)
	if recipientAddr != "" {
		fmt.Fprintf(&b, "%s\n", recipientAddr)
	}
	fmt.Fprintf(&b, "\nRe: Demand for payment regarding %s\n\n", a.KeyDetails.PropertyAddress)
	fmt.Fprintf(&b, "Dear %s,\n\n", recipient)
	b.WriteString("A review of the agreement identified the following issues:\n\n")
	for _, h := range a.Highlights {
		if h.DamagesEstimate == nil {
			continue
		}
		line := fmt.Sprintf("- %s: $%s", h.Category, humanize.Commaf(*h.DamagesEstimate))
		if h.Statute != nil {
			line += " (" + *h.Statute + ")"
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "\nI request payment of %s within 30 days of this letter.\n\nSincerely,\n%s\n",
		analysis.CalculateEstimatedRecovery(a.Highlights, a.AnalysisSummary.EstimatedRecovery), sender)
	return b.String()
}
