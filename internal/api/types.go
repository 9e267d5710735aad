package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Status is the backend lifecycle state of an uploaded document
type Status string

const (
	StatusUploaded          Status = "uploaded"
	StatusProcessing        Status = "processing"
	StatusMetadataExtracted Status = "metadata_extracted"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

// Terminal reports whether no further transition is expected
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Parties as printed on the document
type Parties struct {
	Landlord string `json:"landlord"`
	Tenant   string `json:"tenant"`
	Property string `json:"property"`
}

// LeaseDetails is present for lease documents
type LeaseDetails struct {
	LeaseType       string   `json:"leaseType"`
	PropertyAddress string   `json:"propertyAddress"`
	LeaseTerm       string   `json:"leaseTerm"`
	MonthlyRent     string   `json:"monthlyRent"`
	SecurityDeposit string   `json:"securityDeposit"`
	SpecialClauses  []string `json:"specialClauses"`
}

// DocumentMetadata describes the uploaded file
type DocumentMetadata struct {
	FileName     string        `json:"fileName"`
	UploadDate   string        `json:"uploadDate"`
	FileSize     string        `json:"fileSize"`
	PageCount    int           `json:"pageCount"`
	DocumentType string        `json:"documentType"`
	Parties      Parties       `json:"parties"`
	LeaseDetails *LeaseDetails `json:"leaseDetails,omitempty"`
}

// DeidentificationSummary reports what the backend redacted
type DeidentificationSummary struct {
	RedactedEntities map[string]int `json:"redactedEntities"`
	EncryptionStatus string         `json:"encryptionStatus"`
	PrivacyNote      string         `json:"privacyNote,omitempty"`
}

// KeyDetails are the fields extracted from a document before analysis.
// The user may edit them until they are confirmed.
type KeyDetails struct {
	Landlord        string   `json:"landlord,omitempty"`
	Tenant          string   `json:"tenant,omitempty"`
	PropertyAddress string   `json:"propertyAddress,omitempty"`
	LeaseTerm       string   `json:"leaseTerm,omitempty"`
	RentAmount      string   `json:"rentAmount,omitempty"`
	SecurityDeposit string   `json:"securityDeposit,omitempty"`
	StartDate       string   `json:"startDate,omitempty"`
	EndDate         string   `json:"endDate,omitempty"`
	Parties         []string `json:"parties,omitempty"`
	PropertyInfo    string   `json:"propertyInfo,omitempty"`
	SpecialClauses  []string `json:"specialClauses,omitempty"`
}

// TopIssue is a headline finding
type TopIssue struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Amount   string `json:"amount,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// HighlightCounts groups highlights by severity bucket
type HighlightCounts struct {
	Illegal    int `json:"illegal"`
	HighRisk   int `json:"highRisk"`
	MediumRisk int `json:"mediumRisk"`
	Favorable  int `json:"favorable"`
}

// AnalysisSummary is the report header
type AnalysisSummary struct {
	Status            string           `json:"status"`
	OverallRisk       string           `json:"overallRisk"`
	IssuesFound       int              `json:"issuesFound"`
	EstimatedRecovery string           `json:"estimatedRecovery"`
	TopIssues         []TopIssue       `json:"topIssues"`
	HighlightCounts   *HighlightCounts `json:"highlightCounts,omitempty"`
}

// Rect is a region on a rendered page
type Rect struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber"`
}

// Position places a highlight on the rendered document
type Position struct {
	BoundingRect Rect    `json:"boundingRect"`
	Rects        []Rect  `json:"rects"`
	PageHeight   float64 `json:"pageHeight"`
	PageWidth    float64 `json:"pageWidth"`
}

// Priority is sent either as a word (critical, high, ...) or as a rank number
type Priority string

func (p *Priority) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Priority(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Priority(n.String())
	return nil
}

// MarshalJSON keeps numeric priorities numeric
func (p Priority) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(p), 64); err == nil {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

// Highlight is one finding anchored to a passage of the document
type Highlight struct {
	ID              string   `json:"id"`
	PageNumber      int      `json:"pageNumber"`
	Color           string   `json:"color"`
	Priority        Priority `json:"priority"`
	Category        string   `json:"category"`
	Text            string   `json:"text"`
	Statute         *string  `json:"statute"`
	Explanation     string   `json:"explanation"`
	DamagesEstimate *float64 `json:"damages_estimate"`
	Position        Position `json:"position"`
}

// DocumentInfo describes how the analysis was produced
type DocumentInfo struct {
	TotalChunks    int    `json:"total_chunks"`
	AnalysisMethod string `json:"analysis_method"`
}

// AnalysisData is the full report for one document.
// Highlights is nil when the backend omitted the field, which is not the
// same as an empty list.
type AnalysisData struct {
	DocumentID              string                  `json:"documentId"`
	PDFURL                  string                  `json:"pdfUrl"`
	DocumentMetadata        DocumentMetadata        `json:"documentMetadata"`
	DeidentificationSummary DeidentificationSummary `json:"deidentificationSummary"`
	KeyDetails              KeyDetails              `json:"keyDetailsDetected"`
	AnalysisSummary         AnalysisSummary         `json:"analysisSummary"`
	Highlights              []Highlight             `json:"highlights"`
	DocumentInfo            *DocumentInfo           `json:"document_info,omitempty"`
}

// DocumentResponse is GET /document/{id}
type DocumentResponse struct {
	FileID     string        `json:"file_id"`
	Filename   string        `json:"filename"`
	UploadedAt string        `json:"uploaded_at"`
	AnalyzedAt string        `json:"analyzed_at,omitempty"`
	Status     Status        `json:"status"`
	Analysis   *AnalysisData `json:"analysis,omitempty"`
}

// UploadResponse is POST /upload
type UploadResponse struct {
	FileID      string         `json:"file_id"`
	Filename    string         `json:"filename"`
	Size        int64          `json:"size"`
	UploadTime  string         `json:"upload_time"`
	PIIRedacted map[string]int `json:"pii_redacted"`
	Message     string         `json:"message"`
}

// FileRequest is the body of POST /extract-metadata and POST /analyze
type FileRequest struct {
	FileID string `json:"file_id"`
}

// ConfirmMetadataRequest is the body of POST /confirm-metadata
type ConfirmMetadataRequest struct {
	FileID   string     `json:"file_id"`
	Metadata KeyDetails `json:"metadata"`
}

// StatusResponse is GET /status/{id}. Progress is a percentage and may be
// fractional.
type StatusResponse struct {
	FileID   string  `json:"file_id"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Filename string  `json:"filename,omitempty"`
}

// DocumentListItem is one row of GET /documents
type DocumentListItem struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
	Status     Status `json:"status"`
	Size       int64  `json:"size"`
}

// DocumentsList is GET /documents
type DocumentsList struct {
	Total     int                `json:"total"`
	Documents []DocumentListItem `json:"documents"`
}

// MetadataResponse is GET /metadata/{id}
type MetadataResponse struct {
	FileID   string      `json:"file_id"`
	Status   string      `json:"status"`
	Metadata *KeyDetails `json:"metadata,omitempty"`
	Message  string      `json:"message"`
}

// ChatRequest is POST /chat
type ChatRequest struct {
	Message string `json:"message"`
	FileID  string `json:"file_id,omitempty"`
}

// Source is a citation backing a chat answer
type Source struct {
	Chapter   string `json:"chapter"`
	Section   string `json:"section"`
	Relevance string `json:"relevance"`
}

// ChatResponse is the answer to a ChatRequest
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Context string   `json:"context,omitempty"`
}

// LetterParty is a sender or recipient block on a demand letter
type LetterParty struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// DemandLetterRequest is POST /demand-letter/generate
type DemandLetterRequest struct {
	AnalysisJSON *AnalysisData     `json:"analysis_json"`
	Sender       *LetterParty      `json:"sender,omitempty"`
	Recipient    *LetterParty      `json:"recipient,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
}

// DemandLetterResponse carries the generated letter
type DemandLetterResponse struct {
	Letter      string `json:"letter"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// MessageResponse is the generic {"message": ...} acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id,omitempty"`
	Status  string `json:"status,omitempty"`
}
