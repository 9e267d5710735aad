package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListDocuments returns every document the user has uploaded
func (c *Client) ListDocuments(ctx context.Context) (*DocumentsList, error) {
	var out DocumentsList
	if err := c.Get(ctx, "/documents", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument returns a document with its analysis when complete
func (c *Client) GetDocument(ctx context.Context, fileID string) (*DocumentResponse, error) {
	var out DocumentResponse
	if err := c.Get(ctx, "/document/"+url.PathEscape(fileID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes a document on the backend
func (c *Client) DeleteDocument(ctx context.Context, fileID string) error {
	return c.Delete(ctx, "/document/"+url.PathEscape(fileID), nil)
}

// Upload sends a document as multipart form data
func (c *Client) Upload(ctx context.Context, filename, contentType, documentType string, data []byte) (*UploadResponse, error) {
	form := NewForm().AddFile("file", filename, contentType, data)
	if documentType != "" {
		form.AddField("document_type", documentType)
	}

	var out UploadResponse
	if err := c.Post(ctx, "/upload", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartExtraction asks the backend to extract key details
func (c *Client) StartExtraction(ctx context.Context, fileID string) error {
	return c.Post(ctx, "/extract-metadata", FileRequest{FileID: fileID}, nil)
}

// Status returns the lifecycle state of a document
func (c *Client) Status(ctx context.Context, fileID string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.Get(ctx, "/status/"+url.PathEscape(fileID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metadata returns the extracted key details
func (c *Client) Metadata(ctx context.Context, fileID string) (*MetadataResponse, error) {
	var out MetadataResponse
	if err := c.Get(ctx, "/metadata/"+url.PathEscape(fileID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMetadata sends the user-reviewed key details
func (c *Client) ConfirmMetadata(ctx context.Context, fileID string, details KeyDetails) error {
	return c.Post(ctx, "/confirm-metadata", ConfirmMetadataRequest{FileID: fileID, Metadata: details}, nil)
}

// Analyze starts the full analysis
func (c *Client) Analyze(ctx context.Context, fileID string) error {
	return c.Post(ctx, "/analyze", FileRequest{FileID: fileID}, nil)
}

// Chat asks a question, optionally scoped to a document
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.Post(ctx, "/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateDemandLetter drafts a demand letter from an analysis
func (c *Client) GenerateDemandLetter(ctx context.Context, req DemandLetterRequest) (*DemandLetterResponse, error) {
	if req.AnalysisJSON == nil {
		return nil, &ValidationError{Field: "analysis_json", Message: "An analysis is required to generate a letter."}
	}

	var out DemandLetterResponse
	if err := c.Post(ctx, "/demand-letter/generate", req, &out); err != nil {
		return nil, fmt.Errorf("generate demand letter: %w", err)
	}
	return &out, nil
}
