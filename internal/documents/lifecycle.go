package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimwise/cli/internal/api"
)

// DefaultPollInterval is how often /status is checked while waiting
const DefaultPollInterval = 500 * time.Millisecond

var (
	// ErrExtractionFailed is returned when the backend marks extraction as failed
	ErrExtractionFailed = errors.New("metadata extraction failed")
	// ErrAnalysisFailed is returned when the backend marks analysis as failed
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Backend is the part of the API the lifecycle needs
type Backend interface {
	StartExtraction(ctx context.Context, fileID string) error
	Status(ctx context.Context, fileID string) (*api.StatusResponse, error)
	Metadata(ctx context.Context, fileID string) (*api.MetadataResponse, error)
	ConfirmMetadata(ctx context.Context, fileID string, details api.KeyDetails) error
	Analyze(ctx context.Context, fileID string) error
	GetDocument(ctx context.Context, fileID string) (*api.DocumentResponse, error)
}

// Extraction resolves to the extracted key details
type Extraction = Task[*api.KeyDetails]

// Analysis resolves to the analysed document
type Analysis = Task[*api.DocumentResponse]

// Poller drives a document from upload to analysis
type Poller struct {
	backend  Backend
	interval time.Duration
	onStatus func(api.StatusResponse)
	logger   *slog.Logger
}

// PollerOption configures a Poller
type PollerOption func(*Poller)

// WithStatusHook is called with every status response, for progress display
func WithStatusHook(fn func(api.StatusResponse)) PollerOption {
	return func(p *Poller) { p.onStatus = fn }
}

// NewPoller creates a poller checking status every interval
func NewPoller(backend Backend, interval time.Duration, logger *slog.Logger, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		backend:  backend,
		interval: interval,
		logger:   logger.With("component", "documents"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RequestExtraction starts metadata extraction and polls until the details
// are available. The metadata is fetched exactly once.
func (p *Poller) RequestExtraction(ctx context.Context, fileID string) *Extraction {
	return startTask(ctx, func(ctx context.Context) (*api.KeyDetails, error) {
		if err := p.backend.StartExtraction(ctx, fileID); err != nil {
			return nil, fmt.Errorf("start extraction: %w", err)
		}
		p.logger.Info("extraction requested", "file_id", fileID)

		err := p.poll(ctx, fileID, func(st *api.StatusResponse) (bool, error) {
			switch st.Status {
			case api.StatusMetadataExtracted, api.StatusCompleted:
				return true, nil
			case api.StatusFailed:
				return true, fmt.Errorf("%w: %s", ErrExtractionFailed, st.Message)
			}
			return false, nil
		})
		if err != nil {
			return nil, err
		}

		md, err := p.backend.Metadata(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("fetch metadata: %w", err)
		}
		p.logger.Info("metadata extracted", "file_id", fileID)

		if md.Metadata == nil {
			return &api.KeyDetails{}, nil
		}
		return md.Metadata, nil
	})
}

// AwaitAnalysis polls until the analysis triggered by ConfirmMetadata or
// SkipToAnalysis completes, then fetches the document.
func (p *Poller) AwaitAnalysis(ctx context.Context, fileID string) *Analysis {
	return startTask(ctx, func(ctx context.Context) (*api.DocumentResponse, error) {
		err := p.poll(ctx, fileID, func(st *api.StatusResponse) (bool, error) {
			switch st.Status {
			case api.StatusCompleted:
				return true, nil
			case api.StatusFailed:
				return true, fmt.Errorf("%w: %s", ErrAnalysisFailed, st.Message)
			}
			return false, nil
		})
		if err != nil {
			return nil, err
		}

		doc, err := p.backend.GetDocument(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("fetch analysis: %w", err)
		}
		p.logger.Info("analysis completed", "file_id", fileID)
		return doc, nil
	})
}

// poll checks status on every tick until done reports true. Requests never
// overlap: the ticker restarts after each response.
func (p *Poller) poll(ctx context.Context, fileID string, done func(*api.StatusResponse) (bool, error)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("polling stopped", "file_id", fileID, "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}

		st, err := p.backend.Status(ctx, fileID)
		if err != nil {
			p.logger.Warn("status check failed", "file_id", fileID, "error", err)
			return fmt.Errorf("status check: %w", err)
		}
		if p.onStatus != nil {
			p.onStatus(*st)
		}

		finished, err := done(st)
		if finished {
			return err
		}
		ticker.Reset(p.interval)
	}
}

// ConfirmMetadata sends the reviewed key details. Required fields are checked
// locally first; a validation failure makes no request.
func (p *Poller) ConfirmMetadata(ctx context.Context, fileID string, details api.KeyDetails) (Step, error) {
	if err := ValidateRequired(details); err != nil {
		return StepReview, err
	}
	if err := p.backend.ConfirmMetadata(ctx, fileID, Normalize(details)); err != nil {
		return StepReview, fmt.Errorf("confirm metadata: %w", err)
	}
	p.logger.Info("metadata confirmed", "file_id", fileID)
	return StepAnalyze, nil
}

// SkipToAnalysis starts analysis without reviewing the extracted details
func (p *Poller) SkipToAnalysis(ctx context.Context, fileID string) (Step, error) {
	if err := p.backend.Analyze(ctx, fileID); err != nil {
		return StepReview, fmt.Errorf("start analysis: %w", err)
	}
	p.logger.Info("analysis requested", "file_id", fileID)
	return StepAnalyze, nil
}
