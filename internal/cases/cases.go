// Package cases projects uploaded documents into the cases a user tracks.
package cases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/claimwise/cli/internal/analysis"
	"github.com/claimwise/cli/internal/api"
)

// Status of a case as shown to the user
type Status string

const (
	StatusReady     Status = "Ready for action"
	StatusChecking  Status = "Checking"
	StatusAttention Status = "Needs attention"
)

// Filter selects cases by status
type Filter string

const (
	FilterAll       Filter = "all"
	FilterReady     Filter = "ready"
	FilterChecking  Filter = "checking"
	FilterAttention Filter = "attention"
)

// Filters in display order
var Filters = []Filter{FilterAll, FilterReady, FilterChecking, FilterAttention}

func (f Filter) Label() string {
	switch f {
	case FilterReady:
		return "Ready"
	case FilterChecking:
		return "Checking"
	case FilterAttention:
		return "Needs attention"
	default:
		return "All"
	}
}

// Case is one document followed through to a refund
type Case struct {
	FileID     string
	Title      string
	Type       string
	Status     Status
	UploadedAt time.Time
	Size       int64
	// Recovery is known once the analysis has been loaded
	Recovery float64
}

// LastActivity renders the upload time relative to now
func (c Case) LastActivity() string {
	if c.UploadedAt.IsZero() {
		return "unknown"
	}
	return humanize.Time(c.UploadedAt)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp formats the backend emits
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func statusOf(s api.Status) Status {
	switch s {
	case api.StatusCompleted:
		return StatusReady
	case api.StatusFailed:
		return StatusAttention
	default:
		return StatusChecking
	}
}

func typeOf(filename string) string {
	name := strings.ToLower(filename)
	for _, hint := range []string{"bill", "medical", "hospital", "invoice", "clinic"} {
		if strings.Contains(name, hint) {
			return "Medical Bill"
		}
	}
	return "Lease"
}

// FromDocuments builds one case per uploaded document
func FromDocuments(docs []api.DocumentListItem) []Case {
	out := make([]Case, 0, len(docs))
	for _, d := range docs {
		c := Case{
			FileID: d.FileID,
			Title:  d.Filename,
			Type:   typeOf(d.Filename),
			Status: statusOf(d.Status),
			Size:   d.Size,
		}
		if t, err := ParseTime(d.UploadedAt); err == nil {
			c.UploadedAt = t
		}
		out = append(out, c)
	}
	return out
}

func (c Case) matches(f Filter) bool {
	switch f {
	case FilterReady:
		return c.Status == StatusReady
	case FilterChecking:
		return c.Status == StatusChecking
	case FilterAttention:
		return c.Status == StatusAttention
	default:
		return true
	}
}

// Apply keeps the cases matching the filter whose title contains search,
// ignoring case
func Apply(cases []Case, f Filter, search string) []Case {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []Case
	for _, c := range cases {
		if !c.matches(f) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Counts returns the number of cases per filter
func Counts(cases []Case) map[Filter]int {
	counts := make(map[Filter]int, len(Filters))
	for _, f := range Filters {
		for _, c := range cases {
			if c.matches(f) {
				counts[f]++
			}
		}
	}
	return counts
}

// Fetcher loads a full document, normally through documents.Cache
type Fetcher interface {
	Get(ctx context.Context, fileID string) (*api.DocumentResponse, error)
}

// Totals are the dashboard headline numbers
type Totals struct {
	Cases            int
	Analyzed         int
	PotentialRefunds float64
}

// RefundsLabel formats the potential refunds in dollars
func (t Totals) RefundsLabel() string {
	return analysis.FormatDollars(t.PotentialRefunds)
}

// Summarize loads the analysis of every ready case with at most limit
// requests in flight, fills in each case's Recovery and returns the totals.
func Summarize(ctx context.Context, fetcher Fetcher, cases []Case, limit int) (Totals, error) {
	if limit <= 0 {
		limit = 4
	}
	recovered := make([]float64, len(cases))
	analyzed := make([]bool, len(cases))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range cases {
		if c.Status != StatusReady {
			continue
		}
		g.Go(func() error {
			doc, err := fetcher.Get(ctx, c.FileID)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", c.Title, err)
			}
			if doc.Analysis == nil {
				return nil
			}
			analyzed[i] = true
			recovered[i] = analysis.DisplayedRecovery(doc.Analysis)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Totals{}, err
	}

	t := Totals{Cases: len(cases)}
	for i := range cases {
		if analyzed[i] {
			cases[i].Recovery = recovered[i]
			t.Analyzed++
			t.PotentialRefunds += recovered[i]
		}
	}
	return t, nil
}
