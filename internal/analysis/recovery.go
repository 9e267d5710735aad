package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/claimwise/cli/internal/api"
)

// CalculateEstimatedRecovery is the recovery figure shown for a report.
//
// When highlights were provided (even an empty list) the figure is the sum of
// their damages estimates, formatted as dollars with thousands separators.
// When they are absent the backend's summary figure is used, or "$0".
func CalculateEstimatedRecovery(highlights []api.Highlight, fallback string) string {
	if highlights == nil {
		if fallback != "" {
			return fallback
		}
		return "$0"
	}
	return FormatDollars(RecoveryAmount(highlights))
}

// RecoveryAmount sums the damages estimates; missing estimates count as zero
func RecoveryAmount(highlights []api.Highlight) float64 {
	var total float64
	for _, h := range highlights {
		if h.DamagesEstimate != nil {
			total += *h.DamagesEstimate
		}
	}
	return total
}

// FormatDollars renders an amount like $3,150 or $1,234.5
func FormatDollars(amount float64) string {
	amount = math.Round(amount*100) / 100
	if amount == math.Trunc(amount) {
		return "$" + humanize.Comma(int64(amount))
	}
	return "$" + humanize.Commaf(amount)
}

var nonAmount = regexp.MustCompile(`[^0-9.\-]`)

// ParseDollars reads a figure such as "$3,250" back into a number.
// Unparseable input yields zero.
func ParseDollars(s string) float64 {
	s = nonAmount.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// DisplayedRecovery is the recovery of a document's analysis, as a number
func DisplayedRecovery(a *api.AnalysisData) float64 {
	if a == nil {
		return 0
	}
	if a.Highlights == nil {
		return ParseDollars(a.AnalysisSummary.EstimatedRecovery)
	}
	return RecoveryAmount(a.Highlights)
}
