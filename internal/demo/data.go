package demo

import (
	"github.com/claimwise/cli/internal/api"
)

func ptr[T any](v T) *T { return &v }

func leaseDetails() api.KeyDetails {
	return api.KeyDetails{
		Landlord:        "ABC LLC",
		Tenant:          "John Smith",
		PropertyAddress: "123 Main St",
		LeaseTerm:       "12 months",
		RentAmount:      "$1,800",
		SecurityDeposit: "$3,600",
		StartDate:       "2025-09-01",
		EndDate:         "2026-08-31",
		Parties:         []string{"ABC LLC", "John Smith"},
		SpecialClauses:  []string{"Tenant pays all repairs", "Late fee of $150 after 1 day"},
	}
}

func billDetails() api.KeyDetails {
	return api.KeyDetails{
		Landlord:        "Baystate Medical Center",
		Tenant:          "John Smith",
		PropertyAddress: "759 Chestnut St, Springfield, MA",
		RentAmount:      "$4,820",
		StartDate:       "2026-01-12",
		Parties:         []string{"Baystate Medical Center", "John Smith"},
	}
}

func leaseHighlights() []api.Highlight {
	return []api.Highlight{
		{
			ID:              "h1",
			PageNumber:      2,
			Color:           "red",
			Priority:        "critical",
			Category:        "Security deposit",
			Text:            "Security deposit equal to two months rent, payable to landlord without receipt.",
			Statute:         ptr("M.G.L. c.186 §15B(1)(b)"),
			Explanation:     "A deposit may not exceed one month's rent and the landlord must give a receipt. Violations allow recovery of three times the excess.",
			DamagesEstimate: ptr(2500.0),
			Position:        api.Position{BoundingRect: api.Rect{X1: 72, Y1: 310, X2: 540, Y2: 352, PageNumber: 2}, PageWidth: 612, PageHeight: 792},
		},
		{
			ID:              "h2",
			PageNumber:      3,
			Color:           "orange",
			Priority:        "high",
			Category:        "Late fees",
			Text:            "A late fee of $150 applies to rent received after the first of the month.",
			Statute:         ptr("M.G.L. c.186 §15B(1)(c)"),
			Explanation:     "Late fees may only be charged when rent is more than 30 days late.",
			DamagesEstimate: ptr(650.0),
			Position:        api.Position{BoundingRect: api.Rect{X1: 72, Y1: 120, X2: 540, Y2: 150, PageNumber: 3}, PageWidth: 612, PageHeight: 792},
		},
		{
			ID:          "h3",
			PageNumber:  4,
			Color:       "yellow",
			Priority:    "medium",
			Category:    "Repairs",
			Text:        "Tenant is responsible for all repairs regardless of cause.",
			Statute:     ptr("105 CMR 410"),
			Explanation: "The landlord must keep the unit fit for habitation. This clause is likely unenforceable.",
			Position:    api.Position{BoundingRect: api.Rect{X1: 72, Y1: 400, X2: 540, Y2: 430, PageNumber: 4}, PageWidth: 612, PageHeight: 792},
		},
		{
			ID:          "h4",
			PageNumber:  1,
			Color:       "green",
			Priority:    "low",
			Category:    "Renewal",
			Text:        "Lease renews only with written agreement of both parties.",
			Explanation: "Favorable: no automatic renewal.",
			Position:    api.Position{BoundingRect: api.Rect{X1: 72, Y1: 500, X2: 540, Y2: 520, PageNumber: 1}, PageWidth: 612, PageHeight: 792},
		},
	}
}

func billHighlights() []api.Highlight {
	return []api.Highlight{
		{
			ID:              "b1",
			PageNumber:      1,
			Color:           "red",
			Priority:        "1",
			Category:        "Duplicate charge",
			Text:            "CT scan, abdomen (74177) billed twice on the same date of service.",
			Explanation:     "The same procedure code appears twice for one visit.",
			DamagesEstimate: ptr(780.0),
		},
		{
			ID:          "b2",
			PageNumber:  2,
			Color:       "green",
			Priority:    "3",
			Category:    "Financial assistance",
			Text:        "Patients below 300% of the poverty level may qualify for free care.",
			Explanation: "You may be eligible for a reduced bill.",
		},
	}
}

// buildAnalysis assembles the report for a document from its confirmed details
func buildAnalysis(d *document) *api.AnalysisData {
	highlights := leaseHighlights()
	summary := api.AnalysisSummary{
		Status:            "completed",
		OverallRisk:       "high",
		EstimatedRecovery: "$3,150",
		TopIssues: []api.TopIssue{
			{Title: "Excessive security deposit", Severity: "high", Amount: "$2,500"},
			{Title: "Premature late fee", Severity: "medium", Amount: "$650"},
		},
		HighlightCounts: &api.HighlightCounts{Illegal: 1, HighRisk: 1, MediumRisk: 1, Favorable: 1},
	}
	if d.docType == "medical_bill" {
		highlights = billHighlights()
		summary = api.AnalysisSummary{
			Status:            "completed",
			OverallRisk:       "medium",
			EstimatedRecovery: "$780",
			TopIssues:         []api.TopIssue{{Title: "Duplicate CT scan charge", Severity: "high", Amount: "$780"}},
			HighlightCounts:   &api.HighlightCounts{Illegal: 1, Favorable: 1},
		}
	}
	issues := 0
	for _, h := range highlights {
		if h.Color != "green" {
			issues++
		}
	}
	summary.IssuesFound = issues

	return &api.AnalysisData{
		DocumentID: d.id,
		PDFURL:     "/files/" + d.id + ".pdf",
		DocumentMetadata: api.DocumentMetadata{
			FileName:     d.filename,
			UploadDate:   d.uploadedAt.Format("2006-01-02"),
			FileSize:     d.sizeLabel(),
			PageCount:    4,
			DocumentType: d.docType,
			Parties: api.Parties{
				Landlord: d.details.Landlord,
				Tenant:   d.details.Tenant,
				Property: d.details.PropertyAddress,
			},
		},
		DeidentificationSummary: api.DeidentificationSummary{
			RedactedEntities: map[string]int{"PERSON": 2, "PHONE_NUMBER": 1, "EMAIL_ADDRESS": 1},
			EncryptionStatus: "encrypted",
			PrivacyNote:      "Personal information was removed before analysis.",
		},
		KeyDetails:      d.details,
		AnalysisSummary: summary,
		Highlights:      highlights,
		DocumentInfo:    &api.DocumentInfo{TotalChunks: 12, AnalysisMethod: "demo"},
	}
}

var chatAnswers = []struct {
	keywords []string
	answer   string
	sources  []api.Source
}{
	{
		keywords: []string{"deposit"},
		answer:   "In Massachusetts a security deposit cannot exceed one month's rent. It must be held in a separate interest-bearing account and returned within 30 days of the end of the tenancy.",
		sources:  []api.Source{{Chapter: "186", Section: "15B", Relevance: "high"}},
	},
	{
		keywords: []string{"late", "fee"},
		answer:   "A landlord may only charge a late fee when rent is more than 30 days overdue.",
		sources:  []api.Source{{Chapter: "186", Section: "15B(1)(c)", Relevance: "high"}},
	},
	{
		keywords: []string{"repair", "heat", "mold"},
		answer:   "The landlord must keep the unit in compliance with the State Sanitary Code. A clause shifting all repairs to the tenant is generally unenforceable.",
		sources:  []api.Source{{Chapter: "111", Section: "127A", Relevance: "medium"}},
	},
	{
		keywords: []string{"bill", "charge", "hospital"},
		answer:   "You can request an itemized bill and dispute any duplicate or incorrect charge in writing. Ask the billing office about financial assistance.",
		sources:  []api.Source{{Chapter: "118E", Section: "70", Relevance: "medium"}},
	},
}

const fallbackAnswer = "I can help with questions about your lease or medical bill. Try asking about your security deposit, late fees or repairs."
