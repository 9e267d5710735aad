package documents

import (
	"strings"

	"github.com/claimwise/cli/internal/api"
)

// Step is a stage of the upload wizard
type Step int

const (
	StepChooseType Step = iota + 1
	StepUpload
	StepReview
	StepAnalyze
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepChooseType:
		return "Choose type"
	case StepUpload:
		return "Upload"
	case StepReview:
		return "Review"
	case StepAnalyze:
		return "Analyze"
	case StepResults:
		return "Results"
	default:
		return "Unknown"
	}
}

// Steps lists the wizard stages in order
var Steps = []Step{StepChooseType, StepUpload, StepReview, StepAnalyze, StepResults}

// DocumentType is what the user says they are uploading
type DocumentType string

const (
	TypeLease       DocumentType = "lease"
	TypeMedicalBill DocumentType = "medical_bill"
)

// Label is the display name
func (t DocumentType) Label() string {
	switch t {
	case TypeLease:
		return "Lease"
	case TypeMedicalBill:
		return "Medical Bill"
	default:
		return string(t)
	}
}

// ValidateRequired checks the fields a confirmation must carry
func ValidateRequired(d api.KeyDetails) error {
	switch {
	case strings.TrimSpace(d.Landlord) == "":
		return &api.ValidationError{Field: "landlord", Message: "Landlord name is required."}
	case strings.TrimSpace(d.Tenant) == "":
		return &api.ValidationError{Field: "tenant", Message: "Tenant name is required."}
	case strings.TrimSpace(d.PropertyAddress) == "":
		return &api.ValidationError{Field: "propertyAddress", Message: "Property address is required."}
	}
	return nil
}

// Normalize trims whitespace and drops empty list entries
func Normalize(d api.KeyDetails) api.KeyDetails {
	d.Landlord = strings.TrimSpace(d.Landlord)
	d.Tenant = strings.TrimSpace(d.Tenant)
	d.PropertyAddress = strings.TrimSpace(d.PropertyAddress)
	d.LeaseTerm = strings.TrimSpace(d.LeaseTerm)
	d.RentAmount = strings.TrimSpace(d.RentAmount)
	d.SecurityDeposit = strings.TrimSpace(d.SecurityDeposit)
	d.StartDate = strings.TrimSpace(d.StartDate)
	d.EndDate = strings.TrimSpace(d.EndDate)
	d.PropertyInfo = strings.TrimSpace(d.PropertyInfo)
	d.Parties = compact(d.Parties)
	d.SpecialClauses = compact(d.SpecialClauses)
	return d
}

func compact(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList parses a comma separated form value into list entries
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return compact(strings.Split(s, ","))
}
