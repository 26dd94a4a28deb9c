package pipeline

import (
	"time"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
)

// ValidationResult is the canonical outcome of one run. Both HTTP response
// shapes are derived from it.
type ValidationResult struct {
	IsValid   bool             `json:"is_valid"`
	RiskScore float64          `json:"risk_score"`
	Status    constants.Status `json:"status"`
	Issues    []rules.Issue    `json:"issues"`
	Timestamp time.Time        `json:"timestamp"`

	Fields         fields.FieldMap    `json:"fields,omitempty"`
	FieldsFallback bool               `json:"fields_fallback,omitempty"`
	Extraction     *ExtractionSummary `json:"extraction,omitempty"`
}

// ExtractionSummary describes how the text was obtained.
type ExtractionSummary struct {
	Format     constants.Format `json:"format"`
	Method     string           `json:"method"`
	Pages      int              `json:"pages"`
	Confidence float32          `json:"confidence"`
	Fallback   bool             `json:"fallback"`
	Warnings   []string         `json:"warnings,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// FellBack reports whether any stage substituted canned data.
func (r ValidationResult) FellBack() bool {
	return r.FieldsFallback || (r.Extraction != nil && r.Extraction.Fallback)
}
