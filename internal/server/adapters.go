package server

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/termsheet-validator/internal/chat"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
	"github.com/joseph-ayodele/termsheet-validator/internal/risk"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
)

// detailedResults is the nested validation_results object.
type detailedResults struct {
	IsValid         bool                        `json:"is_valid"`
	RiskScore       float64                     `json:"risk_score"`
	Status          string                      `json:"status"`
	Issues          []rules.Issue               `json:"issues"`
	Timestamp       string                      `json:"timestamp"`
	ExtractedFields map[string]any              `json:"extracted_fields,omitempty"`
	FieldsFallback  bool                        `json:"fields_fallback,omitempty"`
	Extraction      *pipeline.ExtractionSummary `json:"extraction,omitempty"`
}

type detailedResponse struct {
	Status            string          `json:"status"`
	Filename          string          `json:"filename,omitempty"`
	ValidationResults detailedResults `json:"validation_results"`
}

func toDetailed(res pipeline.ValidationResult) detailedResults {
	issues := res.Issues
	if issues == nil {
		issues = []rules.Issue{}
	}
	return detailedResults{
		IsValid:         res.IsValid,
		RiskScore:       res.RiskScore,
		Status:          string(res.Status),
		Issues:          issues,
		Timestamp:       res.Timestamp.Format(time.RFC3339),
		ExtractedFields: res.Fields.Plain(),
		FieldsFallback:  res.FieldsFallback,
		Extraction:      res.Extraction,
	}
}

// toSummary flattens a result: 0-100 score, Title-Case severities.
func toSummary(res pipeline.ValidationResult) chat.Summary {
	issues := make([]chat.SummaryIssue, 0, len(res.Issues))
	for _, is := range res.Issues {
		issues = append(issues, chat.SummaryIssue{Severity: is.Severity.Title(), Description: is.Description})
	}
	return chat.Summary{
		Status:    string(res.Status),
		RiskScore: float64(risk.Percent(res.RiskScore)),
		Issues:    issues,
	}
}

// processingFallback is returned when a supported upload could not be processed.
func processingFallback(err error) chat.Summary {
	return chat.Summary{
		Status:    "warning",
		RiskScore: 45,
		Issues: []chat.SummaryIssue{{
			Severity:    rules.Medium.Title(),
			Description: fmt.Sprintf("Error processing file: %v", err),
		}},
	}
}

// unexpectedFallback is returned when the handler itself failed.
func unexpectedFallback(cause any) chat.Summary {
	return chat.Summary{
		Status:    "warning",
		RiskScore: 50,
		Issues: []chat.SummaryIssue{{
			Severity:    rules.High.Title(),
			Description: fmt.Sprintf("An error occurred during validation: %v", cause),
		}},
	}
}

// summaryFromResults derives the flattened view from nested results sent by a client.
func summaryFromResults(r *chat.Results) chat.Summary {
	res := pipeline.ValidationResult{
		RiskScore: r.RiskScore,
		Status:    risk.Status(r.Issues),
		Issues:    r.Issues,
	}
	return toSummary(res)
}
