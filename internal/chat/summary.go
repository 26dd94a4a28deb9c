package chat

import (
	"fmt"
	"strings"
)

// SummaryIssue is an issue in the flattened response shape.
type SummaryIssue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// Summary is the flattened validation view: status, 0-100 score, issues.
type Summary struct {
	Status    string         `json:"status"`
	RiskScore float64        `json:"riskScore"`
	Issues    []SummaryIssue `json:"issues"`
}

// SummaryReply answers from the flattened view.
func SummaryReply(message string, s Summary) Reply {
	msg := strings.ToLower(message)
	score := formatScore(s.RiskScore)

	switch {
	case containsAny(msg, "risk", "score"):
		switch {
		case s.RiskScore < 30:
			return Reply{Text: fmt.Sprintf("The risk score is %s, which is considered low risk. This term sheet appears to be in good shape.", score), Intent: IntentRisk}
		case s.RiskScore < 70:
			return Reply{Text: fmt.Sprintf("The risk score is %s, which indicates moderate risk. There are some issues that should be addressed.", score), Intent: IntentRisk}
		default:
			return Reply{Text: fmt.Sprintf("The risk score is %s, which indicates high risk. This term sheet has significant issues that need to be resolved.", score), Intent: IntentRisk}
		}

	case containsAny(msg, "issue", "problem", "error"):
		if len(s.Issues) == 0 {
			return Reply{Text: "No issues were detected in this term sheet.", Intent: IntentIssues}
		}
		var high []SummaryIssue
		for _, is := range s.Issues {
			if strings.EqualFold(is.Severity, "high") {
				high = append(high, is)
			}
		}
		if len(high) > 0 {
			return Reply{
				Text: fmt.Sprintf("I found %d issues, including %d high severity issues. The most critical one is: %s",
					len(s.Issues), len(high), describeIssue(high[0])),
				Intent: IntentIssues,
			}
		}
		return Reply{
			Text: fmt.Sprintf("I found %d issues, but none are high severity. The most notable one is: %s",
				len(s.Issues), describeIssue(s.Issues[0])),
			Intent: IntentIssues,
		}

	case containsAny(msg, "valid", "status"):
		switch s.Status {
		case "valid":
			return Reply{Text: "This term sheet is valid and ready for processing.", Intent: IntentStatus}
		case "warning":
			return Reply{Text: "This term sheet has some minor issues but is generally valid. You should review the issues before proceeding.", Intent: IntentStatus}
		default:
			return Reply{Text: "This term sheet has critical issues that must be resolved before it can be considered valid.", Intent: IntentStatus}
		}

	case containsAny(msg, "fix", "resolve", "solution"):
		return Reply{
			Text:   "To resolve the issues, I recommend reviewing each flagged item and updating the term sheet accordingly. Once corrected, you can upload the revised version for another validation check.",
			Intent: IntentFix,
		}

	case containsAny(msg, "summary", "overview"):
		status := s.Status
		if status == "" {
			status = "unknown"
		}
		overall := "needs significant corrections"
		switch {
		case s.RiskScore < 30:
			overall = "appears to be in good shape"
		case s.RiskScore < 70:
			overall = "requires some revisions"
		}
		return Reply{
			Text: fmt.Sprintf("This term sheet has a validation status of %s with a risk score of %s. I detected %d issues that need attention. Overall, it %s.",
				status, score, len(s.Issues), overall),
			Intent: IntentSummary,
		}
	}

	return Reply{
		Text:   "I'm here to help with your term sheet analysis. You can ask me about the risk score, validation status, specific issues, or how to resolve them. Is there something specific you'd like to know?",
		Intent: IntentDefault,
	}
}

func describeIssue(is SummaryIssue) string {
	if is.Description == "" {
		return "Unknown issue"
	}
	return is.Description
}

// formatScore prints whole scores without a fraction.
func formatScore(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
