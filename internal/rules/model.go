package rules

// Severity of a rule violation.
type Severity string

const (
	Low    Severity = "LOW"
	Medium Severity = "MEDIUM"
	High   Severity = "HIGH"
)

// Title returns the capitalised form used by the flattened response ("High").
func (s Severity) Title() string {
	switch s {
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	default:
		return string(s)
	}
}

// ParseSeverity accepts any casing of LOW/MEDIUM/HIGH.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "HIGH", "High", "high":
		return High, true
	case "MEDIUM", "Medium", "medium":
		return Medium, true
	case "LOW", "Low", "low":
		return Low, true
	}
	return "", false
}

// Issue is a single rule violation. Issues are values and never mutated.
type Issue struct {
	RuleID      string   `json:"rule_id"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// HasHigh reports whether any issue is HIGH severity.
func HasHigh(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == High {
			return true
		}
	}
	return false
}

// Info describes a rule for catalogue listings.
type Info struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}
