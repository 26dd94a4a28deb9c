// Package chat answers questions about a validated term sheet by keyword
// matching. It has two flavours: Detailed works on the field map and the
// nested validation results, Summary on the flattened 0-100 view.
package chat

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
)

// Intent names the branch a reply came from. Used for logging.
type Intent string

const (
	IntentHighIssues Intent = "high_issues"
	IntentRisk       Intent = "risk"
	IntentIssues     Intent = "issues"
	IntentStatus     Intent = "status"
	IntentFix        Intent = "fix"
	IntentSummary    Intent = "summary"
	IntentField      Intent = "field"
	IntentGreeting   Intent = "greeting"
	IntentThanks     Intent = "thanks"
	IntentHelp       Intent = "help"
	IntentDefault    Intent = "default"
)

type Reply struct {
	Text   string
	Intent Intent
}

// Turn is one earlier message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Results is the nested validation result the detailed assistant reads.
type Results struct {
	IsValid   *bool         `json:"is_valid"`
	RiskScore float64       `json:"risk_score"`
	Issues    []rules.Issue `json:"issues"`
}

// Context is everything the detailed assistant may look at.
type Context struct {
	Fields  fields.FieldMap
	Results *Results
	History []Turn
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// hasWord matches w as a whole word so that "hi" does not fire on "this".
func hasWord(s, w string) bool {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if tok == w {
			return true
		}
	}
	return false
}

// Detailed answers from the field map and nested validation results.
func Detailed(message string, c Context) Reply {
	msg := strings.ToLower(message)

	if c.Results != nil && c.Results.IsValid != nil && !*c.Results.IsValid && strings.Contains(msg, "issue") {
		var high []rules.Issue
		for _, is := range c.Results.Issues {
			if is.Severity == rules.High {
				high = append(high, is)
			}
		}
		if len(high) > 0 {
			return Reply{
				Text: fmt.Sprintf("I found %d high severity issues that need to be addressed. The most critical one is: %s",
					len(high), high[0].Description),
				Intent: IntentHighIssues,
			}
		}
	}

	if containsAny(msg, "risk", "score") {
		var pct float64
		if c.Results != nil {
			pct = c.Results.RiskScore * 100
		}
		var text string
		switch {
		case pct < 30:
			text = fmt.Sprintf("The term sheet has a low risk score of %.1f%%. It appears to be compliant with our guidelines.", pct)
		case pct < 70:
			text = fmt.Sprintf("The term sheet has a moderate risk score of %.1f%%. There are some issues that should be reviewed.", pct)
		default:
			text = fmt.Sprintf("The term sheet has a high risk score of %.1f%%. There are significant compliance issues that must be addressed.", pct)
		}
		return Reply{Text: text, Intent: IntentRisk}
	}

	if strings.Contains(msg, "counterparty") {
		return Reply{
			Text:   fmt.Sprintf("The counterparty in this term sheet is %s.", textOr(c.Fields, fields.Counterparty, "Not specified")),
			Intent: IntentField,
		}
	}

	if containsAny(msg, "maturity", "date") {
		return Reply{
			Text:   fmt.Sprintf("The maturity date for this instrument is %s.", textOr(c.Fields, fields.MaturityDate, "Not specified")),
			Intent: IntentField,
		}
	}

	if containsAny(msg, "amount", "principal") {
		amt, ok := c.Fields.Decimal(fields.PrincipalAmount)
		if !ok {
			return Reply{Text: "The principal amount is not clearly specified in the term sheet.", Intent: IntentField}
		}
		cur := textOr(c.Fields, fields.Currency, "USD")
		return Reply{Text: fmt.Sprintf("The principal amount is %s %s.", cur, money(amt)), Intent: IntentField}
	}

	if strings.Contains(msg, "hello") || hasWord(msg, "hi") {
		return Reply{Text: "Hello! I'm your term sheet analysis assistant. How can I help you with this term sheet?", Intent: IntentGreeting}
	}
	if strings.Contains(msg, "thank") {
		return Reply{Text: "You're welcome! Feel free to ask if you have any other questions about this term sheet.", Intent: IntentThanks}
	}
	if strings.Contains(msg, "help") {
		return Reply{
			Text:   "I can help you understand the term sheet details, explain validation issues, assess risks, and provide guidance on compliance. What would you like to know?",
			Intent: IntentHelp,
		}
	}
	return Reply{
		Text:   "I'm analyzing this term sheet. You can ask me about specific details, risk assessment, or compliance issues, and I'll do my best to help.",
		Intent: IntentDefault,
	}
}

func textOr(m fields.FieldMap, n fields.Name, def string) string {
	if v, ok := m.Text(n); ok && v != "" {
		return v
	}
	return def
}

// money renders d with two decimals and thousands separators: 10,000,000.00.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
