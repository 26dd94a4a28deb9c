package rules

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
)

const dateLayout = "2006-01-02"

const (
	CounterpartyCheck      = "counterparty_check"
	IssuerCheck            = "issuer_check"
	ProductCheck           = "product_check"
	PrincipalAmountCheck   = "principal_amount_check"
	MaturityDateCheck      = "maturity_date_check"
	TradeDateCheck         = "trade_date_check"
	SettlementVsTradeCheck = "settlement_vs_trade_check"
	GoverningLawCheck      = "governing_law_check"
	RiskDisclosureCheck    = "risk_disclosure_check"
)

// check returns a description when the rule is violated.
type check func(e *Engine, m fields.FieldMap, today time.Time) (string, bool)

type rule struct {
	Info
	check check
}

// Evaluation order is fixed; issue order follows it.
var catalogue = []rule{
	{Info{CounterpartyCheck, "Ensure counterparty is on the approved list", High}, checkCounterparty},
	{Info{IssuerCheck, "Ensure issuer is on the approved list", High}, checkIssuer},
	{Info{ProductCheck, "Ensure product is on the approved list", Medium}, checkProduct},
	{Info{PrincipalAmountCheck, "Ensure principal amount is within acceptable limits", High}, checkPrincipal},
	{Info{MaturityDateCheck, "Ensure maturity date is valid and in the future", Medium}, checkMaturity},
	{Info{TradeDateCheck, "Ensure trade date is not in the future", High}, checkTradeDate},
	{Info{SettlementVsTradeCheck, "Ensure settlement date is after trade date", Medium}, checkSettlementVsTrade},
	{Info{GoverningLawCheck, "Ensure governing law is approved", Medium}, checkGoverningLaw},
	{Info{RiskDisclosureCheck, "Ensure risk disclosure is present", Low}, checkRiskDisclosure},
}

// Engine evaluates the compliance rules against a FieldMap.
type Engine struct {
	set    *RuleSet
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Engine)

// WithClock sets the clock that defines "today" for the date rules.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over set (nil uses DefaultRuleSet).
func NewEngine(set *RuleSet, opts ...Option) *Engine {
	if set == nil {
		set = DefaultRuleSet()
	}
	e := &Engine{set: set, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs every rule. It never mutates m and has no error path.
func (e *Engine) Evaluate(m fields.FieldMap) (bool, []Issue) {
	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	issues := make([]Issue, 0, len(catalogue))
	for _, r := range catalogue {
		if desc, bad := r.check(e, m, today); bad {
			issues = append(issues, Issue{RuleID: r.ID, Description: desc, Severity: r.Severity})
		}
	}
	valid := !HasHigh(issues)
	e.logger.Debug("rules evaluated", "issues", len(issues), "is_valid", valid)
	return valid, issues
}

// Rules returns the rule catalogue in evaluation order.
func (e *Engine) Rules() []Info {
	out := make([]Info, len(catalogue))
	for i, r := range catalogue {
		out[i] = r.Info
	}
	return out
}

// RuleCount is the number of rules evaluated per call.
func (e *Engine) RuleCount() int { return len(catalogue) }

func (e *Engine) RuleSet() *RuleSet { return e.set }

func approved(m fields.FieldMap, n fields.Name, allowed set, what string) (string, bool) {
	v, ok := m.Text(n)
	if !ok {
		return what + " information is missing", true
	}
	if !allowed.has(v) {
		return fmt.Sprintf("%s '%s' is not on the approved list", what, v), true
	}
	return "", false
}

func checkCounterparty(e *Engine, m fields.FieldMap, _ time.Time) (string, bool) {
	return approved(m, fields.Counterparty, e.set.counterparties, "Counterparty")
}

func checkIssuer(e *Engine, m fields.FieldMap, _ time.Time) (string, bool) {
	return approved(m, fields.Issuer, e.set.issuers, "Issuer")
}

func checkProduct(e *Engine, m fields.FieldMap, _ time.Time) (string, bool) {
	return approved(m, fields.Product, e.set.products, "Product")
}

func checkGoverningLaw(e *Engine, m fields.FieldMap, _ time.Time) (string, bool) {
	v, ok := m.Text(fields.GoverningLaw)
	if !ok {
		return "Governing law is missing", true
	}
	if !e.set.laws.has(v) {
		return fmt.Sprintf("Governing law '%s' is not on the approved list", v), true
	}
	return "", false
}

func checkPrincipal(e *Engine, m fields.FieldMap, _ time.Time) (string, bool) {
	amt, ok := m.Decimal(fields.PrincipalAmount)
	if !ok {
		return "Principal amount is missing", true
	}
	if amt.LessThan(e.set.principalMin) || amt.GreaterThan(e.set.principalMax) {
		return fmt.Sprintf("Principal amount %s is outside acceptable limits (%s - %s)",
			amt.String(), grouped(e.set.principalMin), grouped(e.set.principalMax)), true
	}
	return "", false
}

func parseDate(v string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, v, loc)
	return t, err == nil
}

func checkMaturity(_ *Engine, m fields.FieldMap, today time.Time) (string, bool) {
	v, ok := m.Text(fields.MaturityDate)
	if !ok {
		return "Maturity date is missing", true
	}
	d, ok := parseDate(v, today.Location())
	if !ok {
		return fmt.Sprintf("Maturity date %s is in an invalid format", v), true
	}
	if !d.After(today) {
		return fmt.Sprintf("Maturity date %s is not in the future", v), true
	}
	return "", false
}

func checkTradeDate(_ *Engine, m fields.FieldMap, today time.Time) (string, bool) {
	v, ok := m.Text(fields.TradeDate)
	if !ok {
		return "Trade date is missing", true
	}
	d, ok := parseDate(v, today.Location())
	if !ok {
		return fmt.Sprintf("Trade date %s is in an invalid format", v), true
	}
	if d.After(today) {
		return fmt.Sprintf("Trade date %s is in the future", v), true
	}
	return "", false
}

// checkSettlementVsTrade only fires when both dates are present and parseable;
// absent or malformed dates are reported by the individual date rules.
func checkSettlementVsTrade(_ *Engine, m fields.FieldMap, today time.Time) (string, bool) {
	sv, ok1 := m.Text(fields.SettlementDate)
	tv, ok2 := m.Text(fields.TradeDate)
	if !ok1 || !ok2 {
		return "", false
	}
	s, ok1 := parseDate(sv, today.Location())
	t, ok2 := parseDate(tv, today.Location())
	if !ok1 || !ok2 {
		return "", false
	}
	if s.Before(t) {
		return fmt.Sprintf("Settlement date %s is before trade date %s", sv, tv), true
	}
	return "", false
}

func checkRiskDisclosure(_ *Engine, m fields.FieldMap, _ time.Time) (string, bool) {
	v, ok := m.Text(fields.RiskDisclosure)
	if !ok || strings.TrimSpace(v) == "" {
		return "Risk disclosure is missing", true
	}
	return "", false
}

// grouped formats an integer part with thousands separators (1000 -> "1,000").
func grouped(d decimal.Decimal) string {
	s := d.Truncate(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
