package fields

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/termsheet-validator/internal/fallback"
)

// ParseError is a malformed value under a recognised label (or undecodable input).
// It aborts the whole parse; the caller falls back to Sample.
type ParseError struct {
	Field Name
	Input string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse %s from %q: %v", e.Field, e.Input, e.Cause)
	}
	return fmt.Sprintf("parse %s from %q", e.Field, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Cause }

type linePattern struct {
	name Name
	re   *regexp.Regexp
	kind Kind
}

func label(l string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(l) + `:[ \t]*([^\n]*)`)
}

func dateLabel(l string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(l) + `:[ \t]*(\d{4}-\d{2}-\d{2})`)
}

var (
	linePatterns = []linePattern{
		{TradeDate, dateLabel("Trade Date"), KindDate},
		{SettlementDate, dateLabel("Settlement Date"), KindDate},
		{Issuer, label("Issuer"), KindString},
		{Counterparty, label("Counterparty"), KindString},
		{Product, label("Product"), KindString},
		{MaturityDate, dateLabel("Maturity Date"), KindDate},
		{CouponFrequency, label("Coupon Payment Frequency"), KindString},
		{GoverningLaw, label("Governing Law"), KindString},
		{RiskDisclosure, label("Risk Disclosure"), KindString},
	}

	rePrincipalLine = label("Principal Amount")
	rePrincipal     = regexp.MustCompile(`([A-Z]{3})\s*([\d,]+(?:\.\d+)?)`)
	reCoupon        = regexp.MustCompile(`Coupon Rate:[ \t]*([\d.]+)%`)
)

// Parser turns extracted text into a FieldMap.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse extracts fields from text, falling back to Sample on any parse failure.
func (p *Parser) Parse(text string) fallback.Result[FieldMap] {
	res := fallback.OrElse(func() (FieldMap, error) { return ParseStrict(text) }, Sample)
	if res.FellBack {
		p.logger.Warn("field extraction failed, using sample fields", "error", res.Err)
	} else {
		p.logger.Debug("fields extracted", "count", len(res.Value))
	}
	return res
}

// ParseStrict extracts fields without falling back. Lines that do not match their
// pattern leave the field absent; a matched but malformed value is a *ParseError.
func ParseStrict(text string) (FieldMap, error) {
	if !utf8.ValidString(text) {
		return nil, &ParseError{Input: truncate(text, 64), Cause: fmt.Errorf("invalid UTF-8")}
	}
	out := FieldMap{}

	for _, lp := range linePatterns {
		m := lp.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if lp.kind == KindDate {
			out[lp.name] = DateValue(v)
		} else {
			out[lp.name] = StringValue(v)
		}
	}

	if m := rePrincipalLine.FindStringSubmatch(text); m != nil {
		line := strings.TrimSpace(m[1])
		if pm := rePrincipal.FindStringSubmatch(line); pm != nil {
			digits := strings.ReplaceAll(pm[2], ",", "")
			amt, err := decimal.NewFromString(digits)
			if err != nil {
				return nil, &ParseError{Field: PrincipalAmount, Input: line, Cause: err}
			}
			out[Currency] = StringValue(pm[1])
			out[PrincipalAmount] = DecimalValue(amt)
		}
	}

	if m := reCoupon.FindStringSubmatch(text); m != nil {
		rate, err := decimal.NewFromString(m[1])
		if err != nil {
			return nil, &ParseError{Field: CouponRate, Input: m[1], Cause: err}
		}
		out[CouponRate] = DecimalValue(rate)
	}

	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
