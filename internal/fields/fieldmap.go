package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Name is a semantic field in the fixed term-sheet vocabulary.
type Name string

const (
	TradeDate       Name = "trade_date"
	SettlementDate  Name = "settlement_date"
	Issuer          Name = "issuer"
	Counterparty    Name = "counterparty"
	Product         Name = "product"
	Currency        Name = "currency"
	PrincipalAmount Name = "principal_amount"
	MaturityDate    Name = "maturity_date"
	CouponRate      Name = "coupon_rate"
	CouponFrequency Name = "coupon_frequency"
	GoverningLaw    Name = "governing_law"
	RiskDisclosure  Name = "risk_disclosure"
)

// Vocabulary lists every known field in display order.
var Vocabulary = []Name{
	TradeDate, SettlementDate, Issuer, Counterparty, Product, Currency,
	PrincipalAmount, MaturityDate, CouponRate, CouponFrequency, GoverningLaw, RiskDisclosure,
}

// Kind is the value type a field carries.
type Kind int

const (
	KindString Kind = iota
	KindDate
	KindDecimal
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindDecimal:
		return "decimal"
	default:
		return "string"
	}
}

// KindOf returns the value kind for a field name; ok is false for unknown names.
func KindOf(n Name) (Kind, bool) {
	switch n {
	case TradeDate, SettlementDate, MaturityDate:
		return KindDate, true
	case PrincipalAmount, CouponRate:
		return KindDecimal, true
	case Issuer, Counterparty, Product, Currency, CouponFrequency, GoverningLaw, RiskDisclosure:
		return KindString, true
	default:
		return 0, false
	}
}

// Value is a typed field value. Dates keep their source text so rules can tell
// "present but unparseable" apart from "absent".
type Value struct {
	kind Kind
	text string
	num  decimal.Decimal
}

func StringValue(s string) Value { return Value{kind: KindString, text: s} }

func DateValue(s string) Value { return Value{kind: KindDate, text: s} }

func DecimalValue(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, num: d, text: d.String()}
}

func (v Value) Kind() Kind { return v.kind }

// Text returns the textual form (the decimal's canonical string for decimals).
func (v Value) Text() string { return v.text }

// Decimal returns the numeric value; ok is false for non-decimal values.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != KindDecimal {
		return decimal.Zero, false
	}
	return v.num, true
}

func (v Value) String() string { return v.text }

// MarshalJSON encodes decimals as JSON numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindDecimal {
		return []byte(v.num.String()), nil
	}
	return json.Marshal(v.text)
}

// FieldMap maps field names to values. A missing key means the field is absent.
type FieldMap map[Name]Value

// Get returns the value for n and whether it is present.
func (m FieldMap) Get(n Name) (Value, bool) {
	v, ok := m[n]
	return v, ok
}

// Text returns the textual value of n and whether it is present.
func (m FieldMap) Text(n Name) (string, bool) {
	v, ok := m[n]
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// Decimal returns the numeric value of n; ok is false when absent or not numeric.
func (m FieldMap) Decimal(n Name) (decimal.Decimal, bool) {
	v, ok := m[n]
	if !ok {
		return decimal.Zero, false
	}
	return v.Decimal()
}

// Clone returns a shallow copy; values are immutable so this is a full copy.
func (m FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Plain converts the map to JSON-friendly primitives (float64 for decimals).
func (m FieldMap) Plain() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if d, ok := v.Decimal(); ok {
			f, _ := d.Float64()
			out[string(k)] = f
			continue
		}
		out[string(k)] = v.Text()
	}
	return out
}

// UnmarshalJSON decodes a JSON object. Decimal fields accept numbers or numeric
// strings; null leaves the field absent; unknown keys are ignored.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FieldMap, len(raw))
	for key, msg := range raw {
		name := Name(key)
		kind, known := KindOf(name)
		if !known || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		switch kind {
		case KindDecimal:
			d, err := decodeDecimal(msg)
			if err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			out[name] = DecimalValue(d)
		default:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return fmt.Errorf("field %s: expected string: %w", key, err)
			}
			if kind == KindDate {
				out[name] = DateValue(s)
			} else {
				out[name] = StringValue(s)
			}
		}
	}
	*m = out
	return nil
}

func decodeDecimal(msg json.RawMessage) (decimal.Decimal, error) {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var anyv any
	if err := dec.Decode(&anyv); err != nil {
		return decimal.Zero, err
	}
	switch t := anyv.(type) {
	case json.Number:
		num = t
	case string:
		num = json.Number(strings.ReplaceAll(strings.TrimSpace(t), ",", ""))
	default:
		return decimal.Zero, fmt.Errorf("expected number, got %T", anyv)
	}
	d, err := decimal.NewFromString(string(num))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", string(num), err)
	}
	return d, nil
}
