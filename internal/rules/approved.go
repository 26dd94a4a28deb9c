package rules

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Lists is the raw reference data a RuleSet is built from.
type Lists struct {
	Counterparties []string `yaml:"counterparties" toml:"counterparties" json:"counterparties"`
	Issuers        []string `yaml:"issuers" toml:"issuers" json:"issuers"`
	Products       []string `yaml:"products" toml:"products" json:"products"`
	GoverningLaws  []string `yaml:"governing_laws" toml:"governing_laws" json:"governing_laws"`
}

// DefaultLists returns the built-in approved reference data.
func DefaultLists() Lists {
	return Lists{
		Counterparties: []string{
			"Acme Corporation", "Global Investments Ltd", "Stellar Financial", "Mercury Partners",
			"JP Morgan", "Goldman Sachs", "Morgan Stanley",
		},
		Issuers: []string{
			"Barclays Bank PLC", "HSBC", "Lloyds Banking Group", "Royal Bank of Scotland", "Standard Chartered",
		},
		Products: []string{
			"Fixed Rate Note", "Floating Rate Note", "Swap", "Option", "Forward", "Future", "Equity Derivative",
		},
		GoverningLaws: []string{"English Law", "UK Law", "New York Law", "US Law", "EU Law"},
	}
}

var (
	DefaultPrincipalMin = decimal.NewFromInt(1_000)
	DefaultPrincipalMax = decimal.NewFromInt(50_000_000)
)

type set map[string]struct{}

func newSet(items []string) set {
	s := make(set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RuleSet is the immutable reference data the engine checks against.
// Build it once at startup and share it; it is safe for concurrent reads.
type RuleSet struct {
	counterparties set
	issuers        set
	products       set
	laws           set
	principalMin   decimal.Decimal
	principalMax   decimal.Decimal
}

// NewRuleSet builds a RuleSet. Zero bounds take the defaults.
func NewRuleSet(lists Lists, principalMin, principalMax decimal.Decimal) (*RuleSet, error) {
	if principalMin.IsZero() {
		principalMin = DefaultPrincipalMin
	}
	if principalMax.IsZero() {
		principalMax = DefaultPrincipalMax
	}
	if principalMin.GreaterThan(principalMax) {
		return nil, fmt.Errorf("principal bounds: min %s greater than max %s", principalMin, principalMax)
	}
	return &RuleSet{
		counterparties: newSet(lists.Counterparties),
		issuers:        newSet(lists.Issuers),
		products:       newSet(lists.Products),
		laws:           newSet(lists.GoverningLaws),
		principalMin:   principalMin,
		principalMax:   principalMax,
	}, nil
}

// DefaultRuleSet returns the built-in reference data with default bounds.
func DefaultRuleSet() *RuleSet {
	rs, _ := NewRuleSet(DefaultLists(), DefaultPrincipalMin, DefaultPrincipalMax)
	return rs
}

// Lists returns a sorted copy of the reference data.
func (rs *RuleSet) Lists() Lists {
	return Lists{
		Counterparties: rs.counterparties.sorted(),
		Issuers:        rs.issuers.sorted(),
		Products:       rs.products.sorted(),
		GoverningLaws:  rs.laws.sorted(),
	}
}

func (rs *RuleSet) PrincipalBounds() (decimal.Decimal, decimal.Decimal) {
	return rs.principalMin, rs.principalMax
}
