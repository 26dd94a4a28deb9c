package fields

import "github.com/shopspring/decimal"

// Sample returns the canned field mapping used when parsing fails.
// A fresh map is returned on every call.
func Sample() FieldMap {
	return FieldMap{
		TradeDate:       DateValue("2023-06-15"),
		SettlementDate:  DateValue("2023-06-20"),
		Issuer:          StringValue("Barclays Bank PLC"),
		Counterparty:    StringValue("Acme Corporation"),
		Product:         StringValue("Fixed Rate Note"),
		Currency:        StringValue("USD"),
		PrincipalAmount: DecimalValue(decimal.NewFromInt(10_000_000)),
		MaturityDate:    DateValue("2028-06-15"),
		CouponRate:      DecimalValue(decimal.RequireFromString("5.25")),
		CouponFrequency: StringValue("Semi-annual"),
		GoverningLaw:    StringValue("English Law"),
		RiskDisclosure:  StringValue("The investment involves market risk and may result in loss of principal."),
	}
}
