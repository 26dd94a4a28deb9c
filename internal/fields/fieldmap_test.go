package fields

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldMap_MarshalJSON(t *testing.T) {
	m := FieldMap{
		PrincipalAmount: Sample()[PrincipalAmount],
		CouponRate:      Sample()[CouponRate],
		TradeDate:       DateValue("2023-06-15"),
		Issuer:          StringValue("HSBC"),
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"principal_amount":10000000,"coupon_rate":5.25,"trade_date":"2023-06-15","issuer":"HSBC"}`, string(b))
}

func TestFieldMap_UnmarshalJSON(t *testing.T) {
	var m FieldMap
	err := json.Unmarshal([]byte(`{
		"principal_amount": "2500000.75",
		"coupon_rate": 4.1,
		"maturity_date": "2030-01-01",
		"counterparty": "JP Morgan",
		"issuer": null,
		"call_option": "Callable"
	}`), &m)
	require.NoError(t, err)

	amt, ok := m.Decimal(PrincipalAmount)
	require.True(t, ok)
	assert.Equal(t, "2500000.75", amt.String())

	rate, _ := m.Decimal(CouponRate)
	assert.Equal(t, "4.1", rate.String())

	v, _ := m.Get(MaturityDate)
	assert.Equal(t, KindDate, v.Kind())

	_, ok = m.Get(Issuer)
	assert.False(t, ok, "null means absent")
	assert.Len(t, m, 4)
}

func TestFieldMap_UnmarshalJSON_Errors(t *testing.T) {
	tests := []string{
		`{"principal_amount": "lots"}`,
		`{"principal_amount": true}`,
		`{"issuer": 12}`,
		`[]`,
	}
	for _, in := range tests {
		var m FieldMap
		assert.Error(t, json.Unmarshal([]byte(in), &m), in)
	}
}

func TestFieldMap_PlainAndClone(t *testing.T) {
	m := Sample()
	plain := m.Plain()
	assert.Equal(t, 10000000.0, plain["principal_amount"])
	assert.Equal(t, "Acme Corporation", plain["counterparty"])

	c := m.Clone()
	delete(c, Counterparty)
	_, ok := m.Get(Counterparty)
	assert.True(t, ok)
}

func TestKindOf(t *testing.T) {
	for _, n := range Vocabulary {
		_, ok := KindOf(n)
		assert.True(t, ok, n)
	}
	_, ok := KindOf("call_option")
	assert.False(t, ok)
}
