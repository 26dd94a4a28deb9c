package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesCmd_Table(t *testing.T) {
	out, err := execute(context.Background(), "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "counterparty_check")
	assert.Contains(t, out, "risk_disclosure_check")
	assert.Contains(t, out, "Barclays Bank PLC")
	assert.Contains(t, out, "Principal limits:        1000.00 - 50000000.00")
}

func TestRulesCmd_JSON(t *testing.T) {
	out, err := execute(context.Background(), "rules", "--json")
	require.NoError(t, err)

	var got struct {
		Rules []struct {
			ID string `json:"id"`
		} `json:"rules"`
		PrincipalLimits map[string]string `json:"principal_limits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Rules, 9)
	assert.Equal(t, "1000", got.PrincipalLimits["min"])
}

func TestRulesCmd_RejectsArgs(t *testing.T) {
	_, err := execute(context.Background(), "rules", "extra")
	assert.Error(t, err)
}
