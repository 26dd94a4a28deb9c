package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCmd_PrintsMetadataAndText(t *testing.T) {
	out, err := execute(context.Background(), "extract", sampleFile(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Method:     text-raw")
	assert.Contains(t, out, "Pages:      1")
	assert.Contains(t, out, "Issuer: Barclays Bank PLC")
}

func TestExtractCmd_Quiet(t *testing.T) {
	out, err := execute(context.Background(), "extract", "-q", sampleFile(t))
	require.NoError(t, err)
	assert.NotContains(t, out, "Method:")
	assert.Contains(t, out, "TERM SHEET")
}

func TestExtractCmd_HasQuietFlag(t *testing.T) {
	flag := extractCmd.Flags().Lookup("quiet")
	require.NotNil(t, flag)
	assert.Equal(t, "q", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
}
