package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapExtToFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{".pdf", PDF},
		{"DOCX", DOCX},
		{"xlsx", XLSX},
		{".PNG", IMAGE},
		{"jpg", IMAGE},
		{"jpeg", IMAGE},
		{".txt", TEXT},
		{".csv", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapExtToFormat(tt.ext), tt.ext)
	}
}

func TestIsAllowedExt(t *testing.T) {
	assert.True(t, IsAllowedExt(".pdf", nil))
	assert.True(t, IsAllowedExt("TXT", nil))
	assert.False(t, IsAllowedExt("jpeg", nil))
	assert.False(t, IsAllowedExt(".csv", nil))
	assert.False(t, IsAllowedExt("", nil))

	custom := ExtSet([]string{".CSV", " txt "})
	assert.True(t, IsAllowedExt("csv", custom))
	assert.True(t, IsAllowedExt(".txt", custom))
	assert.False(t, IsAllowedExt("pdf", custom))
}

func TestStatusUpper(t *testing.T) {
	assert.Equal(t, "WARNING", StatusWarning.Upper())
}
