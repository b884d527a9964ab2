package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestCompact(t *testing.T) {
	tests := []struct {
		v     float64
		style string
		want  string
	}{
		{0, "scientific", "0"},
		{999.9, "scientific", "999"},
		{-0.5, "compact", "0"},
		{-12.7, "full", "-12"},
		{1000, "scientific", "1e3"},
		{1234567, "scientific", "1.2e6"},
		{9960, "scientific", "1e4"},
		{-25000, "scientific", "-2.5e4"},
		{1000, "compact", "1K"},
		{1234567, "compact", "1.2M"},
		{3.4e12, "compact", "3.4T"},
		{2e18, "compact", "2000P"},
		{1234567.89, "full", "1,234,567"},
		{1500, "unknown", "1,500"},
	}

	for _, tt := range tests {
		t.Run(tt.style+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Compact(tt.v, tt.style))
		})
	}
}

func TestCompact_Options(t *testing.T) {
	assert.Equal(t, "1.23e6", Compact(1234567, "scientific", WithPrecision(2)))
	assert.Equal(t, "1M", Compact(1234567, "compact", WithPrecision(0)))
	assert.Equal(t, "1.2e1", Compact(12, "scientific", WithThreshold(10)))
	assert.Equal(t, "1.234.567", Compact(1234567, "full", WithLanguage(language.German)))
}

func TestRate(t *testing.T) {
	assert.Equal(t, "+0/s", Rate(0, "scientific"))
	assert.Equal(t, "+10/s", Rate(10, "scientific"))
	assert.Equal(t, "-99/s", Rate(-99.5, "compact"))
	assert.Equal(t, "+1.5K/s", Rate(1500, "compact"))
	assert.Equal(t, "-1e2/s", Rate(-100, "scientific"))
}
