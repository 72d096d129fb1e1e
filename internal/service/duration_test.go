package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"abc", 0},
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{"1d 2h", 26 * time.Hour},
		{"5x", 0},
		{"1h1h", 2 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.in))
		})
	}
}

func TestParseDurationIsAdditiveOverConcatenation(t *testing.T) {
	parts := []string{"1s", "15m", "3h", "2d", "45s", "0m", "120m"}
	for _, a := range parts {
		for _, b := range parts {
			assert.Equal(t, ParseDuration(a)+ParseDuration(b), ParseDuration(a+b), "%s+%s", a, b)
		}
	}
}

func TestParseDurationSaturates(t *testing.T) {
	assert.Equal(t, time.Duration(math.MaxInt64), ParseDuration("99999999999999999999d"))
	assert.Equal(t, time.Duration(math.MaxInt64), ParseDuration("9999999999999d9999999999999d"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "Permanent", FormatDuration(0))
	assert.Equal(t, "45 second(s)", FormatDuration(45*time.Second))
	assert.Equal(t, "5 minute(s)", FormatDuration(5*time.Minute))
	assert.Equal(t, "1 hour(s)", FormatDuration(90*time.Minute))
	assert.Equal(t, "7 day(s)", FormatDuration(7*24*time.Hour))
}
