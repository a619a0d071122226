package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims and drops empties",
			input:    []string{"  screener ", "supervisor", "", "  "},
			expected: []string{"screener", "supervisor"},
		},
		{
			name:     "first occurrence wins",
			input:    []string{"screener", "admin", "screener", "admin"},
			expected: []string{"screener", "admin"},
		},
		{
			name:     "case is preserved",
			input:    []string{"Screener", "screener"},
			expected: []string{"Screener", "screener"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "case variants collapse",
			input:    []string{"Screener", "screener", "SCREENER"},
			expected: []string{"screener"},
		},
		{
			name:     "trims before comparing",
			input:    []string{"  ADMIN ", "supervisor", "Admin"},
			expected: []string{"admin", "supervisor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
