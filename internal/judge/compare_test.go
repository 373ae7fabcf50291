package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputMatches(t *testing.T) {
	tests := []struct {
		name     string
		observed string
		expected string
		match    bool
	}{
		{"identical", "1 2 3\n", "1 2 3\n", true},
		{"missing final newline", "42", "42\n", true},
		{"windows line endings", "a\r\nb\r\n", "a\nb\n", true},
		{"trailing spaces", "a  \nb\t\n", "a\nb\n", true},
		{"trailing blank lines", "a\n\n\n", "a", true},
		{"empty", "", "", true},
		{"different value", "41\n", "42\n", false},
		{"leading whitespace matters", " a\n", "a\n", false},
		{"inner blank line matters", "a\n\nb\n", "a\nb\n", false},
		{"extra line", "a\nb\n", "a\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, outputMatches(tt.observed, tt.expected))
		})
	}
}
