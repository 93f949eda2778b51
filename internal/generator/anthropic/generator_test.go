package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHashtags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "adds missing prefix",
			input:    []string{"coffee", "latteart"},
			expected: []string{"#coffee", "#latteart"},
		},
		{
			name:     "keeps existing prefix without doubling",
			input:    []string{"#coffee", "brunch"},
			expected: []string{"#coffee", "#brunch"},
		},
		{
			name:     "deduplicates case insensitively",
			input:    []string{"Coffee", "#coffee", "COFFEE"},
			expected: []string{"#Coffee"},
		},
		{
			name:     "drops empties and collapses inner whitespace",
			input:    []string{"", "  ", "small business", "#  "},
			expected: []string{"#smallbusiness"},
		},
		{
			name: "caps at ten tags",
			input: []string{
				"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l",
			},
			expected: []string{
				"#a", "#b", "#c", "#d", "#e", "#f", "#g", "#h", "#i", "#j",
			},
		},
		{
			name:     "nil input",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHashtags(tt.input))
		})
	}
}
