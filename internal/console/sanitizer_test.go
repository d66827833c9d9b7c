package console_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/pilot/internal/console"
)

func TestSanitize(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain_text",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "empty_line",
			input:    "",
			expected: "",
		},
		{
			name:     "line_clear_and_column_reset",
			input:    "\x1b[2K\x1b[0GHello",
			expected: "Hello",
		},
		{
			name:     "cursor_directive_discards_preceding_text",
			input:    "progress 10%\x1b[1Gprogress 20%",
			expected: "progress 20%",
		},
		{
			name:     "color_sequences_preserved",
			input:    "\x1b[0;31mred\x1b[0m and \x1b[1;32;40mgreen\x1b[0m",
			expected: "\x1b[0;31mred\x1b[0m and \x1b[1;32;40mgreen\x1b[0m",
		},
		{
			name:     "color_kept_after_clear",
			input:    "stale\x1b[K\x1b[33mfresh\x1b[0m",
			expected: "\x1b[33mfresh\x1b[0m",
		},
		{
			name:     "unterminated_sequence_passes_through",
			input:    "tail\x1b[12;",
			expected: "tail\x1b[12;",
		},
		{
			name:     "lone_escape_at_end",
			input:    "tail\x1b",
			expected: "tail\x1b",
		},
		{
			name:     "multibyte_text_after_clear",
			input:    "ünïcode\x1b[2Kγειά",
			expected: "γειά",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, console.Sanitize(testCase.input))
		})
	}
}

func TestSanitizeLeavesColorOnlyLinesUnchanged(testInstance *testing.T) {
	colorOnlyLines := []string{
		"\x1b[m",
		"\x1b[0m",
		"\x1b[38;5;208morange\x1b[39m",
		"a\x1b[1mb\x1b[22mc\x1b[4md\x1b[24m",
	}

	for _, line := range colorOnlyLines {
		require.Equal(testInstance, line, console.Sanitize(line))
	}
}
