package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractValidJSONUnchanged(t *testing.T) {
	testCases := []string{
		`{"mode":"NOOP","message":"Hi"}`,
		`{"a": {"b": [1, 2, 3]}, "c": null}`,
		`[1, 2, 3]`,
		`"just a string"`,
		`42`,
	}
	for _, input := range testCases {
		got, ok := Extract(input)
		require.True(t, ok, "input: %s", input)
		assert.Equal(t, input, got)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "fence_with_language_tag",
			input: "Here is the answer:\n```json\n{\"mode\":\"ASK\"}\n```\nLet me know!",
			want:  `{"mode":"ASK"}`,
		},
		{
			name:  "fence_without_language_tag",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "json_tag_delimiters",
			input: "preamble <json>{\"x\": true}</json> postamble",
			want:  `{"x": true}`,
		},
		{
			name:  "bracket_delimiters",
			input: "[JSON]{\"y\": \"z\"}[/JSON]",
			want:  `{"y": "z"}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractRepair(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "unquoted_keys",
			input: `{mode: "ASK", message: "hello"}`,
			want:  map[string]any{"mode": "ASK", "message": "hello"},
		},
		{
			name:  "single_quoted_values",
			input: `{'mode': 'NOOP', 'message': 'hi'}`,
			want:  map[string]any{"mode": "NOOP", "message": "hi"},
		},
		{
			name:  "trailing_comma",
			input: `{"a": 1, "b": [1, 2,],}`,
			want:  map[string]any{"a": float64(1), "b": []any{float64(1), float64(2)}},
		},
		{
			name:  "line_comments",
			input: "{\n  \"a\": 1, // the answer\n  \"b\": 2\n}",
			want:  map[string]any{"a": float64(1), "b": float64(2)},
		},
		{
			name:  "block_comments",
			input: `{"a": /* inline */ 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "trailing_prose",
			input: `{"a": 1} I hope this helps with your question.`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "leading_prose",
			input: `Sure, here you go: {"mode": "ASK", "message": "?"}`,
			want:  map[string]any{"mode": "ASK", "message": "?"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.input)
			require.True(t, ok)

			var parsed map[string]any
			require.NoError(t, json.Unmarshal([]byte(got), &parsed))
			assert.Equal(t, tc.want, parsed)
		})
	}
}

func TestExtractFailure(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "whitespace_only", input: "   \n\t "},
		{name: "plain_prose_no_braces", input: "I could not figure out what you wanted."},
		{name: "unclosed_brace", input: `{"a": 1`},
		{name: "garbage_in_braces", input: "{::: not json :::}"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.input)
			assert.False(t, ok)
			assert.Empty(t, got)
		})
	}
}

func TestExtractNeverPanics(t *testing.T) {
	inputs := []string{
		"{'",
		"```json",
		"<json>",
		"{/*}",
		"{\"a\": \"\\\"}",
		"}{",
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() {
			Extract(input)
		})
	}
}
