package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"rating\": 7, \"feedback\": \"Good\"}\n```",
			expected: `{"rating": 7, "feedback": "Good"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"rating\": 4}\n```",
			expected: `{"rating": 4}`,
		},
		{
			name:     "code block with other language",
			input:    "```javascript\n[{\"question\": \"q\"}]\n```",
			expected: `[{"question": "q"}]`,
		},
		{
			name:     "plain JSON",
			input:    `{"rating": 9}`,
			expected: `{"rating": 9}`,
		},
		{
			name:     "preamble before object",
			input:    "Here is my evaluation of the answer:\n{\"rating\": 6, \"feedback\": \"Add detail\"}",
			expected: `{"rating": 6, "feedback": "Add detail"}`,
		},
		{
			name:     "preamble before array",
			input:    "Questions:\n[\"Tell me about Go\", \"Explain channels\"]",
			expected: `["Tell me about Go", "Explain channels"]`,
		},
		{
			name:     "trailing chatter",
			input:    "{\"rating\": 5}\n\nLet me know if you need anything else!",
			expected: `{"rating": 5}`,
		},
		{
			name:     "braces and escaped quotes inside strings",
			input:    "Result: {\"feedback\": \"Say \\\"{x}\\\" less\"}",
			expected: `{"feedback": "Say \"{x}\" less"}`,
		},
		{
			name:     "no JSON at all",
			input:    "  I cannot grade this.  ",
			expected: "I cannot grade this.",
		},
		{
			name:     "unbalanced JSON left as is",
			input:    `{"rating": 5`,
			expected: `{"rating": 5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": [1, 2]}}`, extractJSONObject(`{"a": {"b": [1, 2]}} tail`))
	assert.Equal(t, `{"t": "Hello {name}!"}`, extractJSONObject(`{"t": "Hello {name}!"}`))
	assert.Equal(t, "", extractJSONObject(""))
	assert.Equal(t, "", extractJSONObject("not json"))
}

func TestExtractJSONArray(t *testing.T) {
	assert.Equal(t, `[[1, 2], [3, 4]]`, extractJSONArray(`[[1, 2], [3, 4]]`))
	assert.Equal(t, `[{"id": 1}, {"id": 2}]`, extractJSONArray(`[{"id": 1}, {"id": 2}] extra`))
	assert.Equal(t, "", extractJSONArray(""))
	assert.Equal(t, "", extractJSONArray("{}"))
}
