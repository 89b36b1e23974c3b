package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "print('hi')", "print('hi')"},
		{"plain fence", "```\nprint('hi')\n```", "print('hi')"},
		{"language tag", "```python\nprint('hi')\n```", "print('hi')"},
		{"json tag", "```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"missing closing fence", "```python\nprint('hi')", "print('hi')"},
		{"surrounding whitespace", "  \n```\ncode\n```\n  ", "code"},
		{"inner backticks preserved", "```\nx = \"```\"\ny = 1\n```", "x = \"```\"\ny = 1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestExtractJSONObjectDirect(t *testing.T) {
	obj, err := ExtractJSONObject(`{"project_name": "demo", "tasks": []}`)
	require.NoError(t, err)
	assert.Equal(t, "demo", obj["project_name"])
}

func TestExtractJSONObjectFenced(t *testing.T) {
	obj, err := ExtractJSONObject("```json\n{\"project_name\": \"demo\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "demo", obj["project_name"])
}

func TestExtractJSONObjectEmbeddedInProse(t *testing.T) {
	text := "Sure! Here is the plan you asked for:\n{\"project_name\": \"demo\", \"n\": 1}\nLet me know if you need anything else."
	obj, err := ExtractJSONObject(text)
	require.NoError(t, err)
	assert.Equal(t, "demo", obj["project_name"])
}

func TestExtractJSONObjectRepairsSloppyJSON(t *testing.T) {
	// Trailing comma and single quotes: invalid JSON that jsonrepair handles
	obj, err := ExtractJSONObject("{'project_name': 'demo', 'tasks': [],}")
	require.NoError(t, err)
	assert.Equal(t, "demo", obj["project_name"])
}

func TestExtractJSONObjectFailsOnGarbage(t *testing.T) {
	_, err := ExtractJSONObject("I could not produce a plan, sorry.")
	assert.Error(t, err)
}

func TestExtractJSONObjectSkipsNonObjectBraces(t *testing.T) {
	text := "set {1, 2} is not JSON but {\"ok\": true} is"
	obj, err := ExtractJSONObject(text)
	require.NoError(t, err)
	assert.Equal(t, true, obj["ok"])
}
