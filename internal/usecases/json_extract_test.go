package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONWholeDocument(t *testing.T) {
	got, ok := extractJSON(`{"sentiment":"negative","confidence":0.8}`)
	require.True(t, ok)
	assert.Equal(t, `{"sentiment":"negative","confidence":0.8}`, got)

	got, ok = extractJSON("  [1, 2, 3]\n")
	require.True(t, ok)
	assert.Equal(t, "[1, 2, 3]", got)
}

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "Here is the analysis you asked for:\n```json\n{\"should_flag\": true}\n```\nLet me know if you need more."
	got, ok := extractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `{"should_flag": true}`, got)

	// Plain fence without the language tag.
	raw = "```\n{\"should_flag\": false}\n```"
	got, ok = extractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `{"should_flag": false}`, got)
}

func TestExtractJSONEmbeddedArray(t *testing.T) {
	raw := `Sure! The insights are: [{"type":"concern"}] and that covers it.`
	got, ok := extractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `[{"type":"concern"}]`, got)
}

func TestExtractJSONEmbeddedObject(t *testing.T) {
	raw := `The result is {"concern_level":"high","confidence":0.9} as discussed.`
	got, ok := extractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, `{"concern_level":"high","confidence":0.9}`, got)
}

func TestExtractJSONGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"I'm sorry, I can't help with that.",
		"{broken: json",
		"```json\nnot json either\n```",
	} {
		_, ok := extractJSON(raw)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	var payload struct {
		ShouldFlag bool    `json:"should_flag"`
		Confidence float64 `json:"confidence"`
	}
	ok := decodeModelJSON("```json\n{\"should_flag\":true,\"confidence\":0.75}\n```", &payload)
	require.True(t, ok)
	assert.True(t, payload.ShouldFlag)
	assert.Equal(t, 0.75, payload.Confidence)

	assert.False(t, decodeModelJSON("no json here", &payload))
}
