package script

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParsePlainJSON(t *testing.T) {
	raw := `{"script":[{"Speaker 1":"Hello."},{"Speaker 2":"Hi!"}]}`

	got, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Hello.", got[0]["Speaker 1"])
	assert.Equal(t, "Hi!", got[1]["Speaker 2"])
}

func TestParseFencedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json tag", "```json\n{\"script\":[{\"Speaker 1\":\"a\"}]}\n```"},
		{"bare fence", "```\n{\"script\":[{\"Speaker 1\":\"a\"}]}\n```"},
		{"surrounding whitespace", "  \n```json{\"script\":[{\"Speaker 1\":\"a\"}]}```\n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "a", got[0]["Speaker 1"])
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Sure! Here is your podcast script."},
		{"missing script key", `{"dialogue":[]}`},
		{"script not array", `{"script":"Speaker 1: hi"}`},
		{"script null", `{"script":null}`},
		{"top-level array", `[{"Speaker 1":"hi"}]`},
		{"fence around garbage", "```json\nnope\n```"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestParseKeepsNonObjectElementsAsEmpty(t *testing.T) {
	got, err := Parse(`{"script":["loose string", 42, {"Speaker 1":"ok"}, null]}`)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Len(t, got[0], 0)
	assert.Len(t, got[1], 0)
	assert.Len(t, got[2], 1)
	assert.Len(t, got[3], 0)
}

func TestProperty_FenceStrippingRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(rt, "n")
		lines := make([]map[string]string, n)
		for i := range lines {
			label := rapid.SampledFrom([]string{"Speaker 1", "Speaker 2", "Host", "speaker two"}).Draw(rt, "label")
			lines[i] = map[string]string{label: rapid.String().Draw(rt, "text")}
		}

		payload, err := json.Marshal(map[string]any{"script": lines})
		require.NoError(rt, err)

		fence := rapid.SampledFrom([]string{"```json\n", "```\n", "```json", "```"}).Draw(rt, "fence")
		wrapped := fence + string(payload) + "\n```"

		plain, err := Parse(string(payload))
		require.NoError(rt, err)
		fenced, err := Parse(wrapped)
		require.NoError(rt, err)

		assert.Equal(rt, plain, fenced)
	})
}
