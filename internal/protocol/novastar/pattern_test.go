package novastar

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternTable(t *testing.T) {
	expected := map[string]Pattern{
		"normal":     1,
		"red":        2,
		"green":      3,
		"blue":       4,
		"white":      5,
		"horizontal": 6,
		"vertical":   7,
		"slash":      8,
		"grayscale":  9,
	}

	all := Patterns()
	require.Len(t, all, len(expected))

	for name, code := range expected {
		p, err := ParsePattern(name)
		require.NoError(t, err, name)
		assert.Equal(t, code, p, name)
		assert.Equal(t, name, p.String())
		assert.True(t, p.Valid())
	}
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("  GrayScale ")
	require.NoError(t, err)
	assert.Equal(t, PatternGrayscale, p)

	_, err = ParsePattern("purple")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.False(t, Pattern(0).Valid())
	assert.False(t, Pattern(10).Valid())
	assert.Equal(t, "unknown", Pattern(10).String())
}

func TestPatternJSON(t *testing.T) {
	var body struct {
		Pattern Pattern `json:"pattern"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"pattern":"slash"}`), &body))
	assert.Equal(t, PatternSlash, body.Pattern)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"slash"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"pattern":"sepia"}`), &body))
}

func TestRegisterName(t *testing.T) {
	assert.Equal(t, "brightness", RegisterName(RegisterBrightness))
	assert.Equal(t, "test_pattern", RegisterName(RegisterTestPattern))
	assert.Equal(t, "unknown", RegisterName(0x01))
}
