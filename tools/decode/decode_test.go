package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Type   string   `json:"type"`
	Count  int      `json:"count"`
	Typing bool     `json:"typing"`
	Tags   []string `json:"tags"`
}

func TestJSONWeaklyTyped(t *testing.T) {
	p, err := JSON[payload]([]byte(`{"type":"typing","count":"3","typing":1,"tags":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, "typing", p.Type)
	assert.Equal(t, 3, p.Count)
	assert.True(t, p.Typing)
	assert.Equal(t, []string{"a", "b"}, p.Tags)
}

func TestJSONFloatToInt(t *testing.T) {
	p, err := JSON[payload]([]byte(`{"count":7}`))
	require.NoError(t, err)
	assert.Equal(t, 7, p.Count)
}

func TestJSONStrict(t *testing.T) {
	_, err := JSON[payload]([]byte(`{"count":"3"}`), Options{WeaklyTypedInput: false})
	assert.Error(t, err)
}

func TestJSONRejectsNonObject(t *testing.T) {
	_, err := JSON[payload]([]byte(`null`))
	assert.Error(t, err)
	_, err = JSON[payload]([]byte(`[1]`))
	assert.Error(t, err)
}

func TestReadString(t *testing.T) {
	m := map[string]any{"a": "x", "b": 1}
	s, err := ReadString(m, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	_, err = ReadString(m, "b")
	assert.Error(t, err)
	_, err = ReadString(m, "c")
	assert.Error(t, err)
}
