package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsConfigured(t *testing.T) {
	s := NewService(Config{Primary: ProviderAnthropic})
	assert.False(t, s.IsConfigured())

	s = NewService(Config{Primary: ProviderAnthropic, AnthropicAPIKey: "key"})
	assert.True(t, s.IsConfigured())
}

func TestCompleteNoProvider(t *testing.T) {
	s := NewService(Config{})
	_, err := s.Complete(context.Background(), "hi", "")
	require.Error(t, err)
}

func TestExtractJSONStripsCodeFence(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, ExtractJSON(in))

	assert.Equal(t, `{"a":1}`, ExtractJSON(`{"a":1}`))
}

func TestDecodeLenientRecoversFromPrefacedText(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	err := DecodeLenient("Sure, here you go:\n```json\n{\"a\": 7}\n```\nLet me know if you need more.", &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.A)
}

func TestDecodeLenientUnparsable(t *testing.T) {
	var out map[string]any
	err := DecodeLenient("not json at all", &out)
	require.Error(t, err)
}

func TestOverloadStatusRecognizesFailoverCodes(t *testing.T) {
	assert.True(t, overloadStatus[429])
	assert.True(t, overloadStatus[529])
	assert.False(t, overloadStatus[500])
}

func TestOverloadErrorIsDetectedByErrorsAs(t *testing.T) {
	var err error = &overloadError{provider: ProviderAnthropic, status: 529}
	var oe *overloadError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, ProviderAnthropic, oe.provider)
}
