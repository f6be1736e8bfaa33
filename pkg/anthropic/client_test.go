package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("test-key")
	assert.Equal(t, "claude-haiku-4-5-20251001", c.model)
	assert.Equal(t, int64(1024), c.maxTokens)
}

func TestNewClientOptions(t *testing.T) {
	c := NewClient("test-key",
		WithModel("claude-sonnet-4-5-20250929"),
		WithMaxTokens(2048),
	)
	assert.Equal(t, "claude-sonnet-4-5-20250929", c.model)
	assert.Equal(t, int64(2048), c.maxTokens)
}

func TestOptionsIgnoreZeroValues(t *testing.T) {
	c := NewClient("test-key", WithModel(""), WithMaxTokens(0))
	assert.Equal(t, "claude-haiku-4-5-20251001", c.model)
	assert.Equal(t, int64(1024), c.maxTokens)
}
