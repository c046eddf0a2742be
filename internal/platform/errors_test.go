package platform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfUnwrapsNestedErrors(t *testing.T) {
	base := NewError(KindTransient, "facebook", "throttled", nil)
	wrapped := fmt.Errorf("collect: %w", base)

	assert.Equal(t, KindTransient, KindOf(wrapped))
	assert.True(t, IsTransient(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.False(t, IsTransient(errors.New("boom")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(KindTransient, "youtube", "request failed", cause)

	assert.Contains(t, err.Error(), "youtube")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)
}

func TestEngagementRate(t *testing.T) {
	assert.InDelta(t, 10.0, EngagementRate(10, 100), 0.0001)
	assert.Zero(t, EngagementRate(10, 0))
	assert.Zero(t, EngagementRate(10, -5))
}

func TestRegistryDispatch(t *testing.T) {
	synthetic := NewSyntheticAdapter()
	registry := NewRegistry(synthetic)

	adapter, err := registry.Get(synthetic.Platform())
	require.NoError(t, err)
	assert.Same(t, Adapter(synthetic), adapter)

	_, err = registry.Get("myspace")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}
