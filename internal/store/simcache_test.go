package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimCacheHitAndMiss(t *testing.T) {
	c := NewSimCache(time.Minute)
	_, ok := c.Get("n1")
	assert.False(t, ok)

	c.Put("n1", []SimMatch{{NodeID: "n2", Cosine: 0.9}})
	got, ok := c.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "n2", got[0].NodeID)
}

func TestSimCacheExpires(t *testing.T) {
	c := NewSimCache(time.Millisecond)
	c.Put("n1", []SimMatch{{NodeID: "n2", Cosine: 0.9}})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("n1")
	assert.False(t, ok)
}

func TestSimCacheInvalidate(t *testing.T) {
	c := NewSimCache(time.Minute)
	c.Put("n1", []SimMatch{{NodeID: "n2", Cosine: 0.9}})
	c.Invalidate()
	_, ok := c.Get("n1")
	assert.False(t, ok)
}

func TestSimCacheZeroTTLDisabled(t *testing.T) {
	c := NewSimCache(0)
	c.Put("n1", []SimMatch{{NodeID: "n2", Cosine: 0.9}})
	_, ok := c.Get("n1")
	assert.False(t, ok)
}
