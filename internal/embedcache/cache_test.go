package embedcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateUpsertRemove(t *testing.T) {
	c := New()
	n := c.Hydrate(map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Count())

	c.Upsert("c", []float32{0, 0, 1})
	assert.Equal(t, 3, c.Count())

	c.Remove("a")
	assert.Equal(t, 2, c.Count())
	assert.Nil(t, c.Get("a"))
}

func TestCosineOrthogonalVectorsAreZero(t *testing.T) {
	c := New()
	c.Hydrate(map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	})
	assert.InDelta(t, 0, c.Cosine("a", "b"), 1e-9)
}

func TestCosineIdenticalVectorsAreOne(t *testing.T) {
	c := New()
	c.Hydrate(map[string][]float32{
		"a": {3, 4},
		"b": {3, 4},
	})
	assert.InDelta(t, 1, c.Cosine("a", "b"), 1e-9)
}

func TestCosineMissingNodeIsZero(t *testing.T) {
	c := New()
	c.Upsert("a", []float32{1, 1})
	assert.Equal(t, float64(0), c.Cosine("a", "missing"))
}

func TestClear(t *testing.T) {
	c := New()
	c.Upsert("a", []float32{1})
	c.Clear()
	require.Equal(t, 0, c.Count())
	assert.Empty(t, c.AllIDs())
}
