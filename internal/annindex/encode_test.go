package annindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVectorLength(t *testing.T) {
	blob, err := encodeVector([]float32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, blob, 16)
}

func TestDistanceToCosineClamped(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToCosine(0), 1e-9)
	assert.Equal(t, 0.0, distanceToCosine(10))
}
