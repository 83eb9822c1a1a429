// Package embedder produces local, offline embeddings. It is the only
// embedder in this module: cmd/kgraphctl embeds with it whether or not
// use_local_embeddings is set (§6 Settings.UseLocalEmbeddings), and the
// setting only selects the vector width (384 or 1536); no remote embedding
// API is called. No embedding service dependency showed
// up anywhere in the retrieved reference set, so this falls back to a
// deterministic feature-hashing bag-of-words vector: tokens hash into fixed
// buckets, bucket counts become vector components, and the result is
// L2-normalized, satisfying the unit-vector invariant the ANN index and
// cosine-similarity math both depend on.
package embedder

import (
	"hash/fnv"
	"math"

	implicitmatcher "github.com/kittclouds/kgraph/pkg/implicit-matcher"
)

// DefaultDim is the fixed vector width for locally hashed embeddings,
// matching the local-model dimensionality documented in §4.3.
const DefaultDim = 384

// Embed hashes text's tokens into a dim-wide vector and L2-normalizes it.
// Returns a zero-length slice for empty input (no embedding to store).
func Embed(text string, dim int) []float32 {
	tokens := implicitmatcher.TokenizeNorm(text)
	if len(tokens) == 0 {
		return nil
	}

	vec := make([]float64, dim)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		idx := int(h.Sum32()) % dim
		if idx < 0 {
			idx += dim
		}
		vec[idx]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}

	out := make([]float32, dim)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
