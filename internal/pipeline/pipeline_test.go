package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	st, err := store.Open(":memory:", 384)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cache := embedcache.New()
	sim := store.NewSimCache(time.Minute)
	return New(st, cache, nil, sim, nil, LocalEmbed(384), kgconfig.DefaultTuning(), nil)
}

func TestProcessNodesHiddenTierSkipsEnrichment(t *testing.T) {
	p := newTestPipeline(t)
	n := &model.Node{ID: "n1", Title: "raw", Content: "```\nfmt.Println(1)\n```", IsItem: true, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, p.St.InsertNode(n))

	res, err := p.ProcessNodes(context.Background(), cancel.New())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Embedded)

	got, err := p.St.GetNode("n1")
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	assert.NotEmpty(t, got.AITitle)
}

func TestProcessNodesVisibleTierEmbedsWithoutLLM(t *testing.T) {
	p := newTestPipeline(t)
	n := &model.Node{ID: "n1", Title: "raw", Content: "I realized the key is caching.", IsItem: true, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, p.St.InsertNode(n))

	res, err := p.ProcessNodes(context.Background(), cancel.New())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Embedded)

	got, err := p.St.GetNode("n1")
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)
	assert.NotEmpty(t, got.Embedding)
}

func TestGetSimilarFallsBackToBruteForce(t *testing.T) {
	p := newTestPipeline(t)
	p.Cache.Upsert("a", []float32{1, 0, 0})
	p.Cache.Upsert("b", []float32{1, 0, 0})
	p.Cache.Upsert("c", []float32{0, 1, 0})

	matches, err := p.GetSimilar("a", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].NodeID)
}

func TestGetSimilarUsesCache(t *testing.T) {
	p := newTestPipeline(t)
	p.Sim.Put("a", []store.SimMatch{{NodeID: "z", Cosine: 0.42}})

	matches, err := p.GetSimilar("a", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "z", matches[0].NodeID)
}
