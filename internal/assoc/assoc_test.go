package assoc

import (
	"testing"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func unit(x, y float32) []float32 { return []float32{x, y} }

func TestCreateSemanticEdgesRespectsThresholdAndTopK(t *testing.T) {
	s := newTestStore(t)
	now := int64(1)
	nodes := []*model.Node{
		{ID: "a", IsItem: true, Embedding: unit(1, 0), CreatedAt: now, UpdatedAt: now},
		{ID: "b", IsItem: true, Embedding: unit(0.99, 0.01), CreatedAt: now, UpdatedAt: now},
		{ID: "c", IsItem: true, Embedding: unit(0, 1), CreatedAt: now, UpdatedAt: now},
	}
	for _, n := range nodes {
		require.NoError(t, s.InsertNode(n))
	}

	cache := embedcache.New()
	for _, n := range nodes {
		cache.Upsert(n.ID, n.Embedding)
	}

	tuning := kgconfig.DefaultTuning()
	created, err := CreateSemanticEdges(s, cache, tuning, 0.5, 5, cancel.New())
	require.NoError(t, err)
	assert.Positive(t, created)

	got, err := s.GetBelongsToEdges("a") // sanity: belongs_to path untouched by semantic edges
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestCreateSemanticEdgesNeverDoublesAPair guards against regenerating both
// a->b and b->a for the same similar pair: each unordered pair must yield
// exactly one `related` row (§4.3), matching the original's skip(i+1) scan.
func TestCreateSemanticEdgesNeverDoublesAPair(t *testing.T) {
	s := newTestStore(t)
	now := int64(1)
	nodes := []*model.Node{
		{ID: "a", IsItem: true, Embedding: unit(1, 0), CreatedAt: now, UpdatedAt: now},
		{ID: "b", IsItem: true, Embedding: unit(0.99, 0.01), CreatedAt: now, UpdatedAt: now},
		{ID: "c", IsItem: true, Embedding: unit(0, 1), CreatedAt: now, UpdatedAt: now},
	}
	for _, n := range nodes {
		require.NoError(t, s.InsertNode(n))
	}

	cache := embedcache.New()
	for _, n := range nodes {
		cache.Upsert(n.ID, n.Embedding)
	}

	tuning := kgconfig.DefaultTuning()
	created, err := CreateSemanticEdges(s, cache, tuning, 0.5, 5, cancel.New())
	require.NoError(t, err)
	// a and b clear the threshold in both directions; c does not pair with
	// either. A correct single-pass scan creates exactly one edge for the
	// (a, b) pair, not two.
	assert.Equal(t, 1, created)

	edges, err := s.GetEdgesForNodes([]string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, edges, 1, "pair (a, b) should yield exactly one related edge, not one per direction")
	assert.Equal(t, model.EdgeRelated, edges[0].EdgeType)
}

func TestApplyMultiPathLinksPrimaryCluster(t *testing.T) {
	s := newTestStore(t)
	now := int64(1)
	topic := &model.Node{ID: "topic-0", IsItem: false, ClusterID: 0, CreatedAt: now, UpdatedAt: now}
	item := &model.Node{ID: "item-a", IsItem: true, ClusterID: 0, Embedding: unit(1, 0), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertNode(topic))
	require.NoError(t, s.InsertNode(item))

	cache := embedcache.New()
	cache.Upsert("item-a", item.Embedding)

	tuning := kgconfig.DefaultTuning()
	created, err := ApplyMultiPath(s, cache, tuning, cancel.New())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges, err := s.GetBelongsToEdges("item-a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "topic-0", edges[0].TargetID)
	assert.Equal(t, 1.0, *edges[0].Weight)
}

func TestApplyMultiPathSkipsUnclusteredItems(t *testing.T) {
	s := newTestStore(t)
	item := &model.Node{ID: "item-a", IsItem: true, ClusterID: model.UnclusteredID, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(item))

	cache := embedcache.New()
	tuning := kgconfig.DefaultTuning()
	created, err := ApplyMultiPath(s, cache, tuning, cancel.New())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}
