package store

import (
	"testing"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetNode(t *testing.T) {
	s := newTestStore(t)

	n := &model.Node{
		ID: "n1", Title: "hello", Content: "world", ContentType: model.ContentExploration,
		IsItem: true, CreatedAt: 1, UpdatedAt: 1,
	}
	require.NoError(t, s.InsertNode(n))

	got, err := s.GetNode("n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Title)
	assert.True(t, got.IsItem)
}

func TestInsertDuplicateIDIsIdempotentSkip(t *testing.T) {
	s := newTestStore(t)
	n := &model.Node{ID: "dup", Title: "a", IsItem: true, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(n))
	n2 := &model.Node{ID: "dup", Title: "b", IsItem: true, CreatedAt: 2, UpdatedAt: 2}
	require.NoError(t, s.InsertNode(n2))

	got, err := s.GetNode("dup")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title) // first insert wins; second is a no-op
}

func TestEmbeddingDimensionLockedPerStore(t *testing.T) {
	s := newTestStore(t)
	n1 := &model.Node{ID: "a", IsItem: true, CreatedAt: 1, UpdatedAt: 1, Embedding: []float32{1, 0, 0}}
	require.NoError(t, s.InsertNode(n1))

	n2 := &model.Node{ID: "b", IsItem: true, CreatedAt: 1, UpdatedAt: 1, Embedding: []float32{1, 0}}
	err := s.InsertNode(n2)
	require.ErrorIs(t, err, ErrDimMismatch)
}

func TestUpdateNodeAIFieldScoped(t *testing.T) {
	s := newTestStore(t)
	n := &model.Node{ID: "a", Title: "t", Content: "c", IsItem: true, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(n))

	require.NoError(t, s.UpdateNodeAI("a", "AI Title", "a summary", []string{"x", "y"}, "🔥"))

	got, err := s.GetNode("a")
	require.NoError(t, err)
	assert.Equal(t, "AI Title", got.AITitle)
	assert.True(t, got.IsProcessed)
	assert.Equal(t, "t", got.Title) // untouched
}

func TestBelongsToEdgesOrderedByDescendingWeight(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"item", "topicA", "topicB"} {
		require.NoError(t, s.InsertNode(&model.Node{ID: id, IsItem: id == "item", CreatedAt: 1, UpdatedAt: 1}))
	}
	w1, w2 := 0.3, 0.8
	require.NoError(t, s.InsertEdge(&model.Edge{ID: "e1", SourceID: "item", TargetID: "topicA", EdgeType: model.EdgeBelongsTo, Weight: &w1, EdgeSource: model.SourceAI, CreatedAt: 1}))
	require.NoError(t, s.InsertEdge(&model.Edge{ID: "e2", SourceID: "item", TargetID: "topicB", EdgeType: model.EdgeBelongsTo, Weight: &w2, EdgeSource: model.SourceAI, CreatedAt: 1}))

	edges, err := s.GetBelongsToEdges("item")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "topicB", edges[0].TargetID)
}

func TestDeleteBelongsToEdgesPreservesUserOwned(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"item", "topicA", "topicB"} {
		require.NoError(t, s.InsertNode(&model.Node{ID: id, IsItem: id == "item", CreatedAt: 1, UpdatedAt: 1}))
	}
	wAI, wUser := 0.5, 0.4
	require.NoError(t, s.InsertEdge(&model.Edge{ID: "ai-edge", SourceID: "item", TargetID: "topicA", EdgeType: model.EdgeBelongsTo, Weight: &wAI, EdgeSource: model.SourceAI, CreatedAt: 1}))
	require.NoError(t, s.InsertEdge(&model.Edge{ID: "user-edge", SourceID: "item", TargetID: "topicB", EdgeType: model.EdgeBelongsTo, Weight: &wUser, EdgeSource: model.SourceUser, CreatedAt: 1}))

	require.NoError(t, s.DeleteBelongsToEdges("item"))

	edges, err := s.GetBelongsToEdges("item")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "user-edge", edges[0].ID)
}

func TestTidyRecomputesChildCountAndDepth(t *testing.T) {
	s := newTestStore(t)
	universe := &model.Node{ID: "universe", IsUniverse: true, Depth: 0, CreatedAt: 1, UpdatedAt: 1}
	topic := &model.Node{ID: "topic-1", IsItem: false, Depth: 5 /* wrong on purpose */, CreatedAt: 1, UpdatedAt: 1}
	parentOfTopic := "universe"
	topic.ParentID = &parentOfTopic
	item := &model.Node{ID: "item-1", IsItem: true, Depth: 9, CreatedAt: 1, UpdatedAt: 1}
	parentOfItem := "topic-1"
	item.ParentID = &parentOfItem

	require.NoError(t, s.InsertNode(universe))
	require.NoError(t, s.InsertNode(topic))
	require.NoError(t, s.InsertNode(item))

	report, err := s.TidyDatabase()
	require.NoError(t, err)
	assert.Positive(t, report.RecomputedChildCounts+report.RecomputedDepths)

	gotTopic, err := s.GetNode("topic-1")
	require.NoError(t, err)
	assert.Equal(t, 1, gotTopic.Depth)
	assert.Equal(t, 1, gotTopic.ChildCount)

	gotItem, err := s.GetNode("item-1")
	require.NoError(t, err)
	assert.Equal(t, 2, gotItem.Depth)
}

func TestTidyIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	universe := &model.Node{ID: "universe", IsUniverse: true, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(universe))

	_, err := s.TidyDatabase()
	require.NoError(t, err)

	second, err := s.TidyDatabase()
	require.NoError(t, err)
	assert.Equal(t, &TidyReport{}, second)
}

func TestFindTopicNodeForClusterByStableID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertNode(&model.Node{ID: "topic-7", ClusterID: 7, CreatedAt: 1, UpdatedAt: 1}))

	n, err := s.FindTopicNodeForCluster(7)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "topic-7", n.ID)
}

func TestSearchNodesMatchesTitleAndContent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertNode(&model.Node{ID: "a", Title: "caching strategies", Content: "LRU eviction notes", IsItem: true, CreatedAt: 1, UpdatedAt: 1}))
	require.NoError(t, s.InsertNode(&model.Node{ID: "b", Title: "unrelated", Content: "nothing relevant", IsItem: true, CreatedAt: 1, UpdatedAt: 1}))

	results, err := s.SearchNodes("caching")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Node.ID)
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertNode(&model.Node{ID: "a", Title: "t", IsItem: true, CreatedAt: 1, UpdatedAt: 1}))

	data, err := s.Export()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	s2 := newTestStore(t)
	require.NoError(t, s2.Import(data))

	got, err := s2.GetNode("a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t", got.Title)
}
