package graphhealth

import (
	"testing"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func node(id, title string, depth int, parent *string, createdAt, updatedAt int64) *model.Node {
	return &model.Node{
		ID:        id,
		Title:     title,
		Depth:     depth,
		ParentID:  parent,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func edge(edgeType model.EdgeType, source, target string, createdAt int64) *model.Edge {
	return &model.Edge{EdgeType: edgeType, SourceID: source, TargetID: target, CreatedAt: createdAt}
}

func TestComputeTopologyEmptyGraph(t *testing.T) {
	snap := NewSnapshot(nil, nil)
	report := ComputeTopology(snap, 10, 50)
	assert.Equal(t, 0, report.TotalNodes)
	assert.Equal(t, 0, report.NumComponents)
	assert.Len(t, report.DegreeHistogram, 7)
}

func TestComputeTopologyComponentsAndOrphans(t *testing.T) {
	nodes := []*model.Node{
		node("u", "Universe", 0, nil, 1, 1),
		node("a", "A", 1, strPtr("u"), 1, 1),
		node("b", "B", 1, strPtr("u"), 1, 1),
		node("lonely", "Lonely", 1, strPtr("u"), 1, 1),
	}
	edges := []*model.Edge{
		edge(model.EdgeBelongsTo, "a", "u", 1),
		edge(model.EdgeRelated, "a", "b", 1),
	}
	snap := NewSnapshot(nodes, edges)
	report := ComputeTopology(snap, 10, 50)

	assert.Equal(t, 4, report.TotalNodes)
	assert.Equal(t, 2, report.TotalEdges)
	// {u, a, b} form one component via belongs_to+related; lonely is its own.
	assert.Equal(t, 2, report.NumComponents)
	assert.Equal(t, 3, report.LargestComponent)
	assert.Equal(t, 1, report.SmallestComponent)
	assert.Equal(t, 1, report.OrphanCount)
	assert.Equal(t, []string{"lonely"}, report.OrphanIDs)
}

func TestComputeTopologyHubAboveThreshold(t *testing.T) {
	nodes := []*model.Node{node("hub", "Hub", 0, nil, 1, 1)}
	edges := make([]*model.Edge, 0, 3)
	for i := 0; i < 3; i++ {
		leafID := string(rune('a' + i))
		nodes = append(nodes, node(leafID, leafID, 1, strPtr("hub"), 1, 1))
		edges = append(edges, edge(model.EdgeBelongsTo, leafID, "hub", 1))
	}
	snap := NewSnapshot(nodes, edges)
	report := ComputeTopology(snap, 2, 50)

	assert.Len(t, report.Hubs, 1)
	assert.Equal(t, "hub", report.Hubs[0].ID)
	assert.Equal(t, 3, report.Hubs[0].Degree)
	assert.Equal(t, 3, report.Hubs[0].InDegree)
}

// TestComputeStalenessFindsDriftedDocumentsEdge exercises the
// documents-drift path only: the stale-node path keys off time.Now(), which
// a test can't hold fixed without a clock seam ComputeStaleness doesn't
// have.
func TestComputeStalenessFindsDriftedDocumentsEdge(t *testing.T) {
	nodes := []*model.Node{
		node("doc", "Doc", 0, nil, 1, 1),
		node("target", "Target", 1, strPtr("doc"), 1, 500),
	}
	edges := []*model.Edge{
		edge(model.EdgeDocuments, "doc", "target", 1),
	}
	snap := NewSnapshot(nodes, edges)
	report := ComputeStaleness(snap, 9999)

	assert.Equal(t, 1, report.StaleSummaryCount)
	assert.Equal(t, "doc", report.StaleSummaries[0].SourceID)
	assert.Equal(t, "target", report.StaleSummaries[0].TargetID)
	assert.Equal(t, int64(499/secondsPerDay), report.StaleSummaries[0].DriftDays)
}

func TestComputeBridgesFindsArticulationPointAndBridge(t *testing.T) {
	// a-b-c chain: b is an articulation point, both edges are bridges.
	nodes := []*model.Node{
		node("a", "A", 0, nil, 1, 1),
		node("b", "B", 0, nil, 1, 1),
		node("c", "C", 0, nil, 1, 1),
	}
	edges := []*model.Edge{
		edge(model.EdgeRelated, "a", "b", 1),
		edge(model.EdgeRelated, "b", "c", 1),
	}
	snap := NewSnapshot(nodes, edges)
	report := ComputeBridges(snap)

	assert.Equal(t, 1, report.APCount)
	assert.Equal(t, "b", report.ArticulationPoints[0].ID)
	assert.Equal(t, 2, report.BridgeCount)
}

func TestComputeBridgesCycleHasNoArticulationPoints(t *testing.T) {
	nodes := []*model.Node{
		node("a", "A", 0, nil, 1, 1),
		node("b", "B", 0, nil, 1, 1),
		node("c", "C", 0, nil, 1, 1),
	}
	edges := []*model.Edge{
		edge(model.EdgeRelated, "a", "b", 1),
		edge(model.EdgeRelated, "b", "c", 1),
		edge(model.EdgeRelated, "c", "a", 1),
	}
	snap := NewSnapshot(nodes, edges)
	report := ComputeBridges(snap)

	assert.Equal(t, 0, report.APCount)
	assert.Equal(t, 0, report.BridgeCount)
}

func TestAnalyzeProducesClampedCompositeScore(t *testing.T) {
	nodes := []*model.Node{
		node("u", "Universe", 0, nil, 1, 1),
		node("a", "A", 1, strPtr("u"), 1, 1),
		node("b", "B", 1, strPtr("u"), 1, 1),
	}
	edges := []*model.Edge{
		edge(model.EdgeBelongsTo, "a", "u", 1),
		edge(model.EdgeBelongsTo, "b", "u", 1),
		edge(model.EdgeRelated, "a", "b", 1),
	}
	snap := NewSnapshot(nodes, edges)
	report := Analyze(snap, DefaultAnalyzerConfig())

	assert.GreaterOrEqual(t, report.HealthScore, 0.0)
	assert.LessOrEqual(t, report.HealthScore, 1.0)
	assert.Equal(t, 1, report.Topology.NumComponents)
	assert.Equal(t, 0, report.Bridges.APCount, "u is not an articulation point: both a and b connect directly to it and to each other")
}
