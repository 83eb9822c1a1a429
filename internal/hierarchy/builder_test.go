package hierarchy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/store"
)

func fakeEmbed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// TestBuildFullHierarchyCap is scenario S2 (§8): 40 items, each its own
// cluster (clustering itself is skipped — clusters are pre-assigned),
// should end up under a Universe with a handful of direct children, every
// intermediate container within the 8-15 branching cap, every item a
// descendant at depth >= 2.
// hierarchyTestTopicLabels gives each of the 40 synthetic clusters its own
// distinct, single-word label with no capitalized token shared across
// more than one label -- detectProjectNames would otherwise mistake a
// repeated word (e.g. a literal "Item" in "Item 0".."Item 39") for a
// recurring project name and pull every topic out of consolidateRoot's
// grouping pass as a standalone category.
var hierarchyTestTopicLabels = []string{
	"Groceries", "Taxes", "Hiking", "Recipes", "Carpentry", "Astronomy", "Fishing",
	"Painting", "Genealogy", "Birdwatching", "Knitting", "Gardening", "Chess",
	"Pottery", "Sailing", "Beekeeping", "Woodworking", "Calligraphy", "Brewing",
	"Cycling", "Archery", "Falconry", "Origami", "Spelunking", "Juggling",
	"Taxidermy", "Upholstery", "Welding", "Beekeeping2", "Surfing", "Climbing",
	"Foraging", "Tailoring", "Embroidery", "Glassblowing", "Leatherwork",
	"Metalworking", "Bonsai", "Orienteering", "Kayaking",
}

func TestBuildFullHierarchyCap(t *testing.T) {
	s, err := store.Open(":memory:", 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for i := 0; i < 40; i++ {
		n := &model.Node{
			ID:           fmt.Sprintf("item-%d", i),
			Title:        fmt.Sprintf("Item %d", i),
			AITitle:      fmt.Sprintf("Item %d", i),
			ContentType:  model.ContentExploration,
			IsItem:       true,
			IsProcessed:  true,
			ClusterID:    i,
			ClusterLabel: hierarchyTestTopicLabels[i],
			CreatedAt:    1,
			UpdatedAt:    1,
		}
		require.NoError(t, s.InsertNode(n))
	}

	cache := embedcache.New()
	b := NewBuilder(s, cache, nil, fakeEmbed, kgconfig.DefaultTuning(), nil)

	res, err := b.BuildFull(context.Background(), cancel.New())
	require.NoError(t, err)
	require.Equal(t, 0, res.CapViolationsLeft, "should converge within the iteration limit")

	universe, err := s.GetUniverse()
	require.NoError(t, err)
	require.NotNil(t, universe)
	assert.Equal(t, 0, universe.Depth)
	assert.Nil(t, universe.ParentID)

	universeChildren, err := s.GetChildren(universe.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(universeChildren), 3)
	assert.LessOrEqual(t, len(universeChildren), 10)

	all, err := s.GetAllNodes()
	require.NoError(t, err)
	byID := make(map[string]*model.Node, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}

	for _, n := range all {
		if n.IsUniverse {
			continue
		}
		if !n.IsItem {
			childCount := 0
			for _, c := range all {
				if c.ParentID != nil && *c.ParentID == n.ID {
					childCount++
				}
			}
			assert.LessOrEqual(t, childCount, MaxChildrenPerLevel, "container %s exceeds the branching cap", n.ID)
		}
	}

	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("item-%d", i)
		n := byID[id]
		require.NotNil(t, n, "item %s should still exist", id)
		assert.GreaterOrEqual(t, n.Depth, 2)

		depth := 0
		cur := n
		for cur.ParentID != nil {
			parent := byID[*cur.ParentID]
			require.NotNil(t, parent, "dangling parent for %s", cur.ID)
			cur = parent
			depth++
			require.Less(t, depth, 10, "hierarchy walk for %s looks cyclic", id)
		}
		assert.True(t, cur.IsUniverse, "item %s should root at Universe", id)
	}
}

// TestReparentBumpsDescendantDepthByOne covers property 7 (§8): reparenting
// a subtree one level deeper increments every descendant's depth by
// exactly one, never more.
func TestReparentBumpsDescendantDepthByOne(t *testing.T) {
	s, err := store.Open(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root := &model.Node{ID: "root", Title: "root", IsUniverse: true, Depth: 0, ClusterID: model.UnclusteredID, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(root))

	parentID := "root"
	child := &model.Node{ID: "child", Title: "child", Depth: 1, ParentID: &parentID, ClusterID: model.UnclusteredID, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(child))

	childID := "child"
	grandchild := &model.Node{ID: "grandchild", Title: "gc", IsItem: true, Depth: 2, ParentID: &childID, ClusterID: model.UnclusteredID, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(grandchild))

	cache := embedcache.New()
	b := NewBuilder(s, cache, nil, fakeEmbed, kgconfig.DefaultTuning(), nil)

	newParentID := "new-parent"
	newParent := &model.Node{ID: newParentID, Title: "np", Depth: 1, ParentID: &parentID, ClusterID: model.UnclusteredID, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(newParent))

	require.NoError(t, b.reparentUnderCategory("child", newParentID, newParent.Depth))

	gotChild, err := s.GetNode("child")
	require.NoError(t, err)
	assert.Equal(t, newParent.Depth+1, gotChild.Depth)

	gotGrandchild, err := s.GetNode("grandchild")
	require.NoError(t, err)
	assert.Equal(t, newParent.Depth+2, gotGrandchild.Depth)
}
