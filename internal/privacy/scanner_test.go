package privacy

import (
	"context"
	"testing"

	"github.com/kittclouds/kgraph/internal/cancel"
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

// fakeClassifier returns a canned verdict for one named node and "safe" for
// everything else, letting tests drive propagation deterministically.
type fakeClassifier struct {
	privateTitle string
}

func (f *fakeClassifier) Classify(_ context.Context, n *model.Node) (bool, string) {
	if n.Title == f.privateTitle {
		return true, "mock verdict"
	}
	return false, ""
}

// TestScanCategoriesPropagatesToSubtree exercises scenario S5: a subtree
// Cat -> [A, B, C] where the classifier marks Cat private; every descendant
// must end up private with a reason naming Cat.
func TestScanCategoriesPropagatesToSubtree(t *testing.T) {
	s := newTestStore(t)

	cat := &model.Node{ID: "cat", Title: "Cat", IsItem: false, Depth: 1, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(cat))
	for _, id := range []string{"a", "b", "c"} {
		parent := "cat"
		n := &model.Node{ID: id, Title: id, IsItem: true, Depth: 2, ParentID: &parent, CreatedAt: 1, UpdatedAt: 1}
		require.NoError(t, s.InsertNode(n))
	}

	scanner := NewScannerWithClassifier(s, &fakeClassifier{privateTitle: "Cat"}, nil)
	res, err := scanner.ScanCategories(context.Background(), cancel.New())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Private)
	assert.Equal(t, 3, res.Propagated)

	for _, id := range []string{"a", "b", "c"} {
		got, err := s.GetNode(id)
		require.NoError(t, err)
		require.NotNil(t, got.IsPrivate)
		assert.True(t, *got.IsPrivate)
		assert.Equal(t, "Inherited from private category: Cat", got.PrivacyReason)
	}

	gotCat, err := s.GetNode("cat")
	require.NoError(t, err)
	require.NotNil(t, gotCat.IsPrivate)
	assert.True(t, *gotCat.IsPrivate)
}

func TestScanBatchOnlyTouchesUnscannedItems(t *testing.T) {
	s := newTestStore(t)

	scanned := true
	n1 := &model.Node{ID: "n1", Title: "already scanned", IsItem: true, IsPrivate: &scanned, CreatedAt: 1, UpdatedAt: 1}
	n2 := &model.Node{ID: "n2", Title: "fresh", IsItem: true, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, s.InsertNode(n1))
	require.NoError(t, s.InsertNode(n2))

	scanner := NewScannerWithClassifier(s, &fakeClassifier{privateTitle: "nonexistent"}, nil)
	res, err := scanner.ScanBatch(context.Background(), cancel.New())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)

	got, err := s.GetNode("n2")
	require.NoError(t, err)
	require.NotNil(t, got.IsPrivate)
	assert.False(t, *got.IsPrivate)
}

func TestHeuristicClassifyFlagsSensitiveKeyword(t *testing.T) {
	n := &model.Node{Title: "prod secrets", Content: "the api_key is abc123"}
	isPrivate, reason := heuristicClassify(n)
	assert.True(t, isPrivate)
	assert.NotEmpty(t, reason)
}

func TestHeuristicClassifyDefaultsToSafe(t *testing.T) {
	n := &model.Node{Title: "go generics", Content: "type parameters and constraints"}
	isPrivate, _ := heuristicClassify(n)
	assert.False(t, isPrivate)
}

func TestClassifyNoLLMConfiguredUsesHeuristic(t *testing.T) {
	cls := NewClassifier(nil, false)
	n := &model.Node{Title: "notes", Content: "password: hunter2"}
	isPrivate, _ := cls.Classify(context.Background(), n)
	assert.True(t, isPrivate)
}
