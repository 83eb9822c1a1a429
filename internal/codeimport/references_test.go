package codeimport

import (
	"testing"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeIDIsDeterministic(t *testing.T) {
	a := NodeID("src/widget.go", KindFunction, "Widget", "Render")
	b := NodeID("./src/widget.go", KindFunction, "Widget", "Render")
	assert.Equal(t, a, b, "normalized paths must hash identically")

	c := NodeID("src/widget.go", KindFunction, "Widget", "Update")
	assert.NotEqual(t, a, c)
}

func TestExtractReferencesResolvesAllThreePatterns(t *testing.T) {
	code := []*model.Node{
		{ID: "c1", Title: "RenderWidget"},
		{ID: "c2", Title: "parse_config"},
		{ID: "c3", Title: "Widget"},
	}
	index := BuildNameIndex(code)

	doc := &model.Node{
		ID: "d1",
		Content: "Call `RenderWidget()` to draw. Internally it calls parse_config(path) " +
			"and returns a Widget.",
	}

	edges := ExtractReferences([]*model.Node{doc}, index, 100)
	require.Len(t, edges, 3)

	targets := map[string]bool{}
	for _, e := range edges {
		assert.Equal(t, model.EdgeDocuments, e.EdgeType)
		assert.Equal(t, model.SourceCodeImport, e.EdgeSource)
		require.NotNil(t, e.Confidence)
		assert.Equal(t, 0.9, *e.Confidence)
		targets[e.TargetID] = true
	}
	assert.True(t, targets["c1"])
	assert.True(t, targets["c2"])
	assert.True(t, targets["c3"])
}

func TestExtractReferencesSkipsAmbiguousNames(t *testing.T) {
	code := []*model.Node{
		{ID: "c1", Title: "Widget"},
		{ID: "c2", Title: "Widget"},
	}
	index := BuildNameIndex(code)
	assert.Empty(t, index)

	doc := &model.Node{ID: "d1", Content: "See `Widget` for details."}
	edges := ExtractReferences([]*model.Node{doc}, index, 100)
	assert.Empty(t, edges)
}

func TestExtractReferencesIsIdempotentWithinOneDoc(t *testing.T) {
	code := []*model.Node{{ID: "c1", Title: "parse_config"}}
	index := BuildNameIndex(code)

	doc := &model.Node{ID: "d1", Content: "parse_config(a) ... parse_config(b)"}
	edges := ExtractReferences([]*model.Node{doc}, index, 100)
	assert.Len(t, edges, 1)
}
