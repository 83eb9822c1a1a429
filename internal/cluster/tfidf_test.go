package cluster

import (
	"testing"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTFIDFGroupsSimilarItems(t *testing.T) {
	items := []*model.Node{
		{ID: "a", Title: "postgres connection pooling", Content: "tuning pgbouncer pool size for postgres"},
		{ID: "b", Title: "postgres pool tuning", Content: "pgbouncer connection pool settings for postgres"},
		{ID: "c", Title: "sourdough starter", Content: "feeding a sourdough starter daily with flour and water"},
	}

	assignments := RunTFIDF(items, 0.1)
	require.Len(t, assignments, 3)

	byID := map[string]Assignment{}
	for _, a := range assignments {
		byID[a.ItemID] = a
	}
	assert.Equal(t, byID["a"].ClusterID, byID["b"].ClusterID)
	assert.NotEqual(t, byID["a"].ClusterID, byID["c"].ClusterID)
}

func TestRunTFIDFSingletonsBecomeMiscellaneous(t *testing.T) {
	items := []*model.Node{
		{ID: "a", Title: "alpha beta gamma", Content: "completely unrelated topic one"},
		{ID: "b", Title: "delta epsilon zeta", Content: "completely unrelated topic two"},
	}
	assignments := RunTFIDF(items, 0.9)
	for _, a := range assignments {
		assert.Equal(t, "Miscellaneous", a.Label)
	}
}

func TestKeepTokenDropsStopwordsAndNumbers(t *testing.T) {
	assert.False(t, keepToken("the"))
	assert.False(t, keepToken("42"))
	assert.False(t, keepToken("ok"))
	assert.True(t, keepToken("postgres"))
}
