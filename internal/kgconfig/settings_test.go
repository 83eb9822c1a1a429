package kgconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	st, err := Load(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	s := st.Get()
	assert.True(t, s.ProtectRecentNotes)
	assert.True(t, s.UseLocalEmbeddings)
	assert.Equal(t, DefaultTuning(), s.Tuning)
}

func TestUpdateWritesAtomicallyAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	st, err := Load(path)
	require.NoError(t, err)

	err = st.Update(func(s *Settings) {
		s.AnthropicAPIKey = "sk-test"
		s.ProcessingStats.AIProcessingRuns = 3
	})
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	got := reloaded.Get()
	assert.Equal(t, "sk-test", got.AnthropicAPIKey)
	assert.Equal(t, 3, got.ProcessingStats.AIProcessingRuns)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	st, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, st.Update(func(s *Settings) {
		s.AnthropicAPIKey = "from-file"
	}))

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", reloaded.Get().AnthropicAPIKey)
}

func TestAccumulateStatsMerges(t *testing.T) {
	dir := t.TempDir()
	st, err := Load(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	require.NoError(t, st.AccumulateStats(func(ps *model.ProcessingStats) {
		ps.TotalAIProcessingSecs += 1.5
		ps.AIProcessingRuns++
	}))

	got := st.Get().ProcessingStats
	assert.Equal(t, 1.5, got.TotalAIProcessingSecs)
	assert.Equal(t, 1, got.AIProcessingRuns)
}
