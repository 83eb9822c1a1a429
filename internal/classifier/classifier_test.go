package classifier

import (
	"strings"
	"testing"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStackTrace(t *testing.T) {
	content := "Traceback (most recent call last):\n  File \"x.py\", line 1\nZeroDivisionError"
	assert.Equal(t, model.ContentDebug, Classify(content))
}

func TestClassifyCodeFence(t *testing.T) {
	content := "here's the fix:\n```go\nfunc main() {}\n```"
	assert.Equal(t, model.ContentCode, Classify(content))
}

func TestClassifyTrivialGreeting(t *testing.T) {
	assert.Equal(t, model.ContentTrivial, Classify("thanks!"))
	assert.Equal(t, model.ContentTrivial, Classify("  "))
}

func TestClassifyPaste(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "2024-01-01T00:00:00Z INFO worker=3 status=ok latency_ms=12"
	}
	content := strings.Join(lines, "\n")
	assert.Equal(t, model.ContentPaste, Classify(content))
}

func TestClassifyCuePhrasePrefersVisibleTier(t *testing.T) {
	// "turns out" is supporting tier, "i realized" is visible tier; visible wins.
	content := "turns out i realized the bug was a race condition"
	assert.Equal(t, model.ContentInsight, Classify(content))
}

func TestClassifySupportingTierAlone(t *testing.T) {
	assert.Equal(t, model.ContentInvestigation, Classify("turns out the cache was stale"))
}

func TestClassifyDefaultsToExploration(t *testing.T) {
	assert.Equal(t, model.ContentExploration, Classify("the weather in the mountains changes fast this time of year"))
}

func TestMechanicalTitlePrefixesByType(t *testing.T) {
	title := MechanicalTitle(model.ContentDebug, "panic: nil pointer dereference\nstack trace follows")
	assert.True(t, strings.HasPrefix(title, "Debug:"))
}
