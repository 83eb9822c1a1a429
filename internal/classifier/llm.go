package classifier

import (
	"context"
	"strings"

	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
)

const systemPrompt = `You classify a single note into exactly one content type.
Respond with one lowercase word from this list and nothing else:
insight, exploration, synthesis, question, planning, investigation,
discussion, reference, creative, code, debug, paste, trivial.`

// RefineWithLLM asks the model for a one-word content type. It returns the
// pattern-based fallback when no provider is configured or the call fails,
// and ContentExploration when the reply is not one of the known types — the
// same call-then-tolerantly-parse shape used across this engine's other LLM
// integrations, never trusting a bare string back from the model without
// validating it.
func RefineWithLLM(ctx context.Context, svc *llmclient.Service, content string, fallback model.ContentType) model.ContentType {
	if svc == nil || !svc.IsConfigured() {
		return fallback
	}

	raw, err := svc.Complete(ctx, content, systemPrompt)
	if err != nil {
		return fallback
	}

	word := strings.ToLower(strings.TrimSpace(raw))
	word = strings.Trim(word, ".\"' \n\t")
	if model.IsValidContentType(word) {
		return model.ContentType(word)
	}
	return model.ContentExploration
}
