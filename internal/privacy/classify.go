// Package privacy classifies nodes as private or safe and propagates
// privacy marks down a subtree (§4.8). Grounded on the teacher's
// `pkg/memory/extractor.go` shape: a small struct gated by "is the LLM
// configured", a cheap deterministic path when it isn't, and
// `internal/store`'s narrow-field-update convention
// (`UpdateNodePrivacy` mirrors `UpdateMessage`).
package privacy

import (
	"context"
	"strings"

	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
)

const contentPreviewBytes = 2000

const defaultSystemPrompt = `You decide whether a note is private. Private
means it contains personal data, credentials, secrets, unreleased business
details, or anything the author would not want shown to a stranger. Public
figures, published documentation, and general technical discussion are not
private. Respond with JSON only: {"is_private": true, "reason": "..."}
reason is required only when is_private is true.`

const showcaseSystemPrompt = `You decide whether a note is safe to display in
a public product demo. Only meta-level, architecture, or abstract-technical
content survives; anything naming real people, real companies, credentials,
unreleased plans, or specific personal situations must be marked private.
When in doubt, mark it private. Respond with JSON only:
{"is_private": true, "reason": "..."} reason is required only when
is_private is true.`

// sensitiveCues is the heuristic fallback's keyword list, used when no LLM
// is configured: a cheap pattern scan in place of the real classifier,
// mirroring the teacher's "enabled iff LLM configured" shape.
var sensitiveCues = []string{
	"password", "passwd", "api key", "api_key", "secret", "private key",
	"access token", "ssn", "social security", "credit card", "bank account",
	"credentials", "auth token", "bearer ",
}

type classification struct {
	IsPrivate bool   `json:"is_private"`
	Reason    string `json:"reason"`
}

// Classifier decides whether a node is private, by LLM when configured and
// by keyword heuristic otherwise.
type Classifier struct {
	svc      *llmclient.Service
	showcase bool
}

// NewClassifier builds a Classifier. showcase selects the stricter demo-mode
// prompt (§4.8.4).
func NewClassifier(svc *llmclient.Service, showcase bool) *Classifier {
	return &Classifier{svc: svc, showcase: showcase}
}

// Classify returns (is_private, reason) for n. A parse failure defaults to
// is_private = true ("cautious"), per §4.8.1.
func (c *Classifier) Classify(ctx context.Context, n *model.Node) (bool, string) {
	if c.svc == nil || !c.svc.IsConfigured() {
		return heuristicClassify(n)
	}

	raw, err := c.svc.Complete(ctx, buildPrompt(n), c.systemPrompt())
	if err != nil {
		return true, "cautious: classifier call failed"
	}

	var cls classification
	if err := llmclient.DecodeLenient(raw, &cls); err != nil {
		return true, "cautious: classifier response unparseable"
	}
	return cls.IsPrivate, cls.Reason
}

func (c *Classifier) systemPrompt() string {
	if c.showcase {
		return showcaseSystemPrompt
	}
	return defaultSystemPrompt
}

func buildPrompt(n *model.Node) string {
	content := n.Content
	if len(content) > contentPreviewBytes {
		content = content[:contentPreviewBytes]
	}
	var p strings.Builder
	p.WriteString("Title: " + n.Title + "\n")
	if n.Summary != "" {
		p.WriteString("Summary: " + n.Summary + "\n")
	}
	if len(n.Tags) > 0 {
		p.WriteString("Tags: " + strings.Join(n.Tags, ", ") + "\n")
	}
	p.WriteString("Content:\n" + content)
	return p.String()
}

// heuristicClassify is the offline fallback: a node is flagged private the
// moment its title, summary, or content contains a recognized sensitive
// cue, and treated as safe otherwise.
func heuristicClassify(n *model.Node) (bool, string) {
	haystack := strings.ToLower(n.Title + " " + n.Summary + " " + n.Content)
	for _, cue := range sensitiveCues {
		if strings.Contains(haystack, cue) {
			return true, "heuristic: contains sensitive keyword"
		}
	}
	return false, ""
}
