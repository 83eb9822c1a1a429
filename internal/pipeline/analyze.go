// Package pipeline wires the store, clusterer, hierarchy builder, privacy
// engine, embedding cache, and ANN index behind the handful of entry points
// the rest of the system calls: process_nodes, run_clustering,
// build_full_hierarchy, analyze_privacy, and the read-side get_similar /
// get_children / search (§1's control-flow summary). Grounded on the
// teacher's `pkg/scanner/conductor/conductor.go` orchestration shape: one
// struct holding every collaborator, one method per pipeline.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/kgraph/internal/annindex"
	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/classifier"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/embedder"
	"github.com/kittclouds/kgraph/internal/graphhealth"
	"github.com/kittclouds/kgraph/internal/hierarchy"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/kglog"
	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/privacy"
	"github.com/kittclouds/kgraph/internal/progress"
	"github.com/kittclouds/kgraph/internal/store"
)

const contentPreviewChars = 3000

// Embedding dimensions for the two configured providers (§4.3): a store
// instance locks onto whichever one its first written embedding uses.
const (
	LocalEmbedDim  = embedder.DefaultDim
	RemoteEmbedDim = 1536
)

// EmbedFunc produces a unit vector for text, using whichever provider is
// configured: the local hashed embedder or a remote API.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// LocalEmbed wraps internal/embedder.Embed as an EmbedFunc for callers that
// don't have a remote embedding API configured (§4.3).
func LocalEmbed(dim int) EmbedFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		return embedder.Embed(text, dim), nil
	}
}

// Pipeline owns every collaborator the top-level operations need.
type Pipeline struct {
	St    *store.Store
	Cache *embedcache.Cache
	Ann   *annindex.Index // may be nil
	Sim   *store.SimCache
	Svc   *llmclient.Service
	Embed EmbedFunc
	Tune  kgconfig.Tuning
	Sink  *progress.Sink
}

// New wires a Pipeline from its collaborators. ann and sink may be nil.
func New(st *store.Store, cache *embedcache.Cache, ann *annindex.Index, sim *store.SimCache, svc *llmclient.Service, embed EmbedFunc, tune kgconfig.Tuning, sink *progress.Sink) *Pipeline {
	return &Pipeline{St: st, Cache: cache, Ann: ann, Sim: sim, Svc: svc, Embed: embed, Tune: tune, Sink: sink}
}

type analyzeResponse struct {
	ContentType string   `json:"content_type"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	Emoji       string   `json:"emoji"`
}

const analyzeSystemPrompt = `You analyze a single note. Respond with JSON only:
{"content_type": "one of insight|exploration|synthesis|question|planning|
investigation|discussion|reference|creative|code|debug|paste|trivial",
"title": "3-6 words", "summary": "50-100 words", "tags": ["3-5 short
tags"], "emoji": "single emoji that captures the note's theme"}`

// ProcessResult reports what process_nodes did.
type ProcessResult struct {
	Processed int
	Embedded  int
	Errored   int
}

// ProcessNodes runs the analyze step over every unprocessed item (§4.3):
// hidden-tier items get a mechanical title only and skip LLM enrichment and
// semantic re-embedding of their content through the model; every other
// item is classified, enriched when an LLM is configured, embedded, and
// marked processed.
func (p *Pipeline) ProcessNodes(ctx context.Context, tok *cancel.Token) (*ProcessResult, error) {
	log := kglog.Op("process_nodes")
	done := kglog.Timer(log.Info())
	defer done()

	items, err := p.St.GetUnprocessed()
	if err != nil {
		return nil, fmt.Errorf("pipeline: process_nodes: list unprocessed: %w", err)
	}

	res := &ProcessResult{}
	start := time.Now()
	total := len(items)
	for i, n := range items {
		if tok.Cancelled() {
			return res, &cancel.CancelledError{Op: "process_nodes"}
		}

		ct := classifier.Classify(n.Content)
		n.ContentType = ct
		tier := model.TierOf(ct)

		if tier == model.TierHidden {
			title := classifier.MechanicalTitle(ct, n.Content)
			if err := p.St.UpdateNodeAI(n.ID, title, "", nil, ""); err != nil {
				res.Errored++
				p.emitAI(n, i, total, start, "", "", progress.StatusError)
				continue
			}
			res.Processed++
			p.emitAI(n, i, total, start, title, "", progress.StatusSuccess)
			continue
		}

		p.emitAI(n, i, total, start, "", "", progress.StatusProcessing)
		title, summary, tags, emoji := p.analyzeOne(ctx, n, ct)
		if err := p.St.UpdateNodeAI(n.ID, title, summary, tags, emoji); err != nil {
			res.Errored++
			p.emitAI(n, i, total, start, title, emoji, progress.StatusError)
			continue
		}
		res.Processed++
		p.emitAI(n, i, total, start, title, emoji, progress.StatusSuccess)

		embedText := strings.TrimSpace(title + " " + summary)
		if embedText == "" {
			continue
		}
		vec, err := p.Embed(ctx, embedText)
		if err != nil || len(vec) == 0 {
			continue // embedding failure is non-fatal (§6)
		}
		if err := p.St.UpdateNodeEmbedding(n.ID, vec); err != nil {
			return res, fmt.Errorf("pipeline: process_nodes: write embedding %s: %w", n.ID, err)
		}
		p.Cache.Upsert(n.ID, vec)
		if p.Ann != nil {
			_ = p.Ann.Update(n.ID, vec)
		}
		if p.Sim != nil {
			p.Sim.Invalidate()
		}
		res.Embedded++
	}
	return res, nil
}

// analyzeOne runs the LLM enrichment call for one non-hidden item, falling
// back to the mechanical title and an empty summary on any failure (§4.3
// step 2).
func (p *Pipeline) analyzeOne(ctx context.Context, n *model.Node, fallback model.ContentType) (title, summary string, tags []string, emoji string) {
	title = classifier.MechanicalTitle(fallback, n.Content)
	if p.Svc == nil || !p.Svc.IsConfigured() {
		return title, "", nil, ""
	}

	preview := n.Content
	if len(preview) > contentPreviewChars {
		preview = truncateUTF8(preview, contentPreviewChars)
	}
	prompt := fmt.Sprintf("Raw title: %s\n\nContent:\n%s", n.Title, preview)

	raw, err := p.Svc.Complete(ctx, prompt, analyzeSystemPrompt)
	if err != nil {
		return title, "", nil, ""
	}

	var resp analyzeResponse
	if err := llmclient.DecodeLenient(raw, &resp); err != nil {
		return title, "", nil, ""
	}
	if resp.Title != "" {
		title = resp.Title
	}
	return title, resp.Summary, resp.Tags, resp.Emoji
}

func (p *Pipeline) emitAI(n *model.Node, idx, total int, start time.Time, newTitle, emoji string, status progress.Status) {
	p.Sink.EmitAI(progress.AIProgress{
		Current:   idx + 1,
		Total:     total,
		NodeTitle: n.Title,
		NewTitle:  newTitle,
		Emoji:     emoji,
		Status:    status,
		Elapsed:   time.Since(start),
	})
}

// truncateUTF8 cuts s to at most n bytes on a UTF-8 rune boundary.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isUTF8Boundary(s, n) {
		n--
	}
	return s[:n]
}

func isUTF8Boundary(s string, i int) bool {
	return i == 0 || i == len(s) || (s[i]&0xC0) != 0x80
}

// RunClustering wraps cluster.Run followed by the association layer's
// multi-path belongs_to pass (§4.4), mirroring run_clustering's
// cluster-then-associate sequencing.
func (p *Pipeline) RunClustering(ctx context.Context, useAI bool, tok *cancel.Token) (*ClusterResult, error) {
	return runClustering(ctx, p, useAI, tok)
}

// BuildFullHierarchy wraps the hierarchy builder's end-to-end rebuild.
func (p *Pipeline) BuildFullHierarchy(ctx context.Context, tok *cancel.Token) (*hierarchy.Result, error) {
	b := hierarchy.NewBuilder(p.St, p.Cache, p.Svc, hierarchy.EmbedFunc(p.Embed), p.Tune, p.Sink)
	res, err := b.BuildFull(ctx, tok)
	if p.Sim != nil {
		p.Sim.Invalidate()
	}
	return res, err
}

// AnalyzePrivacy wraps the privacy engine's batch item scan followed by a
// category scan. The category scan runs after every unscanned item has
// already been classified; a container it marks private passes that
// verdict down to its whole subtree, overwriting the item-level verdicts.
func (p *Pipeline) AnalyzePrivacy(ctx context.Context, showcase bool, tok *cancel.Token) (*privacy.Result, error) {
	scanner := privacy.NewScanner(p.St, p.Svc, p.Sink, showcase)
	itemRes, err := scanner.ScanBatch(ctx, tok)
	if err != nil {
		return itemRes, err
	}
	catRes, err := scanner.ScanCategories(ctx, tok)
	if err != nil {
		return itemRes, err
	}
	itemRes.Scanned += catRes.Scanned
	itemRes.Private += catRes.Private
	itemRes.Propagated += catRes.Propagated
	return itemRes, nil
}

// AnalyzeGraphHealth snapshots every node and edge and runs topology,
// staleness, and bridge analysis over them, folding the three into a
// single health score (§4.10).
func (p *Pipeline) AnalyzeGraphHealth() (*graphhealth.AnalysisReport, error) {
	snap, err := graphhealth.FromStore(p.St)
	if err != nil {
		return nil, err
	}
	report := graphhealth.Analyze(snap, graphhealth.DefaultAnalyzerConfig())
	return &report, nil
}
