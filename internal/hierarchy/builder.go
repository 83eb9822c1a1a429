// Package hierarchy turns a flat pool of clustered items into the
// navigable Universe -> ... -> Topic -> Item tree described in §4.6: a
// clean-slate reseed (Phase A/B) followed by a bounded LLM-aided
// subdivision loop (Phase C) that keeps every container within
// MaxChildrenPerLevel, then an embedding/semantic-edge sweep (Phase D).
// Orchestration style is grounded on the teacher's
// `pkg/scanner/conductor/conductor.go`: a struct wiring sub-stages behind
// one Run-shaped entry point per phase, and on
// `internal/store/sqlite_store.go`'s multi-step-write-as-one-call
// discipline (every reparent here is a single store call, never raw SQL
// reached from this package).
package hierarchy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kittclouds/kgraph/internal/assoc"
	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/kglog"
	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/progress"
	"github.com/kittclouds/kgraph/internal/store"
)

// MaxChildrenPerLevel is the hierarchy's branching cap (§4.6): every
// container must end up with 8-15 children, enforced as a hard "> 15"
// violation check (the lower bound of 8 is a target the subdivision batch
// size aims for, not a post-hoc invariant).
const MaxChildrenPerLevel = 15

const (
	minSubcategories        = 3
	maxSubcategoriesDefault = 8
	maxSubdivisionIterations = 10
)

// universeID is the deterministic id of the singleton Universe node,
// matching the `topic-{cluster_id}` convention's spirit: one well-known
// id rather than a freshly minted one each rebuild.
const universeID = "universe"

// EmbedFunc produces a unit vector for text using whichever embedding
// provider (local hashed or remote) is currently configured (§4.3).
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Builder owns the store/cache/LLM handles a hierarchy rebuild needs.
type Builder struct {
	st    *store.Store
	cache *embedcache.Cache
	svc   *llmclient.Service
	embed EmbedFunc
	sink  *progress.Sink
	tune  kgconfig.Tuning
}

// NewBuilder wires a Builder. svc may be nil (LLM subdivision falls back
// to the deterministic heuristic grouping); sink may be nil (no progress
// events emitted).
func NewBuilder(st *store.Store, cache *embedcache.Cache, svc *llmclient.Service, embed EmbedFunc, tune kgconfig.Tuning, sink *progress.Sink) *Builder {
	return &Builder{st: st, cache: cache, svc: svc, embed: embed, tune: tune, sink: sink}
}

// Result reports what build_full_hierarchy produced.
type Result struct {
	TopicsCreated      int
	CategoriesCreated  int
	ItemsAttached      int
	IterationsUsed     int
	CapViolationsLeft  int // > 0 only if the iteration limit was hit
	UsedAI             bool
}

// BuildFull runs Phases A-D end to end (§4.6).
func (b *Builder) BuildFull(ctx context.Context, tok *cancel.Token) (*Result, error) {
	log := kglog.Op("build_full_hierarchy")
	done := kglog.Timer(log.Info())
	defer done()

	if err := b.phaseA(); err != nil {
		return nil, fmt.Errorf("hierarchy: phase A: %w", err)
	}
	b.logHierarchy("phase A: clean slate complete", progress.LevelInfo)

	res := &Result{}
	topics, _, err := b.phaseB(res)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: phase B: %w", err)
	}
	b.logHierarchy(fmt.Sprintf("phase B: seeded %d topics, attached %d items", res.TopicsCreated, res.ItemsAttached), progress.LevelInfo)

	if tok.Cancelled() {
		return res, &cancel.CancelledError{Op: "build_full_hierarchy"}
	}

	if needsConsolidation(topics) {
		universe, err := b.st.GetUniverse()
		if err != nil {
			return nil, fmt.Errorf("hierarchy: consolidate root: get universe: %w", err)
		}
		if err := b.consolidateRoot(ctx, universe, topics, res, tok); err != nil {
			if _, ok := err.(*cancel.CancelledError); ok {
				return res, err
			}
			return nil, fmt.Errorf("hierarchy: consolidate root: %w", err)
		}
	}

	if tok.Cancelled() {
		return res, &cancel.CancelledError{Op: "build_full_hierarchy"}
	}

	if err := b.phaseC(ctx, res, tok); err != nil {
		if _, ok := err.(*cancel.CancelledError); ok {
			return res, err
		}
		return nil, fmt.Errorf("hierarchy: phase C: %w", err)
	}

	if tok.Cancelled() {
		return res, &cancel.CancelledError{Op: "build_full_hierarchy"}
	}

	if err := b.phaseD(ctx, tok); err != nil {
		if _, ok := err.(*cancel.CancelledError); ok {
			return res, err
		}
		return nil, fmt.Errorf("hierarchy: phase D: %w", err)
	}
	b.logHierarchy("phase D: embeddings and semantic edges refreshed", progress.LevelInfo)

	return res, nil
}

func (b *Builder) logHierarchy(msg string, level progress.LogLevel) {
	b.sink.EmitHierarchy(msg, level)
}

// phaseA clears everything the rebuild regenerates: containers (except
// items and the about-to-be-recreated Universe), the existing Universe
// itself, and every item's parent_id.
func (b *Builder) phaseA() error {
	universe, err := b.st.GetUniverse()
	if err != nil {
		return fmt.Errorf("get universe: %w", err)
	}
	if err := b.st.DeleteHierarchyNodes(); err != nil {
		return fmt.Errorf("delete hierarchy nodes: %w", err)
	}
	if universe != nil {
		if err := b.st.DeleteNode(universe.ID); err != nil {
			return fmt.Errorf("delete universe: %w", err)
		}
	}
	if err := b.st.ClearItemParents(); err != nil {
		return fmt.Errorf("clear item parents: %w", err)
	}
	return nil
}

// phaseB seeds the flat Universe -> Topic -> Item tree from each item's
// cluster_id, unclustered items folding into a synthetic "Uncategorized"
// group keyed by model.UnclusteredID.
func (b *Builder) phaseB(res *Result) ([]*model.Node, []*model.Node, error) {
	items, err := b.st.GetItems()
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}

	groups := map[int][]*model.Node{}
	labels := map[int]string{}
	for _, it := range items {
		groups[it.ClusterID] = append(groups[it.ClusterID], it)
		if labels[it.ClusterID] == "" && it.ClusterLabel != "" {
			labels[it.ClusterID] = it.ClusterLabel
		}
	}

	clusterIDs := make([]int, 0, len(groups))
	for id := range groups {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	now := time.Now().Unix()
	var topics []*model.Node
	for _, clusterID := range clusterIDs {
		members := groups[clusterID]
		label := labels[clusterID]
		if clusterID == model.UnclusteredID || label == "" {
			label = "Uncategorized"
		}

		topic := &model.Node{
			ID:           topicNodeID(clusterID),
			Title:        label,
			IsItem:       false,
			Depth:        1,
			ClusterID:    clusterID,
			ClusterLabel: label,
			Summary:      summarizeMembers(members),
			ChildCount:   len(members),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := b.st.InsertNode(topic); err != nil {
			return nil, nil, fmt.Errorf("insert topic %s: %w", topic.ID, err)
		}
		topics = append(topics, topic)
		res.TopicsCreated++

		for _, it := range members {
			parentID := topic.ID
			if err := b.st.UpdateNodeHierarchy(it.ID, &parentID, 2); err != nil {
				return nil, nil, fmt.Errorf("attach item %s: %w", it.ID, err)
			}
			res.ItemsAttached++
		}
	}

	universe := &model.Node{
		ID:         universeID,
		Title:      "Universe",
		IsItem:     false,
		IsUniverse: true,
		Depth:      0,
		ClusterID:  model.UnclusteredID,
		ChildCount: len(topics),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.st.InsertNode(universe); err != nil {
		return nil, nil, fmt.Errorf("insert universe: %w", err)
	}
	for _, topic := range topics {
		parentID := universe.ID
		if err := b.st.UpdateNodeHierarchy(topic.ID, &parentID, 1); err != nil {
			return nil, nil, fmt.Errorf("attach topic %s to universe: %w", topic.ID, err)
		}
	}

	return topics, items, nil
}

func topicNodeID(clusterID int) string {
	return fmt.Sprintf("topic-%d", clusterID)
}

// summarizeMembers builds the synthetic container summary Phase B assigns
// a topic: a short line listing sample child titles.
func summarizeMembers(members []*model.Node) string {
	const maxSamples = 5
	n := len(members)
	if n > maxSamples {
		n = maxSamples
	}
	titles := make([]string, 0, n)
	for i := 0; i < n; i++ {
		t := members[i].AITitle
		if t == "" {
			t = members[i].Title
		}
		titles = append(titles, t)
	}
	out := "Includes: "
	for i, t := range titles {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	if len(members) > maxSamples {
		out += fmt.Sprintf(", and %d more", len(members)-maxSamples)
	}
	return out
}

func newCategoryID() string {
	return "cat-" + uuid.NewString()
}

// phaseD embeds any titled node still lacking an embedding, then
// regenerates semantic edges over the whole graph (§4.6 Phase D, §4.3).
func (b *Builder) phaseD(ctx context.Context, tok *cancel.Token) error {
	nodes, err := b.st.GetAllNodes()
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}

	if err := b.ensureEmbeddings(ctx, nodes, tok); err != nil {
		return err
	}

	if _, err := assoc.CreateSemanticEdges(b.st, b.cache, b.tune, 0.5, 5, tok); err != nil {
		return fmt.Errorf("regenerate semantic edges: %w", err)
	}
	return nil
}
