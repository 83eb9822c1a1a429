package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/progress"
)

// consolidationBatchSize is "batches of ~40 categories" from §4.6's
// consolidation variant: the unit a single LLM call reasons about at once.
const consolidationBatchSize = 40

const (
	minUberCategories = 8
	maxUberCategories = 10
)

// needsConsolidation reports whether Universe ended up with more direct
// children than the ordinary subdivision loop would ever fix: phaseC's
// findViolator explicitly exempts the Universe node (it subdivides any
// other over-capacity container, never the root itself), so a flat seed
// spanning many clusters needs this dedicated pass instead.
func needsConsolidation(topics []*model.Node) bool {
	return len(topics) > MaxChildrenPerLevel
}

// consolidateRoot implements §4.6's "Consolidation variant
// (consolidate_root)": when Universe has too many direct children, merge
// them into 8-10 uber-categories instead of leaving a flat wall of topics
// under the root. Topics are embedded if they aren't already, chained into
// similarity order so each ~40-wide batch is internally coherent, grouped
// by LLM (or the heuristic fallback) one batch at a time, and merged
// across batches by case-insensitive substring containment of names so a
// later batch reuses rather than re-invents an uber-category. Detected
// project/product names are pulled out first and kept as their own
// single-topic category, never folded into a theme.
func (b *Builder) consolidateRoot(ctx context.Context, universe *model.Node, topics []*model.Node, res *Result, tok *cancel.Token) error {
	if err := b.ensureEmbeddings(ctx, topics, tok); err != nil {
		return fmt.Errorf("consolidate root: embed topics: %w", err)
	}

	labels := make([]string, len(topics))
	for i, t := range topics {
		labels[i] = labelOf(t)
	}
	projectHints := detectProjectNames(labels)

	var standalone, groupable []*model.Node
	for _, t := range topics {
		if isProjectNamed(labelOf(t), projectHints) {
			standalone = append(standalone, t)
		} else {
			groupable = append(groupable, t)
		}
	}

	allRefs := make([]childRef, 0, len(topics))
	for _, t := range topics {
		allRefs = append(allRefs, childRef{ID: t.ID, Label: labelOf(t), ItemCount: itemCountOf(t)})
	}

	ordered := orderBySimilarityChain(b.cache, groupable)

	var uber []category
	var existingNames []string
	usedAI := false
	for start := 0; start < len(ordered); start += consolidationBatchSize {
		end := start + consolidationBatchSize
		if end > len(ordered) {
			end = len(ordered)
		}
		batch := ordered[start:end]

		refs := make([]childRef, len(batch))
		for i, t := range batch {
			refs[i] = childRef{ID: t.ID, Label: labelOf(t), ItemCount: itemCountOf(t)}
		}

		var cats []category
		var err error
		if b.svc != nil && b.svc.IsConfigured() {
			cats, err = b.callConsolidationLLM(ctx, refs, existingNames)
			if err != nil {
				cats = heuristicConsolidate(refs)
			} else {
				usedAI = true
			}
		} else {
			cats = heuristicConsolidate(refs)
		}

		uber = mergeBySubstringContainment(uber, cats)
		existingNames = existingNames[:0]
		for _, c := range uber {
			existingNames = append(existingNames, c.Name)
		}
	}

	for _, t := range standalone {
		uber = append(uber, category{Name: labelOf(t), Description: "Single-topic project category.", MemberIDs: []string{t.ID}})
	}

	uber = repairCategories(uber, allRefs, nil)
	if usedAI {
		res.UsedAI = true
	}

	parentID := universe.ID
	catDepth := universe.Depth + 1
	for _, cat := range uber {
		catID := newCategoryID()
		node := &model.Node{
			ID:         catID,
			Title:      cat.Name,
			IsItem:     false,
			Depth:      catDepth,
			ClusterID:  model.UnclusteredID,
			Summary:    cat.Description,
			ChildCount: len(cat.MemberIDs),
			ParentID:   &parentID,
			CreatedAt:  nowUnix(),
			UpdatedAt:  nowUnix(),
		}
		if err := b.st.InsertNode(node); err != nil {
			return fmt.Errorf("consolidate root: insert uber category: %w", err)
		}
		res.CategoriesCreated++

		for _, memberID := range cat.MemberIDs {
			if err := b.reparentUnderCategory(memberID, catID, catDepth); err != nil {
				return fmt.Errorf("consolidate root: reparent %s: %w", memberID, err)
			}
		}
	}

	if err := b.st.UpdateChildCount(universe.ID, len(uber)); err != nil {
		return fmt.Errorf("consolidate root: update universe child count: %w", err)
	}
	b.logHierarchy(fmt.Sprintf("consolidate_root: merged %d topics into %d uber-categories", len(topics), len(uber)), progress.LevelInfo)
	return nil
}

// ensureEmbeddings embeds any of the given nodes that still lack one,
// the same embed-if-missing step phaseD runs over the whole graph, scoped
// here to a specific set so consolidateRoot can sort by similarity before
// Phase D would otherwise have produced the embeddings.
func (b *Builder) ensureEmbeddings(ctx context.Context, nodes []*model.Node, tok *cancel.Token) error {
	for _, n := range nodes {
		if tok.Cancelled() {
			return &cancel.CancelledError{Op: "build_full_hierarchy"}
		}
		if len(n.Embedding) > 0 {
			continue
		}
		title := n.AITitle
		if title == "" {
			title = n.Title
		}
		if title == "" {
			continue
		}
		text := title
		if n.Summary != "" {
			text += " " + n.Summary
		}
		vec, err := b.embed(ctx, text)
		if err != nil || len(vec) == 0 {
			continue // embedding failure is non-fatal (§4.3)
		}
		if err := b.st.UpdateNodeEmbedding(n.ID, vec); err != nil {
			return fmt.Errorf("write embedding for %s: %w", n.ID, err)
		}
		n.Embedding = vec
		b.cache.Upsert(n.ID, vec)
	}
	return nil
}

// orderBySimilarityChain greedily chains nodes by cosine similarity
// (nearest unvisited neighbor first) so that a fixed-size window over the
// result is internally coherent -- the "sorted by embedding similarity
// beforehand" requirement a batch needs before grouping.
func orderBySimilarityChain(cache *embedcache.Cache, nodes []*model.Node) []*model.Node {
	if len(nodes) <= 1 {
		return nodes
	}
	remaining := append([]*model.Node(nil), nodes...)
	ordered := make([]*model.Node, 0, len(nodes))

	cur := remaining[0]
	ordered = append(ordered, cur)
	remaining = remaining[1:]

	for len(remaining) > 0 {
		bestIdx, bestSim := 0, -2.0
		for i, cand := range remaining {
			sim := cache.Cosine(cur.ID, cand.ID)
			if sim > bestSim {
				bestSim = sim
				bestIdx = i
			}
		}
		cur = remaining[bestIdx]
		ordered = append(ordered, cur)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return ordered
}

// isProjectNamed reports whether label contains one of the recurring
// capitalized tokens detectProjectNames surfaced -- such a topic keeps its
// own standalone category rather than folding into a theme (§4.6).
func isProjectNamed(label string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(label, h) {
			return true
		}
	}
	return false
}

// mergeBySubstringContainment folds incoming into existing: a new
// category whose name contains (or is contained by) an already-accepted
// uber-category's name, case-insensitively, is merged into it rather than
// kept as a near-duplicate. This is the cross-batch dedup rule in §4.6.
func mergeBySubstringContainment(existing []category, incoming []category) []category {
	out := existing
	for _, c := range incoming {
		merged := false
		lc := strings.ToLower(c.Name)
		for i := range out {
			lo := strings.ToLower(out[i].Name)
			if strings.Contains(lo, lc) || strings.Contains(lc, lo) {
				out[i].MemberIDs = append(out[i].MemberIDs, c.MemberIDs...)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, c)
		}
	}
	return out
}

const consolidationSystemPrompt = `You merge a list of topic names into
8-10 named uber-categories. Project or product names that recur should
stay their own standalone category rather than being folded into a theme.
Avoid generic names like "Other", "Misc", "Various", or "Uncategorized".
If an "existing uber-categories" list is supplied, reuse one of those
names instead of inventing a near-duplicate whenever a topic fits it.
Every input label must be assigned to exactly one category. Respond with
JSON only:
{"categories": [{"name": "...", "description": "...", "members": ["..."]}]}`

// callConsolidationLLM asks the configured provider to merge one batch of
// topics into uber-categories, carrying forward the uber-category names
// already accepted from earlier batches so later batches reuse rather
// than replicate them (§4.6).
func (b *Builder) callConsolidationLLM(ctx context.Context, refs []childRef, existingNames []string) ([]category, error) {
	var p strings.Builder
	if len(existingNames) > 0 {
		fmt.Fprintf(&p, "Existing uber-categories (reuse these names where a topic fits): %s\n", strings.Join(existingNames, ", "))
	}
	p.WriteString("Topics to merge:\n")
	for _, r := range refs {
		fmt.Fprintf(&p, "- %q (%d items)\n", r.Label, r.ItemCount)
	}

	raw, err := b.svc.Complete(ctx, p.String(), consolidationSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: consolidation llm call: %w", err)
	}

	var resp llmSubdivisionResponse
	if err := llmclient.DecodeLenient(raw, &resp); err != nil {
		return nil, fmt.Errorf("hierarchy: consolidation llm parse: %w", err)
	}
	if len(resp.Categories) == 0 {
		return nil, fmt.Errorf("hierarchy: consolidation llm returned no categories")
	}

	byLabel := make(map[string]string, len(refs))
	for _, r := range refs {
		byLabel[r.Label] = r.ID
	}

	out := make([]category, 0, len(resp.Categories))
	for _, c := range resp.Categories {
		var memberIDs []string
		for _, label := range c.Members {
			if id, ok := byLabel[label]; ok {
				memberIDs = append(memberIDs, id)
			}
		}
		if len(memberIDs) == 0 {
			continue
		}
		out = append(out, category{Name: c.Name, Description: c.Description, MemberIDs: memberIDs})
	}
	return out, nil
}

// heuristicConsolidate is the offline fallback (mirroring
// heuristicSubdivide): a batch's topics are bucketed in label order into
// 8-10 evenly sized groups, each named via the same dominant-proper-noun
// chain the generic-name repair path uses.
func heuristicConsolidate(refs []childRef) []category {
	n := len(refs)
	if n == 0 {
		return nil
	}

	groupCount := minUberCategories
	if n < groupCount {
		groupCount = n
	}
	if groupCount > maxUberCategories {
		groupCount = maxUberCategories
	}

	sorted := make([]childRef, n)
	copy(sorted, refs)
	sortChildRefsByLabel(sorted)

	cats := make([]category, groupCount)
	base := n / groupCount
	rem := n % groupCount
	idx := 0
	for i := 0; i < groupCount; i++ {
		size := base
		if i < rem {
			size++
		}
		var ids []string
		var labels []string
		for j := 0; j < size; j++ {
			ids = append(ids, sorted[idx].ID)
			labels = append(labels, sorted[idx].Label)
			idx++
		}
		cats[i] = category{
			Name:        repairGenericName(labels, i),
			Description: "Grouped by topic similarity.",
			MemberIDs:   ids,
		}
	}
	return cats
}
