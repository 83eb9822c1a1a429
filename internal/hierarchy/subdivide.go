package hierarchy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/progress"
)

// childRef is a container's child reduced to what the subdivision prompt
// and the validation/repair pass need (§4.6 step C.2).
type childRef struct {
	ID        string
	Label     string
	ItemCount int
}

// category is one LLM-proposed (or heuristically derived) subcategory
// before materialization.
type category struct {
	Name        string
	Description string
	MemberIDs   []string
}

// phaseC repeatedly finds the shallowest over-capacity container and
// subdivides it, up to maxSubdivisionIterations times (§4.6 Phase C).
func (b *Builder) phaseC(ctx context.Context, res *Result, tok *cancel.Token) error {
	for iter := 0; iter < maxSubdivisionIterations; iter++ {
		if tok.Cancelled() {
			return &cancel.CancelledError{Op: "build_full_hierarchy"}
		}

		container, err := b.findViolator()
		if err != nil {
			return err
		}
		if container == nil {
			res.IterationsUsed = iter
			return nil
		}

		if err := b.subdivideOne(ctx, container, res); err != nil {
			return err
		}
		res.IterationsUsed = iter + 1
	}

	remaining, err := b.countViolators()
	if err != nil {
		return err
	}
	res.CapViolationsLeft = remaining
	if remaining > 0 {
		b.logHierarchy("subdivision iteration limit reached with containers still over capacity", progress.LevelWarning)
	}
	return nil
}

// findViolator returns the shallowest non-universe container whose
// child_count exceeds the cap and that has at least one non-item child —
// i.e. a container-of-containers level, the only level Phase C subdivides
// (a Topic's children are always items and is handled by the clusterer's
// granularity, not by recursive splitting here).
func (b *Builder) findViolator() (*model.Node, error) {
	nodes, err := b.st.GetAllNodes()
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].ID < nodes[j].ID
	})

	for _, n := range nodes {
		if n.IsUniverse || n.IsItem {
			continue
		}
		if n.ChildCount <= MaxChildrenPerLevel {
			continue
		}
		hasNonItemChild, err := b.hasNonItemChild(n.ID)
		if err != nil {
			return nil, err
		}
		if hasNonItemChild {
			return n, nil
		}
	}
	return nil, nil
}

func (b *Builder) countViolators() (int, error) {
	nodes, err := b.st.GetAllNodes()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range nodes {
		if n.IsUniverse || n.IsItem {
			continue
		}
		if n.ChildCount > MaxChildrenPerLevel {
			count++
		}
	}
	return count, nil
}

func (b *Builder) hasNonItemChild(parentID string) (bool, error) {
	children, err := b.st.GetChildren(parentID)
	if err != nil {
		return false, err
	}
	for _, c := range children {
		if !c.IsItem {
			return true, nil
		}
	}
	return false, nil
}

// subdivideOne runs steps C.2-C.5 of §4.6 for a single violating
// container.
func (b *Builder) subdivideOne(ctx context.Context, container *model.Node, res *Result) error {
	children, err := b.st.GetChildren(container.ID)
	if err != nil {
		return err
	}
	refs := make([]childRef, 0, len(children))
	byID := make(map[string]*model.Node, len(children))
	for _, c := range children {
		refs = append(refs, childRef{ID: c.ID, Label: labelOf(c), ItemCount: itemCountOf(c)})
		byID[c.ID] = c
	}

	subCtx, err := b.gatherContext(container)
	if err != nil {
		return err
	}

	var cats []category
	usedAI := false
	if b.svc != nil && b.svc.IsConfigured() {
		cats, err = b.callSubdivisionLLM(ctx, refs, subCtx)
		if err != nil {
			cats = heuristicSubdivide(refs)
		} else {
			usedAI = true
		}
	} else {
		cats = heuristicSubdivide(refs)
	}
	if usedAI {
		res.UsedAI = true
	}

	cats = repairCategories(cats, refs, subCtx.siblingNames)

	return b.materialize(container, cats, byID, res)
}

func labelOf(n *model.Node) string {
	if n.ClusterLabel != "" {
		return n.ClusterLabel
	}
	if n.AITitle != "" {
		return n.AITitle
	}
	return n.Title
}

func itemCountOf(n *model.Node) int {
	if n.IsItem {
		return 1
	}
	return n.ChildCount
}

// subdivisionContext is the LLM/heuristic prompt context gathered in §4.6
// step C.2.
type subdivisionContext struct {
	parentName       string
	parentDesc       string
	path             []string // Universe -> ... -> container
	depth            int
	siblingNames     []string // forbidden as new category names
	allCategoryNames []string // informational only
	projectHints     []string
}

func (b *Builder) gatherContext(container *model.Node) (*subdivisionContext, error) {
	path, err := b.ancestorPath(container)
	if err != nil {
		return nil, err
	}

	var siblings []string
	if container.ParentID != nil {
		sibs, err := b.st.GetChildren(*container.ParentID)
		if err != nil {
			return nil, err
		}
		for _, s := range sibs {
			if s.ID == container.ID || s.IsItem {
				continue
			}
			siblings = append(siblings, labelOf(s))
		}
	}

	all, err := b.st.GetAllNodes()
	if err != nil {
		return nil, err
	}
	var allNames []string
	for _, n := range all {
		if n.IsItem || n.IsUniverse {
			continue
		}
		allNames = append(allNames, labelOf(n))
	}

	children, err := b.st.GetChildren(container.ID)
	if err != nil {
		return nil, err
	}
	childLabels := make([]string, 0, len(children))
	for _, c := range children {
		childLabels = append(childLabels, labelOf(c))
	}

	return &subdivisionContext{
		parentName:       labelOf(container),
		parentDesc:       container.Summary,
		path:             path,
		depth:            container.Depth,
		siblingNames:     siblings,
		allCategoryNames: allNames,
		projectHints:     detectProjectNames(childLabels),
	}, nil
}

func (b *Builder) ancestorPath(n *model.Node) ([]string, error) {
	var path []string
	cur := n
	for cur != nil {
		path = append([]string{labelOf(cur)}, path...)
		if cur.ParentID == nil {
			break
		}
		next, err := b.st.GetNode(*cur.ParentID)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return path, nil
}

// materialize creates each category as a new container, reparents its
// member children under it with a depth bump of exactly one (§4.6 step
// C.5), and updates the subdivided container's child_count.
func (b *Builder) materialize(container *model.Node, cats []category, byID map[string]*model.Node, res *Result) error {
	for _, cat := range cats {
		catID := newCategoryID()
		catDepth := container.Depth + 1
		node := &model.Node{
			ID:         catID,
			Title:      cat.Name,
			IsItem:     false,
			Depth:      catDepth,
			ClusterID:  model.UnclusteredID,
			Summary:    cat.Description,
			ChildCount: len(cat.MemberIDs),
			ParentID:   &container.ID,
			CreatedAt:  nowUnix(),
			UpdatedAt:  nowUnix(),
		}
		if err := b.st.InsertNode(node); err != nil {
			return err
		}
		res.CategoriesCreated++

		for _, memberID := range cat.MemberIDs {
			if err := b.reparentUnderCategory(memberID, catID, catDepth); err != nil {
				return err
			}
		}
	}

	if err := b.st.UpdateChildCount(container.ID, len(cats)); err != nil {
		return err
	}
	return nil
}

// reparentUnderCategory moves a child under its new category parent,
// bumping the child's own depth plus the depth of its entire subtree by
// the same delta (always +1 here, since exactly one level is inserted).
func (b *Builder) reparentUnderCategory(childID, categoryID string, categoryDepth int) error {
	child, err := b.st.GetNode(childID)
	if err != nil {
		return err
	}
	if child == nil {
		return nil
	}
	oldDepth := child.Depth
	newDepth := categoryDepth + 1
	delta := newDepth - oldDepth

	catID := categoryID
	if err := b.st.UpdateNodeHierarchy(childID, &catID, newDepth); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	return b.bumpDescendantsDepth(childID, delta)
}

func (b *Builder) bumpDescendantsDepth(nodeID string, delta int) error {
	children, err := b.st.GetChildren(nodeID)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := b.st.UpdateNodeHierarchy(c.ID, c.ParentID, c.Depth+delta); err != nil {
			return err
		}
		if err := b.bumpDescendantsDepth(c.ID, delta); err != nil {
			return err
		}
	}
	return nil
}

// repairCategories enforces step C.4's validation rules: every child
// assigned exactly once, generic names renamed, duplicate names
// disambiguated, unassigned children folded into a repair category.
func repairCategories(cats []category, refs []childRef, forbidden []string) []category {
	assigned := map[string]bool{}
	forbiddenSet := map[string]bool{}
	for _, f := range forbidden {
		forbiddenSet[strings.ToLower(f)] = true
	}

	out := make([]category, 0, len(cats)+1)
	seenNames := map[string]int{}
	for _, c := range cats {
		var members []string
		for _, id := range c.MemberIDs {
			if assigned[id] {
				continue
			}
			assigned[id] = true
			members = append(members, id)
		}
		if len(members) == 0 {
			continue
		}

		name := c.Name
		if isGenericName(name) || forbiddenSet[strings.ToLower(name)] {
			name = repairGenericName(memberLabels(members, refs), len(out))
		}
		seenNames[strings.ToLower(name)]++
		if n := seenNames[strings.ToLower(name)]; n > 1 {
			name = name + fmt.Sprintf(" (%d)", n)
		}

		out = append(out, category{Name: name, Description: c.Description, MemberIDs: members})
	}

	var leftover []string
	for _, r := range refs {
		if !assigned[r.ID] {
			leftover = append(leftover, r.ID)
		}
	}
	if len(leftover) > 0 {
		name := repairGenericName(memberLabels(leftover, refs), len(out))
		out = append(out, category{Name: name, Description: "Items not grouped by the primary pass.", MemberIDs: leftover})
	}

	return out
}

func memberLabels(ids []string, refs []childRef) []string {
	byID := make(map[string]string, len(refs))
	for _, r := range refs {
		byID[r.ID] = r.Label
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

func nowUnix() int64 {
	return time.Now().Unix()
}
