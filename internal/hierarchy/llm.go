package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittclouds/kgraph/internal/llmclient"
)

const systemPrompt = `You split an oversized group of topics into 3-8 named
subcategories. Every subcategory needs a short description and the exact
list of member labels (copied verbatim from the input) it owns. Every
input label must be assigned to exactly one subcategory. Never use a
generic name like "Other", "Misc", "Various", or "Uncategorized" — derive
names from what the members actually share. Respond with JSON only:
{"categories": [{"name": "...", "description": "...", "members": ["..."]}]}`

type llmCategory struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

type llmSubdivisionResponse struct {
	Categories []llmCategory `json:"categories"`
}

// callSubdivisionLLM asks the configured provider to split container's
// over-capacity children into named subcategories (§4.6 step C.3),
// supplying the ancestor path, sibling/global name context, and detected
// project-name hints so the model prefers a real recurring name over an
// invented one.
func (b *Builder) callSubdivisionLLM(ctx context.Context, refs []childRef, sc *subdivisionContext) ([]category, error) {
	prompt := buildSubdivisionPrompt(refs, sc)
	raw, err := b.svc.Complete(ctx, prompt, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: subdivision llm call: %w", err)
	}

	var resp llmSubdivisionResponse
	if err := llmclient.DecodeLenient(raw, &resp); err != nil {
		return nil, fmt.Errorf("hierarchy: subdivision llm parse: %w", err)
	}
	if len(resp.Categories) == 0 {
		return nil, fmt.Errorf("hierarchy: subdivision llm returned no categories")
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

func buildSubdivisionPrompt(refs []childRef, sc *subdivisionContext) string {
	var p strings.Builder
	fmt.Fprintf(&p, "Parent category: %q\n", sc.parentName)
	if sc.parentDesc != "" {
		fmt.Fprintf(&p, "Parent description: %q\n", sc.parentDesc)
	}
	fmt.Fprintf(&p, "Path from root: %s\n", strings.Join(sc.path, " > "))
	fmt.Fprintf(&p, "Depth: %d\n", sc.depth)

	if len(sc.siblingNames) > 0 {
		fmt.Fprintf(&p, "Sibling category names (do not reuse): %s\n", strings.Join(sc.siblingNames, ", "))
	}
	if len(sc.allCategoryNames) > 0 {
		names := sc.allCategoryNames
		if len(names) > 60 {
			names = names[:60]
		}
		fmt.Fprintf(&p, "Existing category names elsewhere (informational, reuse allowed in disjoint branches): %s\n", strings.Join(names, ", "))
	}
	if len(sc.projectHints) > 0 {
		fmt.Fprintf(&p, "Detected recurring project/product names worth keeping as their own category: %s\n", strings.Join(sc.projectHints, ", "))
	}

	p.WriteString("\nMembers to split:\n")
	for _, r := range refs {
		fmt.Fprintf(&p, "- %q (%d items)\n", r.Label, r.ItemCount)
	}
	return p.String()
}

// heuristicSubdivide is the offline fallback used when no LLM is
// configured or the LLM call fails (mirroring the clusterer's TF-IDF
// fallback, §4.5): children are bucketed into evenly sized groups in
// label order, each named after its members via the same dominant-proper-
// noun / frequent-common-word chain the generic-name repair path uses, so
// a heuristic category is never more "generic" than an LLM-named one.
func heuristicSubdivide(refs []childRef) []category {
	n := len(refs)
	if n == 0 {
		return nil
	}

	groupCount := (n + 11) / 12 // aim for ~12 members per group
	if groupCount < minSubcategories {
		groupCount = minSubcategories
	}
	if groupCount > maxSubcategoriesDefault {
		groupCount = maxSubcategoriesDefault
	}
	if groupCount > n {
		groupCount = n
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
			Description: "Grouped by label similarity.",
			MemberIDs:   ids,
		}
	}
	return cats
}

func sortChildRefsByLabel(refs []childRef) {
	for i := 1; i < len(refs); i++ {
		j := i
		for j > 0 && refs[j-1].Label > refs[j].Label {
			refs[j-1], refs[j] = refs[j], refs[j-1]
			j--
		}
	}
}
