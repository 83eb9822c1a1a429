package cluster

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/orsinium-labs/stopwords"

	implicitmatcher "github.com/kittclouds/kgraph/pkg/implicit-matcher"

	"github.com/kittclouds/kgraph/internal/model"
)

var enStopwords = stopwords.MustGet("en")

const (
	minTokenLen     = 3
	maxTokenLen     = 24
	topKeywordsSize = 20
)

// keywordSet is an item's top-scoring keywords, the unit the Jaccard
// similarity pass and the agglomerative merge operate over.
type keywordSet struct {
	itemID   string
	keywords map[string]bool
	ordered  []string // keywords sorted by score descending, for labeling
}

// tfidfCluster is a working cluster during the agglomerative merge: a set
// of item ids plus the union keyword pool used to score further merges and
// to name the final cluster.
type tfidfCluster struct {
	items    []string
	keywords map[string]int // union term counts across member items
}

// RunTFIDF clusters items by keyword-set Jaccard similarity, the engine's
// no-LLM fallback (§4.5). jaccardThreshold is the minimum pairwise
// similarity at which two clusters merge; it defaults to 0.15 per the
// tuning table (internal/kgconfig.Tuning.TFIDFJaccardThreshold).
func RunTFIDF(items []*model.Node, jaccardThreshold float64) []Assignment {
	sets := make([]keywordSet, 0, len(items))
	for _, it := range items {
		sets = append(sets, extractKeywordSet(it))
	}

	clusters := make([]*tfidfCluster, 0, len(sets))
	for _, s := range sets {
		c := &tfidfCluster{items: []string{s.itemID}, keywords: map[string]int{}}
		for _, kw := range s.ordered {
			c.keywords[kw]++
		}
		clusters = append(clusters, c)
	}

	merged := agglomerate(clusters, jaccardThreshold)

	assignments := make([]Assignment, 0, len(items))
	nextID := 0
	var misc []string
	for _, c := range merged {
		if len(c.items) < 2 {
			misc = append(misc, c.items...)
			continue
		}
		label := labelFromKeywords(c.keywords)
		for _, itemID := range c.items {
			assignments = append(assignments, Assignment{
				ItemID: itemID, ClusterID: nextID, Label: label, Strength: 1, IsNew: true,
			})
		}
		nextID++
	}
	if len(misc) > 0 {
		for _, itemID := range misc {
			assignments = append(assignments, Assignment{
				ItemID: itemID, ClusterID: nextID, Label: "Miscellaneous", Strength: 1, IsNew: true,
			})
		}
		nextID++
	}
	return assignments
}

// extractKeywordSet tokenizes an item's text, preferring the AI summary
// over raw content when present, appends tags, drops stopwords/numbers/
// too-short/too-long tokens, and keeps the top 20 by a log-boosted
// term-frequency score.
func extractKeywordSet(n *model.Node) keywordSet {
	var body strings.Builder
	body.WriteString(n.Title)
	body.WriteByte(' ')
	if n.Summary != "" {
		body.WriteString(n.Summary)
	} else {
		body.WriteString(n.Content)
	}
	for _, tag := range n.Tags {
		body.WriteByte(' ')
		body.WriteString(tag)
	}

	counts := map[string]int{}
	for _, tok := range implicitmatcher.TokenizeNorm(body.String()) {
		if !keepToken(tok) {
			continue
		}
		counts[tok]++
	}

	type scored struct {
		word  string
		score float64
	}
	scoredWords := make([]scored, 0, len(counts))
	for w, c := range counts {
		scoredWords = append(scoredWords, scored{w, float64(c) * (1 + math.Log(float64(c)))})
	}
	sort.Slice(scoredWords, func(i, j int) bool {
		if scoredWords[i].score != scoredWords[j].score {
			return scoredWords[i].score > scoredWords[j].score
		}
		return scoredWords[i].word < scoredWords[j].word
	})
	if len(scoredWords) > topKeywordsSize {
		scoredWords = scoredWords[:topKeywordsSize]
	}

	kws := make(map[string]bool, len(scoredWords))
	ordered := make([]string, len(scoredWords))
	for i, sw := range scoredWords {
		kws[sw.word] = true
		ordered[i] = sw.word
	}
	return keywordSet{itemID: n.ID, keywords: kws, ordered: ordered}
}

// keepToken drops stopwords (checked against both the small built-in table
// and the larger orsinium-labs corpus, mirroring the teacher's layered
// stopword check) and tokens outside a sane keyword length/shape.
func keepToken(tok string) bool {
	if len(tok) < minTokenLen || len(tok) > maxTokenLen {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	if implicitmatcher.StopWords[tok] {
		return false
	}
	if enStopwords.Contains(tok) {
		return false
	}
	return true
}

// agglomerate repeatedly merges the most-similar pair of clusters above
// threshold until no pair qualifies.
func agglomerate(clusters []*tfidfCluster, threshold float64) []*tfidfCluster {
	for {
		bestI, bestJ := -1, -1
		bestSim := threshold
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				sim := jaccard(clusters[i].keywords, clusters[j].keywords)
				if sim > bestSim {
					bestSim = sim
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break
		}
		clusters[bestI] = mergeClusters(clusters[bestI], clusters[bestJ])
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
	}
	return clusters
}

func mergeClusters(a, b *tfidfCluster) *tfidfCluster {
	merged := &tfidfCluster{
		items:    append(append([]string{}, a.items...), b.items...),
		keywords: map[string]int{},
	}
	for w, c := range a.keywords {
		merged.keywords[w] += c
	}
	for w, c := range b.keywords {
		merged.keywords[w] += c
	}
	return merged
}

func jaccard(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// labelFromKeywords names a merged cluster after its top-3 keywords by
// union count.
func labelFromKeywords(counts map[string]int) string {
	type kc struct {
		word  string
		count int
	}
	list := make([]kc, 0, len(counts))
	for w, c := range counts {
		list = append(list, kc{w, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].word < list[j].word
	})
	n := 3
	if len(list) < n {
		n = len(list)
	}
	if n == 0 {
		return "Miscellaneous"
	}
	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = strings.Title(list[i].word)
	}
	return strings.Join(words, " ")
}
