package assoc

import (
	"fmt"
	"math"
	"sort"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/store"
)

const maxBelongsToPerItem = 4

// ApplyMultiPath links every clustered item to the topic containers its
// cluster assignment and embedding similarity support (§4.4): the primary
// edge mirrors the item's cluster_id/cluster_label at weight 1.0, and up to
// three secondary edges go to other topics the item's embedding is also
// close to (by cosine similarity to each topic's member centroid),
// decreasing in weight and never below the tuned floor. Only AI-sourced
// belongs_to edges are touched; user-edited ones are left alone.
func ApplyMultiPath(st *store.Store, cache *embedcache.Cache, tuning kgconfig.Tuning, tok *cancel.Token) (int, error) {
	items, err := st.GetItems()
	if err != nil {
		return 0, fmt.Errorf("assoc: list items: %w", err)
	}

	centroids, err := buildCentroids(st, cache)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, item := range items {
		if tok.Cancelled() {
			return created, &cancel.CancelledError{Op: "apply_multi_path"}
		}
		if item.ClusterID == model.UnclusteredID {
			continue
		}

		if err := st.DeleteBelongsToEdges(item.ID); err != nil {
			return created, fmt.Errorf("assoc: clear belongs_to for %s: %w", item.ID, err)
		}

		primaryTopic, err := st.FindTopicNodeForCluster(item.ClusterID)
		if err != nil {
			return created, fmt.Errorf("assoc: find topic for cluster %d: %w", item.ClusterID, err)
		}
		if primaryTopic == nil {
			continue // topic container not yet materialized; hierarchy builder will catch up
		}

		primaryWeight := 1.0
		if err := insertBelongsTo(st, item.ID, primaryTopic.ID, primaryWeight); err != nil {
			return created, err
		}
		created++

		secondary := rankSecondaryTopics(item, primaryTopic.ID, centroids, cache)
		weight := primaryWeight
		for i, s := range secondary {
			if i >= maxBelongsToPerItem-1 {
				break
			}
			weight -= 0.2
			if weight < tuning.MinSecondaryStrength {
				weight = tuning.MinSecondaryStrength
			}
			if s.sim < tuning.MinSecondaryStrength {
				break
			}
			if err := insertBelongsTo(st, item.ID, s.topicID, weight); err != nil {
				return created, err
			}
			created++
		}
	}

	return created, nil
}

func insertBelongsTo(st *store.Store, itemID, topicID string, weight float64) error {
	w := weight
	edge := &model.Edge{
		ID:         fmt.Sprintf("belongs-%s-%s", itemID, topicID),
		SourceID:   itemID,
		TargetID:   topicID,
		EdgeType:   model.EdgeBelongsTo,
		Weight:     &w,
		EdgeSource: model.SourceAI,
	}
	if err := st.InsertEdge(edge); err != nil {
		return fmt.Errorf("assoc: insert belongs_to %s->%s: %w", itemID, topicID, err)
	}
	return nil
}

type topicSim struct {
	topicID string
	sim     float64
}

func rankSecondaryTopics(item *model.Node, primaryTopicID string, centroids map[string][]float32, cache *embedcache.Cache) []topicSim {
	entry := cache.Get(item.ID)
	if entry == nil {
		return nil
	}

	var out []topicSim
	for topicID, centroid := range centroids {
		if topicID == primaryTopicID {
			continue
		}
		sim := embedcache.CosineVec(entry.Embedding, entry.Norm, centroid, normOf(centroid))
		out = append(out, topicSim{topicID: topicID, sim: sim})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].sim > out[j].sim })
	return out
}

// buildCentroids averages the cached embedding of every item in a cluster,
// keyed by that cluster's resolved topic node id.
func buildCentroids(st *store.Store, cache *embedcache.Cache) (map[string][]float32, error) {
	items, err := st.GetItems()
	if err != nil {
		return nil, fmt.Errorf("assoc: list items for centroids: %w", err)
	}

	sums := map[int][]float64{}
	counts := map[int]int{}
	for _, it := range items {
		if it.ClusterID == model.UnclusteredID {
			continue
		}
		entry := cache.Get(it.ID)
		if entry == nil {
			continue
		}
		sum, ok := sums[it.ClusterID]
		if !ok {
			sum = make([]float64, len(entry.Embedding))
		}
		for i, v := range entry.Embedding {
			sum[i] += float64(v)
		}
		sums[it.ClusterID] = sum
		counts[it.ClusterID]++
	}

	out := map[string][]float32{}
	for clusterID, sum := range sums {
		topic, err := st.FindTopicNodeForCluster(clusterID)
		if err != nil {
			return nil, fmt.Errorf("assoc: find topic for cluster %d: %w", clusterID, err)
		}
		if topic == nil {
			continue
		}
		n := float64(counts[clusterID])
		centroid := make([]float32, len(sum))
		for i, v := range sum {
			centroid[i] = float32(v / n)
		}
		out[topic.ID] = centroid
	}
	return out, nil
}

func normOf(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
