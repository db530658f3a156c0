package cluster

import (
	"sort"
	"strings"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

const (
	reviewMsgPreview = 6
	reviewCharLimit  = 1200
)

// ReviewNeighbor is one center-nearest window inside a cluster, with
// enough context for a human to judge the cluster's character.
type ReviewNeighbor struct {
	WindowIndex int                `json:"window_index"`
	SimToCenter float64            `json:"sim_to_center"`
	StartIdx    int                `json:"start_idx"`
	EndIdx      int                `json:"end_idx"`
	Excerpt     string             `json:"excerpt"`
	Metrics     map[string]float64 `json:"metrics"`
}

// ClusterReview is the audit bundle for one cluster.
type ClusterReview struct {
	Neighbors    []ReviewNeighbor `json:"neighbors"`
	Medoid       int              `json:"medoid"`
	Prototypes   []int            `json:"prototypes"`
	MeanProgress float64          `json:"mean_progress"`
}

// BuildReview assembles per-cluster nearest-neighbor windows with
// excerpts and metric snapshots, plus medoid/prototype indices, for
// the human label-review step.
func BuildReview(
	texts []string,
	windows []domain.Window,
	X [][]float64,
	labels []int,
	feats []domain.StructuralFeatures,
	means map[int]float64,
	topK int,
) map[int]*ClusterReview {
	byCluster := map[int][]int{}
	for i, c := range labels {
		byCluster[c] = append(byCluster[c], i)
	}

	review := make(map[int]*ClusterReview, len(byCluster))
	for cid, members := range byCluster {
		cr := &ClusterReview{Medoid: -1, MeanProgress: means[cid]}
		if len(members) == 0 {
			review[cid] = cr
			continue
		}

		center := make([]float64, len(X[members[0]]))
		for _, idx := range members {
			for d, v := range X[idx] {
				center[d] += v
			}
		}
		for d := range center {
			center[d] /= float64(len(members))
		}
		order := append([]int(nil), members...)
		sort.Slice(order, func(i, j int) bool {
			return squaredDistance(X[order[i]], center) < squaredDistance(X[order[j]], center)
		})

		cr.Medoid = order[0]
		limit := topK
		if limit > len(order) {
			limit = len(order)
		}
		cr.Prototypes = append([]int(nil), order[:limit]...)

		for _, idx := range order[:limit] {
			win := windows[idx]
			preview := win.Indices
			if len(preview) > reviewMsgPreview {
				preview = preview[:reviewMsgPreview]
			}
			parts := make([]string, 0, len(preview))
			for _, mi := range preview {
				parts = append(parts, texts[mi])
			}
			excerpt := strings.Join(parts, "\n---\n")
			if len([]rune(excerpt)) > reviewCharLimit {
				excerpt = string([]rune(excerpt)[:reviewCharLimit]) + " …"
			}

			d2 := squaredDistance(X[idx], center)
			cr.Neighbors = append(cr.Neighbors, ReviewNeighbor{
				WindowIndex: idx,
				SimToCenter: 1.0 / (1.0 + d2),
				StartIdx:    win.StartIdx,
				EndIdx:      win.EndIdx,
				Excerpt:     excerpt,
				Metrics:     feats[idx].Metrics(),
			})
		}
		review[cid] = cr
	}
	return review
}
