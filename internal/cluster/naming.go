package cluster

import (
	"sort"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

// MeanProgressByCluster averages the per-window progress scores inside
// each cluster.
func MeanProgressByCluster(labels []int, scores []float64) map[int]float64 {
	sums := map[int]float64{}
	counts := map[int]int{}
	for i, c := range labels {
		sums[c] += scores[i]
		counts[c]++
	}
	means := make(map[int]float64, len(sums))
	for c, s := range sums {
		means[c] = s / float64(counts[c])
	}
	return means
}

// NameByProgress drafts the cluster-id→label map by ranking clusters
// on mean progress score ascending and assigning the fixed ordinal
// labels. The draft is meant for human review before freezing; it is
// not authoritative on its own.
func NameByProgress(means map[int]float64) map[int]string {
	type entry struct {
		id   int
		mean float64
	}
	entries := make([]entry, 0, len(means))
	for c, m := range means {
		entries = append(entries, entry{c, m})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mean == entries[j].mean {
			return entries[i].id < entries[j].id
		}
		return entries[i].mean < entries[j].mean
	})

	ordinals := domain.OrdinalLabels()
	names := make(map[int]string, len(entries))
	for rank, e := range entries {
		if rank >= len(ordinals) {
			break
		}
		names[e.id] = ordinals[rank]
	}
	return names
}
