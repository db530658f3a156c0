package cluster

import (
	"math"
	"math/rand"
)

// Silhouette holds the clustering quality metrics.
type Silhouette struct {
	Overall    float64         `json:"overall"`
	PerCluster map[int]float64 `json:"per_cluster"`
	NUsed      int             `json:"n_used"`
}

// ComputeSilhouette scores the clustering in the given space. When
// sampleSize > 0 and smaller than the sample count, only a random
// subset of points is scored (distances still run against the full
// set) to bound cost on large corpora.
func ComputeSilhouette(X [][]float64, labels []int, sampleSize int, seed int64) *Silhouette {
	n := len(X)
	out := &Silhouette{PerCluster: map[int]float64{}}
	if n == 0 {
		return out
	}

	byCluster := map[int][]int{}
	for i, c := range labels {
		byCluster[c] = append(byCluster[c], i)
	}

	used := make([]int, n)
	for i := range used {
		used[i] = i
	}
	if sampleSize > 0 && n > sampleSize {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) { used[i], used[j] = used[j], used[i] })
		used = used[:sampleSize]
	}

	sums := map[int]float64{}
	counts := map[int]int{}
	var total float64

	for _, gi := range used {
		c := labels[gi]
		own := byCluster[c]

		var a float64
		if len(own) > 1 {
			for _, j := range own {
				a += euclidean(X[gi], X[j])
			}
			a /= float64(len(own))
		}

		b := math.Inf(1)
		for c2, members := range byCluster {
			if c2 == c || len(members) == 0 {
				continue
			}
			var d float64
			for _, j := range members {
				d += euclidean(X[gi], X[j])
			}
			d /= float64(len(members))
			if d < b {
				b = d
			}
		}

		var s float64
		if math.IsInf(b, 1) {
			s = 0
		} else if m := math.Max(a, b); m > 1e-12 {
			s = (b - a) / m
		}

		sums[c] += s
		counts[c]++
		total += s
	}

	out.NUsed = len(used)
	if len(used) > 0 {
		out.Overall = total / float64(len(used))
	}
	for c := range byCluster {
		if counts[c] > 0 {
			out.PerCluster[c] = sums[c] / float64(counts[c])
		} else {
			out.PerCluster[c] = 0
		}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b) + 1e-12)
}
