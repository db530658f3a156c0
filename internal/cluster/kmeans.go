// Package cluster implements the offline training pipeline: k-means
// over the fused feature space, quality evaluation, cluster naming,
// and the human-review exports.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// KMeansResult is the best restart's outcome.
type KMeansResult struct {
	Centers [][]float64 `json:"centers"`
	Labels  []int       `json:"labels"`
	Inertia float64     `json:"inertia"`
}

const centerStabilityEps = 1e-9

// KMeans runs Lloyd's algorithm with k-means++ seeding and nInit
// random restarts, keeping the restart with the lowest inertia.
// Iteration stops on center stability or after maxIter rounds.
// onRestart, if non-nil, is called after each completed restart.
func KMeans(X [][]float64, k, nInit, maxIter int, seed int64, onRestart func(done int)) (*KMeansResult, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("kmeans: empty input")
	}
	if k <= 0 || k > n {
		return nil, fmt.Errorf("kmeans: k=%d out of range for %d samples", k, n)
	}
	if nInit <= 0 {
		nInit = 1
	}
	if maxIter <= 0 {
		maxIter = 1
	}

	rng := rand.New(rand.NewSource(seed))
	var best *KMeansResult

	for restart := 0; restart < nInit; restart++ {
		centers := seedPlusPlus(X, k, rng)
		labels := make([]int, n)

		for iter := 0; iter < maxIter; iter++ {
			for i, row := range X {
				labels[i] = nearestCenter(row, centers)
			}
			next := meansByLabel(X, labels, centers)
			if maxCenterShift(centers, next) < centerStabilityEps {
				centers = next
				break
			}
			centers = next
		}

		var inertia float64
		for i, row := range X {
			inertia += squaredDistance(row, centers[labels[i]])
		}
		if best == nil || inertia < best.Inertia {
			best = &KMeansResult{
				Centers: centers,
				Labels:  append([]int(nil), labels...),
				Inertia: inertia,
			}
		}
		if onRestart != nil {
			onRestart(restart + 1)
		}
	}
	return best, nil
}

// seedPlusPlus draws k initial centers, each new one proportional to
// its squared distance from the already-chosen set.
func seedPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, cloneRow(X[rng.Intn(len(X))]))

	d2 := make([]float64, len(X))
	for len(centers) < k {
		var total float64
		for i, row := range X {
			d2[i] = squaredDistance(row, centers[0])
			for _, c := range centers[1:] {
				if d := squaredDistance(row, c); d < d2[i] {
					d2[i] = d
				}
			}
			total += d2[i]
		}
		if total <= 0 {
			// All points coincide with chosen centers; any pick works.
			centers = append(centers, cloneRow(X[rng.Intn(len(X))]))
			continue
		}
		target := rng.Float64() * total
		var cum float64
		pick := len(X) - 1
		for i, d := range d2 {
			cum += d
			if cum >= target {
				pick = i
				break
			}
		}
		centers = append(centers, cloneRow(X[pick]))
	}
	return centers
}

func nearestCenter(row []float64, centers [][]float64) int {
	bestIdx := 0
	bestDist := squaredDistance(row, centers[0])
	for j := 1; j < len(centers); j++ {
		if d := squaredDistance(row, centers[j]); d < bestDist {
			bestDist = d
			bestIdx = j
		}
	}
	return bestIdx
}

// meansByLabel recomputes centers as per-label means; labels with no
// members keep their previous center.
func meansByLabel(X [][]float64, labels []int, prev [][]float64) [][]float64 {
	k := len(prev)
	dim := len(prev[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	for i, row := range X {
		j := labels[i]
		counts[j]++
		for d, v := range row {
			sums[j][d] += v
		}
	}
	out := make([][]float64, k)
	for j := range sums {
		if counts[j] == 0 {
			out[j] = cloneRow(prev[j])
			continue
		}
		for d := range sums[j] {
			sums[j][d] /= float64(counts[j])
		}
		out[j] = sums[j]
	}
	return out
}

func maxCenterShift(a, b [][]float64) float64 {
	var worst float64
	for j := range a {
		for d := range a[j] {
			if diff := math.Abs(a[j][d] - b[j][d]); diff > worst {
				worst = diff
			}
		}
	}
	return worst
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneRow(row []float64) []float64 {
	return append([]float64(nil), row...)
}

// MeanCenters computes per-cluster mean vectors in the clustering
// space; these are the centers frozen into the asset bundle.
func MeanCenters(X [][]float64, labels []int, k int) [][]float64 {
	dim := 0
	if len(X) > 0 {
		dim = len(X[0])
	}
	sums := make([][]float64, k)
	counts := make([]int, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	for i, row := range X {
		j := labels[i]
		if j < 0 || j >= k {
			continue
		}
		counts[j]++
		for d, v := range row {
			sums[j][d] += v
		}
	}
	for j := range sums {
		if counts[j] == 0 {
			continue
		}
		for d := range sums[j] {
			sums[j][d] /= float64(counts[j])
		}
	}
	return sums
}
