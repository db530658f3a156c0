package cluster

import (
	"math"
	"math/rand"
	"testing"
)

// blobs draws n points around each of the given centers.
func blobs(centers [][]float64, n int, spread float64, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var X [][]float64
	var truth []int
	for ci, c := range centers {
		for i := 0; i < n; i++ {
			row := make([]float64, len(c))
			for d := range c {
				row[d] = c[d] + rng.NormFloat64()*spread
			}
			X = append(X, row)
			truth = append(truth, ci)
		}
	}
	return X, truth
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	X, truth := blobs([][]float64{{0, 0}, {10, 0}, {0, 10}}, 40, 0.5, 7)
	res, err := KMeans(X, 3, 10, 100, 23, nil)
	if err != nil {
		t.Fatalf("kmeans: %v", err)
	}

	// Every true blob must map to exactly one predicted cluster.
	mapping := map[int]map[int]int{}
	for i, l := range res.Labels {
		if mapping[truth[i]] == nil {
			mapping[truth[i]] = map[int]int{}
		}
		mapping[truth[i]][l]++
	}
	seen := map[int]bool{}
	for blob, counts := range mapping {
		if len(counts) != 1 {
			t.Errorf("blob %d split across clusters: %v", blob, counts)
			continue
		}
		for l := range counts {
			if seen[l] {
				t.Errorf("cluster %d claimed by two blobs", l)
			}
			seen[l] = true
		}
	}
}

func TestKMeans_DeterministicUnderSeed(t *testing.T) {
	X, _ := blobs([][]float64{{0, 0}, {5, 5}}, 30, 1.0, 11)
	a, err := KMeans(X, 2, 5, 50, 23, nil)
	if err != nil {
		t.Fatalf("kmeans: %v", err)
	}
	b, err := KMeans(X, 2, 5, 50, 23, nil)
	if err != nil {
		t.Fatalf("kmeans: %v", err)
	}
	if a.Inertia != b.Inertia {
		t.Errorf("inertia differs across seeded runs: %f vs %f", a.Inertia, b.Inertia)
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("label %d differs across seeded runs", i)
		}
	}
}

func TestKMeans_RestartCallback(t *testing.T) {
	X, _ := blobs([][]float64{{0, 0}, {3, 3}}, 10, 0.3, 5)
	var calls []int
	_, err := KMeans(X, 2, 4, 20, 23, func(done int) { calls = append(calls, done) })
	if err != nil {
		t.Fatalf("kmeans: %v", err)
	}
	if len(calls) != 4 || calls[3] != 4 {
		t.Errorf("restart callback calls = %v, want 1..4", calls)
	}
}

func TestKMeans_InvalidInput(t *testing.T) {
	if _, err := KMeans(nil, 3, 1, 10, 1, nil); err == nil {
		t.Error("expected error for empty input")
	}
	X := [][]float64{{1}, {2}}
	if _, err := KMeans(X, 3, 1, 10, 1, nil); err == nil {
		t.Error("expected error for k > n")
	}
}

func TestComputeSilhouette_SeparatedVsMixed(t *testing.T) {
	X, truth := blobs([][]float64{{0, 0}, {10, 10}}, 25, 0.3, 3)
	good := ComputeSilhouette(X, truth, 0, 42)
	if good.Overall < 0.8 {
		t.Errorf("silhouette %f for well-separated blobs, want > 0.8", good.Overall)
	}

	// Random labels over the same points should score far worse.
	rng := rand.New(rand.NewSource(9))
	shuffled := make([]int, len(truth))
	for i := range shuffled {
		shuffled[i] = rng.Intn(2)
	}
	bad := ComputeSilhouette(X, shuffled, 0, 42)
	if bad.Overall >= good.Overall {
		t.Errorf("random labels scored %f, separated labels %f", bad.Overall, good.Overall)
	}
}

func TestComputeSilhouette_Sampled(t *testing.T) {
	X, truth := blobs([][]float64{{0, 0}, {8, 8}}, 50, 0.5, 13)
	s := ComputeSilhouette(X, truth, 20, 42)
	if s.NUsed != 20 {
		t.Errorf("n_used = %d, want 20", s.NUsed)
	}
	if s.Overall < 0.5 {
		t.Errorf("sampled silhouette %f suspiciously low for separated blobs", s.Overall)
	}
}

func TestMeanCenters(t *testing.T) {
	X := [][]float64{{0, 0}, {2, 2}, {10, 10}}
	labels := []int{0, 0, 1}
	centers := MeanCenters(X, labels, 2)
	if centers[0][0] != 1 || centers[0][1] != 1 {
		t.Errorf("cluster 0 center = %v, want [1 1]", centers[0])
	}
	if centers[1][0] != 10 || centers[1][1] != 10 {
		t.Errorf("cluster 1 center = %v, want [10 10]", centers[1])
	}
}

func TestFitPCA_ShapesAndVariance(t *testing.T) {
	// Points on a noisy line: one component should explain nearly
	// everything.
	rng := rand.New(rand.NewSource(17))
	X := make([][]float64, 100)
	for i := range X {
		s := rng.Float64() * 10
		X[i] = []float64{s, 2 * s, 0.001 * rng.NormFloat64()}
	}

	projected, params, err := FitPCA(X, 2, 0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if params.NComponents != 2 || len(params.Components) != 2 || len(params.Components[0]) != 3 {
		t.Fatalf("component shape = %d x %d, want 2 x 3", len(params.Components), len(params.Components[0]))
	}
	if len(projected[0]) != 2 {
		t.Errorf("projected width = %d, want 2", len(projected[0]))
	}
	if params.Explained < 0.99 {
		t.Errorf("explained variance %f, want ~1 for near-planar data", params.Explained)
	}

	_, byVar, err := FitPCA(X, 0, 0.95)
	if err != nil {
		t.Fatalf("fit by variance: %v", err)
	}
	if byVar.NComponents != 1 {
		t.Errorf("95%% variance needs %d components, want 1 for a line", byVar.NComponents)
	}
}

func TestFitPCA_OptionValidation(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}}
	if _, _, err := FitPCA(X, 1, 0.9); err == nil {
		t.Error("expected error when both dim and variance set")
	}
	if _, _, err := FitPCA(X, 0, 0); err == nil {
		t.Error("expected error when neither dim nor variance set")
	}
}

func TestApplyPCA_DimensionMismatch(t *testing.T) {
	X := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}}
	_, params, err := FitPCA(X, 2, 0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := ApplyPCA([][]float64{{1, 0}}, params); err == nil {
		t.Error("expected error for rows narrower than the fitted space")
	}
	out, err := ApplyPCA([][]float64{{1, 2, 3}}, nil)
	if err != nil || len(out[0]) != 3 {
		t.Errorf("nil params should pass rows through unchanged")
	}
}

func TestNameByProgress_OrdinalOrder(t *testing.T) {
	names := NameByProgress(map[int]float64{0: 0.4, 1: -1.2, 2: 2.1})
	if names[1] != "low progress" || names[0] != "normal" || names[2] != "advanced" {
		t.Errorf("naming = %v", names)
	}
}

func TestNameByProgress_TieBreaksByID(t *testing.T) {
	names := NameByProgress(map[int]float64{2: 0.0, 0: 0.0, 1: 5.0})
	if names[0] != "low progress" || names[2] != "normal" || names[1] != "advanced" {
		t.Errorf("tied means should rank by cluster id: %v", names)
	}
}

func TestMeanProgressByCluster(t *testing.T) {
	means := MeanProgressByCluster([]int{0, 0, 1}, []float64{1, 3, -2})
	if means[0] != 2 || means[1] != -2 {
		t.Errorf("means = %v", means)
	}
	if math.IsNaN(means[0]) {
		t.Error("mean is NaN")
	}
}
