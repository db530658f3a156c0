package cluster

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

func reviewFixture() ([]string, []domain.Window, [][]float64, []int, []domain.StructuralFeatures) {
	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("message %d", i)
	}
	windows := []domain.Window{
		{Indices: []int{0, 1}, StartIdx: 0, EndIdx: 1},
		{Indices: []int{2, 3}, StartIdx: 2, EndIdx: 3},
		{Indices: []int{4, 5}, StartIdx: 4, EndIdx: 5},
		{Indices: []int{6, 7}, StartIdx: 6, EndIdx: 7},
	}
	// Cluster 0 sits around (0,0) with window 0 nearest the mean,
	// cluster 1 far away.
	X := [][]float64{{0.1, 0}, {0.4, 0}, {-0.5, 0}, {10, 10}}
	labels := []int{0, 0, 0, 1}
	feats := make([]domain.StructuralFeatures, 4)
	for i := range feats {
		feats[i].ProgressScore = float64(i)
	}
	return texts, windows, X, labels, feats
}

func TestBuildReview(t *testing.T) {
	texts, windows, X, labels, feats := reviewFixture()
	means := MeanProgressByCluster(labels, []float64{0, 1, 2, 3})

	review := BuildReview(texts, windows, X, labels, feats, means, 2)
	require.Len(t, review, 2)

	c0 := review[0]
	require.NotNil(t, c0)
	// Mean of cluster 0 is (0, 0); window 0 at (0.1, 0) is closest.
	assert.Equal(t, 0, c0.Medoid)
	require.Len(t, c0.Prototypes, 2, "prototypes capped at topK")
	assert.Equal(t, c0.Prototypes[0], c0.Medoid)
	assert.InDelta(t, 1.0, c0.MeanProgress, 1e-9)

	require.Len(t, c0.Neighbors, 2)
	assert.True(t, c0.Neighbors[0].SimToCenter >= c0.Neighbors[1].SimToCenter,
		"neighbors must be ordered nearest first")
	for _, n := range c0.Neighbors {
		assert.Greater(t, n.SimToCenter, 0.0)
		assert.LessOrEqual(t, n.SimToCenter, 1.0)
		assert.Contains(t, n.Excerpt, "message")
		assert.NotEmpty(t, n.Metrics)
	}

	c1 := review[1]
	require.NotNil(t, c1)
	assert.Equal(t, 3, c1.Medoid)
	// A single-member cluster sits exactly on its own mean.
	assert.InDelta(t, 1.0, c1.Neighbors[0].SimToCenter, 1e-9)
}

func TestBuildReview_ExcerptBounds(t *testing.T) {
	long := strings.Repeat("x", 900)
	texts := []string{long, long, long, long, long, long, long, long}
	windows := []domain.Window{
		{Indices: []int{0, 1, 2, 3, 4, 5, 6, 7}, StartIdx: 0, EndIdx: 7},
		{Indices: []int{0, 1}, StartIdx: 0, EndIdx: 1},
	}
	X := [][]float64{{0}, {1}}
	labels := []int{0, 1}
	feats := make([]domain.StructuralFeatures, 2)

	review := BuildReview(texts, windows, X, labels, feats, map[int]float64{}, 5)
	excerpt := review[0].Neighbors[0].Excerpt
	require.LessOrEqual(t, len([]rune(excerpt)), reviewCharLimit+2,
		"excerpt must be truncated with the ellipsis marker")
	assert.True(t, strings.HasSuffix(excerpt, "…"))
}
