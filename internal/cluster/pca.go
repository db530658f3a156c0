package cluster

import (
	"fmt"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// FitPCA fits a zero-mean SVD projection on X. Exactly one of dim
// (fixed output width) or varThresh (cumulative explained-variance
// target in (0,1]) must be set. Returns the projected rows and the
// frozen transform parameters.
func FitPCA(X [][]float64, dim int, varThresh float64) ([][]float64, *domain.PCAParams, error) {
	if (dim > 0) == (varThresh > 0) {
		return nil, nil, fmt.Errorf("pca: choose exactly one of fixed dim or variance threshold")
	}
	n := len(X)
	if n == 0 {
		return nil, nil, fmt.Errorf("pca: empty input")
	}
	d := len(X[0])

	mean := make([]float64, d)
	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	centered := mat.NewDense(n, d, nil)
	for i, row := range X {
		for j, v := range row {
			centered.Set(i, j, v-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("pca: svd factorization failed")
	}
	singular := svd.Values(nil)

	var totalVar float64
	variances := make([]float64, len(singular))
	for i, s := range singular {
		variances[i] = s * s
		totalVar += variances[i]
	}
	if totalVar <= 0 {
		totalVar = 1e-12
	}

	k := dim
	if varThresh > 0 {
		var cum float64
		k = len(singular)
		for i, v := range variances {
			cum += v / totalVar
			if cum >= varThresh {
				k = i + 1
				break
			}
		}
	}
	if k < 1 {
		k = 1
	}
	if k > len(singular) {
		k = len(singular)
	}

	var v mat.Dense
	svd.VTo(&v)

	components := make([][]float64, k)
	for c := 0; c < k; c++ {
		comp := make([]float64, d)
		for j := 0; j < d; j++ {
			comp[j] = v.At(j, c)
		}
		components[c] = comp
	}

	var explained float64
	for i := 0; i < k; i++ {
		explained += variances[i] / totalVar
	}

	params := &domain.PCAParams{
		Components:  components,
		Mean:        mean,
		NComponents: k,
		Explained:   explained,
	}

	projected, err := ApplyPCA(X, params)
	if err != nil {
		return nil, nil, err
	}
	return projected, params, nil
}

// ApplyPCA projects rows with frozen parameters. A width mismatch
// between the rows and the stored mean is fatal: silently truncating
// or padding would produce plausible but wrong assignments.
func ApplyPCA(X [][]float64, p *domain.PCAParams) ([][]float64, error) {
	if p == nil {
		return X, nil
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(p.Mean) {
			return nil, fmt.Errorf("pca: input dim %d does not match fitted dim %d", len(row), len(p.Mean))
		}
		z := make([]float64, len(p.Components))
		for c, comp := range p.Components {
			var dot float64
			for j, v := range row {
				dot += (v - p.Mean[j]) * comp[j]
			}
			z[c] = dot
		}
		out[i] = z
	}
	return out, nil
}
