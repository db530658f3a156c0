package feature

import (
	"fmt"
	"math"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

// stdEpsilon keeps zero-variance columns from dividing by zero.
const stdEpsilon = 1e-6

// Fusion weight defaults. Structural signals carry most of the load;
// the semantic block mainly separates topic shifts.
const (
	DefaultSemanticWeight   = 0.2
	DefaultStructuralWeight = 0.8
)

// FitScaler computes per-column mean/std over the training window set.
// The returned parameter block pins the schema order and is frozen
// into the asset bundle for serve-time reuse.
func FitScaler(feats []domain.StructuralFeatures) domain.ScalerParams {
	names := domain.FeatureSchema()
	dim := len(names)
	mean := make([]float64, dim)
	std := make([]float64, dim)

	n := float64(len(feats))
	if n == 0 {
		for j := range std {
			std[j] = stdEpsilon
		}
		return domain.ScalerParams{FeatureNames: names, Mean: mean, Std: std}
	}

	for i := range feats {
		vec := feats[i].Vector()
		for j, v := range vec {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for i := range feats {
		vec := feats[i].Vector()
		for j, v := range vec {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j]/n) + stdEpsilon
	}
	return domain.ScalerParams{FeatureNames: names, Mean: mean, Std: std}
}

// ValidateScaler checks a loaded scaler against the compiled feature
// schema. Name or dimension drift means the frozen assets were built
// against a different feature version and cannot be applied.
func ValidateScaler(p domain.ScalerParams) error {
	names := domain.FeatureSchema()
	if len(p.FeatureNames) != len(names) {
		return fmt.Errorf("struct scaler has %d feature columns, schema has %d", len(p.FeatureNames), len(names))
	}
	for i, name := range names {
		if p.FeatureNames[i] != name {
			return fmt.Errorf("struct scaler column %d is %q, schema expects %q", i, p.FeatureNames[i], name)
		}
	}
	if len(p.Mean) != len(names) || len(p.Std) != len(names) {
		return fmt.Errorf("struct scaler mean/std lengths (%d/%d) do not match %d columns", len(p.Mean), len(p.Std), len(names))
	}
	return nil
}

// ApplyScaler standardizes each feature record with frozen parameters,
// returning one row per record in schema column order.
func ApplyScaler(feats []domain.StructuralFeatures, p domain.ScalerParams) ([][]float64, error) {
	if err := ValidateScaler(p); err != nil {
		return nil, err
	}
	rows := make([][]float64, len(feats))
	for i := range feats {
		vec := feats[i].Vector()
		row := make([]float64, len(vec))
		for j, v := range vec {
			row[j] = (v - p.Mean[j]) / p.Std[j]
		}
		rows[i] = row
	}
	return rows, nil
}

// Fuse concatenates weighted semantic and standardized structural rows
// into the representation the clustering algorithm sees.
func Fuse(sem, structZ [][]float64, semanticWeight, structuralWeight float64) ([][]float64, error) {
	if len(sem) != len(structZ) {
		return nil, fmt.Errorf("semantic rows (%d) do not match structural rows (%d)", len(sem), len(structZ))
	}
	out := make([][]float64, len(sem))
	for i := range sem {
		row := make([]float64, 0, len(sem[i])+len(structZ[i]))
		for _, v := range sem[i] {
			row = append(row, v*semanticWeight)
		}
		for _, v := range structZ[i] {
			row = append(row, v*structuralWeight)
		}
		out[i] = row
	}
	return out, nil
}

// L2NormalizeRows scales each row to unit length in place and returns
// the slice. Euclidean k-means over unit rows approximates cosine
// similarity. Zero rows are left untouched.
func L2NormalizeRows(rows [][]float64) [][]float64 {
	for _, row := range rows {
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		norm := math.Sqrt(sum)
		if norm < 1e-9 {
			continue
		}
		for j := range row {
			row[j] /= norm
		}
	}
	return rows
}
