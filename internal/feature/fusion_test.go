package feature

import (
	"math"
	"testing"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

func TestFitScaler_ApplyScaler_RoundTrip(t *testing.T) {
	feats := []domain.StructuralFeatures{
		{DoneHits: 1.0, ProgressScore: 0.8},
		{DoneHits: 0.0, ProgressScore: -0.8},
		{DoneHits: 0.5, ProgressScore: 0.0},
	}
	scaler := FitScaler(feats)
	if err := ValidateScaler(scaler); err != nil {
		t.Fatalf("fresh scaler failed validation: %v", err)
	}

	rows, err := ApplyScaler(feats, scaler)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Standardized columns are zero-mean.
	for j := 0; j < domain.FeatureDim(); j++ {
		var sum float64
		for i := range rows {
			sum += rows[i][j]
		}
		if math.Abs(sum/float64(len(rows))) > 1e-9 {
			t.Errorf("column %d mean = %g, want ~0", j, sum/float64(len(rows)))
		}
	}
}

func TestApplyScaler_FrozenParamsReproduce(t *testing.T) {
	feats := []domain.StructuralFeatures{
		{StuckHits: 1.0}, {StuckHits: 0.2}, {DoneHits: 0.7},
	}
	scaler := FitScaler(feats)
	a, err := ApplyScaler(feats, scaler)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	b, err := ApplyScaler(feats, scaler)
	if err != nil {
		t.Fatalf("apply again: %v", err)
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("row %d col %d differs with identical frozen scaler", i, j)
			}
		}
	}
}

func TestValidateScaler_RejectsDrift(t *testing.T) {
	scaler := FitScaler(nil)

	wrongName := scaler
	wrongName.FeatureNames = append([]string(nil), scaler.FeatureNames...)
	wrongName.FeatureNames[0] = "renamed_column"
	if err := ValidateScaler(wrongName); err == nil {
		t.Error("expected error for renamed column")
	}

	short := scaler
	short.FeatureNames = scaler.FeatureNames[:len(scaler.FeatureNames)-1]
	if err := ValidateScaler(short); err == nil {
		t.Error("expected error for missing column")
	}
}

func TestFuse_WeightsAndWidth(t *testing.T) {
	sem := [][]float64{{1, 0}, {0, 1}}
	structZ := [][]float64{{2}, {-2}}
	rows, err := Fuse(sem, structZ, 0.2, 0.8)
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if len(rows[0]) != 3 {
		t.Fatalf("fused width = %d, want 3", len(rows[0]))
	}
	if rows[0][0] != 0.2 || rows[0][2] != 1.6 {
		t.Errorf("weights not applied: %v", rows[0])
	}

	if _, err := Fuse(sem, structZ[:1], 0.2, 0.8); err == nil {
		t.Error("expected error for mismatched row counts")
	}
}

func TestL2NormalizeRows(t *testing.T) {
	rows := [][]float64{{3, 4}, {0, 0}}
	L2NormalizeRows(rows)
	if math.Abs(rows[0][0]-0.6) > 1e-12 || math.Abs(rows[0][1]-0.8) > 1e-12 {
		t.Errorf("row not unit length: %v", rows[0])
	}
	if rows[1][0] != 0 || rows[1][1] != 0 {
		t.Errorf("zero row mutated: %v", rows[1])
	}
}
