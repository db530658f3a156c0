package asset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/feature"
)

func testModel(version string) *domain.ClusterModel {
	return &domain.ClusterModel{
		Manifest: domain.Manifest{
			Version:      version,
			CreatedAt:    time.Now().UTC(),
			SemanticMode: "mock",
		},
		Config: domain.FeatureConfig{
			SemanticWeight:   0.2,
			StructuralWeight: 0.8,
			Window:           domain.WindowConfig{BatchSize: 12, Overlap: 4, MaxLines: 12},
			Extraction:       feature.DefaultParams(),
			Weights:          feature.DefaultScoreWeights(),
			L2Norm:           true,
			ScoreThresholds:  domain.DefaultScoreThresholds(),
		},
		Scaler:  feature.FitScaler(nil),
		Lexicon: feature.DefaultLexicon(),
		Centers: &domain.Centers{
			Dim:     3,
			Vectors: [][]float64{{0, 0, 1}, {0, 1, 0}, {1, 0, 0}},
		},
		LabelMap: map[int]string{0: "low progress", 1: "normal", 2: "advanced"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zap.NewNop())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.PCA = &domain.PCAParams{
		Components:  [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}},
		Mean:        []float64{0, 0, 0, 0},
		NComponents: 3,
		Explained:   0.9,
	}

	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load("v1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got.Manifest.Version != "v1" || got.Manifest.SemanticMode != "mock" {
		t.Errorf("manifest round trip: %+v", got.Manifest)
	}
	if got.Config.Window.BatchSize != 12 || !got.Config.L2Norm {
		t.Errorf("feature config round trip: %+v", got.Config)
	}
	if got.Centers == nil || got.Centers.Dim != 3 || len(got.Centers.Vectors) != 3 {
		t.Fatalf("centers round trip: %+v", got.Centers)
	}
	if got.PCA == nil || got.PCA.NComponents != 3 {
		t.Fatalf("pca round trip: %+v", got.PCA)
	}
	if got.LabelMap[2] != "advanced" {
		t.Errorf("label map round trip: %v", got.LabelMap)
	}
	if len(got.Scaler.FeatureNames) != domain.FeatureDim() {
		t.Errorf("scaler round trip lost columns: %d", len(got.Scaler.FeatureNames))
	}
	if got.Config.Extraction != model.Config.Extraction {
		t.Errorf("extraction params round trip: %+v", got.Config.Extraction)
	}
	if got.Config.Weights != model.Config.Weights {
		t.Errorf("score weights round trip: %+v", got.Config.Weights)
	}
}

// Bundles written before the feature config carried extraction params
// and score weights must fail to load, not silently score to zero.
func TestLoad_RejectsConfigWithoutWeights(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.Config.Weights = domain.ScoreWeights{}
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := s.Load("v1")
	if err == nil || !strings.Contains(err.Error(), FileFeatureConfig) {
		t.Fatalf("err = %v, want a %s diagnostic", err, FileFeatureConfig)
	}
}

func TestLoad_RejectsConfigWithoutExtractionParams(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.Config.Extraction = domain.ExtractionParams{}
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := s.Load("v1"); err == nil {
		t.Fatal("expected error for empty extraction params")
	}
}

func TestSave_ExtraArtifactsRideAlong(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(testModel("v1"), func(dir string) error {
		return os.WriteFile(filepath.Join(dir, "report.json"), []byte("{}"), 0o644)
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir("v1"), "report.json")); err != nil {
		t.Errorf("extra artifact missing after swap: %v", err)
	}
}

func TestSave_RequiresVersion(t *testing.T) {
	s := newTestStore(t)
	model := testModel("")
	if err := s.Save(model, nil); err == nil {
		t.Error("expected error for empty version")
	}
}

func TestLoad_MissingRequiredFileNamesIt(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(testModel("v1"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.Remove(filepath.Join(s.Dir("v1"), FileStructScaler)); err != nil {
		t.Fatalf("remove scaler: %v", err)
	}

	_, err := s.Load("v1")
	if !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("err = %v, want ErrAssetMissing", err)
	}
	if !strings.Contains(err.Error(), FileStructScaler) {
		t.Errorf("error %q does not name the missing file", err)
	}
}

func TestLoad_NoCentersIsServableFallback(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.Centers = nil
	model.LabelMap = nil
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load("v1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Centers != nil || got.LabelMap != nil {
		t.Errorf("expected nil centers and label map, got %+v %v", got.Centers, got.LabelMap)
	}
}

func TestLoad_CentersWithoutLabelMapFails(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.LabelMap = nil
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := s.Load("v1")
	if !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("err = %v, want ErrAssetMissing for label map", err)
	}
	if !strings.Contains(err.Error(), FileLabelMap) {
		t.Errorf("error %q does not name the label map", err)
	}
}

func TestLoad_IncompleteLabelMapFails(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	delete(model.LabelMap, 1)
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := s.Load("v1")
	if err == nil || !strings.Contains(err.Error(), "cluster 1") {
		t.Errorf("err = %v, want missing-entry diagnostic for cluster 1", err)
	}
}

func TestLoad_DimensionMismatchDiagnosed(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.Centers.Vectors[1] = []float64{1, 2}
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := s.Load("v1")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestLoad_SchemaDriftFails(t *testing.T) {
	s := newTestStore(t)
	model := testModel("v1")
	model.Scaler.FeatureNames = model.Scaler.FeatureNames[:domain.FeatureDim()-1]
	model.Scaler.Mean = model.Scaler.Mean[:domain.FeatureDim()-1]
	model.Scaler.Std = model.Scaler.Std[:domain.FeatureDim()-1]
	if err := s.Save(model, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err := s.Load("v1")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch for scaler drift", err)
	}
}

func TestVersions_SkipsTempAndJunk(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(testModel("20250101T000000-aaaa"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(testModel("20250201T000000-bbbb"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Simulate an interrupted write and a stray directory.
	if err := os.MkdirAll(s.Dir("20250301T000000-cccc.tmp"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(s.Dir("notes"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	versions, err := s.Versions()
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	want := []string{"20250101T000000-aaaa", "20250201T000000-bbbb"}
	if len(versions) != len(want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

func TestVersions_EmptyRootIsNotAnError(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	versions, err := s.Versions()
	if err != nil || versions != nil {
		t.Errorf("versions = %v, err = %v, want nil, nil", versions, err)
	}
}
