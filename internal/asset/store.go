// Package asset persists and loads the frozen model bundle: a
// versioned directory of JSON files written atomically at fit time and
// read-only thereafter.
package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/feature"
)

// Bundle file names.
const (
	FileManifest      = "manifest.json"
	FileFeatureConfig = "feature_config.json"
	FileStructScaler  = "struct_scaler.json"
	FileLexicon       = "lexicon_snapshot.json"
	FileLabelMap      = "label_map.json"
	FileCenters       = "cluster_centers.json"
	FilePCA           = "clustering_pca.json"
)

var (
	// ErrAssetMissing marks a required bundle file that is absent.
	ErrAssetMissing = errors.New("required asset missing")
	// ErrDimensionMismatch marks frozen parameters whose shapes
	// disagree with each other or with the compiled feature schema.
	ErrDimensionMismatch = errors.New("asset dimension mismatch")
)

// Store reads and writes versioned bundles under one root directory.
type Store struct {
	root   string
	logger *zap.Logger
}

func NewStore(root string, logger *zap.Logger) *Store {
	return &Store{root: root, logger: logger}
}

// Dir returns the on-disk path of a bundle version.
func (s *Store) Dir(version string) string {
	return filepath.Join(s.root, version)
}

// Save writes a bundle atomically: all files land in a temp directory
// which is then renamed into place, so a concurrent reader never sees
// a half-written bundle. extra, if non-nil, is called with the temp
// directory so training artifacts (report, CSV, plot) ride along in
// the same swap.
func (s *Store) Save(model *domain.ClusterModel, extra func(dir string) error) error {
	version := model.Manifest.Version
	if version == "" {
		return fmt.Errorf("saving bundle: manifest has no version")
	}
	final := s.Dir(version)
	tmp := final + ".tmp"

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating asset root: %w", err)
	}
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clearing temp bundle dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("creating temp bundle dir: %w", err)
	}

	if err := writeJSON(tmp, FileManifest, model.Manifest); err != nil {
		return err
	}
	if err := writeJSON(tmp, FileFeatureConfig, model.Config); err != nil {
		return err
	}
	if err := writeJSON(tmp, FileStructScaler, model.Scaler); err != nil {
		return err
	}
	if err := writeJSON(tmp, FileLexicon, model.Lexicon); err != nil {
		return err
	}
	if len(model.LabelMap) > 0 {
		if err := writeJSON(tmp, FileLabelMap, labelMapToJSON(model.LabelMap)); err != nil {
			return err
		}
	}
	if model.Centers != nil {
		if err := writeJSON(tmp, FileCenters, model.Centers); err != nil {
			return err
		}
	}
	if model.PCA != nil {
		if err := writeJSON(tmp, FilePCA, model.PCA); err != nil {
			return err
		}
	}
	if extra != nil {
		if err := extra(tmp); err != nil {
			return fmt.Errorf("writing bundle artifacts: %w", err)
		}
	}

	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("replacing bundle %s: %w", version, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("swapping bundle %s into place: %w", version, err)
	}
	s.logger.Info("saved asset bundle",
		zap.String("version", version),
		zap.String("dir", final))
	return nil
}

// Load reads one bundle version with strict validation. Required files
// fail loudly naming the file; centers and PCA are legitimately
// optional and load as nil when absent.
func (s *Store) Load(version string) (*domain.ClusterModel, error) {
	dir := s.Dir(version)
	model := &domain.ClusterModel{}

	if err := readJSON(dir, FileManifest, &model.Manifest); err != nil {
		return nil, err
	}
	if err := readJSON(dir, FileFeatureConfig, &model.Config); err != nil {
		return nil, err
	}
	if err := readJSON(dir, FileStructScaler, &model.Scaler); err != nil {
		return nil, err
	}
	if err := readJSON(dir, FileLexicon, &model.Lexicon); err != nil {
		return nil, err
	}
	if err := feature.ValidateScaler(model.Scaler); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDimensionMismatch, FileStructScaler, err)
	}
	if err := validateConfig(model.Config); err != nil {
		return nil, fmt.Errorf("%s: %w", FileFeatureConfig, err)
	}

	var centers domain.Centers
	switch err := readJSON(dir, FileCenters, &centers); {
	case err == nil:
		model.Centers = &centers
	case errors.Is(err, ErrAssetMissing):
		s.logger.Warn("bundle has no cluster centers, serving will use the threshold fallback",
			zap.String("version", version))
	default:
		return nil, err
	}

	var pca domain.PCAParams
	switch err := readJSON(dir, FilePCA, &pca); {
	case err == nil:
		model.PCA = &pca
	case errors.Is(err, ErrAssetMissing):
		// No projection frozen for this bundle.
	default:
		return nil, err
	}

	if model.Centers != nil {
		raw := map[string]string{}
		if err := readJSON(dir, FileLabelMap, &raw); err != nil {
			return nil, err
		}
		labelMap, err := labelMapFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileLabelMap, err)
		}
		model.LabelMap = labelMap
	}

	if err := validateShapes(model); err != nil {
		return nil, err
	}
	return model, nil
}

// Versions lists bundle versions under the root, oldest first by name.
// Temp directories from interrupted writes are skipped.
func (s *Store) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing asset root: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if !e.IsDir() || filepath.Ext(e.Name()) == ".tmp" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), FileManifest)); err != nil {
			continue
		}
		versions = append(versions, e.Name())
	}
	sort.Strings(versions)
	return versions, nil
}

// validateConfig rejects feature configs that cannot reproduce the
// training-time representation. Bundles written before the config
// carried extraction params and score weights fail here rather than
// silently scoring everything at zero.
func validateConfig(cfg domain.FeatureConfig) error {
	if cfg.Window.BatchSize <= 0 {
		return fmt.Errorf("window batch_size %d is not positive", cfg.Window.BatchSize)
	}
	if cfg.Extraction == (domain.ExtractionParams{}) {
		return fmt.Errorf("extraction params are empty")
	}
	if cfg.Extraction.HighDupThresh <= 0 || cfg.Extraction.HighDupThresh >= 1 {
		return fmt.Errorf("extraction high_dup_thresh %v is outside (0, 1)", cfg.Extraction.HighDupThresh)
	}
	if cfg.Weights == (domain.ScoreWeights{}) {
		return fmt.Errorf("score weights are all zero")
	}
	return nil
}

// validateShapes cross-checks the frozen parameter dimensions.
// Mutating one asset without re-fitting the others must never pass
// silently.
func validateShapes(m *domain.ClusterModel) error {
	if m.Centers != nil {
		for i, v := range m.Centers.Vectors {
			if len(v) != m.Centers.Dim {
				return fmt.Errorf("%w: center %d has dim %d, %s declares %d",
					ErrDimensionMismatch, i, len(v), FileCenters, m.Centers.Dim)
			}
		}
		for id := range m.Centers.Vectors {
			if _, ok := m.LabelMap[id]; !ok {
				return fmt.Errorf("%s has no entry for cluster %d", FileLabelMap, id)
			}
		}
	}
	if m.PCA != nil {
		if len(m.PCA.Components) != m.PCA.NComponents {
			return fmt.Errorf("%w: %s has %d component rows, declares %d",
				ErrDimensionMismatch, FilePCA, len(m.PCA.Components), m.PCA.NComponents)
		}
		for i, c := range m.PCA.Components {
			if len(c) != len(m.PCA.Mean) {
				return fmt.Errorf("%w: %s component %d has dim %d, mean has dim %d",
					ErrDimensionMismatch, FilePCA, i, len(c), len(m.PCA.Mean))
			}
		}
		if m.Centers != nil && m.Centers.Dim != m.PCA.NComponents {
			return fmt.Errorf("%w: centers have dim %d but projection outputs %d",
				ErrDimensionMismatch, m.Centers.Dim, m.PCA.NComponents)
		}
	}
	return nil
}

func writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func readJSON(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrAssetMissing, name)
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func labelMapToJSON(m map[int]string) map[string]string {
	out := make(map[string]string, len(m))
	for id, name := range m {
		out[strconv.Itoa(id)] = name
	}
	return out
}

func labelMapFromJSON(raw map[string]string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for key, name := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("cluster id %q is not an integer", key)
		}
		out[id] = name
	}
	return out, nil
}
