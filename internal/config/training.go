package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edulab-ai/progresscluster/internal/cluster"
	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/feature"
	"github.com/edulab-ai/progresscluster/internal/window"
)

// TrainingConfig is the YAML configuration for one offline training
// run. Every field has a tuned default; a run with no config file is
// valid.
type TrainingConfig struct {
	Corpus     CorpusConfig       `yaml:"corpus"`
	Window     WindowYAML         `yaml:"window"`
	Extraction ExtractionYAML     `yaml:"extraction"`
	Fusion     FusionYAML         `yaml:"fusion"`
	PCA        PCAYAML            `yaml:"pca"`
	KMeans     KMeansYAML         `yaml:"kmeans"`
	Embedding  EmbeddingYAML      `yaml:"embedding"`
	Output     OutputYAML         `yaml:"output"`
	Fallback   ScoreThresholdYAML `yaml:"score_thresholds"`
}

// CorpusConfig selects the training input: a JSON file of message
// texts, or the Postgres corpus when a database URL is set.
type CorpusConfig struct {
	File        string `yaml:"file"`
	DatabaseURL string `yaml:"database_url"`
	UserOnly    bool   `yaml:"user_only"`
}

type WindowYAML struct {
	BatchSize int `yaml:"batch_size"`
	Overlap   int `yaml:"overlap"`
	MaxLines  int `yaml:"max_lines"`
}

type ExtractionYAML struct {
	DupLookback     int     `yaml:"dup_lookback"`
	HighDupThresh   float64 `yaml:"high_dup_thresh"`
	HighDupWeight   float64 `yaml:"high_dup_weight"`
	CodeRepeatAlpha float64 `yaml:"code_repeat_alpha"`
}

type FusionYAML struct {
	SemanticWeight   float64 `yaml:"semantic_weight"`
	StructuralWeight float64 `yaml:"structural_weight"`
	L2Norm           *bool   `yaml:"l2_norm"`
}

type PCAYAML struct {
	Dim          int     `yaml:"dim"`
	VarThreshold float64 `yaml:"var_threshold"`
}

type KMeansYAML struct {
	K                int   `yaml:"k"`
	NInit            int   `yaml:"n_init"`
	MaxIter          int   `yaml:"max_iter"`
	Seed             int64 `yaml:"seed"`
	SilhouetteSample int   `yaml:"silhouette_sample"`
	TopKNeighbors    int   `yaml:"topk_neighbors"`
}

type EmbeddingYAML struct {
	Provider  string `yaml:"provider"`
	APIKeyEnv string `yaml:"api_key_env"`
	CachePath string `yaml:"cache_path"`
}

type OutputYAML struct {
	AssetDir string `yaml:"asset_dir"`
	Plot     *bool  `yaml:"plot"`
}

type ScoreThresholdYAML struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// DefaultTrainingConfig returns the tuned defaults.
func DefaultTrainingConfig() *TrainingConfig {
	l2 := true
	plot := true
	th := domain.DefaultScoreThresholds()
	return &TrainingConfig{
		Window: WindowYAML{
			BatchSize: window.DefaultBatchSize,
			Overlap:   window.DefaultOverlap,
			MaxLines:  feature.DefaultMaxLines,
		},
		Extraction: ExtractionYAML{
			DupLookback:     feature.DefaultDupLookback,
			HighDupThresh:   feature.DefaultHighDupThresh,
			HighDupWeight:   feature.DefaultHighDupWeight,
			CodeRepeatAlpha: feature.DefaultCodeRepeatAlpha,
		},
		Fusion: FusionYAML{
			SemanticWeight:   feature.DefaultSemanticWeight,
			StructuralWeight: feature.DefaultStructuralWeight,
			L2Norm:           &l2,
		},
		KMeans: KMeansYAML{
			K:             cluster.DefaultK,
			NInit:         cluster.DefaultNInit,
			MaxIter:       cluster.DefaultMaxIter,
			Seed:          cluster.DefaultSeed,
			TopKNeighbors: cluster.DefaultTopKNeighbors,
		},
		Embedding: EmbeddingYAML{
			Provider:  "hash",
			APIKeyEnv: "OPENAI_API_KEY",
			CachePath: "embed_cache.db",
		},
		Output:   OutputYAML{AssetDir: "assets", Plot: &plot},
		Fallback: ScoreThresholdYAML{Low: th.Low, High: th.High},
	}
}

// LoadTrainingConfig reads a YAML file over the defaults. A missing
// file returns the defaults; a malformed one is an error.
func LoadTrainingConfig(path string) (*TrainingConfig, error) {
	cfg := DefaultTrainingConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading training config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing training config %s: %w", path, err)
	}
	return cfg, nil
}

// TrainOptions converts the YAML configuration into trainer options.
func (c *TrainingConfig) TrainOptions() cluster.TrainOptions {
	opts := cluster.DefaultTrainOptions()
	opts.K = c.KMeans.K
	opts.NInit = c.KMeans.NInit
	opts.MaxIter = c.KMeans.MaxIter
	opts.Seed = c.KMeans.Seed
	opts.SilhouetteSample = c.KMeans.SilhouetteSample
	opts.TopKNeighbors = c.KMeans.TopKNeighbors
	opts.Window = domain.WindowConfig{
		BatchSize: c.Window.BatchSize,
		Overlap:   c.Window.Overlap,
		MaxLines:  c.Window.MaxLines,
	}
	opts.Extraction = domain.ExtractionParams{
		DupLookback:     c.Extraction.DupLookback,
		HighDupThresh:   c.Extraction.HighDupThresh,
		HighDupWeight:   c.Extraction.HighDupWeight,
		CodeRepeatAlpha: c.Extraction.CodeRepeatAlpha,
	}
	opts.SemanticWeight = c.Fusion.SemanticWeight
	opts.StructuralWeight = c.Fusion.StructuralWeight
	if c.Fusion.L2Norm != nil {
		opts.L2Norm = *c.Fusion.L2Norm
	}
	opts.PCADim = c.PCA.Dim
	opts.PCAVar = c.PCA.VarThreshold
	opts.Thresholds = domain.ScoreThresholds{Low: c.Fallback.Low, High: c.Fallback.High}
	return opts
}
