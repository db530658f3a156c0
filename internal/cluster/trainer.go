package cluster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/feature"
	"github.com/edulab-ai/progresscluster/internal/window"
)

// Training defaults. Restart and iteration counts follow the tuned
// offline job; the silhouette sampler uses its own seed so resizing
// the sample does not perturb the k-means restart stream.
const (
	DefaultK                = 3
	DefaultNInit            = 100
	DefaultMaxIter          = 800
	DefaultSeed             = 23
	DefaultSilhouetteSeed   = 42
	DefaultTopKNeighbors    = 12
	DefaultSilhouetteSample = 0
)

// TrainOptions configure one offline training run. Zero values fall
// back to the tuned defaults; PCADim and PCAVar are mutually exclusive
// and both zero means no projection.
type TrainOptions struct {
	K       int
	NInit   int
	MaxIter int
	Seed    int64

	Window           domain.WindowConfig
	Extraction       domain.ExtractionParams
	Weights          domain.ScoreWeights
	SemanticWeight   float64
	StructuralWeight float64
	L2Norm           bool
	Thresholds       domain.ScoreThresholds

	PCADim int
	PCAVar float64

	SilhouetteSample int
	TopKNeighbors    int

	// OnRestart, if non-nil, is called after each completed k-means
	// restart so the CLI can drive a progress bar.
	OnRestart func(done int)
}

// DefaultTrainOptions returns the tuned offline-run configuration.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		K:       DefaultK,
		NInit:   DefaultNInit,
		MaxIter: DefaultMaxIter,
		Seed:    DefaultSeed,
		Window: domain.WindowConfig{
			BatchSize: window.DefaultBatchSize,
			Overlap:   window.DefaultOverlap,
			MaxLines:  feature.DefaultMaxLines,
		},
		Extraction:       feature.DefaultParams(),
		Weights:          feature.DefaultScoreWeights(),
		SemanticWeight:   feature.DefaultSemanticWeight,
		StructuralWeight: feature.DefaultStructuralWeight,
		L2Norm:           true,
		Thresholds:       domain.DefaultScoreThresholds(),
		SilhouetteSample: DefaultSilhouetteSample,
		TopKNeighbors:    DefaultTopKNeighbors,
	}
}

// TrainResult is everything one training run produces: the frozen
// model parameters plus the diagnostics and review artifacts that back
// the human label-review step.
type TrainResult struct {
	Config  domain.FeatureConfig
	Scaler  domain.ScalerParams
	Lexicon domain.Lexicon
	Centers *domain.Centers
	PCA     *domain.PCAParams

	// LabelDraft is the progress-ranked cluster naming. It stays a
	// draft until an operator accepts it into the bundle's label map.
	LabelDraft map[int]string

	Windows      []domain.Window
	Labels       []int
	Scores       []float64
	SimsToCenter []float64
	Rows         [][]float64

	Silhouette   *Silhouette
	Inertia      float64
	ClusterSizes map[int]int
	MeanProgress map[int]float64
	Review       map[int]*ClusterReview
}

// Trainer runs the offline pipeline end to end: windows, structural
// features, semantic encoding, fusion, optional projection, k-means,
// and the review/naming outputs.
type Trainer struct {
	encoder  domain.SemanticEncoder
	matchers *feature.Matchers
	lexicon  domain.Lexicon
	logger   *zap.Logger
}

// NewTrainer compiles the lexicon and wires the pipeline stages. The
// extractor itself is built per run from the run's options, so the
// frozen feature config is the only parameter source.
func NewTrainer(encoder domain.SemanticEncoder, lexicon domain.Lexicon, logger *zap.Logger) (*Trainer, error) {
	matchers, err := feature.CompileLexicon(lexicon)
	if err != nil {
		return nil, fmt.Errorf("compiling lexicon: %w", err)
	}
	return &Trainer{
		encoder:  encoder,
		matchers: matchers,
		lexicon:  lexicon,
		logger:   logger,
	}, nil
}

// Train fits the full model on an ordered message-text corpus.
func (t *Trainer) Train(ctx context.Context, texts []string, opts TrainOptions) (*TrainResult, error) {
	opts = withDefaults(opts)
	if len(texts) == 0 {
		return nil, fmt.Errorf("train: empty corpus")
	}

	windows, err := window.Make(len(texts), opts.Window.BatchSize, opts.Window.Overlap)
	if err != nil {
		return nil, fmt.Errorf("building windows: %w", err)
	}
	if len(windows) < opts.K {
		return nil, fmt.Errorf("train: %d windows cannot support k=%d", len(windows), opts.K)
	}

	cfg := domain.FeatureConfig{
		SemanticWeight:   opts.SemanticWeight,
		StructuralWeight: opts.StructuralWeight,
		Window:           opts.Window,
		Extraction:       opts.Extraction,
		Weights:          opts.Weights,
		L2Norm:           opts.L2Norm,
		ScoreThresholds:  opts.Thresholds,
	}
	extractor := feature.NewExtractor(t.matchers, cfg)

	feats, excerpts := extractor.Extract(texts, windows)
	t.logger.Info("extracted structural features",
		zap.Int("windows", len(windows)),
		zap.Int("feature_dim", domain.FeatureDim()))

	sem, err := t.encoder.Encode(ctx, excerpts)
	if err != nil {
		return nil, fmt.Errorf("encoding window excerpts: %w", err)
	}

	scaler := feature.FitScaler(feats)
	structZ, err := feature.ApplyScaler(feats, scaler)
	if err != nil {
		return nil, fmt.Errorf("standardizing structural features: %w", err)
	}
	fused, err := feature.Fuse(sem, structZ, opts.SemanticWeight, opts.StructuralWeight)
	if err != nil {
		return nil, fmt.Errorf("fusing feature blocks: %w", err)
	}

	rows := fused
	if opts.L2Norm {
		rows = feature.L2NormalizeRows(rows)
	}
	var pca *domain.PCAParams
	if opts.PCADim > 0 || opts.PCAVar > 0 {
		rows, pca, err = FitPCA(rows, opts.PCADim, opts.PCAVar)
		if err != nil {
			return nil, fmt.Errorf("fitting projection: %w", err)
		}
		if opts.L2Norm {
			rows = feature.L2NormalizeRows(rows)
		}
		t.logger.Info("fitted projection",
			zap.Int("components", pca.NComponents),
			zap.Float64("explained", pca.Explained))
	}

	km, err := KMeans(rows, opts.K, opts.NInit, opts.MaxIter, opts.Seed, opts.OnRestart)
	if err != nil {
		return nil, fmt.Errorf("running k-means: %w", err)
	}

	scores := make([]float64, len(feats))
	for i := range feats {
		scores[i] = feats[i].ProgressScore
	}

	// Frozen centers are per-cluster means in the clustering space,
	// not the final Lloyd centers, so serving distances match the
	// review geometry.
	meanCenters := MeanCenters(rows, km.Labels, opts.K)
	sims := make([]float64, len(rows))
	for i, row := range rows {
		sims[i] = 1.0 / (1.0 + squaredDistance(row, meanCenters[km.Labels[i]]))
	}

	means := MeanProgressByCluster(km.Labels, scores)
	sizes := make(map[int]int, opts.K)
	for _, c := range km.Labels {
		sizes[c]++
	}

	sil := ComputeSilhouette(rows, km.Labels, opts.SilhouetteSample, DefaultSilhouetteSeed)
	review := BuildReview(texts, windows, rows, km.Labels, feats, means, opts.TopKNeighbors)

	t.logger.Info("training complete",
		zap.Float64("inertia", km.Inertia),
		zap.Float64("silhouette", sil.Overall),
		zap.Any("cluster_sizes", sizes))

	dim := 0
	if len(meanCenters) > 0 {
		dim = len(meanCenters[0])
	}
	return &TrainResult{
		Config:       cfg,
		Scaler:       scaler,
		Lexicon:      t.lexicon,
		Centers:      &domain.Centers{Dim: dim, Vectors: meanCenters},
		PCA:          pca,
		LabelDraft:   NameByProgress(means),
		Windows:      windows,
		Labels:       km.Labels,
		Scores:       scores,
		SimsToCenter: sims,
		Rows:         rows,
		Silhouette:   sil,
		Inertia:      km.Inertia,
		ClusterSizes: sizes,
		MeanProgress: means,
		Review:       review,
	}, nil
}

func withDefaults(opts TrainOptions) TrainOptions {
	def := DefaultTrainOptions()
	if opts.K <= 0 {
		opts.K = def.K
	}
	if opts.NInit <= 0 {
		opts.NInit = def.NInit
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}
	if opts.Seed == 0 {
		opts.Seed = def.Seed
	}
	if opts.Window.BatchSize <= 0 {
		opts.Window = def.Window
	}
	if opts.Extraction == (domain.ExtractionParams{}) {
		opts.Extraction = def.Extraction
	}
	if opts.Weights == (domain.ScoreWeights{}) {
		opts.Weights = def.Weights
	}
	if opts.SemanticWeight == 0 && opts.StructuralWeight == 0 {
		opts.SemanticWeight = def.SemanticWeight
		opts.StructuralWeight = def.StructuralWeight
	}
	if opts.Thresholds == (domain.ScoreThresholds{}) {
		opts.Thresholds = def.Thresholds
	}
	if opts.TopKNeighbors <= 0 {
		opts.TopKNeighbors = def.TopKNeighbors
	}
	return opts
}
