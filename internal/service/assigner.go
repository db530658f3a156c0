// Package service hosts the online assignment path: frozen assets in,
// conversation messages in, a progress-state assignment out.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/asset"
	"github.com/edulab-ai/progresscluster/internal/cluster"
	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/feature"
	"github.com/edulab-ai/progresscluster/internal/window"
)

// ErrNoBundle means no loadable asset bundle exists under the root.
var ErrNoBundle = errors.New("no asset bundle available")

// trendWindow and trendBand bound the score-trend heuristic: the
// change across the last trendWindow windows must exceed trendBand to
// leave "stable".
const (
	trendWindow = 3
	trendBand   = 0.5
)

// fallbackConfidenceScale maps distance-from-threshold to confidence
// in the threshold fallback: scores at least this far from the nearest
// threshold are fully confident.
const fallbackConfidenceScale = 0.5

// Assigner classifies conversations against one frozen asset bundle.
// Assets load lazily on first use and are immutable afterwards; each
// Analyze call is a pure function of (messages, frozen assets), so
// concurrent calls need no locking beyond the one-time init.
type Assigner struct {
	assets      *asset.Store
	version     string
	encoder     domain.SemanticEncoder
	assignments domain.AssignmentStore
	logger      *zap.Logger

	initOnce  sync.Once
	initErr   error
	model     *domain.ClusterModel
	extractor *feature.Extractor
}

// NewAssigner wires the assigner. version may be empty to serve the
// newest bundle under the store root. assignments may be nil to skip
// result persistence.
func NewAssigner(assets *asset.Store, version string, encoder domain.SemanticEncoder, assignments domain.AssignmentStore, logger *zap.Logger) *Assigner {
	return &Assigner{
		assets:      assets,
		version:     version,
		encoder:     encoder,
		assignments: assignments,
		logger:      logger,
	}
}

func (a *Assigner) init() error {
	a.initOnce.Do(func() {
		version, model, err := a.loadBundle()
		if err != nil {
			a.initErr = err
			return
		}
		matchers, err := feature.CompileLexicon(model.Lexicon)
		if err != nil {
			a.initErr = fmt.Errorf("compiling frozen lexicon: %w", err)
			return
		}

		a.version = version
		a.model = model
		a.extractor = feature.NewExtractor(matchers, model.Config)
		a.logger.Info("loaded asset bundle",
			zap.String("version", version),
			zap.Bool("has_centers", model.Centers != nil),
			zap.Bool("has_pca", model.PCA != nil))
	})
	return a.initErr
}

// loadBundle resolves the served bundle. A pinned version must load; an
// unpinned assigner walks versions newest first and serves the newest
// one that loads, so a draft bundle awaiting label review never shadows
// an accepted older one.
func (a *Assigner) loadBundle() (string, *domain.ClusterModel, error) {
	if a.version != "" {
		model, err := a.assets.Load(a.version)
		if err != nil {
			return "", nil, fmt.Errorf("loading bundle %s: %w", a.version, err)
		}
		return a.version, model, nil
	}

	versions, err := a.assets.Versions()
	if err != nil {
		return "", nil, err
	}
	for i := len(versions) - 1; i >= 0; i-- {
		model, err := a.assets.Load(versions[i])
		if err != nil {
			a.logger.Warn("skipping unservable bundle",
				zap.String("version", versions[i]),
				zap.Error(err))
			continue
		}
		return versions[i], model, nil
	}
	return "", nil, ErrNoBundle
}

// Model returns the frozen model, loading it on first use.
func (a *Assigner) Model() (*domain.ClusterModel, error) {
	if err := a.init(); err != nil {
		return nil, err
	}
	return a.model, nil
}

// Analyze classifies a conversation. Conversations shorter than one
// full window produce a typed insufficient-data result rather than an
// error; asset problems surface as errors.
func (a *Assigner) Analyze(ctx context.Context, participantID string, messages []domain.Message) (*domain.AssignmentResult, error) {
	if err := a.init(); err != nil {
		return nil, err
	}

	texts := domain.Contents(messages)
	cfg := a.model.Config
	if len(texts) < cfg.Window.BatchSize {
		a.logger.Debug("conversation too short to window",
			zap.String("participant_id", participantID),
			zap.Int("messages", len(texts)),
			zap.Int("batch_size", cfg.Window.BatchSize))
		return domain.InsufficientDataResult(participantID, len(texts)), nil
	}

	windows, err := window.Make(len(texts), cfg.Window.BatchSize, cfg.Window.Overlap)
	if err != nil {
		return nil, fmt.Errorf("building windows: %w", err)
	}
	feats, excerpts := a.extractor.Extract(texts, windows)
	scores := make([]float64, len(feats))
	for i := range feats {
		scores[i] = feats[i].ProgressScore
	}

	var result *domain.AssignmentResult
	var fusedLast []float64
	if a.model.Centers != nil {
		rows, err := a.projectRows(ctx, feats, excerpts)
		if err != nil {
			return nil, err
		}
		fusedLast = rows[len(rows)-1]
		result = a.assignByDistance(participantID, windows, rows, scores)
	} else {
		result = a.assignByThreshold(participantID, windows, scores)
	}
	result.MessageCount = len(texts)
	result.WindowCount = len(windows)
	result.Trend = scoreTrend(scores)
	result.TeachingStrategy = domain.StrategyForLabel(result.ClusterName)

	a.persist(ctx, result, fusedLast)
	return result, nil
}

// projectRows reproduces the training-time representation with the
// frozen parameters: encode, standardize, fuse, normalize, project.
func (a *Assigner) projectRows(ctx context.Context, feats []domain.StructuralFeatures, excerpts []string) ([][]float64, error) {
	sem, err := a.encoder.Encode(ctx, excerpts)
	if err != nil {
		return nil, fmt.Errorf("encoding window excerpts: %w", err)
	}
	structZ, err := feature.ApplyScaler(feats, a.model.Scaler)
	if err != nil {
		return nil, fmt.Errorf("applying frozen scaler: %w", err)
	}
	rows, err := feature.Fuse(sem, structZ, a.model.Config.SemanticWeight, a.model.Config.StructuralWeight)
	if err != nil {
		return nil, fmt.Errorf("fusing feature blocks: %w", err)
	}
	if a.model.Config.L2Norm {
		rows = feature.L2NormalizeRows(rows)
	}
	rows, err = cluster.ApplyPCA(rows, a.model.PCA)
	if err != nil {
		return nil, fmt.Errorf("applying frozen projection: %w", err)
	}
	if a.model.PCA != nil && a.model.Config.L2Norm {
		rows = feature.L2NormalizeRows(rows)
	}
	if dim := len(rows[0]); dim != a.model.Centers.Dim {
		return nil, fmt.Errorf("%w: fused rows have dim %d, frozen centers have dim %d",
			asset.ErrDimensionMismatch, dim, a.model.Centers.Dim)
	}
	return rows, nil
}

// assignByDistance maps the most recent window to its nearest frozen
// center. Distances are keyed by cluster name, never by position.
func (a *Assigner) assignByDistance(participantID string, windows []domain.Window, rows [][]float64, scores []float64) *domain.AssignmentResult {
	labels := make([]domain.WindowLabel, len(rows))
	lastID := -1
	var lastDistances map[string]float64
	for i, row := range rows {
		id, distances := a.nearestCenter(row)
		labels[i] = domain.WindowLabel{
			WindowIndex:   i,
			StartIdx:      windows[i].StartIdx,
			EndIdx:        windows[i].EndIdx,
			Label:         a.model.LabelMap[id],
			ProgressScore: scores[i],
		}
		if i == len(rows)-1 {
			lastID = id
			lastDistances = distances
		}
	}

	name := a.model.LabelMap[lastID]
	d := lastDistances[name]
	return &domain.AssignmentResult{
		ParticipantID:   participantID,
		AnalysisType:    domain.AnalysisDistance,
		ClusterID:       lastID,
		ClusterName:     name,
		Confidence:      1.0 / (1.0 + d*d),
		DistancesByName: lastDistances,
		ProgressScore:   scores[len(scores)-1],
		WindowLabels:    labels,
	}
}

func (a *Assigner) nearestCenter(row []float64) (int, map[string]float64) {
	distances := make(map[string]float64, len(a.model.Centers.Vectors))
	bestID := 0
	bestDist := math.Inf(1)
	for id, center := range a.model.Centers.Vectors {
		var sum float64
		for j := range row {
			diff := row[j] - center[j]
			sum += diff * diff
		}
		d := math.Sqrt(sum)
		distances[a.model.LabelMap[id]] = d
		if d < bestDist {
			bestDist = d
			bestID = id
		}
	}
	return bestID, distances
}

// assignByThreshold buckets the most recent window's progress score
// against the frozen thresholds. Boundary behavior is deterministic:
// a score exactly at High is advanced, exactly at Low is normal.
func (a *Assigner) assignByThreshold(participantID string, windows []domain.Window, scores []float64) *domain.AssignmentResult {
	th := a.model.Config.ScoreThresholds

	labels := make([]domain.WindowLabel, len(scores))
	for i, s := range scores {
		labels[i] = domain.WindowLabel{
			WindowIndex:   i,
			StartIdx:      windows[i].StartIdx,
			EndIdx:        windows[i].EndIdx,
			Label:         bucketLabel(s, th),
			ProgressScore: s,
		}
	}

	last := scores[len(scores)-1]
	name := bucketLabel(last, th)
	id := -1
	for i, ordinal := range domain.OrdinalLabels() {
		if ordinal == name {
			id = i
			break
		}
	}

	nearest := math.Min(math.Abs(last-th.Low), math.Abs(last-th.High))
	confidence := math.Min(nearest/fallbackConfidenceScale, 1.0)

	return &domain.AssignmentResult{
		ParticipantID: participantID,
		AnalysisType:  domain.AnalysisThresholdFallback,
		ClusterID:     id,
		ClusterName:   name,
		Confidence:    confidence,
		ProgressScore: last,
		WindowLabels:  labels,
	}
}

func bucketLabel(score float64, th domain.ScoreThresholds) string {
	switch {
	case score >= th.High:
		return domain.LabelAdvanced
	case score < th.Low:
		return domain.LabelLowProgress
	default:
		return domain.LabelNormal
	}
}

// scoreTrend compares the newest score against the start of the recent
// window of scores.
func scoreTrend(scores []float64) domain.Trend {
	if len(scores) < 2 {
		return domain.TrendStable
	}
	recent := scores
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	delta := recent[len(recent)-1] - recent[0]
	switch {
	case delta > trendBand:
		return domain.TrendImproving
	case delta < -trendBand:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// persist writes the assignment row for offline drift audits. Storage
// failures degrade to a warning; the analysis itself already
// succeeded.
func (a *Assigner) persist(ctx context.Context, result *domain.AssignmentResult, fused []float64) {
	if a.assignments == nil {
		return
	}
	vec := make([]float32, len(fused))
	for i, v := range fused {
		vec[i] = float32(v)
	}
	row := &domain.Assignment{
		ID:            uuid.New(),
		ParticipantID: result.ParticipantID,
		BundleVersion: a.version,
		Result:        result,
		FusedVector:   vec,
	}
	if err := a.assignments.Create(ctx, row); err != nil {
		a.logger.Warn("persisting assignment failed",
			zap.String("participant_id", result.ParticipantID),
			zap.Error(err))
	}
}
