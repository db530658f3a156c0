package domain

import "time"

// Lexicon holds the regex pattern lists for the three cue families.
// A snapshot of the lexicon used at training time is frozen into the
// asset bundle so online matching cannot drift.
type Lexicon struct {
	Done    []string `json:"done"`
	Stuck   []string `json:"stuck"`
	AIWrong []string `json:"ai_wrong"`
}

// WindowConfig describes how conversations are sliced into windows.
type WindowConfig struct {
	BatchSize int `json:"batch_size"`
	Overlap   int `json:"overlap"`
	MaxLines  int `json:"max_lines"`
}

// ScoreThresholds bucket a progress score into the three ordinal
// labels when no cluster centers are available. Scores >= High map to
// advanced, scores < Low to low progress, everything else to normal.
type ScoreThresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// DefaultScoreThresholds returns the expert fallback thresholds used
// when no frozen centers are available.
func DefaultScoreThresholds() ScoreThresholds {
	return ScoreThresholds{Low: -0.5, High: 0.5}
}

// ExtractionParams configure structural extraction. The
// high-duplication gate is a non-linear "clearly stuck" override on
// top of the smoother repetition signals.
type ExtractionParams struct {
	DupLookback     int     `json:"dup_lookback"`
	HighDupThresh   float64 `json:"high_dup_thresh"`
	HighDupWeight   float64 `json:"high_dup_weight"`
	CodeRepeatAlpha float64 `json:"code_repeat_alpha"`
}

// ScoreWeights are the hand-tuned linear weights of the progress
// score. They are configuration, not derived constants; the values
// used at fit time are frozen into the bundle's feature config so
// retraining and serving cannot drift apart.
type ScoreWeights struct {
	DoneHits           float64 `json:"done_hits"`
	CodeChange         float64 `json:"code_change"`
	RepeatSim          float64 `json:"repeat_sim"`
	RepeatEq           float64 `json:"repeat_eq"`
	StuckHits          float64 `json:"stuck_hits"`
	CWPersist          float64 `json:"cw_persist"`
	InRepLine          float64 `json:"in_rep_line"`
	InRepNG4Text       float64 `json:"in_rep_ng4_text"`
	CodeDupMsgInWin    float64 `json:"code_dup_msg_in_win"`
	CodeDupMsgLookback float64 `json:"code_dup_msg_lookback"`
	CodeRepeatPenalty  float64 `json:"code_repeat_penalty"`
	HighDupPenaltyW    float64 `json:"high_dup_penalty_w"`
	AIWrongHits        float64 `json:"ai_wrong_hits"`
}

// Score applies the weights to a feature record.
func (w ScoreWeights) Score(f *StructuralFeatures) float64 {
	return w.DoneHits*f.DoneHits +
		w.CodeChange*f.CodeChange +
		w.RepeatSim*f.RepeatSim +
		w.RepeatEq*f.RepeatEq +
		w.StuckHits*f.StuckHits +
		w.CWPersist*f.CWPersist +
		w.InRepLine*f.InRepLine +
		w.InRepNG4Text*f.InRepNG4Text +
		w.CodeDupMsgInWin*f.CodeDupMsgInWin +
		w.CodeDupMsgLookback*f.CodeDupMsgLookback +
		w.CodeRepeatPenalty*f.CodeRepeatPenalty +
		w.HighDupPenaltyW*f.HighDupPenaltyW +
		w.AIWrongHits*f.AIWrongHits
}

// FeatureConfig is the frozen feature-pipeline configuration: how
// windows are built, how structural extraction and scoring are
// parameterized, how semantic and structural blocks are weighted, and
// whether rows are L2-normalized before clustering. The online path
// rebuilds its extractor from this block alone.
type FeatureConfig struct {
	SemanticWeight   float64          `json:"semantic_weight"`
	StructuralWeight float64          `json:"structural_weight"`
	Window           WindowConfig     `json:"window"`
	Extraction       ExtractionParams `json:"extraction"`
	Weights          ScoreWeights     `json:"score_weights"`
	L2Norm           bool             `json:"l2_norm"`
	ScoreThresholds  ScoreThresholds  `json:"score_thresholds"`
}

// ScalerParams are the per-column standardization parameters fitted on
// the training window set. FeatureNames pins the column order; a
// loaded scaler whose names differ from the compiled schema is a fatal
// mismatch.
type ScalerParams struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Std          []float64 `json:"std"`
}

// PCAParams is the optional frozen projection applied to fused rows
// before clustering. Components is row-major, one component per row.
type PCAParams struct {
	Components  [][]float64 `json:"components"`
	Mean        []float64   `json:"mean"`
	NComponents int         `json:"n_components"`
	Explained   float64     `json:"explained"`
}

// Centers are the frozen cluster centers in the clustering space.
type Centers struct {
	Dim     int         `json:"dim"`
	Vectors [][]float64 `json:"centers"`
}

// Manifest records provenance for an asset bundle.
type Manifest struct {
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	SemanticMode string    `json:"semantic_mode"`
	EmbedModel   string    `json:"embed_model"`
	BuildVersion string    `json:"build_version,omitempty"`
}

// ClusterModel is the full frozen asset set consumed by the online
// assigner. It is created once at fit time and immutable thereafter;
// Centers and PCA may legitimately be nil (threshold fallback and
// no-projection deployments respectively), everything else is
// load-bearing.
type ClusterModel struct {
	Manifest Manifest       `json:"manifest"`
	Config   FeatureConfig  `json:"config"`
	Scaler   ScalerParams   `json:"scaler"`
	Lexicon  Lexicon        `json:"lexicon"`
	Centers  *Centers       `json:"centers,omitempty"`
	PCA      *PCAParams     `json:"pca,omitempty"`
	LabelMap map[int]string `json:"label_map"`
}
