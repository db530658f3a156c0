package domain

// StructuralFeatures is the fixed per-window feature record. Every
// component is in [0,1] except ProgressScore, which is a roughly
// zero-centered heuristic. The vector layout is frozen by
// FeatureSchema; adding or reordering fields requires retraining every
// deployed asset bundle.
type StructuralFeatures struct {
	WindowIndex int `json:"window_index"`
	StartIdx    int `json:"start_idx"`
	EndIdx      int `json:"end_idx"`

	RepeatSim          float64 `json:"repeat_sim"`
	RepeatEq           float64 `json:"repeat_eq"`
	CWPersist          float64 `json:"cw_persist"`
	CodeChange         float64 `json:"code_change"`
	InRepLine          float64 `json:"inrep_line"`
	InRepNG4Text       float64 `json:"inrep_ng4_text"`
	InRepNG4All        float64 `json:"inrep_ng4_all"`
	CodeDupMsgInWin    float64 `json:"code_dup_msg_inwin"`
	CodeDupMsgLookback float64 `json:"code_dup_msg_lookback"`
	CodeRepeatExcess   float64 `json:"code_repeat_excess"`
	CodeRepeatPenalty  float64 `json:"code_repeat_penalty"`
	DupMaxInWin        float64 `json:"dup_max_inwin"`
	HighDupPenalty     float64 `json:"high_dup_penalty"`
	HighDupPenaltyW    float64 `json:"high_dup_penalty_w"`
	HighDupFlag        float64 `json:"high_dup_flag"`
	DoneHits           float64 `json:"done_hits"`
	StuckHits          float64 `json:"stuck_hits"`
	AIWrongHits        float64 `json:"ai_wrong_hits"`
	QDensity           float64 `json:"q_density"`
	CodeLineRate       float64 `json:"code_line_rate"`
	FencedBlocks       float64 `json:"fenced_blocks"`
	ProgressScore      float64 `json:"progress_score"`
}

// featureColumns is the canonical column order for the structural
// block of the fused feature matrix. The frozen scaler is keyed to
// this exact order.
var featureColumns = []string{
	"done_hits",
	"code_change",
	"repeat_sim",
	"repeat_eq",
	"stuck_hits",
	"cw_persist",
	"inrep_line",
	"inrep_ng4_text",
	"code_dup_msg_inwin",
	"code_dup_msg_lookback",
	"inrep_ng4_all",
	"code_repeat_excess",
	"code_repeat_penalty",
	"dup_max_inwin",
	"high_dup_penalty",
	"high_dup_penalty_w",
	"high_dup_flag",
	"ai_wrong_hits",
	"q_density",
	"code_line_rate",
	"fenced_blocks",
	"progress_score",
}

// FeatureSchema returns the ordered structural column names.
func FeatureSchema() []string {
	out := make([]string, len(featureColumns))
	copy(out, featureColumns)
	return out
}

// FeatureDim is the width of the structural feature vector.
func FeatureDim() int { return len(featureColumns) }

// Vector flattens the record into the FeatureSchema column order.
func (f *StructuralFeatures) Vector() []float64 {
	return []float64{
		f.DoneHits,
		f.CodeChange,
		f.RepeatSim,
		f.RepeatEq,
		f.StuckHits,
		f.CWPersist,
		f.InRepLine,
		f.InRepNG4Text,
		f.CodeDupMsgInWin,
		f.CodeDupMsgLookback,
		f.InRepNG4All,
		f.CodeRepeatExcess,
		f.CodeRepeatPenalty,
		f.DupMaxInWin,
		f.HighDupPenalty,
		f.HighDupPenaltyW,
		f.HighDupFlag,
		f.AIWrongHits,
		f.QDensity,
		f.CodeLineRate,
		f.FencedBlocks,
		f.ProgressScore,
	}
}

// Metrics returns the record as a name-keyed map for review exports.
func (f *StructuralFeatures) Metrics() map[string]float64 {
	vec := f.Vector()
	m := make(map[string]float64, len(vec))
	for i, name := range featureColumns {
		m[name] = vec[i]
	}
	return m
}
