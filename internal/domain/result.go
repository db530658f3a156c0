package domain

// Canonical cluster labels, ordered by mean progress score ascending.
const (
	LabelLowProgress = "low progress"
	LabelNormal      = "normal"
	LabelAdvanced    = "advanced"
)

// OrdinalLabels returns the three labels in ascending progress order.
func OrdinalLabels() []string {
	return []string{LabelLowProgress, LabelNormal, LabelAdvanced}
}

// AnalysisType identifies which path produced an AssignmentResult.
type AnalysisType string

const (
	AnalysisDistance          AnalysisType = "distance"
	AnalysisThresholdFallback AnalysisType = "threshold_fallback"
	AnalysisInsufficientData  AnalysisType = "insufficient_data"
)

// Trend summarizes the direction of recent per-window progress scores.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// WindowLabel is one entry of the per-window label sequence retained
// for trend analysis.
type WindowLabel struct {
	WindowIndex   int     `json:"window_index"`
	StartIdx      int     `json:"start_idx"`
	EndIdx        int     `json:"end_idx"`
	Label         string  `json:"label"`
	ProgressScore float64 `json:"progress_score"`
}

// AssignmentResult is the per-analysis output. Only the most recent
// window determines the current state; WindowLabels keeps the full
// sequence. The caller decides whether to persist it.
type AssignmentResult struct {
	ParticipantID    string             `json:"participant_id"`
	AnalysisType     AnalysisType       `json:"analysis_type"`
	ClusterID        int                `json:"cluster_id"`
	ClusterName      string             `json:"cluster_name"`
	Confidence       float64            `json:"confidence"`
	DistancesByName  map[string]float64 `json:"distances_by_name,omitempty"`
	ProgressScore    float64            `json:"progress_score"`
	WindowCount      int                `json:"window_count"`
	MessageCount     int                `json:"message_count"`
	WindowLabels     []WindowLabel      `json:"window_labels,omitempty"`
	Trend            Trend              `json:"trend"`
	TeachingStrategy string             `json:"teaching_strategy"`
}

// strategyByLabel maps a resolved cluster label to the teaching
// strategy vocabulary consumed by the external prompt generator.
var strategyByLabel = map[string]string{
	LabelLowProgress: "provide_foundation",
	LabelNormal:      "maintain_pace",
	LabelAdvanced:    "increase_challenge",
}

// StrategyForLabel returns the teaching strategy for a cluster label,
// or "adaptive_response" for anything unrecognized.
func StrategyForLabel(label string) string {
	if s, ok := strategyByLabel[label]; ok {
		return s
	}
	return "adaptive_response"
}

// InsufficientDataResult is the typed degraded result returned when a
// conversation is too short to window, or assets are unavailable.
func InsufficientDataResult(participantID string, messageCount int) *AssignmentResult {
	return &AssignmentResult{
		ParticipantID:    participantID,
		AnalysisType:     AnalysisInsufficientData,
		ClusterID:        -1,
		ClusterName:      "",
		Confidence:       0,
		MessageCount:     messageCount,
		Trend:            TrendStable,
		TeachingStrategy: "collect_more_data",
	}
}
