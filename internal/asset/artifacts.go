package asset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/edulab-ai/progresscluster/internal/cluster"
)

// Artifact file names. These are training outputs for human review,
// not load-bearing serving assets.
const (
	FileReport     = "cluster_report.json"
	FileLabelDraft = "label_map_draft.json"
	FileLabelsCSV  = "labels.csv"
	FilePlot       = "clusters_2d.png"
)

// Report is the audit document written next to the frozen assets.
type Report struct {
	Inertia      float64                        `json:"inertia"`
	Silhouette   *cluster.Silhouette            `json:"silhouette"`
	ClusterSizes map[int]int                    `json:"cluster_sizes"`
	MeanProgress map[int]float64                `json:"mean_progress"`
	LabelDraft   map[int]string                 `json:"label_map_draft"`
	Review       map[int]*cluster.ClusterReview `json:"review"`
}

// WriteArtifacts writes the review report, the label-map draft, and
// the per-window labels CSV into a bundle directory.
func WriteArtifacts(dir string, res *cluster.TrainResult) error {
	report := Report{
		Inertia:      res.Inertia,
		Silhouette:   res.Silhouette,
		ClusterSizes: res.ClusterSizes,
		MeanProgress: res.MeanProgress,
		LabelDraft:   res.LabelDraft,
		Review:       res.Review,
	}
	if err := writeJSON(dir, FileReport, report); err != nil {
		return err
	}
	if err := writeJSON(dir, FileLabelDraft, labelMapToJSON(res.LabelDraft)); err != nil {
		return err
	}
	return writeLabelsCSV(dir, res)
}

// writeLabelsCSV exports one row per window: covered message range,
// cluster assignment, similarity to the cluster center, and the raw
// progress score.
func writeLabelsCSV(dir string, res *cluster.TrainResult) error {
	f, err := os.Create(filepath.Join(dir, FileLabelsCSV))
	if err != nil {
		return fmt.Errorf("writing %s: %w", FileLabelsCSV, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"window", "start_idx", "end_idx", "cluster", "name", "sim_to_center", "progress_score"}); err != nil {
		return fmt.Errorf("writing %s header: %w", FileLabelsCSV, err)
	}
	for i, win := range res.Windows {
		cid := res.Labels[i]
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(win.StartIdx),
			strconv.Itoa(win.EndIdx),
			strconv.Itoa(cid),
			res.LabelDraft[cid],
			strconv.FormatFloat(res.SimsToCenter[i], 'f', 6, 64),
			strconv.FormatFloat(res.Scores[i], 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", FileLabelsCSV, i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", FileLabelsCSV, err)
	}
	return nil
}
