package cluster

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/embedding"
	"github.com/edulab-ai/progresscluster/internal/feature"
)

// trainerCorpus builds an ordered message stream with three distinct
// phases so the structural features actually spread out: a stuck phase
// repeating the same error, a working phase with varied questions, and
// a finishing phase full of completion cues.
func trainerCorpus() []string {
	var texts []string
	for i := 0; i < 16; i++ {
		texts = append(texts, "still not working, same error again\n```go\nfmt.Println(x)\n```")
	}
	for i := 0; i < 16; i++ {
		texts = append(texts, fmt.Sprintf("how does variant %d of this loop behave?\n```go\nfor i := 0; i < %d; i++ {}\n```", i, i))
	}
	for i := 0; i < 16; i++ {
		texts = append(texts, fmt.Sprintf("it works now, got it, moving on to part %d\n```go\nreturn result%d\n```", i, i))
	}
	return texts
}

func newTestTrainer(t *testing.T) *Trainer {
	t.Helper()
	tr, err := NewTrainer(embedding.NewMockEncoder(8), feature.DefaultLexicon(), zap.NewNop())
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	return tr
}

func TestTrain_EndToEnd(t *testing.T) {
	tr := newTestTrainer(t)
	opts := DefaultTrainOptions()
	opts.NInit = 10

	res, err := tr.Train(context.Background(), trainerCorpus(), opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if len(res.Windows) < opts.K {
		t.Fatalf("only %d windows", len(res.Windows))
	}
	if len(res.Labels) != len(res.Windows) || len(res.Scores) != len(res.Windows) {
		t.Fatalf("labels/scores length mismatch: %d/%d windows %d",
			len(res.Labels), len(res.Scores), len(res.Windows))
	}
	if res.Centers == nil || len(res.Centers.Vectors) != opts.K {
		t.Fatalf("expected %d frozen centers", opts.K)
	}
	if res.Centers.Dim != len(res.Rows[0]) {
		t.Errorf("center dim %d does not match row width %d", res.Centers.Dim, len(res.Rows[0]))
	}
	if len(res.LabelDraft) != opts.K {
		t.Errorf("label draft covers %d clusters, want %d", len(res.LabelDraft), opts.K)
	}
	if len(res.Review) != opts.K {
		t.Errorf("review covers %d clusters, want %d", len(res.Review), opts.K)
	}

	total := 0
	for _, n := range res.ClusterSizes {
		total += n
	}
	if total != len(res.Windows) {
		t.Errorf("cluster sizes sum to %d, want %d", total, len(res.Windows))
	}
	for i, s := range res.SimsToCenter {
		if s <= 0 || s > 1 {
			t.Fatalf("sim_to_center[%d] = %f outside (0,1]", i, s)
		}
	}
	if res.Scaler.FeatureNames[0] != domain.FeatureSchema()[0] {
		t.Errorf("scaler columns do not follow the feature schema")
	}
}

func TestTrain_Deterministic(t *testing.T) {
	tr := newTestTrainer(t)
	opts := DefaultTrainOptions()
	opts.NInit = 5

	a, err := tr.Train(context.Background(), trainerCorpus(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := tr.Train(context.Background(), trainerCorpus(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if a.Inertia != b.Inertia {
		t.Errorf("inertia differs: %f vs %f", a.Inertia, b.Inertia)
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("labels diverge at window %d", i)
		}
	}
	for c, name := range a.LabelDraft {
		if b.LabelDraft[c] != name {
			t.Errorf("label draft differs for cluster %d: %q vs %q", c, name, b.LabelDraft[c])
		}
	}
}

func TestTrain_WithProjection(t *testing.T) {
	tr := newTestTrainer(t)
	opts := DefaultTrainOptions()
	opts.NInit = 5
	opts.PCADim = 4

	res, err := tr.Train(context.Background(), trainerCorpus(), opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if res.PCA == nil || res.PCA.NComponents != 4 {
		t.Fatal("expected a frozen 4-component projection")
	}
	if len(res.Rows[0]) != 4 || res.Centers.Dim != 4 {
		t.Errorf("rows width %d, center dim %d, want 4", len(res.Rows[0]), res.Centers.Dim)
	}
}

// recordingEncoder captures what the pipeline actually sends to the
// semantic backend.
type recordingEncoder struct {
	domain.SemanticEncoder
	excerpts []string
}

func (r *recordingEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	r.excerpts = append(r.excerpts, texts...)
	return r.SemanticEncoder.Encode(ctx, texts)
}

// A run's window max_lines must bound the excerpts handed to the
// encoder; with max_lines=1 no excerpt may join multiple messages.
func TestTrain_MaxLinesBoundsEncoderExcerpts(t *testing.T) {
	rec := &recordingEncoder{SemanticEncoder: embedding.NewMockEncoder(8)}
	tr, err := NewTrainer(rec, feature.DefaultLexicon(), zap.NewNop())
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	opts := DefaultTrainOptions()
	opts.NInit = 2
	opts.Window.MaxLines = 1

	if _, err := tr.Train(context.Background(), trainerCorpus(), opts); err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(rec.excerpts) == 0 {
		t.Fatal("encoder saw no excerpts")
	}
	for i, x := range rec.excerpts {
		if strings.Contains(x, "\n---\n") {
			t.Errorf("excerpt %d joins multiple messages despite max_lines=1: %q", i, x)
		}
	}
}

// The result's frozen config must carry the exact extraction params and
// score weights the run used, so serving rebuilds the same extractor.
func TestTrain_FreezesExtractionAndWeights(t *testing.T) {
	tr := newTestTrainer(t)
	opts := DefaultTrainOptions()
	opts.NInit = 2
	opts.Extraction.DupLookback = 5
	opts.Weights = domain.ScoreWeights{DoneHits: 1.0, StuckHits: -1.0}

	res, err := tr.Train(context.Background(), trainerCorpus(), opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if res.Config.Extraction != opts.Extraction {
		t.Errorf("frozen extraction %+v, want %+v", res.Config.Extraction, opts.Extraction)
	}
	if res.Config.Weights != opts.Weights {
		t.Errorf("frozen weights %+v, want %+v", res.Config.Weights, opts.Weights)
	}
}

func TestTrain_RejectsThinCorpora(t *testing.T) {
	tr := newTestTrainer(t)
	opts := DefaultTrainOptions()
	opts.NInit = 2

	if _, err := tr.Train(context.Background(), nil, opts); err == nil {
		t.Error("expected error for empty corpus")
	}
	// 14 messages make two windows, below k=3.
	short := trainerCorpus()[:14]
	if _, err := tr.Train(context.Background(), short, opts); err == nil {
		t.Error("expected error when windows < k")
	}
}
