package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/asset"
	"github.com/edulab-ai/progresscluster/internal/buildconfig"
	"github.com/edulab-ai/progresscluster/internal/cluster"
	"github.com/edulab-ai/progresscluster/internal/config"
	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/embedding"
	"github.com/edulab-ai/progresscluster/internal/feature"
	"github.com/edulab-ai/progresscluster/internal/store"
)

var (
	corpusFile   string
	acceptLabels bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the clustering model and freeze an asset bundle",
	Long: `train runs the full offline pipeline: window the corpus, extract
structural features, encode window excerpts, fuse, cluster, and write
a versioned asset bundle plus review artifacts.

The bundle's label map is only written when --accept-labels is set;
until then the bundle carries a draft for human review and the serving
API will refuse to load it.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&corpusFile, "corpus", "", "corpus JSON file (overrides config)")
	trainCmd.Flags().BoolVar(&acceptLabels, "accept-labels", false, "freeze the drafted label map into the bundle")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadTrainingConfig(cfgFile)
	if err != nil {
		return err
	}
	if corpusFile != "" {
		cfg.Corpus.File = corpusFile
	}

	ctx := cmd.Context()
	texts, err := loadCorpus(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d corpus messages\n", len(texts))

	encoder, err := buildEncoder(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := encoder.(*embedding.CachedEncoder); ok {
		defer func() { _ = closer.Close() }()
	}

	trainer, err := cluster.NewTrainer(encoder, feature.DefaultLexicon(), logger)
	if err != nil {
		return err
	}

	opts := cfg.TrainOptions()
	bar := progressbar.NewOptions(opts.NInit,
		progressbar.OptionSetDescription("k-means restarts"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
	opts.OnRestart = func(done int) { _ = bar.Set(done) }

	res, err := trainer.Train(ctx, texts, opts)
	if err != nil {
		return err
	}

	version := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
	model := &domain.ClusterModel{
		Manifest: domain.Manifest{
			Version:      version,
			CreatedAt:    time.Now().UTC(),
			SemanticMode: encoder.Mode(),
			EmbedModel:   encoder.Model(),
			BuildVersion: buildconfig.Version(),
		},
		Config:  res.Config,
		Scaler:  res.Scaler,
		Lexicon: res.Lexicon,
		Centers: res.Centers,
		PCA:     res.PCA,
	}
	if acceptLabels {
		model.LabelMap = res.LabelDraft
	}

	assetStore := asset.NewStore(cfg.Output.AssetDir, logger)
	err = assetStore.Save(model, func(dir string) error {
		if err := asset.WriteArtifacts(dir, res); err != nil {
			return err
		}
		if cfg.Output.Plot == nil || *cfg.Output.Plot {
			return cluster.SavePlot2D(res, res.LabelDraft, filepath.Join(dir, asset.FilePlot))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Bundle %s written to %s\n", version, assetStore.Dir(version))
	fmt.Printf("Silhouette %.4f, inertia %.4f\n", res.Silhouette.Overall, res.Inertia)
	for cid, name := range res.LabelDraft {
		fmt.Printf("  cluster %d: %-12s size=%d mean_progress=%.3f\n",
			cid, name, res.ClusterSizes[cid], res.MeanProgress[cid])
	}
	if !acceptLabels {
		fmt.Println("Label map is a draft; review cluster_report.json and re-run with --accept-labels to freeze it.")
	}
	return nil
}

// loadCorpus reads message texts from a JSON file or, when a database
// URL is configured, from the Postgres corpus in session order.
func loadCorpus(ctx context.Context, cfg *config.TrainingConfig) ([]string, error) {
	if cfg.Corpus.File != "" {
		return loadCorpusFile(cfg.Corpus.File, cfg.Corpus.UserOnly)
	}
	if cfg.Corpus.DatabaseURL != "" {
		return loadCorpusDB(ctx, cfg.Corpus.DatabaseURL, cfg.Corpus.UserOnly)
	}
	return nil, fmt.Errorf("no corpus configured: set corpus.file or corpus.database_url")
}

func loadCorpusFile(path string, userOnly bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	// Either a plain array of strings or an array of role/content
	// message objects.
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}
	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	if userOnly {
		return domain.UserContents(msgs), nil
	}
	return domain.Contents(msgs), nil
}

func loadCorpusDB(ctx context.Context, dbURL string, userOnly bool) ([]string, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to corpus database: %w", err)
	}
	defer pool.Close()

	conversations := store.NewConversationStore(pool)
	sessions, err := conversations.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var texts []string
	for _, id := range sessions {
		msgs, err := conversations.GetMessages(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", id, err)
		}
		if userOnly {
			texts = append(texts, domain.UserContents(msgs)...)
		} else {
			texts = append(texts, domain.Contents(msgs)...)
		}
	}
	return texts, nil
}

// buildEncoder constructs the semantic backend, wrapping it with the
// on-disk cache so re-runs skip unchanged windows.
func buildEncoder(cfg *config.TrainingConfig, logger *zap.Logger) (domain.SemanticEncoder, error) {
	apiKey := ""
	if cfg.Embedding.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	}
	encoder, err := embedding.NewEncoder(cfg.Embedding.Provider, apiKey, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.CachePath == "" {
		return encoder, nil
	}
	cached, err := embedding.NewCachedEncoder(encoder, cfg.Embedding.CachePath)
	if err != nil {
		logger.Warn("embedding cache unavailable, encoding without it",
			zap.String("path", cfg.Embedding.CachePath),
			zap.Error(err))
		return encoder, nil
	}
	return cached, nil
}
