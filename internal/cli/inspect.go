package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edulab-ai/progresscluster/internal/asset"
	"github.com/edulab-ai/progresscluster/internal/config"
)

var inspectAssetDir string

var inspectCmd = &cobra.Command{
	Use:   "inspect [version]",
	Short: "Show the contents of an asset bundle",
	Long: `inspect lists bundle versions, or prints the frozen parameters of
one version: manifest, window config, fusion weights, cluster labels.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectAssetDir, "assets", "", "asset root directory (default from training config)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()

	dir := inspectAssetDir
	if dir == "" {
		cfg, err := config.LoadTrainingConfig(cfgFile)
		if err != nil {
			return err
		}
		dir = cfg.Output.AssetDir
	}
	store := asset.NewStore(dir, logger)

	if len(args) == 0 {
		versions, err := store.Versions()
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No bundles found.")
			return nil
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	}

	model, err := store.Load(args[0])
	if err != nil {
		return err
	}

	m := model.Manifest
	fmt.Printf("Version:       %s\n", m.Version)
	fmt.Printf("Created:       %s\n", m.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("Semantic mode: %s", m.SemanticMode)
	if m.EmbedModel != "" {
		fmt.Printf(" (%s)", m.EmbedModel)
	}
	fmt.Println()
	if m.BuildVersion != "" {
		fmt.Printf("Built with:    %s\n", m.BuildVersion)
	}

	cfg := model.Config
	fmt.Printf("Window:        batch=%d overlap=%d max_lines=%d\n",
		cfg.Window.BatchSize, cfg.Window.Overlap, cfg.Window.MaxLines)
	fmt.Printf("Fusion:        semantic=%.2f structural=%.2f l2_norm=%v\n",
		cfg.SemanticWeight, cfg.StructuralWeight, cfg.L2Norm)
	fmt.Printf("Thresholds:    low=%.2f high=%.2f\n",
		cfg.ScoreThresholds.Low, cfg.ScoreThresholds.High)
	fmt.Printf("Features:      %d columns\n", len(model.Scaler.FeatureNames))

	if model.PCA != nil {
		fmt.Printf("Projection:    %d components (%.1f%% variance)\n",
			model.PCA.NComponents, model.PCA.Explained*100)
	} else {
		fmt.Println("Projection:    none")
	}

	if model.Centers == nil {
		fmt.Println("Centers:       none (threshold fallback)")
		return nil
	}
	fmt.Printf("Centers:       %d x %d\n", len(model.Centers.Vectors), model.Centers.Dim)

	ids := make([]int, 0, len(model.LabelMap))
	for id := range model.LabelMap {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("  cluster %d: %s\n", id, model.LabelMap[id])
	}
	return nil
}
