// Package cli implements the offline training tool.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/edulab-ai/progresscluster/internal/buildconfig"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "progresstrain",
	Short:   "Train and inspect learner-progress cluster bundles",
	Version: buildconfig.String(),
	Long: `progresstrain runs the offline clustering pipeline over a tutoring
conversation corpus and freezes the result as a versioned asset bundle
for the serving API.

Example usage:
  progresstrain train --corpus messages.json      # fit a draft bundle
  progresstrain train --accept-labels             # freeze the label map
  progresstrain inspect <version>                 # show bundle details`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "train.yaml", "training config file")
}
