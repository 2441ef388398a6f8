package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/synaptica-ai/dependability/pkg/common/config"
	"github.com/synaptica-ai/dependability/pkg/common/logger"
	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
	"github.com/synaptica-ai/dependability/pkg/training"
)

var rootCmd = &cobra.Command{
	Use:   "train-dependability",
	Short: "Train the patient dependability models",
	Long:  "Generates a synthetic patient dataset, fits every classifier and writes the artifact bundle the dependability service loads.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().Int("samples", 2000, "Number of synthetic patients to generate")
	rootCmd.Flags().Int64("seed", 42, "Random seed for the dataset and the train/test split")
	rootCmd.Flags().String("prefix", "", "Artifact path prefix (overrides ARTIFACT_PREFIX)")
	rootCmd.Flags().String("version", "", "Artifact version tag (random when empty)")
	rootCmd.Flags().Bool("report", false, "Print the accuracy report as JSON")
}

func main() {
	logger.Init()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	samples, _ := cmd.Flags().GetInt("samples")
	seed, _ := cmd.Flags().GetInt64("seed")
	version, _ := cmd.Flags().GetString("version")
	printReport, _ := cmd.Flags().GetBool("report")
	prefix := cfg.ArtifactPrefix
	if p, _ := cmd.Flags().GetString("prefix"); p != "" {
		prefix = p
	}

	logger.WithFields(logrus.Fields{
		"samples": samples,
		"seed":    seed,
		"prefix":  prefix,
	}).Info("Generating training data")

	dataset := training.GenerateDataset(samples, seed)
	bundle, report, err := training.Train(dataset, training.Options{Seed: seed, Version: version})
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	for name, acc := range report.Accuracy {
		logger.WithFields(logrus.Fields{
			"model":    name,
			"accuracy": acc,
		}).Info("Model evaluated")
	}

	if err := predictor.SaveBundle(prefix, bundle); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"version":   report.Version,
		"artifacts": predictor.ArtifactPaths(prefix),
	}).Info("Artifacts written")

	if printReport {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return nil
}
