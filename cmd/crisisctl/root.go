package main

import (
	"context"
	"fmt"

	"crisis-monitor/internal/config"
	"crisis-monitor/internal/dataset"
	"crisis-monitor/internal/models"
	"crisis-monitor/internal/sentiment"
	"crisis-monitor/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "crisisctl",
	Short: "Sentiment crisis monitoring for comment exports",
	Long: `Classify a table of comments, measure the negativity index and
produce the crisis report.

Input tables are CSV or XLSX (first sheet) with a header row.

Examples:
  crisisctl report --input comments.xlsx --column comentario
  crisisctl analyze --input comments.csv --column text --format json`,
	SilenceUsage: true,
}

// Shared flags
var (
	configPath string
	inputPath  string
	columnName string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "Comment table (.csv or .xlsx)")
	rootCmd.PersistentFlags().StringVarP(&columnName, "column", "c", "", "Text column name (optional for single-column tables)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Development logging")
	rootCmd.MarkPersistentFlagRequired("input")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(configPath)
}

// setup loads config and input, then builds the pipeline. The table is parsed
// before any scorer is created so a bad file fails fast.
func setup(ctx context.Context) (*service.Pipeline, *sentiment.Classifier, []models.Comment, *config.Config, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	comments, err := dataset.LoadFile(inputPath, columnName)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	logger.Info("Dataset loaded", zap.String("input", inputPath), zap.Int("comments", len(comments)))

	pipeline, classifier, err := service.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return pipeline, classifier, comments, cfg, logger, nil
}
