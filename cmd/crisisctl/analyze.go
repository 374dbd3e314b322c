package main

import (
	"encoding/json"
	"fmt"
	"io"

	"crisis-monitor/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print sentiment metrics and the alert level",
	Long: `Classify every comment and print the metrics, alert level,
classification failures and a preview of negative comments.

Examples:
  crisisctl analyze -i comments.csv -c text
  crisisctl analyze -i comments.xlsx -c comentario --format json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "yaml", "Output format (yaml|json)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "yaml" && analyzeFormat != "json" {
		return fmt.Errorf("unsupported format: %s (use yaml or json)", analyzeFormat)
	}

	pipeline, classifier, comments, _, logger, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer classifier.Close()

	analysis := pipeline.Analyze(cmd.Context(), comments)
	return writeAnalysis(cmd.OutOrStdout(), analysis, analyzeFormat)
}

func writeAnalysis(out io.Writer, analysis *service.Analysis, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	default:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(analysis); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}
}
