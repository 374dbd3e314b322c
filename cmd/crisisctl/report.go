package main

import (
	"fmt"
	"os"

	"crisis-monitor/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reportOutput string
	reportLink   string
	reportLogo   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the crisis report PDF",
	Long: `Classify every comment and write the PDF report: sentiment chart,
word cloud of negative comments, negativity index, alert level and a
comment sample.

Examples:
  crisisctl report -i comments.xlsx -c comentario
  crisisctl report -i comments.csv -c text --link https://instagram.com/p/abc --logo logo.png -o out.pdf`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output PDF path (default: report.file_name from config)")
	reportCmd.Flags().StringVar(&reportLink, "link", "", "Post link printed in the report")
	reportCmd.Flags().StringVar(&reportLogo, "logo", "", "Logo image (PNG, JPEG or GIF)")
}

func runReport(cmd *cobra.Command, args []string) error {
	pipeline, classifier, comments, cfg, logger, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer classifier.Close()

	logoPath := reportLogo
	if logoPath == "" {
		logoPath = cfg.Report.LogoPath
	}
	var logo []byte
	if logoPath != "" {
		if logo, err = os.ReadFile(logoPath); err != nil {
			logger.Warn("Logo not readable, continuing without it", zap.String("path", logoPath), zap.Error(err))
			logo = nil
		}
	}

	result, err := pipeline.Run(cmd.Context(), service.Request{
		Comments: comments,
		Link:     reportLink,
		Logo:     logo,
	})
	if err != nil {
		return err
	}

	output := reportOutput
	if output == "" {
		output = cfg.Report.FileName
	}
	if err := os.WriteFile(output, result.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d comments, %.1f%% negative, %s\n",
		output, result.Metrics.Total, result.Metrics.NegativePercentage, result.Alert.Tier)
	if len(result.Failures) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d comments could not be classified\n", len(result.Failures))
	}
	return nil
}
