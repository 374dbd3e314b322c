package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"crisis-monitor/internal/dataset"
	"crisis-monitor/internal/scheduler"
	"crisis-monitor/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchCron     string
	watchTimezone string
	watchOutput   string
	watchLink     string
	watchNow      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the report on a schedule",
	Long: `Re-read the input table and regenerate the report on a cron schedule,
overwriting the output file each time. Runs until interrupted.

The schedule accepts standard 5-field expressions and descriptors such as
@hourly or "@every 30m".

Examples:
  crisisctl watch -i export.csv -c comentario --cron "@every 30m"
  crisisctl watch -i export.xlsx -c text --cron "0 8 * * *" --timezone America/Sao_Paulo --now`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchCron, "cron", "", "Cron expression (default: schedule.cron from config)")
	watchCmd.Flags().StringVar(&watchTimezone, "timezone", "", "Timezone (default: schedule.timezone from config)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Output PDF path (default: report.file_name from config)")
	watchCmd.Flags().StringVar(&watchLink, "link", "", "Post link printed in the report")
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Run once immediately before waiting for the schedule")
}

func runWatch(cmd *cobra.Command, args []string) error {
	pipeline, classifier, _, cfg, logger, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer classifier.Close()

	expr := firstNonEmpty(watchCron, cfg.Schedule.Cron)
	output := firstNonEmpty(watchOutput, cfg.Report.FileName)

	sched, err := scheduler.New(firstNonEmpty(watchTimezone, cfg.Schedule.Timezone), logger)
	if err != nil {
		return err
	}

	var logo []byte
	if cfg.Report.LogoPath != "" {
		if logo, err = os.ReadFile(cfg.Report.LogoPath); err != nil {
			logger.Warn("Logo not readable, continuing without it", zap.Error(err))
			logo = nil
		}
	}

	task := func(ctx context.Context) error {
		return regenerate(ctx, pipeline, output, logo, cmd.OutOrStdout(), logger)
	}
	if err := sched.Schedule(expr, task); err != nil {
		return err
	}

	if watchNow {
		sched.RunNow(task)
	}

	sched.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "watching %s, next run at %s\n", inputPath, sched.Next().Format("2006-01-02 15:04 MST"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Stopping scheduler...")
	sched.Stop()
	return nil
}

// regenerate reloads the input so every run sees the latest export
func regenerate(ctx context.Context, pipeline *service.Pipeline, output string, logo []byte, out io.Writer, logger *zap.Logger) error {
	comments, err := dataset.LoadFile(inputPath, columnName)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, service.Request{
		Comments: comments,
		Link:     watchLink,
		Logo:     logo,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Info("Report regenerated",
		zap.String("output", output),
		zap.String("run_id", result.RunID))
	fmt.Fprintf(out, "%s: %d comments, %.1f%% negative, %s\n",
		output, result.Metrics.Total, result.Metrics.NegativePercentage, result.Alert.Tier)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
