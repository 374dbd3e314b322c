// Package service wires the classification and reporting components into
// one pipeline.
package service

import (
	"context"
	"fmt"

	"crisis-monitor/internal/chart"
	"crisis-monitor/internal/config"
	"crisis-monitor/internal/report"
	"crisis-monitor/internal/scorer"
	"crisis-monitor/internal/sentiment"
	"crisis-monitor/internal/theme"

	"go.uber.org/zap"
)

// Build creates the scorer chain and every pipeline component from config.
// The returned classifier must be closed by the caller.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, *sentiment.Classifier, error) {
	chain, err := scorer.Build(ctx, cfg.Providers, cfg.MaxFailuresBeforeSwitch, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	classifier := sentiment.New(chain, sentiment.Config{
		MaxChars:      cfg.Classifier.MaxChars,
		MinChars:      cfg.Classifier.MinChars,
		Timeout:       cfg.Classifier.Timeout,
		MaxRetries:    cfg.Classifier.MaxRetries,
		RetryInterval: cfg.Classifier.RetryInterval,
		Workers:       cfg.Classifier.Workers,
	}, logger)

	pipeline, err := NewPipelineFromConfig(cfg, classifier, logger)
	if err != nil {
		classifier.Close()
		return nil, nil, err
	}
	return pipeline, classifier, nil
}

// NewPipelineFromConfig builds the rendering side of the pipeline around an
// existing classifier
func NewPipelineFromConfig(cfg *config.Config, classifier Classifier, logger *zap.Logger) (*Pipeline, error) {
	charts, err := chart.New(chart.Kind(cfg.Chart.Kind), cfg.Chart.Width, cfg.Chart.Height)
	if err != nil {
		return nil, err
	}

	themes, err := theme.New(theme.Config{
		Language:  cfg.Theme.Language,
		Stopwords: cfg.Theme.Stopwords,
		Width:     cfg.Theme.Width,
		Height:    cfg.Theme.Height,
		MaxWords:  cfg.Theme.MaxWords,
		Seed:      cfg.Theme.Seed,
	}, logger)
	if err != nil {
		return nil, err
	}

	assembler := report.New(report.Config{
		Title:    cfg.Report.Title,
		Subtitle: cfg.Report.Subtitle,
	}, logger)

	return NewPipeline(classifier, charts, themes, assembler, logger), nil
}
