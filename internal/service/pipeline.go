package service

import (
	"context"
	"fmt"
	"time"

	"crisis-monitor/internal/aggregate"
	"crisis-monitor/internal/alert"
	"crisis-monitor/internal/models"
	"crisis-monitor/internal/report"
	"crisis-monitor/internal/theme"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NegativePreviewSize is the number of negative comments returned by Analyze
const NegativePreviewSize = 10

// Classifier labels a batch of comments
type Classifier interface {
	ClassifyAll(ctx context.Context, comments []models.Comment) ([]models.Comment, []models.ClassificationFailure)
}

// ChartRenderer draws the label distribution
type ChartRenderer interface {
	Render(counts map[models.Label]int) ([]byte, error)
}

// ThemeExtractor builds the word cloud, returning nil for an insufficient sample
type ThemeExtractor interface {
	Extract(comments []models.Comment) (*theme.Theme, error)
}

// Assembler builds the report document
type Assembler interface {
	Assemble(in report.Input) ([]byte, error)
}

// Pipeline runs classify, aggregate, alert and report assembly
type Pipeline struct {
	classifier Classifier
	charts     ChartRenderer
	themes     ThemeExtractor
	assembler  Assembler
	logger     *zap.Logger
}

// Analysis is the outcome of a run without the document
type Analysis struct {
	RunID           string                         `json:"run_id" yaml:"run_id"`
	Metrics         models.AggregateMetrics        `json:"metrics" yaml:"metrics"`
	Alert           models.Alert                   `json:"alert" yaml:"alert"`
	Failures        []models.ClassificationFailure `json:"failures" yaml:"failures"`
	NegativePreview []models.Comment               `json:"negative_preview" yaml:"negative_preview"`
	Comments        []models.Comment               `json:"-" yaml:"-"`
	DurationMs      int64                          `json:"duration_ms" yaml:"duration_ms"`
}

// Report is an analysis plus the assembled PDF
type Report struct {
	*Analysis
	Themes []theme.Term
	PDF    []byte
}

// Request is the input of one report run. Link and Logo are optional.
type Request struct {
	Comments []models.Comment
	Link     string
	Logo     []byte
}

// NewPipeline creates a pipeline. The classifier is owned by the caller.
func NewPipeline(classifier Classifier, charts ChartRenderer, themes ThemeExtractor, assembler Assembler, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		charts:     charts,
		themes:     themes,
		assembler:  assembler,
		logger:     logger,
	}
}

// Analyze classifies the comments and evaluates the alert level
func (p *Pipeline) Analyze(ctx context.Context, comments []models.Comment) *Analysis {
	return p.analyze(ctx, uuid.NewString(), comments)
}

func (p *Pipeline) analyze(ctx context.Context, runID string, comments []models.Comment) *Analysis {
	start := time.Now()
	logger := p.logger.With(zap.String("run_id", runID))

	logger.Info("Starting classification", zap.Int("comments", len(comments)))

	labeled, failures := p.classifier.ClassifyAll(ctx, comments)
	metrics := aggregate.Compute(labeled)
	level := alert.Evaluate(metrics.NegativePercentage)

	logger.Info("Analysis completed",
		zap.Int("total", metrics.Total),
		zap.Int("negative", metrics.Count(models.Negative)),
		zap.Int("unclassified", metrics.Count(models.Unclassified)),
		zap.Float64("negative_percentage", metrics.NegativePercentage),
		zap.Stringer("alert", level.Tier))

	return &Analysis{
		RunID:           runID,
		Metrics:         metrics,
		Alert:           level,
		Failures:        failures,
		NegativePreview: aggregate.NegativePreview(labeled, NegativePreviewSize),
		Comments:        labeled,
		DurationMs:      time.Since(start).Milliseconds(),
	}
}

// Run analyzes the comments and assembles the report. Chart and word cloud
// are rendered concurrently; neither ever touches disk.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	analysis := p.analyze(ctx, runID, req.Comments)

	var chartPNG []byte
	var cloud *theme.Theme

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chartPNG, err = p.charts.Render(analysis.Metrics.Counts)
		if err != nil {
			return fmt.Errorf("failed to render chart: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cloud, err = p.themes.Extract(analysis.Comments)
		if err != nil {
			// theme is optional
			logger.Warn("Failed to extract themes, omitting word cloud", zap.Error(err))
			cloud = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to render report images", zap.Error(err))
		return nil, err
	}

	in := report.Input{
		Chart:    chartPNG,
		Logo:     req.Logo,
		Link:     req.Link,
		Metrics:  analysis.Metrics,
		Alert:    analysis.Alert,
		Comments: analysis.Comments,
	}
	var terms []theme.Term
	if cloud != nil {
		in.Theme = cloud.PNG
		terms = cloud.Terms
	}

	pdf, err := p.assembler.Assemble(in)
	if err != nil {
		logger.Error("Failed to assemble report", zap.Error(err))
		return nil, fmt.Errorf("failed to assemble report: %w", err)
	}

	logger.Info("Report generated",
		zap.Int("bytes", len(pdf)),
		zap.Bool("theme", cloud != nil),
		zap.Int("failures", len(analysis.Failures)))

	return &Report{
		Analysis: analysis,
		Themes:   terms,
		PDF:      pdf,
	}, nil
}
