package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"crisis-monitor/internal/config"
	"crisis-monitor/internal/models"
	"crisis-monitor/internal/report"
	"crisis-monitor/internal/sentiment"
	"crisis-monitor/internal/theme"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubScorer rates by lookup so the run is fully deterministic
type stubScorer map[string]models.Rating

func (s stubScorer) Score(_ context.Context, text string) (models.Rating, error) {
	if r, ok := s[text]; ok {
		return r, nil
	}
	return 0, errors.New("unknown text")
}

func (s stubScorer) Close() error { return nil }

func syntheticBatch() ([]models.Comment, stubScorer) {
	texts := []struct {
		text   string
		rating models.Rating
	}{
		{"Atendimento péssimo, ninguém responde", 1},
		{"Entrega atrasada de novo", 2},
		{"Produto chegou quebrado", 1},
		{"Atendimento lento e confuso", 2},
		{"Nada de especial", 3},
		{"Chegou no prazo", 3},
		{"Poderia ser melhor", 3},
		{"Gostei muito", 5},
		{"Excelente atendimento", 4},
		{"Recomendo a todos", 5},
	}

	comments := make([]models.Comment, len(texts))
	scorer := stubScorer{}
	for i, tt := range texts {
		comments[i] = models.Comment{ID: i + 1, Row: i + 2, Text: tt.text}
		scorer[tt.text] = tt.rating
	}
	return comments, scorer
}

func newPipeline(t *testing.T, scorer sentiment.Scorer) *Pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.Default()
	cfg.Classifier.MaxRetries = 0

	classifier := sentiment.New(scorer, sentiment.Config{MaxRetries: 0}, logger)
	p, err := NewPipelineFromConfig(cfg, classifier, logger)
	require.NoError(t, err)
	return p
}

func TestRun_RoundTrip(t *testing.T) {
	comments, scorer := syntheticBatch()
	p := newPipeline(t, scorer)

	result, err := p.Run(context.Background(), Request{Comments: comments, Link: "https://example.com/p/42"})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Metrics.Total)
	assert.Equal(t, 4, result.Metrics.Count(models.Negative))
	assert.Equal(t, 3, result.Metrics.Count(models.Neutral))
	assert.Equal(t, 3, result.Metrics.Count(models.Positive))
	assert.InDelta(t, 40.0, result.Metrics.NegativePercentage, 1e-9)
	assert.Equal(t, models.Unstable, result.Alert.Tier)
	assert.Empty(t, result.Failures)

	assert.True(t, bytes.HasPrefix(result.PDF, []byte("%PDF")))
	assert.NotEmpty(t, result.Themes)
	assert.Equal(t, theme.Term{Text: "atendimento", Count: 2}, result.Themes[0])

	require.Len(t, result.NegativePreview, 4)
	assert.Equal(t, 1, result.NegativePreview[0].ID)
	assert.NotEmpty(t, result.RunID)

	for i, c := range result.Comments {
		assert.Equal(t, i+1, c.ID)
	}
}

func TestRun_ScoringFailuresDoNotAbort(t *testing.T) {
	comments, scorer := syntheticBatch()
	delete(scorer, "Gostei muito")
	delete(scorer, "Nada de especial")
	p := newPipeline(t, scorer)

	result, err := p.Run(context.Background(), Request{Comments: comments})
	require.NoError(t, err)

	assert.Equal(t, 10, result.Metrics.Total)
	assert.Equal(t, 2, result.Metrics.Count(models.Unclassified))
	require.Len(t, result.Failures, 2)
	assert.Equal(t, 5, result.Failures[0].CommentID)
	assert.Equal(t, 8, result.Failures[1].CommentID)
}

func TestRun_EmptyBatch(t *testing.T) {
	p := newPipeline(t, stubScorer{})

	result, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Metrics.Total)
	assert.Equal(t, 0.0, result.Metrics.NegativePercentage)
	assert.Equal(t, models.Controlled, result.Alert.Tier)
	assert.Empty(t, result.Themes)
	assert.True(t, bytes.HasPrefix(result.PDF, []byte("%PDF")))
}

func TestRun_InsufficientThemeSample(t *testing.T) {
	p := newPipeline(t, stubScorer{"mau": 1, "ótimo produto": 5})

	result, err := p.Run(context.Background(), Request{Comments: []models.Comment{
		{ID: 1, Text: "mau"},
		{ID: 2, Text: "ótimo produto"},
	}})
	require.NoError(t, err)
	assert.Nil(t, result.Themes)
	assert.InDelta(t, 50.0, result.Metrics.NegativePercentage, 1e-9)
	assert.Equal(t, models.Crisis, result.Alert.Tier)
}

type failingCharts struct{}

func (failingCharts) Render(map[models.Label]int) ([]byte, error) {
	return nil, fmt.Errorf("renderer offline")
}

type recordingAssembler struct {
	in report.Input
}

func (r *recordingAssembler) Assemble(in report.Input) ([]byte, error) {
	r.in = in
	return []byte("%PDF-stub"), nil
}

type noTheme struct{}

func (noTheme) Extract([]models.Comment) (*theme.Theme, error) { return nil, nil }

type pngCharts struct{}

func (pngCharts) Render(map[models.Label]int) ([]byte, error) { return []byte("png"), nil }

func TestRun_ChartFailure(t *testing.T) {
	comments, scorer := syntheticBatch()
	logger := zaptest.NewLogger(t)
	p := NewPipeline(sentiment.New(scorer, sentiment.Config{}, logger), failingCharts{}, noTheme{}, &recordingAssembler{}, logger)

	_, err := p.Run(context.Background(), Request{Comments: comments})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer offline")
}

func TestRun_PassesOptionalAssets(t *testing.T) {
	comments, scorer := syntheticBatch()
	logger := zaptest.NewLogger(t)
	assembler := &recordingAssembler{}
	p := NewPipeline(sentiment.New(scorer, sentiment.Config{}, logger), pngCharts{}, noTheme{}, assembler, logger)

	result, err := p.Run(context.Background(), Request{Comments: comments, Link: "https://x.test", Logo: []byte("logo")})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-stub"), result.PDF)
	assert.Equal(t, []byte("png"), assembler.in.Chart)
	assert.Nil(t, assembler.in.Theme)
	assert.Equal(t, []byte("logo"), assembler.in.Logo)
	assert.Equal(t, "https://x.test", assembler.in.Link)
	assert.Len(t, assembler.in.Comments, 10)
}

func TestRun_UnplaceableThemeStillProducesReport(t *testing.T) {
	laugh := strings.Repeat("k", 200)
	p := newPipeline(t, stubScorer{laugh: 1, "ótimo produto": 5})

	result, err := p.Run(context.Background(), Request{Comments: []models.Comment{
		{ID: 1, Text: laugh},
		{ID: 2, Text: "ótimo produto"},
	}})
	require.NoError(t, err)
	assert.Nil(t, result.Themes)
	assert.Equal(t, models.Crisis, result.Alert.Tier)
	assert.True(t, bytes.HasPrefix(result.PDF, []byte("%PDF")))
}

type failingTheme struct{}

func (failingTheme) Extract([]models.Comment) (*theme.Theme, error) {
	return nil, errors.New("font cache corrupted")
}

func TestRun_ThemeFailureOmitsSection(t *testing.T) {
	comments, scorer := syntheticBatch()
	logger := zaptest.NewLogger(t)
	assembler := &recordingAssembler{}
	p := NewPipeline(sentiment.New(scorer, sentiment.Config{}, logger), pngCharts{}, failingTheme{}, assembler, logger)

	result, err := p.Run(context.Background(), Request{Comments: comments})
	require.NoError(t, err)
	assert.Nil(t, result.Themes)
	assert.Nil(t, assembler.in.Theme)
	assert.Equal(t, []byte("png"), assembler.in.Chart)
}

func TestAnalyze(t *testing.T) {
	comments, scorer := syntheticBatch()
	p := newPipeline(t, scorer)

	analysis := p.Analyze(context.Background(), comments)
	assert.Equal(t, models.Unstable, analysis.Alert.Tier)
	assert.Len(t, analysis.NegativePreview, 4)
	assert.Len(t, analysis.Comments, 10)
}
