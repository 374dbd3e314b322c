package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crisis-monitor/internal/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ProviderType represents the type of scoring provider
type ProviderType string

const (
	ProviderGemini      ProviderType = "gemini"
	ProviderOpenAI      ProviderType = "openai"
	ProviderGroq        ProviderType = "groq"
	ProviderOpenRouter  ProviderType = "openrouter"
	ProviderModelServer ProviderType = "modelserver"
)

var (
	// ErrInvalidRating means the scorer answered with something that is not a 1-5 rating.
	// Retrying the same text will not help.
	ErrInvalidRating = errors.New("invalid rating")
	// ErrAllProvidersFailed is returned when every configured provider failed for one text.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type      ProviderType  `yaml:"type"`
	APIKey    string        `yaml:"api_key"`
	ModelName string        `yaml:"model_name"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider is anything that maps a text snippet to a 1-5 rating
type Provider interface {
	Score(ctx context.Context, text string) (models.Rating, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// RateLimitedProvider wraps a provider with rate limiting
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewRateLimitedProvider wraps a provider with a token bucket refilled requestsPerMinute times a minute
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 8 // Conservative default for free tier
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Score(ctx context.Context, text string) (models.Rating, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return p.provider.Score(ctx, text)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	info := p.provider.GetModelInfo()
	info["rate_limit"] = p.limiter.Burst()
	return info
}
