// Package scorer builds the external rating provider chain from configuration.
package scorer

import (
	"context"
	"fmt"

	"crisis-monitor/internal/chatcompletion"
	"crisis-monitor/internal/gemini"
	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/modelserver"
	"crisis-monitor/internal/openai"

	"go.uber.org/zap"
)

// Build creates every configured provider, wraps each with its rate limit and
// chains them with fallback. With no providers configured the public
// nlptown model endpoint is used.
func Build(ctx context.Context, configs []llm.ProviderConfig, maxFailures int, logger *zap.Logger) (*llm.MultiProviderClient, error) {
	if len(configs) == 0 {
		logger.Warn("No providers configured, falling back to the default model server")
		configs = []llm.ProviderConfig{{Type: llm.ProviderModelServer}}
	}

	providers := make([]llm.Provider, 0, len(configs))
	for i, providerCfg := range configs {
		provider, err := newProvider(ctx, providerCfg, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, llm.NewRateLimitedProvider(provider, providerCfg.RequestsPerMinute, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("requests_per_minute", providerCfg.RequestsPerMinute),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return llm.NewMultiProviderClient(providers, maxFailures, logger)
}

func newProvider(ctx context.Context, cfg llm.ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	switch cfg.Type {
	case llm.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			Endpoint:  cfg.BaseURL,
		}, logger)
	case llm.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
		}, logger)
	case llm.ProviderGroq, llm.ProviderOpenRouter:
		preset := chatcompletion.Groq
		if cfg.Type == llm.ProviderOpenRouter {
			preset = chatcompletion.OpenRouter
		}
		return chatcompletion.NewClient(preset, chatcompletion.Config{
			APIKey:    cfg.APIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
		}, logger)
	case llm.ProviderModelServer:
		return modelserver.NewClient(modelserver.Config{
			BaseURL:   cfg.BaseURL,
			ModelName: cfg.ModelName,
			APIKey:    cfg.APIKey,
			Timeout:   cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
