// Package chatcompletion scores comments against any OpenAI-compatible
// /chat/completions endpoint. Groq and OpenRouter are preset.
package chatcompletion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/models"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// Preset holds the defaults of a known OpenAI-compatible vendor
type Preset struct {
	Provider  string
	BaseURL   string
	ModelName string
}

var (
	Groq = Preset{
		Provider:  "groq",
		BaseURL:   "https://api.groq.com/openai/v1",
		ModelName: "llama-3.3-70b-versatile",
	}
	OpenRouter = Preset{
		Provider:  "openrouter",
		BaseURL:   "https://openrouter.ai/api/v1",
		ModelName: "meta-llama/llama-3.2-3b-instruct:free",
	}
)

// Config for a chat-completions client
type Config struct {
	APIKey    string
	ModelName string
	BaseURL   string
	Timeout   time.Duration
}

// Client represents a chat-completions API client
type Client struct {
	provider  string
	baseURL   string
	modelName string
	client    *openai.Client
	logger    *zap.Logger
}

// NewClient creates a new client; empty config fields fall back to the preset
func NewClient(preset Preset, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", preset.Provider)
	}
	if cfg.ModelName == "" {
		cfg.ModelName = preset.ModelName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = preset.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/") + "/"

	// retries are owned by the classifier
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	)

	logger.Info("Chat completion client initialized",
		zap.String("provider", preset.Provider),
		zap.String("model", cfg.ModelName))

	return &Client{
		provider:  preset.Provider,
		baseURL:   baseURL,
		modelName: cfg.ModelName,
		client:    &client,
		logger:    logger,
	}, nil
}

// Close closes the client
func (c *Client) Close() error {
	return nil
}

// Score rates a single comment
func (c *Client) Score(ctx context.Context, text string) (models.Rating, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.SystemInstruction),
			openai.UserMessage(llm.BuildPrompt(text)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(20),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return 0, fmt.Errorf("%s API returned status %d: %w", c.provider, apiErr.StatusCode, err)
		}
		return 0, fmt.Errorf("%s API error: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("empty response from %s", c.provider)
	}

	content := resp.Choices[0].Message.Content
	rating, err := llm.ParseRating(content)
	if err != nil {
		c.logger.Error("Failed to parse rating",
			zap.String("provider", c.provider),
			zap.Error(err),
			zap.String("original_response", content))
		return 0, err
	}

	c.logger.Debug("Comment rated",
		zap.String("provider", c.provider),
		zap.Int("stars", int(rating)))
	return rating, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": c.provider,
		"model":    c.modelName,
		"base_url": c.baseURL,
	}
}
