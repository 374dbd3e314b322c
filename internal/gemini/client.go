package gemini

import (
	"context"
	"fmt"

	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API client
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	logger    *zap.Logger
	modelName string
}

// Config for Gemini client
type Config struct {
	APIKey    string
	ModelName string // Default: "gemini-2.0-flash"
	// Endpoint overrides the API host, mostly useful for proxies
	Endpoint string
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SystemInstruction)},
	}

	// Low temperature keeps ratings stable across runs
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(20)
	model.ResponseMIMEType = "application/json"

	logger.Info("Gemini client initialized", zap.String("model", cfg.ModelName))

	return &Client{
		client:    client,
		model:     model,
		logger:    logger,
		modelName: cfg.ModelName,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// Score rates a single comment
func (c *Client) Score(ctx context.Context, text string) (models.Rating, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(llm.BuildPrompt(text)))
	if err != nil {
		return 0, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return 0, fmt.Errorf("empty response from gemini")
	}

	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return 0, fmt.Errorf("unexpected response type from gemini")
	}

	rating, err := llm.ParseRating(string(textPart))
	if err != nil {
		c.logger.Error("Failed to parse Gemini rating",
			zap.Error(err),
			zap.String("original_response", string(textPart)))
		return 0, err
	}

	c.logger.Debug("Comment rated", zap.Int("stars", int(rating)))
	return rating, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": "gemini",
		"model":    c.modelName,
	}
}
