// Package modelserver scores comments with a hosted text-classification
// model that answers in the Hugging Face pipeline shape:
//
//	[{"label": "4 stars", "score": 0.61}, ...]
//
// The default endpoint serves nlptown/bert-base-multilingual-uncased-sentiment,
// whose labels are already on the 1-5 star scale.
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultModel   = "nlptown/bert-base-multilingual-uncased-sentiment"
	DefaultBaseURL = "https://api-inference.huggingface.co/models/"
)

// Config for the model server client
type Config struct {
	// BaseURL is the full predict endpoint. When empty it is DefaultBaseURL + ModelName.
	BaseURL   string
	ModelName string
	APIKey    string // optional bearer token
	Timeout   time.Duration
}

// Client is a client for a text-classification model server
type Client struct {
	endpoint   string
	modelName  string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

type predictRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Prediction is one label/score pair of the model output
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewClient creates a new model server client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL + cfg.ModelName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Model server client initialized",
		zap.String("endpoint", cfg.BaseURL),
		zap.String("model", cfg.ModelName))

	return &Client{
		endpoint:   cfg.BaseURL,
		modelName:  cfg.ModelName,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Score classifies a single comment and returns the top label as a rating
func (c *Client) Score(ctx context.Context, text string) (models.Rating, error) {
	jsonData, err := json.Marshal(predictRequest{Inputs: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model server request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(body))
	}

	predictions, err := decodePredictions(body)
	if err != nil {
		return 0, err
	}

	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	return llm.ParseRating(best.Label)
}

// decodePredictions accepts both a flat list and the batched list-of-lists form
func decodePredictions(body []byte) ([]Prediction, error) {
	var flat []Prediction
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	var nested [][]Prediction
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	return nil, fmt.Errorf("%w: unexpected model server response: %s", llm.ErrInvalidRating, string(body))
}

// Close closes the client
func (c *Client) Close() error {
	return nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": "modelserver",
		"model":    c.modelName,
		"endpoint": c.endpoint,
	}
}
