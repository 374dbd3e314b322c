package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/models"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"
)

// Config for the OpenAI scorer
type Config struct {
	APIKey    string
	ModelName string // Default: "gpt-4o-mini"
	BaseURL   string
}

// Client scores comments through the Responses API with a strict JSON schema
type Client struct {
	client    *openai.Client
	modelName string
	logger    *zap.Logger
}

var ratingSchema = generateSchema[llm.RatingResponse]()

// NewClient creates a new OpenAI scorer
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gpt-4o-mini"
	}

	// retries are owned by the classifier
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	logger.Info("OpenAI client initialized", zap.String("model", cfg.ModelName))

	return &Client{
		client:    &client,
		modelName: cfg.ModelName,
		logger:    logger,
	}, nil
}

// Score rates a single comment
func (c *Client) Score(ctx context.Context, text string) (models.Rating, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "CommentRating",
			Schema:      ratingSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Star rating of one comment"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           c.modelName,
		MaxOutputTokens: openai.Int(50),
		Instructions:    openai.String(llm.SystemInstruction),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(llm.BuildPrompt(text), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("openai API error: %w", err)
	}

	rating, err := llm.ParseRating(resp.OutputText())
	if err != nil {
		c.logger.Error("Failed to parse OpenAI rating",
			zap.Error(err),
			zap.String("original_response", resp.OutputText()))
		return 0, err
	}
	return rating, nil
}

// Close is a no-op, the HTTP client holds no resources
func (c *Client) Close() error {
	return nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": "openai",
		"model":    c.modelName,
	}
}

func generateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	b, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	ensureStrictCompliance(m)
	return m
}

// ensureStrictCompliance marks every object closed and every property required,
// which strict structured outputs insist on
func ensureStrictCompliance(schema map[string]interface{}) {
	delete(schema, "$schema")
	delete(schema, "$id")

	if schemaType, ok := schema["type"].(string); ok && schemaType == "object" {
		schema["additionalProperties"] = false

		if properties, ok := schema["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(properties))
			for name := range properties {
				required = append(required, name)
			}
			schema["required"] = required
		}
	}

	if properties, ok := schema["properties"].(map[string]interface{}); ok {
		for name, prop := range properties {
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}
			// strict mode rejects numeric bounds on integers
			if strings.EqualFold(fmt.Sprint(propMap["type"]), "integer") {
				delete(propMap, "minimum")
				delete(propMap, "maximum")
			}
			ensureStrictCompliance(propMap)
			properties[name] = propMap
		}
	}
}
