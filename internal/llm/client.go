// Package llm wraps an OpenAI-compatible chat endpoint for the two model
// calls the plugin makes: structured parameter extraction and intent
// classification. Outputs are treated as untrusted and nondeterministic.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model produces no choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Schema describes the JSON object the model must produce.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Config selects the endpoint and model.
type Config struct {
	// Provider is "openai" or "ollama". Ollama is reached through its
	// OpenAI-compatible endpoint at BaseURL.
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// Client calls the chat completions API.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		api:    openai.NewClientWithConfig(oc),
		cfg:    cfg,
		logger: logger.With(slog.String("component", "llm")),
	}
}

// GenerateStructured asks the model for a JSON object matching schema.
func (c *Client) GenerateStructured(ctx context.Context, schema Schema, prompt string) (map[string]any, error) {
	raw, err := json.Marshal(schema.Parameters)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal schema: %w", err)
	}

	system := "Extract the requested values from the user's message. " +
		"Reply with a single JSON object. Omit any value the message does not state."
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
	}
	if c.cfg.Provider == "ollama" {
		system += " The object must follow this JSON Schema: " + string(raw)
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	} else {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        schema.Name,
				Description: schema.Description,
				Schema:      json.RawMessage(raw),
			},
		}
	}
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	dec := json.NewDecoder(strings.NewReader(stripFence(content)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("llm: decode structured output: %w", err)
	}
	return out, nil
}

// GenerateText returns the model's plain-text answer to prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("completion failed", slog.String("model", req.Model), slog.String("error", err.Error()))
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	c.logger.Debug("completion",
		slog.String("model", req.Model),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
