package llm

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.cerebras.ai/v1"
	DefaultModel   = "llama-3.3-70b"

	defaultSystemPrompt = "You are a careful, strict fact-checking assistant. Follow the requested output format exactly."
)

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	Timeout      time.Duration
	SystemPrompt string
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	temperature  float32
	timeout      time.Duration
	systemPrompt string
}

var _ LanguageModel = (*OpenAIClient)(nil)

func NewOpenAIClient(c OpenAIConfig) (*OpenAIClient, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}

	config := openai.DefaultConfig(c.APIKey)
	config.BaseURL = strings.TrimRight(cmp.Or(c.BaseURL, DefaultBaseURL), "/")

	model := cmp.Or(c.Model, DefaultModel)
	slog.Info("Initializing model client", "model", model, "base_url", config.BaseURL)

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(config),
		model:        model,
		temperature:  c.Temperature,
		timeout:      cmp.Or(c.Timeout, 60*time.Second),
		systemPrompt: cmp.Or(c.SystemPrompt, defaultSystemPrompt),
	}, nil
}

func (o *OpenAIClient) Infer(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.temperature,
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	slog.Debug("Model responded",
		"model", o.model,
		"duration", time.Since(start),
		"finish_reason", resp.Choices[0].FinishReason,
		"tokens", resp.Usage.TotalTokens)

	return resp.Choices[0].Message.Content, nil
}
