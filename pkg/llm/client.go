package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/medscribe-ai/platform/pkg/common/config"
	"github.com/medscribe-ai/platform/pkg/common/logger"
	openai "github.com/sashabaranov/go-openai"
)

// Completer is the minimal surface the pipeline needs from a generative
// text service. Both document generation and the validator's cross-check
// go through it, which keeps tests to a single fake.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	SystemInstruction string
	UserPrompt        string
	Temperature       float32
	MaxTokens         int
}

type Client struct {
	client *openai.Client
	http   *http.Client
	model  string
}

func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.LLMAPIKey == "" {
		return nil, errors.New("LLM_API_KEY not set")
	}

	httpClient := &http.Client{Timeout: cfg.LLMRequestTimeout}

	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	clientCfg.HTTPClient = httpClient
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		http:   httpClient,
		model:  cfg.LLMModelName,
	}, nil
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("model", c.model).Error("chat completion failed")
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
