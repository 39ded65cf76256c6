// Package reasoner talks to an OpenAI-compatible chat completion service.
package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"exegesis/internal/domain"
)

// Config configures the chat client.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client implements domain.Reasoner on top of go-openai. It makes exactly one
// request per call and never retries.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

var _ domain.Reasoner = (*Client)(nil)

// NewClient returns an error wrapping domain.ErrMissingCredentials when no key is set.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrMissingCredentials
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

// Complete sends one system and one user message at temperature zero.
func (c *Client) Complete(ctx context.Context, req domain.ReasonRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: maxTokens,
		// A literal 0 is dropped by omitempty and the server default applies.
		Temperature: math.SmallestNonzeroFloat32,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Debug("chat completion failed", "model", c.model, "elapsed", time.Since(start), "error", err)
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", domain.ErrEmptyResponse
	}
	c.logger.Debug("chat completion done",
		"model", resp.Model,
		"elapsed", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return content, nil
}

// mapError turns go-openai status errors into domain.ServiceError.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("chat completion: %w", &domain.ServiceError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("chat completion: %w", &domain.ServiceError{StatusCode: reqErr.HTTPStatusCode})
	}
	return fmt.Errorf("chat completion: %w", err)
}
