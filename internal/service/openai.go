package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"compass/internal/config"
	"compass/internal/metrics"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenRouterGateway talks to an OpenAI-compatible chat completion API (OpenRouter by default)
type OpenRouterGateway struct {
	client *openai.Client
	config *config.LLMConfig
	logger *zap.Logger
}

// NewOpenRouterGateway creates a gateway from configuration
func NewOpenRouterGateway(cfg *config.LLMConfig, logger *zap.Logger) *OpenRouterGateway {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.APIBase
	clientConfig.HTTPClient = &http.Client{
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			referer: cfg.AppURL,
			title:   cfg.AppTitle,
		},
	}

	return &OpenRouterGateway{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// Complete sends one chat completion and returns the first choice's content
func (g *OpenRouterGateway) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: float32(g.config.Temperature),
		MaxTokens:   g.config.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.GatewayDuration.WithLabelValues(metrics.OutcomeError).Observe(elapsed.Seconds())
		g.logger.Warn("chat completion failed",
			zap.String("model", g.config.Model),
			zap.Int("status", statusOf(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	metrics.GatewayDuration.WithLabelValues(metrics.OutcomeOK).Observe(elapsed.Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices", ErrGatewayUnavailable)
	}

	g.logger.Debug("chat completion",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", elapsed),
	)

	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the ids of the models the API exposes
func (g *OpenRouterGateway) ListModels(ctx context.Context) ([]string, error) {
	list, err := g.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// attributionTransport adds the OpenRouter app attribution headers
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
