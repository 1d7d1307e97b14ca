package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/signal"
)

const systemPrompt = `You are a quantitative classifier. Given technical indicators for one asset,
estimate the probability that its price is higher at the next bar.
Respond with JSON only: {"up_probability": <number between 0 and 1>}`

// ChatClient asks an OpenAI-compatible chat model for an up probability.
type ChatClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

func NewChatClient(cfg config.ChatConfig, timeout time.Duration, log *logger.Logger) *ChatClient {
	ocfg := openai.DefaultConfig(cfg.APIKey)
	ocfg.BaseURL = cfg.BaseURL

	return &ChatClient{
		client:  openai.NewClientWithConfig(ocfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  log,
	}
}

// For binds the client to one symbol so it satisfies signal.Predictor.
func (c *ChatClient) For(symbol string) signal.Predictor {
	return &chatPredictor{client: c, symbol: symbol}
}

func (c *ChatClient) UpProbability(ctx context.Context, symbol string, features []float64) (float64, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(symbol, features)},
		},
		Temperature: 0,
	})
	if err != nil {
		return 0, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("chat model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	c.logger.Debug("chat model response", "symbol", symbol, "content", raw)

	p, err := ParseUpProbability(raw)
	if err != nil {
		return 0, fmt.Errorf("parse chat response: %w", err)
	}
	return p, nil
}

func (c *ChatClient) Version() string {
	return "chat:" + c.model
}

func buildUserPrompt(symbol string, features []float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Asset: %s\n", symbol)
	for i, name := range signal.FeatureNames {
		if i >= len(features) {
			break
		}
		fmt.Fprintf(&b, "%s: %.6f\n", name, features[i])
	}
	return b.String()
}

type chatPredictor struct {
	client *ChatClient
	symbol string
}

func (p *chatPredictor) Predict(ctx context.Context, features []float64) (signal.ProbabilityPair, error) {
	up, err := p.client.UpProbability(ctx, p.symbol, features)
	if err != nil {
		return signal.ProbabilityPair{}, err
	}
	return signal.FromUp(up), nil
}

func (p *chatPredictor) Version() string {
	return p.client.Version()
}
