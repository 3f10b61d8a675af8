package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ashureev/promptlabs/internal/domain"
)

// OpenAIGateway implements Model against the OpenAI chat completion API.
type OpenAIGateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGateway creates a gateway for the given API key and model.
func NewOpenAIGateway(apiKey, model string, timeout time.Duration) (*OpenAIGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI gateway", "model", model, "timeout", timeout)
	return &OpenAIGateway{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}, nil
}

// Generate sends the assembled prompt and returns the model's reply. The
// call is bounded by the configured timeout; a timeout or provider failure
// returns a gateway Error.
func (g *OpenAIGateway) Generate(ctx context.Context, system string, turns []domain.Turn) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err, "model", g.model)
		return "", &Error{Err: err}
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", &Error{Err: fmt.Errorf("provider returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
