package oracle

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// classifyPromptFormat asks the model for a one-word confidence verdict.
const classifyPromptFormat = `Based on the business information and learned knowledge provided in your system context, can you confidently answer this customer question?

Question: %q

Answer with ONLY one word:
- "YES" if you can answer this confidently with the information you have
- "NO" if you need supervisor help because you don't have enough information

Remember:
- If the question is about hours, pricing, services, location from the business info -> YES
- If the question matches learned knowledge -> YES
- If asking for specific staff schedules, complex custom pricing, or something not in your knowledge -> NO
- Unclear or gibberish questions -> NO

One word answer:`

// Config configures the OpenAI-compatible oracle client.
type Config struct {
	// BaseURL overrides the API endpoint. Any OpenAI-compatible server
	// works (OpenAI, Groq, a local gateway).
	BaseURL string

	// APIKey authenticates against the endpoint.
	APIKey string

	// Model is the chat model used for both classification and generation.
	Model string
}

// OpenAIClient implements Client over the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient creates an oracle client.
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("oracle model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Classify asks the model for a one-word YES/NO verdict and parses it
// strictly. Transport failures and unparseable replies both surface as
// ErrUnavailable.
func (c *OpenAIClient) Classify(ctx context.Context, systemContext, question string) (Verdict, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemContext},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(classifyPromptFormat, question)},
		},
		Temperature: 0.1,
		MaxTokens:   10,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return VerdictUnknown, fmt.Errorf("classify request failed: %w: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return VerdictUnknown, fmt.Errorf("classify returned no choices: %w", ErrUnavailable)
	}

	raw := resp.Choices[0].Message.Content
	verdict, err := ParseVerdict(raw)
	if err != nil {
		c.logger.Warn("unparseable verdict from oracle", zap.String("raw", raw))
		return VerdictUnknown, err
	}

	c.logger.Debug("oracle verdict",
		zap.String("verdict", verdict.String()),
		zap.String("question", question),
	)
	return verdict, nil
}

// Generate produces a reply from the system context and turn history.
func (c *OpenAIClient) Generate(ctx context.Context, systemContext string, history []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemContext,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAgent {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w: %w", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate returned no choices: %w", ErrUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}
