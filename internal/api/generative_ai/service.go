package generativeAI

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// TextGenerator returns the raw text of a single completion for prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

var (
	_ TextGenerator = (*AIClient)(nil)
	_ TextGenerator = (*OpenAIClient)(nil)
)

type AIClient struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewAIClient(ctx context.Context, apiKey, model string) (*AIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key: %w", types.ErrMissingCredential)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &AIClient{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.7)},
	}, nil
}

func (ai *AIClient) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return result.Text(), nil
}

func (ai *AIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return ai.GenerateContent(ctx, prompt, ai.config)
}

// OpenAIClient serves the same prompts through any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key: %w", types.ErrMissingCredential)
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (c *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
