// Package openai wraps OpenAI-compatible APIs for embeddings and chat
// completions. Completions typically point at Groq's OpenAI-compatible
// endpoint; embeddings at OpenAI itself. Both must match whatever scheme
// the index artifact was built with.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sattva-labs/sattva/internal/domain"
)

const (
	// DefaultEmbeddingModel is the model used when none is configured.
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// DefaultCompletionModel matches the Groq model the service ships with.
	DefaultCompletionModel = "llama-3.3-70b-versatile"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrEmptyPrompt is returned when a completion is requested with no messages
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoCompletion is returned when the API answers with no choices
	ErrNoCompletion = errors.New("no completion choices returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CompletionAPI defines the interface for chat completion calls
type CompletionAPI interface {
	CreateChatCompletion(ctx context.Context, messages []domain.PromptMessage) (string, error)
}

func newAPIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

type embeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func (a *embeddingAdapter) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}

// EmbeddingClient generates query embeddings. It is a pure function of
// its input text from the caller's point of view.
type EmbeddingClient struct {
	api        EmbeddingAPI
	dimensions int
}

// NewEmbeddingClient creates an embedding client for an OpenAI-compatible
// endpoint.
func NewEmbeddingClient(cfg EmbeddingConfig) *EmbeddingClient {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &EmbeddingClient{
		api:        &embeddingAdapter{client: newAPIClient(cfg.APIKey, cfg.BaseURL), model: openai.EmbeddingModel(model)},
		dimensions: cfg.Dimensions,
	}
}

// GenerateEmbedding generates an embedding for the given text. When the
// client was configured with an expected dimension it rejects vectors of
// any other length, since mismatched dimensions make similarity scores
// meaningless.
func (c *EmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if c.dimensions > 0 && len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}

	return embedding, nil
}

// CompletionConfig configures the completion client.
type CompletionConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

type completionAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func (a *completionAdapter) CreateChatCompletion(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// CompletionClient invokes the external completion service. Transport and
// service failures are retried exactly once with unchanged input.
type CompletionClient struct {
	api CompletionAPI
}

// NewCompletionClient creates a completion client for an OpenAI-compatible
// endpoint.
func NewCompletionClient(cfg CompletionConfig) *CompletionClient {
	model := cfg.Model
	if model == "" {
		model = DefaultCompletionModel
	}
	return &CompletionClient{
		api: &completionAdapter{
			client:      newAPIClient(cfg.APIKey, cfg.BaseURL),
			model:       model,
			temperature: cfg.Temperature,
			maxTokens:   cfg.MaxTokens,
		},
	}
}

// Complete sends the composed prompt and returns the completion text.
// A failed call is retried once; the retry is skipped when the request
// context is already done.
func (c *CompletionClient) Complete(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	if len(messages) == 0 {
		return "", ErrEmptyPrompt
	}

	answer, err := c.api.CreateChatCompletion(ctx, messages)
	if err == nil {
		return answer, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	answer, retryErr := c.api.CreateChatCompletion(ctx, messages)
	if retryErr != nil {
		return "", fmt.Errorf("completion failed after retry: %w", retryErr)
	}
	return answer, nil
}
