package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/plugin/ai/timeout"
)

const (
	// DefaultMaxBatch is the provider's input-count ceiling per embeddings request.
	DefaultMaxBatch = 100
	// DefaultMaxChars is the per-text truncation ceiling applied before dispatch.
	DefaultMaxChars = 8000
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	// The i-th vector always corresponds to the i-th text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Model returns the identifier of the model producing the vectors.
	Model() string
}

type embeddingService struct {
	client     *openai.Client
	apiKey     string
	needsKey   bool
	model      string
	dimensions int
	maxBatch   int
	maxChars   int
}

// NewEmbeddingService creates a new EmbeddingService.
// A missing credential is reported when the service is first used, not here.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	var clientConfig openai.ClientConfig
	needsKey := true

	switch cfg.Provider {
	case "openai", "siliconflow":
		// SiliconFlow is compatible with OpenAI API
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}

	case "ollama":
		// Ollama serves an OpenAI compatible endpoint under /v1
		clientConfig = openai.DefaultConfig("ollama")
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
		needsKey = false

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		apiKey:     cfg.APIKey,
		needsKey:   needsKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxBatch:   maxBatch,
		maxChars:   maxChars,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperrors.Upstream("empty embedding result", nil)
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > s.maxBatch {
		return nil, apperrors.Validation(fmt.Sprintf("embedding batch of %d texts exceeds maximum of %d", len(texts), s.maxBatch)).
			WithContext("count", len(texts))
	}
	if s.needsKey && s.apiKey == "" {
		return nil, apperrors.Configuration("embedding API key is not configured")
	}

	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = TruncateText(text, s.maxChars)
	}

	req := openai.EmbeddingRequest{
		Input:      input,
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	resp, err := s.client.CreateEmbeddings(callCtx, req)
	if err != nil {
		return nil, apperrors.Upstream("create embeddings failed", err)
	}

	if len(resp.Data) != len(input) {
		return nil, apperrors.Upstream(fmt.Sprintf("embedding response has %d vectors for %d inputs", len(resp.Data), len(input)), nil)
	}

	// Place vectors by their reported index so output order matches input order.
	vectors := make([][]float32, len(input))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) || vectors[data.Index] != nil {
			return nil, apperrors.Upstream(fmt.Sprintf("embedding response has invalid index %d", data.Index), nil)
		}
		vectors[data.Index] = data.Embedding
	}

	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

func (s *embeddingService) Model() string {
	return s.model
}

// TruncateText cuts text to at most maxChars characters.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
